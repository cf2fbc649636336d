package job

import "testing"

func TestNewJobSeedsPhasesInStageOrder(t *testing.T) {
	required := [int(NumStages)]int{60, 20, 120}
	defects := [int(NumStages)]float64{0.01, 0.001, 0.025}
	j := NewJob("wafer-1", required, defects)

	for i := 0; i < int(NumStages); i++ {
		if j.Phases[i].RequiredTime != required[i] {
			t.Errorf("phase %d RequiredTime = %d, want %d", i, j.Phases[i].RequiredTime, required[i])
		}
		if j.Phases[i].DefectChance != defects[i] {
			t.Errorf("phase %d DefectChance = %v, want %v", i, j.Phases[i].DefectChance, defects[i])
		}
	}
	if j.CurrentStage != Deposition {
		t.Errorf("CurrentStage = %v, want Deposition", j.CurrentStage)
	}
}

func TestPhaseStateIsDone(t *testing.T) {
	p := PhaseState{RequiredTime: 5, ElapsedTime: 4}
	if p.IsDone() {
		t.Error("IsDone() = true before reaching RequiredTime")
	}
	p.ElapsedTime = 5
	if !p.IsDone() {
		t.Error("IsDone() = false at RequiredTime")
	}
	p.ElapsedTime = 6
	if !p.IsDone() {
		t.Error("IsDone() = false past RequiredTime")
	}
}

func TestPhaseStateTimeRemainingNeverNegative(t *testing.T) {
	p := PhaseState{RequiredTime: 5, ElapsedTime: 9}
	if got := p.TimeRemaining(); got != 0 {
		t.Errorf("TimeRemaining() = %d, want 0", got)
	}
	p.ElapsedTime = 2
	if got := p.TimeRemaining(); got != 3 {
		t.Errorf("TimeRemaining() = %d, want 3", got)
	}
}

func TestArenaAddGetAll(t *testing.T) {
	a := NewArena()
	j1 := NewJob("a", [int(NumStages)]int{}, [int(NumStages)]float64{})
	j2 := NewJob("b", [int(NumStages)]int{}, [int(NumStages)]float64{})
	a.Add(j1)
	a.Add(j2)

	if got := a.Get("a"); got != j1 {
		t.Error("Get(\"a\") did not return j1")
	}
	if got := a.Get("missing"); got != nil {
		t.Error("Get(\"missing\") returned non-nil")
	}
	if got := len(a.All()); got != 2 {
		t.Errorf("All() length = %d, want 2", got)
	}
}

func TestArenaPhaseReturnsOwnStage(t *testing.T) {
	a := NewArena()
	j := NewJob("a", [int(NumStages)]int{10, 20, 30}, [int(NumStages)]float64{})
	p := a.Phase(j, IonImplant, IonImplant)
	if p.RequiredTime != 20 {
		t.Errorf("Phase(IonImplant) RequiredTime = %d, want 20", p.RequiredTime)
	}
}

func TestArenaPhasePanicsOnStageMismatch(t *testing.T) {
	a := NewArena()
	j := NewJob("a", [int(NumStages)]int{}, [int(NumStages)]float64{})
	defer func() {
		if r := recover(); r == nil {
			t.Error("Phase with mismatched stage did not panic")
		}
	}()
	_ = a.Phase(j, Deposition, IonImplant)
}

func TestStageString(t *testing.T) {
	cases := map[Stage]string{
		Deposition:    "deposition",
		IonImplant:    "ion_implant",
		CrystalGrowth: "crystal_growth",
		NumStages:     "complete",
	}
	for stage, want := range cases {
		if got := stage.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", int(stage), got, want)
		}
	}
}
