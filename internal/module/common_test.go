package module

import (
	"testing"

	"github.com/arobi/forgesim/internal/clock"
	"github.com/arobi/forgesim/internal/power"
)

func TestDefectSamplerZeroChanceNeverFires(t *testing.T) {
	d := newDefectSampler(1)
	for i := 0; i < 100; i++ {
		if d.sample(0) {
			t.Fatal("sample(0) returned true, want always false")
		}
	}
}

func TestDefectSamplerCertainChanceAlwaysFires(t *testing.T) {
	d := newDefectSampler(1)
	for i := 0; i < 100; i++ {
		if !d.sample(1) {
			t.Fatal("sample(1) returned false, want always true")
		}
	}
}

func TestBaseRowFillsCommonFields(t *testing.T) {
	p := power.New(power.Config{BatteryCapacityMWh: 5000, MaxBatteryDrawPerTickW: 100})
	p.Refresh(50)

	row := baseRow(7, "deposition", 0, clock.Sunlight, p)
	if row.Minute != 7 {
		t.Errorf("Minute = %d, want 7", row.Minute)
	}
	if row.Module != "deposition" {
		t.Errorf("Module = %q, want deposition", row.Module)
	}
	if row.Orbit != "sunlight" {
		t.Errorf("Orbit = %q, want sunlight", row.Orbit)
	}
	if row.PowerAvailableW != p.BudgetThisTick() {
		t.Errorf("PowerAvailableW = %d, want %d", row.PowerAvailableW, p.BudgetThisTick())
	}
}

func TestStateKindString(t *testing.T) {
	cases := map[StateKind]string{
		Idle:        "idle",
		Calibrating: "calibrating",
		Running:     "running",
		CoolingDown: "cooling_down",
		Completed:   "completed",
		Faulted:     "faulted",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(kind), got, want)
		}
	}
}
