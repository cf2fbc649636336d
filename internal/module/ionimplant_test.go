package module

import (
	"path/filepath"
	"testing"

	"github.com/arobi/forgesim/internal/clock"
	"github.com/arobi/forgesim/internal/job"
	"github.com/arobi/forgesim/internal/power"
	"github.com/arobi/forgesim/internal/telemetry"
)

func newImplantWriter(t *testing.T) *telemetry.Writer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telemetry.csv")
	w, err := telemetry.Open(path, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func newImplantJob(id string, required int) *job.Job {
	reqs := [int(job.NumStages)]int{0, required, 0}
	defects := [int(job.NumStages)]float64{0, 0, 0}
	return job.NewJob(id, reqs, defects)
}

func TestIonImplantCalibratesBeforeRunning(t *testing.T) {
	arena := job.NewArena()
	imp := NewIonImplant(3, 100, 5, 200, arena, 1, nil)
	tw := newImplantWriter(t)
	p := ampleSubsystem()

	j := newImplantJob("wafer-1", 4)
	arena.Add(j)
	imp.Enqueue(j)

	p.Refresh(300)
	if err := imp.Tick(1, p, tw, clock.Sunlight); err != nil {
		t.Fatal(err)
	}
	if imp.kind != Calibrating {
		t.Fatalf("kind after first tick = %v, want Calibrating", imp.kind)
	}

	for tick := 2; tick <= 3; tick++ {
		p.Refresh(300)
		if err := imp.Tick(tick, p, tw, clock.Sunlight); err != nil {
			t.Fatal(err)
		}
	}
	if imp.kind != Running {
		t.Fatalf("kind after calibration ticks elapsed = %v, want Running", imp.kind)
	}
}

func TestIonImplantRunningToCooldownToIdle(t *testing.T) {
	arena := job.NewArena()
	imp := NewIonImplant(1, 50, 2, 100, arena, 1, nil)
	tw := newImplantWriter(t)
	p := ampleSubsystem()

	j := newImplantJob("wafer-2", 1)
	arena.Add(j)
	imp.Enqueue(j)

	// tick 1: calibrating (1 tick configured) -> Running
	p.Refresh(300)
	imp.Tick(1, p, tw, clock.Sunlight)
	if imp.kind != Running {
		t.Fatalf("kind after calibration = %v, want Running", imp.kind)
	}

	// tick 2: running completes (RequiredTime=1) -> CoolingDown, pending set
	p.Refresh(300)
	imp.Tick(2, p, tw, clock.Sunlight)
	if imp.kind != CoolingDown {
		t.Fatalf("kind after completing run = %v, want CoolingDown", imp.kind)
	}
	if !imp.HasCompleted() {
		t.Fatal("HasCompleted() = false once phase has finished, want true even mid-cooldown")
	}
	done := imp.TakeCompleted()
	if done != j {
		t.Error("TakeCompleted did not return the finished job")
	}
	if imp.HasCompleted() {
		t.Error("HasCompleted() still true after TakeCompleted")
	}

	// module is still busy (cooldown) even though the job was handed off
	if imp.kind != CoolingDown {
		t.Error("module left CoolingDown state on TakeCompleted, want to remain busy")
	}

	// tick 3: cooldown tick 1 of 2
	p.Refresh(300)
	imp.Tick(3, p, tw, clock.Sunlight)
	if imp.kind != CoolingDown {
		t.Fatalf("kind mid-cooldown = %v, want CoolingDown", imp.kind)
	}

	// tick 4: cooldown tick 2 of 2 -> Idle
	p.Refresh(300)
	imp.Tick(4, p, tw, clock.Sunlight)
	if imp.kind != Idle {
		t.Fatalf("kind after cooldown elapsed = %v, want Idle", imp.kind)
	}
}

func TestIonImplantRunningInterruptionIsSticky(t *testing.T) {
	arena := job.NewArena()
	imp := NewIonImplant(1, 50, 2, 100, arena, 1, nil)
	tw := newImplantWriter(t)

	ample := ampleSubsystem()
	j := newImplantJob("wafer-3", 5)
	arena.Add(j)
	imp.Enqueue(j)

	ample.Refresh(300)
	imp.Tick(1, ample, tw, clock.Sunlight) // calibrate -> Running

	starved := power.New(power.Config{})
	starved.Refresh(0)
	imp.Tick(2, starved, tw, clock.Eclipse)

	phase := &j.Phases[job.IonImplant]
	if !phase.WasInterrupted {
		t.Error("WasInterrupted = false after a failed Consume during Running")
	}
	if !phase.Defective {
		t.Error("Defective = false after a power outage during Running, want true (implant treats outage as poisoning)")
	}
	if phase.ElapsedTime != 2 {
		t.Errorf("ElapsedTime = %d, want 2 (1 calibration tick + 1 running tick, still advances despite the outage)", phase.ElapsedTime)
	}
	if imp.kind != CoolingDown {
		t.Errorf("kind after defective outage = %v, want CoolingDown (defect short-circuits straight to cooldown)", imp.kind)
	}
}

func TestIonImplantCalibrationFailureSkipsStraightToCooldown(t *testing.T) {
	arena := job.NewArena()
	imp := NewIonImplant(3, 50, 2, 100, arena, 1, nil)
	tw := newImplantWriter(t)

	starved := power.New(power.Config{})
	starved.Refresh(0)

	j := newImplantJob("wafer-4", 5)
	arena.Add(j)
	imp.Enqueue(j)

	imp.Tick(1, starved, tw, clock.Eclipse)

	if imp.kind != CoolingDown {
		t.Fatalf("kind after failed calibration power draw = %v, want CoolingDown", imp.kind)
	}
	if !j.Phases[job.IonImplant].Defective {
		t.Error("Defective = false after a calibration power failure, want true")
	}
	if !imp.HasCompleted() {
		t.Error("HasCompleted() = false, want true (failed calibration still hands off for pickup)")
	}
}

func TestIonImplantCooldownRemainingOnlyReportedDuringCooldown(t *testing.T) {
	arena := job.NewArena()
	imp := NewIonImplant(3, 50, 5, 100, arena, 1, nil)
	tw := newImplantWriter(t)
	p := ampleSubsystem()

	var rows []telemetry.Row
	tw.OnRow(func(r telemetry.Row) { rows = append(rows, r) })

	j := newImplantJob("wafer-5", 10)
	arena.Add(j)
	imp.Enqueue(j)

	p.Refresh(300)
	imp.Tick(1, p, tw, clock.Sunlight) // calibrating, remaining used internally for calibration countdown

	if imp.remaining == 0 {
		t.Fatal("test setup: expected nonzero calibration countdown")
	}
	if len(rows) != 1 {
		t.Fatalf("got %d telemetry rows, want 1", len(rows))
	}
	if rows[0].CooldownRemaining != 0 {
		t.Errorf("CooldownRemaining = %d while calibrating, want 0 (must not leak the calibration countdown)", rows[0].CooldownRemaining)
	}
}

func TestIonImplantDiscardBypassesCooldown(t *testing.T) {
	arena := job.NewArena()
	imp := NewIonImplant(1, 50, 10, 100, arena, 1, nil)
	tw := newImplantWriter(t)
	p := ampleSubsystem()

	j := newImplantJob("wafer-6", 1)
	arena.Add(j)
	imp.Enqueue(j)

	p.Refresh(300)
	imp.Tick(1, p, tw, clock.Sunlight) // -> Running
	p.Refresh(300)
	imp.Tick(2, p, tw, clock.Sunlight) // -> CoolingDown, pending set

	imp.Discard(j)
	if imp.kind != Idle {
		t.Errorf("kind after Discard during cooldown = %v, want Idle (bypasses the cooldown countdown)", imp.kind)
	}
	if imp.HasCompleted() {
		t.Error("HasCompleted() = true after Discard, want false (pending cleared)")
	}
}
