// Package module implements the per-stage processing state machines:
// Deposition, IonImplant, and CrystalGrowth. Each advances at most one
// unit of work per tick, drawing power from the shared bus and
// emitting one telemetry row.
package module

import (
	"math/rand"

	"github.com/arobi/forgesim/internal/clock"
	"github.com/arobi/forgesim/internal/job"
	"github.com/arobi/forgesim/internal/power"
	"github.com/arobi/forgesim/internal/telemetry"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// StateKind tags the variant of a Module's state machine, replacing
// the ad-hoc boolean-flag pattern with a sum type that eliminates
// impossible combinations (e.g. calibrating with no active job).
type StateKind int

const (
	Idle StateKind = iota
	Calibrating
	Running
	CoolingDown
	Completed
	Faulted
)

func (k StateKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Calibrating:
		return "calibrating"
	case Running:
		return "running"
	case CoolingDown:
		return "cooling_down"
	case Completed:
		return "completed"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// State is the current tagged state of a module.
type State struct {
	Kind      StateKind
	Job       *job.Job
	Remaining int // calibration/cooldown ticks left
	Reason    string
}

// Module is the common contract every stage processor satisfies.
type Module interface {
	Name() string
	Stage() job.Stage

	Enqueue(j *job.Job)
	Tick(t int, p *power.Subsystem, tw *telemetry.Writer, orbit clock.Phase) error
	HasCompleted() bool
	TakeCompleted() *job.Job
	Discard(j *job.Job)
	State() State
}

// defectSampler draws a Bernoulli trial per tick from a module-local,
// seeded source, so defect outcomes are reproducible given --seed.
type defectSampler struct {
	dist distuv.Bernoulli
}

func newDefectSampler(seed int64) *defectSampler {
	return &defectSampler{
		dist: distuv.Bernoulli{P: 0, Src: rand.New(rand.NewSource(seed))},
	}
}

// sample reports whether a defect occurs this tick, given p.
func (d *defectSampler) sample(p float64) bool {
	d.dist.P = p
	return d.dist.Rand() == 1
}

// baseRow fills the telemetry fields common to every module/tick.
func baseRow(t int, moduleName string, stage job.Stage, orbit clock.Phase, p *power.Subsystem) telemetry.Row {
	return telemetry.Row{
		Minute:          t,
		Module:          moduleName,
		PhaseIndex:      int(stage),
		BatteryLevelWh:  p.BatteryMWh() / 1000,
		PowerAvailableW: p.BudgetThisTick(),
		Orbit:           orbit.String(),
	}
}

func logTransition(logger *logrus.Logger, moduleName, jobID string, from, to StateKind) {
	if logger == nil {
		return
	}
	logger.WithFields(logrus.Fields{
		"module": moduleName,
		"job":    jobID,
		"from":   from.String(),
		"to":     to.String(),
	}).Debug("module state transition")
}
