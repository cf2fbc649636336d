package module

import (
	"github.com/arobi/forgesim/internal/clock"
	"github.com/arobi/forgesim/internal/job"
	"github.com/arobi/forgesim/internal/power"
	"github.com/arobi/forgesim/internal/queue"
	"github.com/arobi/forgesim/internal/telemetry"
	"github.com/sirupsen/logrus"
)

// IonImplant is stage 1: the only module with calibration and
// cooldown sub-states layered on top of the common Idle/Running
// machine. A completed-or-defective phase is handed off to the
// Supervisor independently of the cooldown countdown that still
// occupies the module, so "ready for handoff" and "busy" are tracked
// separately rather than overloading one state.
type IonImplant struct {
	calibrationTicks int
	calibrationW     int
	cooldownTicks    int
	runW             int

	queue     *queue.Queue
	arena     *job.Arena
	defect    *defectSampler
	logger    *logrus.Logger

	kind      StateKind // Idle, Calibrating, Running, CoolingDown, Faulted
	activeJob *job.Job
	remaining int
	pending   *job.Job // phase finished (done or defective), awaiting Supervisor handoff
}

// NewIonImplant constructs the ion implantation module.
func NewIonImplant(calibrationTicks, calibrationW, cooldownTicks, runW int, arena *job.Arena, seed int64, logger *logrus.Logger) *IonImplant {
	return &IonImplant{
		calibrationTicks: calibrationTicks,
		calibrationW:     calibrationW,
		cooldownTicks:    cooldownTicks,
		runW:             runW,
		queue:            queue.New(),
		arena:            arena,
		defect:           newDefectSampler(seed),
		logger:           logger,
		kind:             Idle,
	}
}

func (m *IonImplant) Name() string     { return "ion_implant" }
func (m *IonImplant) Stage() job.Stage { return job.IonImplant }

func (m *IonImplant) State() State {
	if m.pending != nil {
		return State{Kind: Completed, Job: m.pending}
	}
	return State{Kind: m.kind, Job: m.activeJob, Remaining: m.remaining}
}

func (m *IonImplant) Enqueue(j *job.Job) {
	m.queue.Push(j)
}

func (m *IonImplant) HasCompleted() bool {
	return m.pending != nil
}

func (m *IonImplant) TakeCompleted() *job.Job {
	j := m.pending
	m.pending = nil
	return j
}

func (m *IonImplant) Discard(j *job.Job) {
	m.queue.Remove(j)
	if m.pending == j {
		m.pending = nil
	}
	if m.activeJob == j {
		logTransition(m.logger, m.Name(), j.ID, m.kind, Idle)
		m.kind = Idle
		m.activeJob = nil
		m.remaining = 0
	}
}

func (m *IonImplant) Tick(t int, p *power.Subsystem, tw *telemetry.Writer, orbit clock.Phase) error {
	if m.kind == Faulted {
		return nil
	}

	if m.kind == Idle {
		next := m.queue.Pop()
		if next == nil {
			return nil
		}
		logTransition(m.logger, m.Name(), next.ID, Idle, Calibrating)
		m.kind = Calibrating
		m.activeJob = next
		m.remaining = m.calibrationTicks
	}

	j := m.activeJob
	phase := m.arena.Phase(j, job.IonImplant, job.IonImplant)

	row := baseRow(t, m.Name(), job.IonImplant, orbit, p)
	row.TaskID = j.ID
	row.Required = phase.RequiredTime

	switch m.kind {
	case Calibrating:
		row.Active = true
		row.Calibrating = true

		if err := p.Consume(m.calibrationW); err != nil {
			phase.Defective = true
			row.Interrupted = true
			row.Action = "calibration_failed"
			logTransition(m.logger, m.Name(), j.ID, Calibrating, CoolingDown)
			m.pending = j
			m.kind = CoolingDown
			m.remaining = m.cooldownTicks
		} else {
			m.remaining--
			phase.ElapsedTime++
			phase.EnergyUsed += m.calibrationW
			row.Action = "calibrating"
			if m.remaining <= 0 {
				logTransition(m.logger, m.Name(), j.ID, Calibrating, Running)
				m.kind = Running
			}
		}

	case Running:
		row.Active = true

		if err := p.Consume(m.runW); err != nil {
			phase.WasInterrupted = true
			phase.Defective = true // implant treats any outage as poisoning
			phase.ElapsedTime++
			row.Interrupted = true
			row.Action = "interrupted"
		} else {
			phase.ElapsedTime++
			phase.EnergyUsed += m.runW
			if m.defect.sample(phase.DefectChance) {
				phase.Defective = true
			}
			row.Action = "consumed"
		}

		if phase.IsDone() || phase.Defective {
			if phase.Defective {
				row.Action = "defective"
			} else {
				row.Action = "completed"
			}
			logTransition(m.logger, m.Name(), j.ID, Running, CoolingDown)
			m.pending = j
			m.kind = CoolingDown
			m.remaining = m.cooldownTicks
		}

	case CoolingDown:
		row.Active = false
		row.Action = "cooldown"
		m.remaining--
		if m.remaining <= 0 {
			logTransition(m.logger, m.Name(), j.ID, CoolingDown, Idle)
			m.kind = Idle
			m.activeJob = nil
		}
	}

	if m.kind == CoolingDown {
		row.CooldownRemaining = m.remaining
	}
	row.Elapsed = phase.ElapsedTime
	row.EnergyUsed = phase.EnergyUsed
	row.Defective = phase.Defective

	return tw.WriteRow(row)
}
