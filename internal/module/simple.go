package module

import (
	"github.com/arobi/forgesim/internal/clock"
	"github.com/arobi/forgesim/internal/job"
	"github.com/arobi/forgesim/internal/power"
	"github.com/arobi/forgesim/internal/queue"
	"github.com/arobi/forgesim/internal/telemetry"
	"github.com/sirupsen/logrus"
)

// simpleModule implements the common Idle -> Running -> Completed
// machine shared by Deposition and CrystalGrowth: no calibration, no
// cooldown, one power draw per tick.
type simpleModule struct {
	name    string
	stage   job.Stage
	watts   int
	queue   *queue.Queue
	state   State
	defect  *defectSampler
	logger  *logrus.Logger
	arena   *job.Arena
}

func newSimpleModule(name string, stage job.Stage, watts int, arena *job.Arena, seed int64, logger *logrus.Logger) *simpleModule {
	return &simpleModule{
		name:   name,
		stage:  stage,
		watts:  watts,
		queue:  queue.New(),
		state:  State{Kind: Idle},
		defect: newDefectSampler(seed),
		logger: logger,
		arena:  arena,
	}
}

func (m *simpleModule) Name() string    { return m.name }
func (m *simpleModule) Stage() job.Stage { return m.stage }
func (m *simpleModule) State() State    { return m.state }

func (m *simpleModule) Enqueue(j *job.Job) {
	m.queue.Push(j)
}

func (m *simpleModule) HasCompleted() bool {
	return m.state.Kind == Completed
}

func (m *simpleModule) TakeCompleted() *job.Job {
	if m.state.Kind != Completed {
		return nil
	}
	j := m.state.Job
	m.state = State{Kind: Idle}
	return j
}

func (m *simpleModule) Discard(j *job.Job) {
	m.queue.Remove(j)
	if m.state.Job == j {
		logTransition(m.logger, m.name, j.ID, m.state.Kind, Idle)
		m.state = State{Kind: Idle}
	}
}

func (m *simpleModule) Tick(t int, p *power.Subsystem, tw *telemetry.Writer, orbit clock.Phase) error {
	if m.state.Kind == Faulted || m.state.Kind == Completed {
		return nil
	}

	if m.state.Kind == Idle {
		next := m.queue.Pop()
		if next == nil {
			return nil
		}
		logTransition(m.logger, m.name, next.ID, Idle, Running)
		m.state = State{Kind: Running, Job: next}
	}

	j := m.state.Job
	phase := m.arena.Phase(j, m.stage, m.stage)

	row := baseRow(t, m.name, m.stage, orbit, p)
	row.TaskID = j.ID
	row.Active = true
	row.Required = phase.RequiredTime

	err := p.Consume(m.watts)
	if err != nil {
		phase.WasInterrupted = true
		phase.ElapsedTime++ // preserves source "creep on interruption" behavior
		row.Interrupted = true
		row.Action = "interrupted"
	} else {
		phase.ElapsedTime++
		phase.EnergyUsed += m.watts
		if m.defect.sample(phase.DefectChance) {
			phase.Defective = true
		}
		row.Action = "consumed"
	}

	row.Elapsed = phase.ElapsedTime
	row.EnergyUsed = phase.EnergyUsed
	row.Defective = phase.Defective

	if phase.IsDone() || phase.Defective {
		row.Action = "completed"
		if phase.Defective {
			row.Action = "defective"
		}
		logTransition(m.logger, m.name, j.ID, Running, Completed)
		m.state = State{Kind: Completed, Job: j}
	}

	return tw.WriteRow(row)
}
