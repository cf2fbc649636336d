// Package supervisor wires the clock, power subsystem, modules, and
// telemetry writer together, feeds jobs through the pipeline, and
// terminates the run cleanly.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/arobi/forgesim/internal/clock"
	"github.com/arobi/forgesim/internal/config"
	"github.com/arobi/forgesim/internal/harness"
	"github.com/arobi/forgesim/internal/job"
	"github.com/arobi/forgesim/internal/livefeed"
	"github.com/arobi/forgesim/internal/metrics"
	"github.com/arobi/forgesim/internal/module"
	"github.com/arobi/forgesim/internal/power"
	"github.com/arobi/forgesim/internal/telemetry"
	"github.com/sirupsen/logrus"
)

// Options bundles the addresses/paths the Supervisor needs beyond the
// tunables in config.Config.
type Options struct {
	JobsPath       string
	TelemetryPath  string
	ManifestPath   string
	ManifestKey    string
	MetricsAddr    string
	LivefeedAddr   string
	RunID          string
	SerialPort     string
	SerialBaud     int
}

// Result summarizes a completed run for the CLI to report.
type Result struct {
	TicksRun      int
	TelemetryRows int
	JobsTotal     int
	JobsComplete  int
	JobsDefective int
}

// Supervisor owns the job arena, constructs modules, spawns workers,
// and drives the main tick loop.
type Supervisor struct {
	cfg     config.Config
	opts    Options
	logger  *logrus.Logger
	arena   *job.Arena
	modules [int(job.NumStages)]module.Module
	power   *power.Subsystem
	oracle  clock.OrbitOracle
	clock   *clock.Clock
	barrier *harness.Barrier
	tw      *telemetry.Writer
	m       *metrics.Metrics
	hub     *livefeed.Hub
	closer  interface{ Close() error }
}

// New constructs a Supervisor ready to Run.
func New(cfg config.Config, opts Options, logger *logrus.Logger) (*Supervisor, error) {
	arena := job.NewArena()

	pureOracle := clock.NewPureOracle(cfg.OrbitPeriodTicks, cfg.SunlightWindowTicks, cfg.SolarJitterFraction, cfg.Seed)
	var oracle clock.OrbitOracle = pureOracle
	if opts.SerialPort != "" {
		serialOracle, err := clock.NewSerialOracle(opts.SerialPort, opts.SerialBaud, pureOracle, logger)
		if err != nil {
			logger.WithError(err).WithField("serial_port", opts.SerialPort).Warn("failed to open sun sensor, falling back to pure orbit oracle")
		} else {
			oracle = serialOracle
		}
	}

	ps := power.New(power.Config{
		BatteryCapacityMWh:     cfg.BatteryCapacityMWh,
		SolarSunlightW:         cfg.SolarSunlightW,
		SolarEclipseW:          cfg.SolarEclipseW,
		MaxBatteryDrawPerTickW: cfg.MaxBatteryDrawPerTickW,
	})

	m := metrics.New()
	if opts.MetricsAddr != "" {
		ps.WithMetrics(m.Registry())
	}

	tw, err := telemetry.Open(opts.TelemetryPath, cfg.TelemetryFatal, func(err error) {
		logger.WithError(err).Error("telemetry sink failure")
	})
	if err != nil {
		return nil, fmt.Errorf("supervisor: open telemetry: %w", err)
	}

	var hub *livefeed.Hub
	if opts.LivefeedAddr != "" {
		hub = livefeed.NewHub(logger)
		tw.OnRow(hub.Broadcast)
	}

	dep := module.NewDeposition(cfg.DepositionW, arena, cfg.Seed+1, logger)
	imp := module.NewIonImplant(cfg.ImplantCalibrationTicks, cfg.ImplantCalibrationW, cfg.ImplantCooldownTicks, cfg.ImplantW, arena, cfg.Seed+2, logger)
	grw := module.NewCrystalGrowth(cfg.GrowthW, arena, cfg.Seed+3, logger)

	var closer interface{ Close() error }
	if so, ok := oracle.(*clock.SerialOracle); ok {
		closer = so
	}

	return &Supervisor{
		cfg:     cfg,
		opts:    opts,
		logger:  logger,
		arena:   arena,
		modules: [int(job.NumStages)]module.Module{dep, imp, grw},
		power:   ps,
		oracle:  oracle,
		clock:   &clock.Clock{},
		barrier: harness.NewBarrier(),
		tw:      tw,
		closer:  closer,
		m:       m,
		hub:     hub,
	}, nil
}

// LoadJobs seeds the arena with one job per id, using the configured
// per-stage requirements and defect chances, and enqueues each into
// the first stage's queue.
func (s *Supervisor) LoadJobs(ids []string) {
	required := [int(job.NumStages)]int{s.cfg.DepositionRequired, s.cfg.ImplantRequired, s.cfg.GrowthRequired}
	defects := [int(job.NumStages)]float64{s.cfg.DepositionDefect, s.cfg.ImplantDefect, s.cfg.GrowthDefect}

	for _, id := range ids {
		j := job.NewJob(id, required, defects)
		s.arena.Add(j)
		s.modules[0].Enqueue(j)
	}

	if s.m != nil {
		s.m.JobsActive.Set(float64(len(ids)))
	}
}

// Run drives the tick loop until the configured duration elapses or
// every job reaches stage 3 (complete), or ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) (Result, error) {
	metricsSrv := metrics.Serve(s.opts.MetricsAddr, s.m.Registry())
	defer metrics.Shutdown(context.Background(), metricsSrv)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	if s.hub != nil {
		go s.hub.Run(hubCtx)
		go serveLivefeed(s.opts.LivefeedAddr, s.hub)
	}
	defer hubCancel()

	for i := range s.modules {
		go harness.Worker(s.barrier, s.modules[i], s.power, s.tw, s.oracle, s.logger)
	}

	jobsTotal := len(s.arena.All())
	completeCount := 0
	defectCount := 0

	tick := 0
	for tick < s.cfg.SimDurationTicks {
		select {
		case <-ctx.Done():
			s.barrier.Shutdown()
			return s.result(tick, jobsTotal, completeCount, defectCount), ctx.Err()
		default:
		}

		tick = s.clock.Advance()
		phase := s.oracle.Phase(tick)
		solarW := s.oracle.SolarOutput(tick, phase, s.cfg.SolarSunlightW, s.cfg.SolarEclipseW)
		s.power.Refresh(solarW)

		wg := s.barrier.Release(tick, len(s.modules))
		wg.Wait()

		completeCount, defectCount = s.collectCompletions(completeCount, defectCount)

		if s.m != nil {
			s.m.CurrentTick.Set(float64(tick))
			s.m.TelemetryRows.Set(float64(s.tw.RowCount()))
			s.m.JobsActive.Set(float64(jobsTotal - completeCount - defectCount))
			s.m.JobsComplete.Set(float64(completeCount))
			s.m.JobsDefective.Set(float64(defectCount))
		}

		if completeCount+defectCount >= jobsTotal {
			break
		}
	}

	s.barrier.Shutdown()

	return s.result(tick, jobsTotal, completeCount, defectCount), nil
}

// collectCompletions transfers every module's finished job to the
// next stage's queue, or marks it complete/defective and short-circuits
// downstream stages.
func (s *Supervisor) collectCompletions(completeCount, defectCount int) (int, int) {
	for stage := 0; stage < int(job.NumStages); stage++ {
		mod := s.modules[stage]
		for mod.HasCompleted() {
			j := mod.TakeCompleted()
			if j == nil {
				break
			}

			phase := &j.Phases[stage]
			if phase.Defective {
				j.CurrentStage = job.NumStages
				defectCount++
				for next := stage + 1; next < int(job.NumStages); next++ {
					s.modules[next].Discard(j)
				}
				continue
			}

			j.CurrentStage = job.Stage(stage + 1)
			if stage+1 >= int(job.NumStages) {
				completeCount++
				continue
			}
			s.modules[stage+1].Enqueue(j)
		}
	}
	return completeCount, defectCount
}

func (s *Supervisor) result(tick, jobsTotal, completeCount, defectCount int) Result {
	return Result{
		TicksRun:      tick,
		TelemetryRows: s.tw.RowCount(),
		JobsTotal:     jobsTotal,
		JobsComplete:  completeCount,
		JobsDefective: defectCount,
	}
}

// Close flushes telemetry, writes the run manifest, and releases any
// held resources. Mandatory on shutdown, success or failure.
func (s *Supervisor) Close(res Result) error {
	rows := s.tw.RowCount()
	if err := s.tw.Close(); err != nil {
		return fmt.Errorf("supervisor: close telemetry: %w", err)
	}

	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			s.logger.WithError(err).Warn("failed to close sun sensor serial port")
		}
	}

	if s.opts.ManifestPath != "" {
		runID := s.opts.RunID
		if runID == "" {
			runID = fmt.Sprintf("run-%d", time.Now().UnixNano())
		}
		if err := telemetry.WriteManifest(s.opts.ManifestPath, s.opts.TelemetryPath, runID, res.TicksRun, rows, res.JobsTotal, s.opts.ManifestKey); err != nil {
			return fmt.Errorf("supervisor: write manifest: %w", err)
		}
	}

	return nil
}
