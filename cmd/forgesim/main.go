// forgesim runs the orbital fabrication job engine: a discrete-time,
// multi-stage wafer pipeline arbitrated against a shared solar/battery
// power budget.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arobi/forgesim/internal/config"
	"github.com/arobi/forgesim/internal/loader"
	"github.com/arobi/forgesim/internal/supervisor"
	"github.com/arobi/forgesim/pkg/utils"
	"github.com/google/uuid"
)

var (
	jobsPath     = flag.String("jobs", "", "path to the job input file (required)")
	outPath      = flag.String("out", "telemetry.csv", "path to write the telemetry CSV")
	configPath   = flag.String("config", "", "optional YAML tunables file")
	manifestPath = flag.String("manifest", "", "path to write the signed run manifest (default: <out>.manifest.jwt)")
	manifestKey  = flag.String("manifest-key-file", "", "HMAC key file for the run manifest (random per-run key if unset)")
	metricsAddr  = flag.String("metrics-addr", "", "address to serve Prometheus /metrics on (disabled if empty)")
	livefeedAddr = flag.String("livefeed-addr", "", "address to serve the websocket livefeed on (disabled if empty)")
	serialPort   = flag.String("serial-port", "", "sun-sensor serial device (e.g. /dev/ttyUSB0); falls back to the pure orbit oracle if unset or unopenable")
	serialBaud   = flag.Int("serial-baud", 9600, "baud rate for --serial-port")
	seedFlag     = flag.Int64("seed", 0, "RNG seed for defect sampling and solar jitter (0 = derive from current time)")
	logLevel     = flag.String("log-level", "info", "log level: debug, info, warn, error")

	// Tunable overrides (spec 6: "CLI surface: run --jobs <path> --out
	// <path> with optional overrides for any tunable").
	batteryCapacity = flag.Int("battery-capacity-mwh", 0, "override battery capacity in mWh (0 = config default)")
	solarSunlight   = flag.Int("solar-sunlight-w", 0, "override sunlight solar wattage (0 = config default)")
	solarEclipse    = flag.Int("solar-eclipse-w", -1, "override eclipse solar wattage (-1 = config default)")
	maxDraw         = flag.Int("max-battery-draw-w", 0, "override max battery draw per tick (0 = config default)")
	simDuration     = flag.Int("duration-ticks", 0, "override simulation duration in ticks (0 = config default)")
	telemetryFatal  = flag.Bool("telemetry-fatal", false, "return telemetry write errors from module ticks (each is logged; the run continues)")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	logger := utils.NewLogger(*logLevel, "stdout")

	if *jobsPath == "" {
		logger.Error("--jobs is required")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Error("failed to load config")
		return 1
	}
	applyOverrides(&cfg)

	if *seedFlag != 0 {
		cfg.Seed = *seedFlag
	} else if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	logger.WithField("seed", cfg.Seed).Info("starting forgesim run")

	ids, err := loader.LoadJobIDs(*jobsPath)
	if err != nil {
		logger.WithError(err).Error("failed to load job input file")
		return 1
	}

	manifest := *manifestPath
	if manifest == "" {
		manifest = *outPath + ".manifest.jwt"
	}

	opts := supervisor.Options{
		JobsPath:      *jobsPath,
		TelemetryPath: *outPath,
		ManifestPath:  manifest,
		ManifestKey:   *manifestKey,
		MetricsAddr:   *metricsAddr,
		LivefeedAddr:  *livefeedAddr,
		RunID:         uuid.NewString(),
		SerialPort:    *serialPort,
		SerialBaud:    *serialBaud,
	}
	cfg.TelemetryFatal = *telemetryFatal || cfg.TelemetryFatal

	sup, err := supervisor.New(cfg, opts, logger)
	if err != nil {
		logger.WithError(err).Error("failed to construct supervisor")
		return 1
	}
	sup.LoadJobs(ids)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("shutdown signal received, draining in-flight ticks")
		cancel()
	}()

	result, runErr := sup.Run(ctx)

	if closeErr := sup.Close(result); closeErr != nil {
		logger.WithError(closeErr).Error("failed to close telemetry/manifest")
		return 2
	}

	logger.WithFields(map[string]interface{}{
		"ticks_run":      result.TicksRun,
		"telemetry_rows": result.TelemetryRows,
		"jobs_total":     result.JobsTotal,
		"jobs_complete":  result.JobsComplete,
		"jobs_defective": result.JobsDefective,
	}).Info("forgesim run finished")

	if runErr != nil && runErr != context.Canceled {
		logger.WithError(runErr).Error("run ended with error")
		return 1
	}

	fmt.Fprintf(os.Stdout, "forgesim: %d/%d jobs complete, %d defective, %d ticks, %d telemetry rows\n",
		result.JobsComplete, result.JobsTotal, result.JobsDefective, result.TicksRun, result.TelemetryRows)

	return 0
}

func applyOverrides(cfg *config.Config) {
	if *batteryCapacity > 0 {
		cfg.BatteryCapacityMWh = *batteryCapacity
	}
	if *solarSunlight > 0 {
		cfg.SolarSunlightW = *solarSunlight
	}
	if *solarEclipse >= 0 {
		cfg.SolarEclipseW = *solarEclipse
	}
	if *maxDraw > 0 {
		cfg.MaxBatteryDrawPerTickW = *maxDraw
	}
	if *simDuration > 0 {
		cfg.SimDurationTicks = *simDuration
	}
}
