// Package config holds the tunable parameters of the fabrication
// simulation and loads them from an optional YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in the platform specification,
// with the documented defaults.
type Config struct {
	BatteryCapacityMWh    int `yaml:"battery_capacity_mwh"`
	SolarSunlightW        int `yaml:"solar_sunlight_w"`
	SolarEclipseW         int `yaml:"solar_eclipse_w"`
	MaxBatteryDrawPerTickW int `yaml:"max_battery_draw_per_tick_w"`

	SimDurationTicks int `yaml:"sim_duration_ticks"`
	OrbitPeriodTicks int `yaml:"orbit_period_ticks"`
	SunlightWindowTicks int `yaml:"sunlight_window_ticks"`

	DepositionW        int `yaml:"deposition_w"`
	DepositionRequired int `yaml:"deposition_required_ticks"`
	DepositionDefect   float64 `yaml:"deposition_defect_chance"`

	ImplantW               int     `yaml:"implant_w"`
	ImplantRequired        int     `yaml:"implant_required_ticks"`
	ImplantDefect          float64 `yaml:"implant_defect_chance"`
	ImplantCalibrationTicks int    `yaml:"implant_calibration_ticks"`
	ImplantCalibrationW    int     `yaml:"implant_calibration_w"`
	ImplantCooldownTicks   int     `yaml:"implant_cooldown_ticks"`

	GrowthW        int     `yaml:"growth_w"`
	GrowthRequired int     `yaml:"growth_required_ticks"`
	GrowthDefect   float64 `yaml:"growth_defect_chance"`

	// SolarJitterFraction is the standard deviation of solar output
	// noise as a fraction of nominal sunlight wattage. Zero disables
	// jitter entirely.
	SolarJitterFraction float64 `yaml:"solar_jitter_fraction"`

	Seed int64 `yaml:"seed"`

	TelemetryFatal bool `yaml:"telemetry_fatal"`
}

// Default returns the tunables in their documented default profile.
func Default() Config {
	return Config{
		BatteryCapacityMWh:     250000,
		SolarSunlightW:         300,
		SolarEclipseW:          0,
		MaxBatteryDrawPerTickW: 300,

		SimDurationTicks:    1440,
		OrbitPeriodTicks:    90,
		SunlightWindowTicks: 45,

		DepositionW:        300,
		DepositionRequired: 60,
		DepositionDefect:   0.010,

		ImplantW:                200,
		ImplantRequired:         20,
		ImplantDefect:           0.001,
		ImplantCalibrationTicks: 3,
		ImplantCalibrationW:     100,
		ImplantCooldownTicks:    5,

		GrowthW:        250,
		GrowthRequired: 120,
		GrowthDefect:   0.025,

		SolarJitterFraction: 0,
		TelemetryFatal:      false,
	}
}

// Load reads a YAML file at path and overlays its fields onto the
// documented defaults. A missing path is not an error: the defaults
// are returned unchanged, matching the spec's "hard-coded unless
// overridden" posture.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}
