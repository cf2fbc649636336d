// Package power implements the shared electrical subsystem: solar
// generation, battery storage, and the per-tick bus budget every
// processing module draws from.
package power

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrInsufficientPower is returned by Consume when the requested
// wattage exceeds the remaining tick budget. It is a transient,
// expected outcome, not a programmer error.
var ErrInsufficientPower = errors.New("power: insufficient budget this tick")

// Config holds the constants of the electrical subsystem.
type Config struct {
	BatteryCapacityMWh     int
	SolarSunlightW         int
	SolarEclipseW          int
	MaxBatteryDrawPerTickW int
}

// Subsystem is the serialized power arbiter. All mutating operations
// (Refresh, Consume) and all observers go through one exclusive lock,
// so readers only ever see completed mutations. Solar production is always spent before battery charge within
// a tick, so concurrent consumers see the same aggregate outcome
// regardless of arrival order.
type Subsystem struct {
	mu sync.Mutex

	cfg Config

	batteryMWh int

	producedThisTickW int
	budgetThisTickW   int
	solarRemainingW   int

	metrics *metrics
}

type metrics struct {
	batteryMWh    prometheus.Gauge
	producedW     prometheus.Gauge
	budgetW       prometheus.Gauge
}

// New creates a Subsystem with a full battery.
func New(cfg Config) *Subsystem {
	return &Subsystem{
		cfg:        cfg,
		batteryMWh: cfg.BatteryCapacityMWh,
	}
}

// WithMetrics attaches Prometheus gauges that are updated in lockstep
// with every mutation. Passing nil registers no metrics.
func (s *Subsystem) WithMetrics(reg prometheus.Registerer) *Subsystem {
	if reg == nil {
		return s
	}
	m := &metrics{
		batteryMWh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forgesim_battery_mwh",
			Help: "Current battery charge in milliwatt-hours.",
		}),
		producedW: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forgesim_solar_produced_watts",
			Help: "Solar power produced this tick, in watts.",
		}),
		budgetW: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forgesim_bus_budget_watts",
			Help: "Remaining bus power budget this tick, in watts.",
		}),
	}
	reg.MustRegister(m.batteryMWh, m.producedW, m.budgetW)
	s.mu.Lock()
	s.metrics = m
	s.metrics.batteryMWh.Set(float64(s.batteryMWh))
	s.mu.Unlock()
	return s
}

// Refresh must be called exactly once per tick, before any module
// reserves power for that tick. It credits the battery with this
// tick's solar production (clamped to capacity) and computes the new
// bus budget: production plus a bounded battery draw.
//
// Refresh takes no tick number, so every call credits the battery
// again: a second call within the same tick credits that tick's solar
// a second time (up to capacity) and is therefore not idempotent.
// Callers invoke it once per tick, before any Consume.
func (s *Subsystem) Refresh(solarW float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	produced := int(solarW)
	if produced < 0 {
		produced = 0
	}

	s.batteryMWh += produced
	if s.batteryMWh > s.cfg.BatteryCapacityMWh {
		s.batteryMWh = s.cfg.BatteryCapacityMWh
	}
	if s.batteryMWh < 0 {
		s.batteryMWh = 0
	}

	draw := s.cfg.MaxBatteryDrawPerTickW
	if s.batteryMWh < draw {
		draw = s.batteryMWh
	}

	s.producedThisTickW = produced
	s.solarRemainingW = produced
	s.budgetThisTickW = produced + draw

	s.updateMetricsLocked()
}

// CanSatisfy reports whether watts can be drawn from the current tick
// budget. Pure, reader-safe.
func (s *Subsystem) CanSatisfy(watts int) bool {
	if watts < 0 {
		panic("power: negative watts requested")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return watts <= s.budgetThisTickW
}

// Consume atomically reserves and debits watts from the tick budget.
// Solar production is spent first; any remainder is drawn from the
// battery. On failure the subsystem state is left unchanged.
func (s *Subsystem) Consume(watts int) error {
	if watts < 0 {
		panic("power: negative watts requested")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if watts > s.budgetThisTickW {
		return ErrInsufficientPower
	}

	fromSolar := watts
	if fromSolar > s.solarRemainingW {
		fromSolar = s.solarRemainingW
	}
	fromBattery := watts - fromSolar

	s.solarRemainingW -= fromSolar
	s.budgetThisTickW -= watts

	s.batteryMWh -= fromBattery
	if s.batteryMWh < 0 {
		s.batteryMWh = 0
	}

	s.updateMetricsLocked()

	return nil
}

func (s *Subsystem) updateMetricsLocked() {
	if s.metrics == nil {
		return
	}
	s.metrics.batteryMWh.Set(float64(s.batteryMWh))
	s.metrics.producedW.Set(float64(s.producedThisTickW))
	s.metrics.budgetW.Set(float64(s.budgetThisTickW))
}

// BatteryMWh returns the current battery charge.
func (s *Subsystem) BatteryMWh() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batteryMWh
}

// BudgetThisTick returns the remaining tick budget.
func (s *Subsystem) BudgetThisTick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budgetThisTickW
}

// ProducedThisTick returns solar production for the current tick.
func (s *Subsystem) ProducedThisTick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.producedThisTickW
}
