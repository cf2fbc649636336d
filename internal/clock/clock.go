// Package clock provides the simulation tick counter and the orbital
// light/shadow oracle that modulates solar input.
package clock

import (
	"math/rand"
	"sync/atomic"

	"gonum.org/v1/gonum/stat/distuv"
)

// Phase is the orbital light/shadow state for a tick.
type Phase int

const (
	Sunlight Phase = iota
	Eclipse
)

func (p Phase) String() string {
	if p == Sunlight {
		return "sunlight"
	}
	return "eclipse"
}

// Clock is a monotonic tick counter advanced exclusively by the
// Supervisor. Reads are safe from any goroutine.
type Clock struct {
	tick int64
}

// Tick returns the current tick number.
func (c *Clock) Tick() int {
	return int(atomic.LoadInt64(&c.tick))
}

// Advance increments the tick counter and returns the new value. Only
// the Supervisor goroutine may call this.
func (c *Clock) Advance() int {
	return int(atomic.AddInt64(&c.tick, 1))
}

// OrbitOracle reports orbital phase and solar generation for a given
// tick. A pure calculator and a hardware-backed sensor feed can share
// this signature.
type OrbitOracle interface {
	Phase(tick int) Phase
	// SolarOutput returns the wattage the solar array would generate
	// at this tick and phase, before battery clamping.
	SolarOutput(tick int, phase Phase, nominalSunlightW, nominalEclipseW int) float64
}

// PureOracle computes phase as a deterministic function of tick modulo
// period, with an optional Gaussian jitter on solar output for
// realism. It does no I/O; with jitter enabled, each SolarOutput call
// advances its seeded random source.
type PureOracle struct {
	PeriodTicks   int
	SunlightTicks int

	// JitterFraction is the std-dev of solar output noise as a
	// fraction of nominal wattage. Zero disables jitter.
	JitterFraction float64
	jitter         distuv.Normal
}

// NewPureOracle builds a PureOracle seeded for reproducible jitter.
func NewPureOracle(periodTicks, sunlightTicks int, jitterFraction float64, seed int64) *PureOracle {
	return &PureOracle{
		PeriodTicks:    periodTicks,
		SunlightTicks:  sunlightTicks,
		JitterFraction: jitterFraction,
		jitter: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.New(rand.NewSource(seed)),
		},
	}
}

// Phase implements OrbitOracle.
func (o *PureOracle) Phase(tick int) Phase {
	if o.PeriodTicks <= 0 {
		return Sunlight
	}
	if mod(tick, o.PeriodTicks) < o.SunlightTicks {
		return Sunlight
	}
	return Eclipse
}

// SolarOutput implements OrbitOracle.
func (o *PureOracle) SolarOutput(tick int, phase Phase, nominalSunlightW, nominalEclipseW int) float64 {
	base := float64(nominalEclipseW)
	if phase == Sunlight {
		base = float64(nominalSunlightW)
	}
	if o.JitterFraction <= 0 || base <= 0 {
		return base
	}
	noise := o.jitter.Rand() * o.JitterFraction * base
	out := base + noise
	if out < 0 {
		return 0
	}
	return out
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
