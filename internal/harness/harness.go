// Package harness implements the tick barrier that synchronizes one
// worker goroutine per processing module to the Supervisor's clock.
package harness

import (
	"sync"
	"sync/atomic"

	"github.com/arobi/forgesim/internal/clock"
	"github.com/arobi/forgesim/internal/module"
	"github.com/arobi/forgesim/internal/power"
	"github.com/arobi/forgesim/internal/telemetry"
	"github.com/sirupsen/logrus"
)

// Barrier coordinates the per-tick release of module workers and
// reports when all of them have finished a tick. Workers wake only at
// the barrier and at the PowerSubsystem's internal lock; they never
// block on external I/O besides the (already-serialized) telemetry
// write.
type Barrier struct {
	mu          sync.Mutex
	cond        *sync.Cond
	currentTick int64
	wg          *sync.WaitGroup
	shutdown    atomic.Bool
}

// NewBarrier creates a barrier that has not yet released any tick.
// currentTick starts at -1 (ticks themselves start at 1, since
// Clock.Advance pre-increments), so a worker started before the
// Supervisor's first Release can never read currentTick > lastProcessed
// and fall through the guarded wait before PowerSubsystem.Refresh has
// run for any tick.
func NewBarrier() *Barrier {
	b := &Barrier{currentTick: -1}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Release publishes a new tick number and returns a WaitGroup the
// caller must Wait() on to know every worker finished that tick.
// Called exactly once per tick, by the Supervisor goroutine only,
// strictly after PowerSubsystem.Refresh for that tick.
func (b *Barrier) Release(tick int, workerCount int) *sync.WaitGroup {
	wg := &sync.WaitGroup{}
	wg.Add(workerCount)

	b.mu.Lock()
	b.wg = wg
	b.currentTick = int64(tick)
	b.cond.Broadcast()
	b.mu.Unlock()

	return wg
}

// Shutdown poisons the barrier; workers waiting or about to wait
// observe it and exit their loop instead of processing another tick.
func (b *Barrier) Shutdown() {
	b.shutdown.Store(true)
	b.mu.Lock()
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Worker runs one module's per-tick processing loop until the barrier
// is shut down. It must be started as its own goroutine. lastProcessed
// is compared against the barrier's current tick under the guarded
// predicate form so a spurious wakeup never causes double processing.
func Worker(b *Barrier, mod module.Module, p *power.Subsystem, tw *telemetry.Writer, oracle clock.OrbitOracle, logger *logrus.Logger) {
	lastProcessed := int64(-1)

	for {
		b.mu.Lock()
		for b.currentTick <= lastProcessed && !b.shutdown.Load() {
			b.cond.Wait()
		}
		if b.shutdown.Load() && b.currentTick <= lastProcessed {
			b.mu.Unlock()
			return
		}
		tick := b.currentTick
		wg := b.wg
		b.mu.Unlock()

		orbitPhase := oracle.Phase(int(tick))

		func() {
			defer func() {
				if r := recover(); r != nil && logger != nil {
					logger.WithField("module", mod.Name()).WithField("panic", r).Error("module tick panicked, isolating and continuing")
				}
			}()
			if err := mod.Tick(int(tick), p, tw, orbitPhase); err != nil && logger != nil {
				logger.WithError(err).WithField("module", mod.Name()).Error("module tick failed")
			}
		}()

		lastProcessed = tick
		if wg != nil {
			wg.Done()
		}

		if b.shutdown.Load() {
			return
		}
	}
}
