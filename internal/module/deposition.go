package module

import (
	"github.com/arobi/forgesim/internal/job"
	"github.com/sirupsen/logrus"
)

// Deposition is stage 0: a simple consumer of its configured wattage
// (300W in the default profile) per tick with no calibration or
// cooldown. A tick without enough power marks the phase interrupted.
type Deposition struct {
	*simpleModule
}

// NewDeposition constructs the deposition module.
func NewDeposition(watts int, arena *job.Arena, seed int64, logger *logrus.Logger) *Deposition {
	return &Deposition{simpleModule: newSimpleModule("deposition", job.Deposition, watts, arena, seed, logger)}
}
