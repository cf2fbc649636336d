package module

import (
	"github.com/arobi/forgesim/internal/job"
	"github.com/sirupsen/logrus"
)

// CrystalGrowth is stage 2: a long, simple consumer parallel to
// Deposition. The spec stubs out calibration/thermal dynamics for
// this stage; extend here if the product later requires them.
type CrystalGrowth struct {
	*simpleModule
}

// NewCrystalGrowth constructs the crystal growth module.
func NewCrystalGrowth(watts int, arena *job.Arena, seed int64, logger *logrus.Logger) *CrystalGrowth {
	return &CrystalGrowth{simpleModule: newSimpleModule("crystal_growth", job.CrystalGrowth, watts, arena, seed, logger)}
}
