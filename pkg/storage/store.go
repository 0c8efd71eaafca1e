package storage

import (
	"context"
	"time"
)

// Report is the persisted outcome of one analysis run over a site's
// telemetry window.
type Report struct {
	Site        string
	GeneratedAt time.Time

	// Calibration outcome.
	BurnerPowerKW       float64
	CalibrationStrategy string

	// Window coverage.
	Samples   int
	RangeFrom time.Time
	RangeTo   time.Time

	// Per-circuit energy totals over the window, in kWh.
	EnergyDHWKWh        float64
	EnergyRadiatorKWh   float64
	EnergyUnderfloorKWh float64
	EnergyGeneratedKWh  float64

	// Fraction of samples classified as thermally steady.
	SteadyFraction float64
}

type Store interface {
	Put(ctx context.Context, report Report) error
	GetLatest(ctx context.Context, site string) (Report, bool, error)
}
