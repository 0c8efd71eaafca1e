package sources

import (
	"context"
	"time"

	"github.com/HatiCode/hydronic/pkg/series"
	"github.com/HatiCode/hydronic/pkg/synth"
)

// SyntheticSource serves simulated installation data. It exists so the full
// analyzer can run without a live installation: demos, load tests, CI.
type SyntheticSource struct {
	SummerDays int
	Seed       int64
	Period     time.Duration
}

func (s *SyntheticSource) Name() string { return "synthetic" }

// Load implements Source. The window determines how many simulated days are
// generated, at minimum one.
func (s *SyntheticSource) Load(_ context.Context, window time.Duration) (*series.Series, error) {
	days := int(window / (24 * time.Hour))
	if window%(24*time.Hour) != 0 || days == 0 {
		days++
	}
	return synth.Generate(synth.Options{
		Days:       days,
		SummerDays: s.SummerDays,
		Period:     s.Period,
		Seed:       s.Seed,
	}), nil
}
