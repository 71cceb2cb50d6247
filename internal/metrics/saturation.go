package metrics

import (
	"math"

	"github.com/san-kum/liepid/internal/sim"
)

// Saturation is the fraction of ticks where any integral component sits at
// the windup limit.
type Saturation struct {
	name      string
	limit     float64
	saturated int
	samples   int
}

func NewSaturation(limit float64) *Saturation {
	return &Saturation{
		name:  "saturation",
		limit: limit,
	}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(x sim.Sample) {
	s.samples++
	if math.IsInf(s.limit, 1) {
		return
	}
	for _, v := range x.Integral {
		if math.Abs(v) >= s.limit {
			s.saturated++
			break
		}
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.saturated = 0
	s.samples = 0
}
