package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/liepid/internal/sim"
)

// TrackingRMS is the root mean square of the tracking error magnitude,
// optionally ignoring an initial transient.
type TrackingRMS struct {
	name    string
	settle  float64
	squares []float64
}

// NewTrackingRMS ignores samples before time settle.
func NewTrackingRMS(settle float64) *TrackingRMS {
	return &TrackingRMS{name: "tracking_rms", settle: settle}
}

func (m *TrackingRMS) Name() string { return m.name }

func (m *TrackingRMS) Observe(s sim.Sample) {
	if s.T < m.settle {
		return
	}
	n := s.Err.Norm()
	m.squares = append(m.squares, n*n)
}

func (m *TrackingRMS) Value() float64 {
	if len(m.squares) == 0 {
		return 0
	}
	return math.Sqrt(stat.Mean(m.squares, nil))
}

func (m *TrackingRMS) Reset() {
	m.squares = m.squares[:0]
}

// PeakError is the largest tracking error magnitude seen.
type PeakError struct {
	peak float64
}

func NewPeakError() *PeakError { return &PeakError{} }

func (m *PeakError) Name() string { return "peak_error" }

func (m *PeakError) Observe(s sim.Sample) {
	m.peak = math.Max(m.peak, s.Err.Norm())
}

func (m *PeakError) Value() float64 { return m.peak }
func (m *PeakError) Reset()         { m.peak = 0 }
