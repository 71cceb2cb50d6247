// Package bus publishes acceleration commands on a CAN bus.
//
// A command with n components is split over ceil(n/4) frames with
// consecutive IDs starting at the codec's base ID. Each component is a
// little-endian signed 16-bit integer equal to round(value * scale),
// saturated to the int16 range.
package bus

import (
	"errors"
	"fmt"
	"math"

	"go.einride.tech/can"

	"github.com/san-kum/liepid/internal/lie"
)

const (
	signalBits      = 16
	signalsPerFrame = 4
)

var (
	ErrBadScale   = errors.New("bus: scale must be positive")
	ErrFrameCount = errors.New("bus: unexpected number of frames")
	ErrFrameID    = errors.New("bus: unexpected frame id")
)

type Codec struct {
	baseID uint32
	scale  float64
}

func NewCodec(baseID uint32, scale float64) (*Codec, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: %g", ErrBadScale, scale)
	}
	return &Codec{baseID: baseID, scale: scale}, nil
}

// Frames returns the number of frames used for an n-component command.
func Frames(n int) int {
	return (n + signalsPerFrame - 1) / signalsPerFrame
}

func (c *Codec) Encode(u lie.Tangent) []can.Frame {
	frames := make([]can.Frame, Frames(len(u)))
	for i := range frames {
		f := &frames[i]
		f.ID = c.baseID + uint32(i)
		for j := 0; j < signalsPerFrame; j++ {
			k := i*signalsPerFrame + j
			if k >= len(u) {
				break
			}
			f.Data.SetSignedBitsLittleEndian(uint8(j*signalBits), signalBits, c.quantize(u[k]))
			f.Length += signalBits / 8
		}
	}
	return frames
}

// Decode reassembles an n-component command from frames produced by Encode.
func (c *Codec) Decode(frames []can.Frame, n int) (lie.Tangent, error) {
	if len(frames) != Frames(n) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFrameCount, len(frames), Frames(n))
	}
	u := lie.Zeros(n)
	for i, f := range frames {
		if f.ID != c.baseID+uint32(i) {
			return nil, fmt.Errorf("%w: 0x%X at position %d", ErrFrameID, f.ID, i)
		}
		for j := 0; j < signalsPerFrame; j++ {
			k := i*signalsPerFrame + j
			if k >= n {
				break
			}
			raw := f.Data.SignedBitsLittleEndian(uint8(j*signalBits), signalBits)
			u[k] = float64(raw) / c.scale
		}
	}
	return u, nil
}

func (c *Codec) quantize(v float64) int64 {
	q := math.Round(v * c.scale)
	switch {
	case math.IsNaN(q):
		return 0
	case q > math.MaxInt16:
		return math.MaxInt16
	case q < math.MinInt16:
		return math.MinInt16
	}
	return int64(q)
}
