package feedback

import (
	"math"
	"time"
)

// Instant is the capability required of the controller's time type: a
// duration between two instants and a strict ordering. time.Time satisfies it.
type Instant[T any] interface {
	Sub(u T) time.Duration
	After(u T) bool
}

// Seconds is an instant on a simulation clock, in seconds.
type Seconds float64

// maxSeconds is the largest gap a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// Sub returns s-u, saturating at the time.Duration range like time.Time.Sub.
func (s Seconds) Sub(u Seconds) time.Duration {
	d := float64(s - u)
	switch {
	case d >= maxSeconds:
		return time.Duration(math.MaxInt64)
	case d <= -maxSeconds:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(math.Round(d * float64(time.Second)))
}

func (s Seconds) After(u Seconds) bool { return s > u }
