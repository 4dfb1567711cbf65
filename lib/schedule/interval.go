package schedule

import (
	"math/rand"
	"time"
)

type IntervalPolicy struct {
	Normal   time.Duration
	Extended time.Duration
	// ExtendedProbability is the chance of each wait using Extended.
	ExtendedProbability float64
	// Offset bounds the uniform jitter added to every wait, [-Offset, Offset].
	Offset time.Duration
}

const (
	DefaultNormal   = 5 * time.Second
	DefaultExtended = 60 * time.Second
	DefaultOffset   = 2 * time.Second
	// RowEstimate is the time a row is expected to take besides waiting.
	RowEstimate = 2 * time.Second
)

func DefaultIntervalPolicy() IntervalPolicy {
	return IntervalPolicy{
		Normal:   DefaultNormal,
		Extended: DefaultExtended,
		Offset:   DefaultOffset,
	}
}

type Interval struct {
	Duration time.Duration
	Extended bool
}

// Intervals draws the waits between rows, one less than rows.
func (p IntervalPolicy) Intervals(rows int, rng *rand.Rand) []Interval {
	if rows < 2 {
		return nil
	}
	intervals := make([]Interval, rows-1)
	for i := range intervals {
		base := p.Normal
		extended := rng.Float64() < p.ExtendedProbability
		if extended {
			base = p.Extended
		}
		var jitter time.Duration
		if p.Offset > 0 {
			jitter = time.Duration((rng.Float64()*2 - 1) * float64(p.Offset))
		}
		intervals[i] = Interval{
			Duration: max(base+jitter, 0),
			Extended: extended,
		}
	}
	return intervals
}

// ETA is the sum of the remaining waits plus RowEstimate per remaining row.
func ETA(remaining []Interval, rows int) time.Duration {
	var total time.Duration
	for _, i := range remaining {
		total += i.Duration
	}
	return total + time.Duration(rows)*RowEstimate
}

func ExtendedCount(intervals []Interval) int {
	n := 0
	for _, i := range intervals {
		if i.Extended {
			n++
		}
	}
	return n
}
