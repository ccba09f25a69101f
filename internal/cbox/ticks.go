package cbox

import "math"

// Ticks is a millisecond timestamp or duration. Time is always supplied by
// the caller of Update, the core never reads a clock.
type Ticks int64

const (
	Second Ticks = 1000
	Minute       = 60 * Second
	Hour         = 60 * Minute

	// Never is returned by Update when an object does not need to run again.
	Never Ticks = math.MaxInt64
)

// Elapsed returns now - since, clamped to zero when since lies in the future.
func Elapsed(now, since Ticks) Ticks {
	if now < since {
		return 0
	}
	return now - since
}

// IntervalHelper runs a function at a fixed interval on top of the
// cooperative update loop. When a run is late, the next run is scheduled
// relative to the previous due time so the average rate is preserved. When
// it is more than a full interval late, the schedule restarts from now.
type IntervalHelper struct {
	Interval Ticks
	nextDue  Ticks
	started  bool
}

func NewIntervalHelper(interval Ticks) IntervalHelper {
	return IntervalHelper{Interval: interval}
}

// Update calls fn when the interval has passed and returns the next due time.
func (h *IntervalHelper) Update(now Ticks, fn func()) Ticks {
	if h.started && now < h.nextDue {
		return h.nextDue
	}
	fn()
	if !h.started || now-h.nextDue >= h.Interval {
		h.nextDue = now + h.Interval
	} else {
		h.nextDue += h.Interval
	}
	h.started = true
	return h.nextDue
}

// Reset makes the next Update call run immediately.
func (h *IntervalHelper) Reset() {
	h.started = false
}
