package control

import (
	"github.com/markusressel/controlbox/internal/fp"
	"golang.org/x/exp/slices"
)

const ProfileInterval Ticks = 1000

// UtcSource provides the device time in seconds, 0 when unknown.
type UtcSource interface {
	UtcSeconds() int64
}

// ProfilePoint is a temperature at a number of seconds after the profile
// start.
type ProfilePoint struct {
	Time        int64
	Temperature fp.Value
}

// SetpointProfile interpolates a list of points over time and writes the
// result to a target setpoint.
type SetpointProfile struct {
	target Lookup[ProcessValue]
	utc    Lookup[UtcSource]

	points  []ProfilePoint
	start   int64
	enabled bool
	driving bool
}

func NewSetpointProfile(target Lookup[ProcessValue], utc Lookup[UtcSource]) *SetpointProfile {
	return &SetpointProfile{
		target: target,
		utc:    utc,
	}
}

func (p *SetpointProfile) SetTarget(target Lookup[ProcessValue]) {
	p.target = target
}

func (p *SetpointProfile) Points() []ProfilePoint {
	return p.points
}

// SetPoints stores the points sorted by time. Points with the same time keep
// their order.
func (p *SetpointProfile) SetPoints(points []ProfilePoint) {
	sorted := make([]ProfilePoint, len(points))
	copy(sorted, points)
	slices.SortStableFunc(sorted, func(a, b ProfilePoint) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		default:
			return 0
		}
	})
	p.points = sorted
}

// Start returns the profile start in UTC seconds.
func (p *SetpointProfile) Start() int64 {
	return p.start
}

func (p *SetpointProfile) SetStart(start int64) {
	p.start = start
}

func (p *SetpointProfile) Enabled() bool {
	return p.enabled
}

func (p *SetpointProfile) SetEnabled(enabled bool) {
	p.enabled = enabled
}

// IsDriving reports whether the profile controlled its target in the last
// update.
func (p *SetpointProfile) IsDriving() bool {
	return p.driving
}

// SettingAt returns the interpolated setting at elapsed seconds after the
// start. It returns false before the first point.
func (p *SetpointProfile) SettingAt(elapsed int64) (fp.Value, bool) {
	if len(p.points) == 0 {
		return fp.Zero, false
	}
	// first point after elapsed, duplicates at elapsed are passed so the
	// later one of them is used
	next, _ := slices.BinarySearchFunc(p.points, elapsed+1, func(point ProfilePoint, t int64) int {
		switch {
		case point.Time < t:
			return -1
		case point.Time > t:
			return 1
		default:
			return 0
		}
	})
	if next == 0 {
		return fp.Zero, false
	}
	if next == len(p.points) {
		return p.points[len(p.points)-1].Temperature, true
	}
	prev := p.points[next-1]
	upper := p.points[next]
	span := upper.Time - prev.Time
	delta := upper.Temperature.Sub(prev.Temperature)
	offset := fp.FromRaw(delta.Raw() * (elapsed - prev.Time) / span)
	return prev.Temperature.Add(offset), true
}

func (p *SetpointProfile) Update(now Ticks) Ticks {
	p.driving = false
	if !p.enabled || len(p.points) == 0 {
		return now + ProfileInterval
	}
	utc, ok := p.utc.get()
	if !ok || utc == nil {
		return now + ProfileInterval
	}
	seconds := utc.UtcSeconds()
	if seconds == 0 {
		return now + ProfileInterval
	}
	p.driving = true

	setting, ok := p.SettingAt(seconds - p.start)
	if !ok {
		return now + ProfileInterval
	}
	if target, ok := p.target.get(); ok && target != nil {
		target.SetSetting(setting)
		target.SetSettingValid(true)
	}
	return now + ProfileInterval
}
