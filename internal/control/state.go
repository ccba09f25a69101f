// Package control implements the sensors, actuators, constraints and
// controllers that make up a control loop. Objects in this package never
// read a clock and never log, time is passed in as cbox.Ticks.
package control

import "github.com/markusressel/controlbox/internal/cbox"

type State uint8

const (
	Inactive State = iota
	Active
	Unknown
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "Inactive"
	case Active:
		return "Active"
	default:
		return "Unknown"
	}
}

// Invert swaps Active and Inactive, Unknown stays Unknown.
func (s State) Invert() State {
	switch s {
	case Inactive:
		return Active
	case Active:
		return Inactive
	default:
		return Unknown
	}
}

// Lookup resolves a reference to another object. It reports false when the
// target is currently not available, callers must treat that as a normal
// condition.
type Lookup[T any] func() (T, bool)

// Fixed returns a lookup that always resolves to v.
func Fixed[T any](v T) Lookup[T] {
	return func() (T, bool) {
		return v, true
	}
}

// Missing returns a lookup that never resolves.
func Missing[T any]() Lookup[T] {
	return func() (T, bool) {
		var zero T
		return zero, false
	}
}

func (l Lookup[T]) get() (T, bool) {
	if l == nil {
		var zero T
		return zero, false
	}
	return l()
}

type Ticks = cbox.Ticks
