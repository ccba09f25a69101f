package control

import "golang.org/x/exp/slices"

// MaxConstraints is the maximum number of constraints per actuator.
const MaxConstraints = 8

// DigitalConstraint can delay a state transition of a digital actuator.
type DigitalConstraint interface {
	// Allowed returns 0 when the transition to newState may happen now,
	// otherwise the time until it may happen. Constraints that cannot
	// estimate the wait return a positive value anyway.
	Allowed(newState State, now Ticks, act *ActuatorDigitalConstrained) Ticks
	// Order determines the evaluation order, lower first.
	Order() uint8
}

type digitalConstraintUpdater interface {
	Update(now Ticks, act *ActuatorDigitalConstrained)
}

type digitalConstraintReleaser interface {
	Release(act *ActuatorDigitalConstrained)
}

// ActuatorDigitalConstrained applies the desired state of a digital
// actuator once all its constraints allow it.
type ActuatorDigitalConstrained struct {
	logged       *ActuatorDigitalChangeLogged
	constraints  []DigitalConstraint
	desiredState State
	desiredSince Ticks
	limiting     uint8
	waiting      Ticks
}

func NewActuatorDigitalConstrained(logged *ActuatorDigitalChangeLogged) *ActuatorDigitalConstrained {
	return &ActuatorDigitalConstrained{
		logged:       logged,
		desiredState: Unknown,
	}
}

func (a *ActuatorDigitalConstrained) Logged() *ActuatorDigitalChangeLogged {
	return a.logged
}

// State returns the actual state.
func (a *ActuatorDigitalConstrained) State() State {
	return a.logged.State()
}

func (a *ActuatorDigitalConstrained) DesiredState() State {
	return a.desiredState
}

// DesiredSince returns the time at which the desired state last changed.
func (a *ActuatorDigitalConstrained) DesiredSince() Ticks {
	return a.desiredSince
}

// Limiting returns a bitmask of the constraints, by position, that are
// currently holding back the desired state.
func (a *ActuatorDigitalConstrained) Limiting() uint8 {
	return a.limiting
}

// WaitRemaining returns the wait reported by the limiting constraint.
func (a *ActuatorDigitalConstrained) WaitRemaining() Ticks {
	return a.waiting
}

// SetDesiredState requests a state and applies it when allowed.
func (a *ActuatorDigitalConstrained) SetDesiredState(state State, now Ticks) {
	if state != a.desiredState {
		a.desiredState = state
		a.desiredSince = now
	}
	a.apply(now)
}

// Update logs external changes and retries a pending transition, because
// elapsed time alone can unlock it.
func (a *ActuatorDigitalConstrained) Update(now Ticks) {
	a.logged.Update(now)
	for _, c := range a.constraints {
		if updater, ok := c.(digitalConstraintUpdater); ok {
			updater.Update(now, a)
		}
	}
	a.apply(now)
}

func (a *ActuatorDigitalConstrained) apply(now Ticks) {
	a.limiting = 0
	a.waiting = 0
	if a.desiredState == Unknown || a.desiredState == a.logged.State() {
		return
	}
	for i, c := range a.constraints {
		if wait := c.Allowed(a.desiredState, now, a); wait > 0 {
			a.limiting |= 1 << i
			a.waiting = wait
			return
		}
	}
	a.logged.SetState(a.desiredState, now)
}

func (a *ActuatorDigitalConstrained) Constraints() []DigitalConstraint {
	return a.constraints
}

// AddConstraint inserts c in order. It returns false when the actuator
// already has MaxConstraints constraints.
func (a *ActuatorDigitalConstrained) AddConstraint(c DigitalConstraint) bool {
	if len(a.constraints) >= MaxConstraints {
		return false
	}
	a.constraints = append(a.constraints, c)
	slices.SortStableFunc(a.constraints, func(x, y DigitalConstraint) int {
		return int(x.Order()) - int(y.Order())
	})
	return true
}

// ClearConstraints removes all constraints, releasing held locks.
func (a *ActuatorDigitalConstrained) ClearConstraints() {
	for _, c := range a.constraints {
		if releaser, ok := c.(digitalConstraintReleaser); ok {
			releaser.Release(a)
		}
	}
	a.constraints = nil
}

// Release hands back locks and the hardware channel.
func (a *ActuatorDigitalConstrained) Release() {
	a.ClearConstraints()
	a.logged.Digital().Release()
}
