package control

import (
	"github.com/markusressel/controlbox/internal/fp"
	"golang.org/x/exp/slices"
)

// ProcessValue is a writable setting paired with a read back value.
type ProcessValue interface {
	Setting() fp.Value
	SetSetting(setting fp.Value)
	SettingValid() bool
	SetSettingValid(valid bool)
	Value() fp.Value
	ValueValid() bool
}

// AnalogConstraint limits the setting of an analog actuator.
type AnalogConstraint interface {
	// Constrain returns the allowed setting for val. valid tells whether the
	// actuator is currently requesting anything.
	Constrain(val fp.Value, valid bool) fp.Value
	Order() uint8
}

type analogConstraintReleaser interface {
	Release()
}

const (
	orderMinimum uint8 = iota
	orderMaximum
	orderBalanced
)

// ActuatorAnalogConstrained applies an ordered list of constraints to the
// setting of an analog actuator.
type ActuatorAnalogConstrained struct {
	actuator    ProcessValue
	constraints []AnalogConstraint
	desired     fp.Value
	limiting    uint8
}

func NewActuatorAnalogConstrained(actuator ProcessValue) *ActuatorAnalogConstrained {
	return &ActuatorAnalogConstrained{actuator: actuator}
}

func (a *ActuatorAnalogConstrained) Actuator() ProcessValue {
	return a.actuator
}

// SetSetting passes val to the actuator, which can clip it, and writes the
// constrained result of the clipped value back.
func (a *ActuatorAnalogConstrained) SetSetting(val fp.Value) {
	a.actuator.SetSetting(val)
	a.desired = a.actuator.Setting()
	a.actuator.SetSetting(a.constrain(a.desired))
}

func (a *ActuatorAnalogConstrained) constrain(val fp.Value) fp.Value {
	a.limiting = 0
	valid := a.actuator.SettingValid()
	for i, c := range a.constraints {
		constrained := c.Constrain(val, valid)
		if constrained != val {
			a.limiting |= 1 << i
		}
		val = constrained
	}
	return val
}

// Update reapplies the constraints to the desired setting. Constraints like
// Balanced change over time without a new setting being written.
func (a *ActuatorAnalogConstrained) Update() {
	a.actuator.SetSetting(a.constrain(a.desired))
}

func (a *ActuatorAnalogConstrained) Setting() fp.Value {
	return a.actuator.Setting()
}

// DesiredSetting returns the setting before constraints were applied.
func (a *ActuatorAnalogConstrained) DesiredSetting() fp.Value {
	return a.desired
}

func (a *ActuatorAnalogConstrained) SettingValid() bool {
	return a.actuator.SettingValid()
}

// SetSettingValid forwards the flag. Constraints are reapplied when it
// changes, as some of them depend on whether the actuator is requesting.
func (a *ActuatorAnalogConstrained) SetSettingValid(valid bool) {
	if valid == a.actuator.SettingValid() {
		return
	}
	a.actuator.SetSettingValid(valid)
	a.actuator.SetSetting(a.constrain(a.desired))
}

func (a *ActuatorAnalogConstrained) Value() fp.Value {
	return a.actuator.Value()
}

func (a *ActuatorAnalogConstrained) ValueValid() bool {
	return a.actuator.ValueValid()
}

func (a *ActuatorAnalogConstrained) Limiting() uint8 {
	return a.limiting
}

func (a *ActuatorAnalogConstrained) Constraints() []AnalogConstraint {
	return a.constraints
}

// AddConstraint inserts c in order. It returns false when the actuator
// already has MaxConstraints constraints.
func (a *ActuatorAnalogConstrained) AddConstraint(c AnalogConstraint) bool {
	if len(a.constraints) >= MaxConstraints {
		return false
	}
	a.constraints = append(a.constraints, c)
	slices.SortStableFunc(a.constraints, func(x, y AnalogConstraint) int {
		return int(x.Order()) - int(y.Order())
	})
	return true
}

func (a *ActuatorAnalogConstrained) ClearConstraints() {
	for _, c := range a.constraints {
		if releaser, ok := c.(analogConstraintReleaser); ok {
			releaser.Release()
		}
	}
	a.constraints = nil
}

// Minimum raises the setting to at least Min.
type Minimum struct {
	Min fp.Value
}

func (c *Minimum) Order() uint8 {
	return orderMinimum
}

func (c *Minimum) Constrain(val fp.Value, valid bool) fp.Value {
	return fp.Max(val, c.Min)
}

// Maximum lowers the setting to at most Max.
type Maximum struct {
	Max fp.Value
}

func (c *Maximum) Order() uint8 {
	return orderMaximum
}

func (c *Maximum) Constrain(val fp.Value, valid bool) fp.Value {
	return fp.Min(val, c.Max)
}

// Balanced registers the actuator as a client of a Balancer and limits the
// setting to the granted share.
type Balanced struct {
	balancer Lookup[*Balancer]

	registered *Balancer
	clientID   uint8
}

func NewBalanced(balancer Lookup[*Balancer]) *Balanced {
	return &Balanced{balancer: balancer}
}

func (c *Balanced) Order() uint8 {
	return orderBalanced
}

// BalancerID returns the id the balancer assigned, 0 when not registered.
func (c *Balanced) BalancerID() uint8 {
	return c.clientID
}

// Granted returns the share granted by the balancer.
func (c *Balanced) Granted() fp.Value {
	if c.registered == nil {
		return fp.Zero
	}
	return c.registered.Granted(c.clientID)
}

func (c *Balanced) Constrain(val fp.Value, valid bool) fp.Value {
	balancer, ok := c.balancer.get()
	if !ok || balancer == nil {
		c.Release()
		return val
	}
	if balancer != c.registered {
		c.Release()
		id := balancer.Register()
		if id == 0 {
			return val
		}
		c.registered = balancer
		c.clientID = id
	}
	requested := val
	if !valid {
		requested = fp.Zero
	}
	return balancer.Constrain(c.clientID, requested, val)
}

func (c *Balanced) Release() {
	if c.registered != nil {
		c.registered.Unregister(c.clientID)
	}
	c.registered = nil
	c.clientID = 0
}
