package blocks

import (
	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/control"
)

// mutexConstraint remembers which Mutex block a control.Mutex refers to.
type mutexConstraint struct {
	*control.Mutex
	ptr *cbox.Ptr[*control.TimedMutex]
}

// balancedConstraint remembers which Balancer block a control.Balanced
// refers to.
type balancedConstraint struct {
	*control.Balanced
	ptr *cbox.Ptr[*control.Balancer]
}

// readDigitalConstraints replaces the constraints of act when the payload
// contains a constraint list.
func readDigitalConstraints(env *Env, m *codec.Message, act *control.ActuatorDigitalConstrained) {
	items, ok := m.List("constraints")
	if !ok {
		return
	}
	act.ClearConstraints()
	for _, item := range items {
		kind, _ := item.String("type")
		value, _ := readTicks(item, "value")
		var c control.DigitalConstraint
		switch kind {
		case "minOn":
			c = &control.MinOnTime{Duration: value}
		case "minOff":
			c = &control.MinOffTime{Duration: value}
		case "delayedOn":
			c = &control.DelayedOn{Delay: value}
		case "delayedOff":
			c = &control.DelayedOff{Delay: value}
		case "mutex":
			ptr := lookup[*control.TimedMutex](env, IfaceTimedMutex)
			if id, ok := readID(item, "mutexId"); ok {
				ptr.SetID(id)
			}
			holdTime, _ := readTicks(item, "holdTime")
			c = mutexConstraint{
				Mutex: &control.Mutex{Mutex: asLookup(ptr), HoldTime: holdTime},
				ptr:   ptr,
			}
		default:
			continue
		}
		act.AddConstraint(c)
	}
}

// writeDigitalConstraints adds the constraint list. The runtime fields
// (limiting, hasLock) are left out when persisting.
func writeDigitalConstraints(m *codec.Message, act *control.ActuatorDigitalConstrained, runtime bool) {
	constraints := act.Constraints()
	items := make([]*codec.Message, 0, len(constraints))
	for i, c := range constraints {
		item := codec.NewMessage()
		switch c := c.(type) {
		case *control.MinOnTime:
			item.SetString("type", "minOn")
			item.SetInt("value", int64(c.Duration))
		case *control.MinOffTime:
			item.SetString("type", "minOff")
			item.SetInt("value", int64(c.Duration))
		case *control.DelayedOn:
			item.SetString("type", "delayedOn")
			item.SetInt("value", int64(c.Delay))
		case *control.DelayedOff:
			item.SetString("type", "delayedOff")
			item.SetInt("value", int64(c.Delay))
		case mutexConstraint:
			item.SetString("type", "mutex")
			item.SetInt("mutexId", int64(c.ptr.ID()))
			item.SetInt("holdTime", int64(c.HoldTime))
			if runtime {
				item.SetBool("hasLock", c.HasLock())
			}
		default:
			continue
		}
		if runtime {
			item.SetBool("limiting", act.Limiting()&(1<<i) != 0)
		}
		items = append(items, item)
	}
	m.SetList("constraints", items)
}

func readAnalogConstraints(env *Env, m *codec.Message, act *control.ActuatorAnalogConstrained) {
	items, ok := m.List("constraints")
	if !ok {
		return
	}
	act.ClearConstraints()
	for _, item := range items {
		kind, _ := item.String("type")
		var c control.AnalogConstraint
		switch kind {
		case "min":
			value, _ := item.Value("value")
			c = &control.Minimum{Min: value}
		case "max":
			value, _ := item.Value("value")
			c = &control.Maximum{Max: value}
		case "balanced":
			ptr := lookup[*control.Balancer](env, IfaceBalancer)
			if id, ok := readID(item, "balancerId"); ok {
				ptr.SetID(id)
			}
			c = balancedConstraint{
				Balanced: control.NewBalanced(asLookup(ptr)),
				ptr:      ptr,
			}
		default:
			continue
		}
		act.AddConstraint(c)
	}
}

func writeAnalogConstraints(m *codec.Message, act *control.ActuatorAnalogConstrained, runtime bool) {
	constraints := act.Constraints()
	items := make([]*codec.Message, 0, len(constraints))
	for i, c := range constraints {
		item := codec.NewMessage()
		switch c := c.(type) {
		case *control.Minimum:
			item.SetString("type", "min")
			item.SetValue("value", c.Min)
		case *control.Maximum:
			item.SetString("type", "max")
			item.SetValue("value", c.Max)
		case balancedConstraint:
			item.SetString("type", "balanced")
			item.SetInt("balancerId", int64(c.ptr.ID()))
			if runtime {
				item.SetValue("granted", c.Granted())
			}
		default:
			continue
		}
		if runtime {
			item.SetBool("limiting", act.Limiting()&(1<<i) != 0)
		}
		items = append(items, item)
	}
	m.SetList("constraints", items)
}
