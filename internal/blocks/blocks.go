// Package blocks contains the object types that can live in the container.
// Each block wraps a control type, resolves references to other blocks on
// every use and defines its payload as a codec.Message.
package blocks

import (
	"io"
	"strings"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/control"
)

const (
	GroupsType             cbox.TypeID = 1
	SysInfoType            cbox.TypeID = 2
	TicksType              cbox.TypeID = 3
	TempSensorMockType     cbox.TypeID = 301
	TempSensorCombiType    cbox.TypeID = 302
	TempSensorFileType     cbox.TypeID = 303
	SetpointSensorPairType cbox.TypeID = 310
	SetpointProfileType    cbox.TypeID = 311
	PidType                cbox.TypeID = 320
	ActuatorAnalogMockType cbox.TypeID = 330
	ActuatorPwmType        cbox.TypeID = 331
	ActuatorOffsetType     cbox.TypeID = 332
	DigitalActuatorType    cbox.TypeID = 340
	ActuatorLogicType      cbox.TypeID = 341
	MockPinsType           cbox.TypeID = 350
	GpioPinsType           cbox.TypeID = 351
	BalancerType           cbox.TypeID = 360
	MutexType              cbox.TypeID = 361
)

// ids of the system objects
const (
	GroupsID  cbox.ObjectID = 1
	SysInfoID cbox.ObjectID = 2
	TicksID   cbox.ObjectID = 3

	// DefaultStartID is the first id available for user objects.
	DefaultStartID cbox.ObjectID = 100
)

// Capabilities a block can expose through Implements.
const (
	IfaceTempSensor cbox.InterfaceID = iota + 1
	IfaceSetpointSensorPair
	IfacePidInput
	IfaceProcessValue
	IfaceEnabler
	IfaceActuatorAnalogConstrained
	IfaceActuatorDigitalConstrained
	IfaceIoArray
	IfaceBalancer
	IfaceTimedMutex
	IfaceUtcSource
)

// Enabler is implemented by blocks that can be switched off without being
// removed.
type Enabler interface {
	Enabled() bool
	SetEnabled(enabled bool)
}

// GroupsController changes which groups of objects are active.
type GroupsController interface {
	ActiveGroups() cbox.Groups
	SetActiveGroups(groups cbox.Groups) error
}

// Env is shared by all blocks of one box. Objects and Groups are usually
// the container, which is created after the factory, so they are resolved
// lazily.
type Env struct {
	Objects  cbox.Fetcher
	Groups   GroupsController
	Version  string
	DeviceID string
}

func (e *Env) Fetch(id cbox.ObjectID) cbox.Object {
	if e == nil || e.Objects == nil {
		return nil
	}
	return e.Objects.Fetch(id)
}

// Factory returns the table of all user creatable block types.
func Factory(env *Env) *cbox.ObjectFactory {
	return cbox.NewObjectFactory(
		cbox.FactoryEntry{Type: TempSensorMockType, Name: "TempSensorMock", New: func() cbox.Object { return NewTempSensorMock() }},
		cbox.FactoryEntry{Type: TempSensorCombiType, Name: "TempSensorCombi", New: func() cbox.Object { return NewTempSensorCombi(env) }},
		cbox.FactoryEntry{Type: TempSensorFileType, Name: "TempSensorFile", New: func() cbox.Object { return NewTempSensorFile() }},
		cbox.FactoryEntry{Type: SetpointSensorPairType, Name: "SetpointSensorPair", New: func() cbox.Object { return NewSetpointSensorPair(env) }},
		cbox.FactoryEntry{Type: SetpointProfileType, Name: "SetpointProfile", New: func() cbox.Object { return NewSetpointProfile(env) }},
		cbox.FactoryEntry{Type: PidType, Name: "Pid", New: func() cbox.Object { return NewPid(env) }},
		cbox.FactoryEntry{Type: ActuatorAnalogMockType, Name: "ActuatorAnalogMock", New: func() cbox.Object { return NewActuatorAnalogMock(env) }},
		cbox.FactoryEntry{Type: ActuatorPwmType, Name: "ActuatorPwm", New: func() cbox.Object { return NewActuatorPwm(env) }},
		cbox.FactoryEntry{Type: ActuatorOffsetType, Name: "ActuatorOffset", New: func() cbox.Object { return NewActuatorOffset(env) }},
		cbox.FactoryEntry{Type: DigitalActuatorType, Name: "DigitalActuator", New: func() cbox.Object { return NewDigitalActuator(env) }},
		cbox.FactoryEntry{Type: ActuatorLogicType, Name: "ActuatorLogic", New: func() cbox.Object { return NewActuatorLogic(env) }},
		cbox.FactoryEntry{Type: MockPinsType, Name: "MockPins", New: func() cbox.Object { return NewMockPins() }},
		cbox.FactoryEntry{Type: GpioPinsType, Name: "GpioPins", New: func() cbox.Object { return NewGpioPins() }},
		cbox.FactoryEntry{Type: BalancerType, Name: "Balancer", New: func() cbox.Object { return NewBalancer() }},
		cbox.FactoryEntry{Type: MutexType, Name: "Mutex", New: func() cbox.Object { return NewMutex() }},
	)
}

// SystemObjects creates the undeletable objects every box starts with.
func SystemObjects(env *Env) []*cbox.ContainedObject {
	return []*cbox.ContainedObject{
		cbox.NewContainedObject(GroupsID, cbox.SystemGroup, NewGroups(env)),
		cbox.NewContainedObject(SysInfoID, cbox.SystemGroup, NewSysInfo(env)),
		cbox.NewContainedObject(TicksID, cbox.SystemGroup, NewTicks()),
	}
}

// TypeNames maps the names accepted in configuration files to type ids,
// including the system types.
func TypeNames(env *Env) map[string]cbox.TypeID {
	names := map[string]cbox.TypeID{
		"Groups":  GroupsType,
		"SysInfo": SysInfoType,
		"Ticks":   TicksType,
	}
	for _, entry := range Factory(env).Entries() {
		names[entry.Name] = entry.Type
	}
	return names
}

// ReferenceFields lists the payload fields that hold ids of other objects.
var ReferenceFields = []string{
	"sensorId", "targetId", "referenceId", "inputId", "outputId",
	"hwDevice", "actuatorId", "analogId", "balancerId", "mutexId",
}

// ReferenceListFields lists the payload fields that hold lists of ids.
var ReferenceListFields = []string{"sensors", "digitals"}

func lookup[T any](env *Env, iface cbox.InterfaceID) *cbox.Ptr[T] {
	ptr := cbox.NewPtr[T](env, iface)
	return &ptr
}

func asLookup[T any](ptr *cbox.Ptr[T]) control.Lookup[T] {
	return ptr.Get
}

func decode(in io.Reader) (*codec.Message, error) {
	m, err := codec.Decode(in)
	if err != nil {
		return nil, cbox.ErrInputStreamRead
	}
	return m, nil
}

func encode(m *codec.Message, out io.Writer) error {
	if err := m.Encode(out); err != nil {
		return cbox.ErrOutputStreamWrite
	}
	return nil
}

func readID(m *codec.Message, name string) (cbox.ObjectID, bool) {
	n, ok := m.Int(name)
	if !ok || n < 0 || n > 0xFFFF {
		return cbox.InvalidID, false
	}
	return cbox.ObjectID(n), true
}

func readTicks(m *codec.Message, name string) (cbox.Ticks, bool) {
	n, ok := m.Int(name)
	if !ok || n < 0 {
		return 0, false
	}
	return cbox.Ticks(n), true
}

// readEnum accepts the name (case insensitive) or the index of a value.
func readEnum(m *codec.Message, name string, names []string) (int, bool) {
	if s, ok := m.String(name); ok {
		for i, n := range names {
			if strings.EqualFold(n, s) {
				return i, true
			}
		}
		return 0, false
	}
	n, ok := m.Int(name)
	if !ok || n < 0 || int(n) >= len(names) {
		return 0, false
	}
	return int(n), true
}

var stateNames = []string{"Inactive", "Active", "Unknown"}

func readState(m *codec.Message, name string) (control.State, bool) {
	i, ok := readEnum(m, name, stateNames)
	return control.State(i), ok
}

func readEnabled(m *codec.Message, target Enabler) {
	if enabled, ok := m.Bool("enabled"); ok {
		target.SetEnabled(enabled)
	}
}
