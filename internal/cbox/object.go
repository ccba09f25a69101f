package cbox

import (
	"io"

	"github.com/markusressel/controlbox/internal/codec"
)

// ObjectID identifies an object in the container. 0 is invalid and means
// "let the container assign an id" when creating.
type ObjectID uint16

// TypeID identifies a block type on the wire and in the factory.
type TypeID uint16

// InterfaceID identifies a capability that can be queried with Implements.
type InterfaceID uint16

// Groups is a bitmask of activation groups.
type Groups uint8

const (
	InvalidID ObjectID = 0

	// SystemGroup is always active.
	SystemGroup Groups = 0x80
	AllGroups   Groups = 0xFF
)

// Object is the contract every block fulfills.
type Object interface {
	TypeID() TypeID

	// StreamFrom applies a configuration update.
	StreamFrom(in io.Reader) error
	// StreamTo writes the readable and writable state. Invalid values are
	// omitted and listed as stripped fields.
	StreamTo(out io.Writer) error
	// StreamPersistedTo writes the subset of the state that survives a
	// reboot. It can return ErrPersistingNotNeeded.
	StreamPersistedTo(out io.Writer) error

	// Update runs one step and returns the tick at which the object wants
	// to run again.
	Update(now Ticks) Ticks

	// Implements returns the capability with the given id, or nil.
	Implements(iface InterfaceID) any
}

// Releaser is implemented by objects that hold shared resources (io
// channels, balancer slots, mutex locks) which must be handed back when the
// object leaves the container.
type Releaser interface {
	Release()
}

// Identifiable is implemented by objects that need to know their own id,
// for example to claim hardware channels in their name. The container calls
// SetObjectID when the object is added.
type Identifiable interface {
	SetObjectID(id ObjectID)
}

// Fetcher resolves an id to a live object.
type Fetcher interface {
	Fetch(id ObjectID) Object
}

// InactiveObjectTypeID is reported for objects that are not in an active
// group.
const InactiveObjectTypeID TypeID = 0xFFFF

// InactiveObject takes the place of an object while none of its groups are
// active. It remembers the type of the object it replaces.
type InactiveObject struct {
	actualType TypeID
}

func NewInactiveObject(actualType TypeID) *InactiveObject {
	return &InactiveObject{actualType: actualType}
}

func (o *InactiveObject) ActualType() TypeID {
	return o.actualType
}

func (o *InactiveObject) TypeID() TypeID {
	return InactiveObjectTypeID
}

func (o *InactiveObject) StreamFrom(in io.Reader) error {
	return nil
}

func (o *InactiveObject) StreamTo(out io.Writer) error {
	m := codec.NewMessage()
	m.SetInt("actualType", int64(o.actualType))
	if err := m.Encode(out); err != nil {
		return ErrOutputStreamWrite
	}
	return nil
}

func (o *InactiveObject) StreamPersistedTo(out io.Writer) error {
	return ErrPersistingNotNeeded
}

func (o *InactiveObject) Update(now Ticks) Ticks {
	return Never
}

func (o *InactiveObject) Implements(iface InterfaceID) any {
	return nil
}
