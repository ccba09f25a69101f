// Package box dispatches protocol commands to the object container and runs
// its update loop.
package box

import (
	"bytes"
	"io"
	"sync/atomic"

	"github.com/markusressel/controlbox/internal/blocks"
	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/ui"
)

const DefaultSnapshotInterval = cbox.Second

type Options struct {
	StartID          cbox.ObjectID
	MaxObjects       int
	Version          string
	DeviceID         string
	SnapshotInterval cbox.Ticks
}

func DefaultOptions() Options {
	return Options{
		StartID:          blocks.DefaultStartID,
		MaxObjects:       255,
		SnapshotInterval: DefaultSnapshotInterval,
	}
}

// Box owns the container and answers commands. It is not safe for
// concurrent use, Update and Handle must be called from the same goroutine.
// The snapshot cache and the cycle counter can be read from anywhere.
type Box struct {
	env       *blocks.Env
	storage   cbox.ObjectStorage
	container *cbox.ObjectContainer
	typeNames map[cbox.TypeID]string

	snapshots        *SnapshotCache
	snapshotInterval cbox.Ticks
	lastSnapshot     cbox.Ticks
	snapshotValid    bool

	now    cbox.Ticks
	cycles atomic.Uint64
}

func New(storage cbox.ObjectStorage, options Options) *Box {
	if options.StartID <= blocks.TicksID {
		options.StartID = blocks.DefaultStartID
	}
	if options.SnapshotInterval <= 0 {
		options.SnapshotInterval = DefaultSnapshotInterval
	}

	env := &blocks.Env{
		Version:  options.Version,
		DeviceID: options.DeviceID,
	}
	container := cbox.NewObjectContainer(storage, blocks.Factory(env), options.StartID, blocks.SystemObjects(env)...)
	container.SetMaxObjects(options.MaxObjects)
	env.Objects = container
	env.Groups = container

	typeNames := map[cbox.TypeID]string{}
	for name, typeID := range blocks.TypeNames(env) {
		typeNames[typeID] = name
	}

	return &Box{
		env:              env,
		storage:          storage,
		container:        container,
		typeNames:        typeNames,
		snapshots:        NewSnapshotCache(),
		snapshotInterval: options.SnapshotInterval,
	}
}

func (b *Box) Container() *cbox.ObjectContainer {
	return b.container
}

func (b *Box) Snapshots() *SnapshotCache {
	return b.snapshots
}

// Cycles returns the number of update cycles run so far.
func (b *Box) Cycles() uint64 {
	return b.cycles.Load()
}

// TypeName returns the name of a type id, or "" if unknown.
func (b *Box) TypeName(typeID cbox.TypeID) string {
	if typeID == cbox.InactiveObjectTypeID {
		return "InactiveObject"
	}
	return b.typeNames[typeID]
}

// TypeByName returns the type id of a type name, including system types.
func (b *Box) TypeByName(name string) (cbox.TypeID, bool) {
	for typeID, typeName := range b.typeNames {
		if typeName == name {
			return typeID, true
		}
	}
	return 0, false
}

// Load restores all objects from storage. Objects that fail to load are
// skipped and reported in the returned error.
func (b *Box) Load() error {
	err := b.container.LoadAllFromStorage()
	b.container.ForcedUpdate(b.now)
	b.refreshSnapshots()
	return err
}

// StoredObjectCount returns the number of records in storage.
func (b *Box) StoredObjectCount() (int, error) {
	count := 0
	err := b.storage.RetrieveObjects(func(id cbox.ObjectID, r io.Reader) error {
		count++
		return nil
	})
	return count, err
}

// SetUtcSeconds sets the device time.
func (b *Box) SetUtcSeconds(seconds int64) {
	if ticks, ok := b.container.Fetch(blocks.TicksID).(*blocks.Ticks); ok {
		ticks.SetUtcSeconds(seconds)
	}
}

// UtcSeconds returns the device time, or 0 if it was never set.
func (b *Box) UtcSeconds() int64 {
	if ticks, ok := b.container.Fetch(blocks.TicksID).(*blocks.Ticks); ok {
		return ticks.UtcSeconds()
	}
	return 0
}

// Update runs all due objects and refreshes the snapshot cache when it is
// due.
func (b *Box) Update(now cbox.Ticks) {
	b.now = now
	b.container.Update(now)
	b.cycles.Add(1)

	if !b.snapshotValid || now-b.lastSnapshot >= b.snapshotInterval {
		b.refreshSnapshots()
	}
}

// Handle executes one hex encoded request and returns the hex encoded
// reply.
func (b *Box) Handle(line string) string {
	request, err := DecodeRequest(line)
	if err != nil {
		ui.Warning("Rejecting command: %v", err)
		return Reply{MsgID: request.MsgID, Status: cbox.StatusOf(err)}.Encode()
	}
	return b.Execute(request).Encode()
}

// Execute runs a decoded request.
func (b *Box) Execute(request Request) Reply {
	payload, err := b.execute(request.Opcode, request.Payload)
	reply := Reply{MsgID: request.MsgID, Status: cbox.StatusOf(err)}
	if err != nil {
		ui.Debug("Command %s (msg %d) failed: %v", request.Opcode, request.MsgID, err)
		return reply
	}
	reply.Payload = payload
	return reply
}

func (b *Box) execute(op Opcode, payload []byte) ([]byte, error) {
	switch op {
	case OpNone:
		return nil, nil
	case OpReadObject:
		id, err := readIDPayload(payload)
		if err != nil {
			return nil, err
		}
		return b.readObject(id)
	case OpWriteObject:
		record, err := ReadRecord(bytes.NewReader(payload))
		if err != nil {
			return nil, cbox.ErrInputStreamRead
		}
		return b.writeObject(record)
	case OpCreateObject:
		record, err := ReadRecord(bytes.NewReader(payload))
		if err != nil {
			return nil, cbox.ErrInputStreamRead
		}
		return b.createObject(record)
	case OpDeleteObject:
		id, err := readIDPayload(payload)
		if err != nil {
			return nil, err
		}
		return nil, b.deleteObject(id)
	case OpListObjects:
		return b.listObjects()
	case OpReadStoredObject:
		id, err := readIDPayload(payload)
		if err != nil {
			return nil, err
		}
		return b.readStoredObject(id)
	case OpListStoredObjects:
		return b.listStoredObjects()
	case OpClearObjects:
		return nil, b.clearObjects()
	default:
		return nil, cbox.ErrInvalidCommand
	}
}

func (b *Box) record(obj *cbox.ContainedObject) (Record, error) {
	var buf bytes.Buffer
	if err := obj.Object().StreamTo(&buf); err != nil {
		return Record{}, err
	}
	return Record{
		ID:     obj.ID(),
		Groups: obj.Groups(),
		Type:   obj.Object().TypeID(),
		Data:   buf.Bytes(),
	}, nil
}

func (b *Box) readObject(id cbox.ObjectID) ([]byte, error) {
	obj := b.container.FetchContained(id)
	if obj == nil {
		return nil, cbox.ErrInvalidObjectID
	}
	record, err := b.record(obj)
	if err != nil {
		return nil, err
	}
	return record.AppendTo(nil), nil
}

func (b *Box) store(id cbox.ObjectID) {
	if err := b.container.Store(id); err != nil {
		ui.Warning("Object %d could not be stored, changes are not durable: %v", id, err)
	}
}

func (b *Box) writeObject(record Record) ([]byte, error) {
	obj := b.container.FetchContained(record.ID)
	if obj == nil {
		return nil, cbox.ErrInvalidObjectID
	}
	if obj.ActualType() != record.Type {
		return nil, cbox.ErrInvalidObjectType
	}

	if obj.Inactive() {
		// only the groups can change, which may bring the object back
		if err := b.container.SetGroups(record.ID, record.Groups); err != nil {
			return nil, err
		}
		if obj.Inactive() {
			return b.readObject(record.ID)
		}
	}

	if err := obj.Object().StreamFrom(bytes.NewReader(record.Data)); err != nil {
		return nil, err
	}
	if err := b.container.SetGroups(record.ID, record.Groups); err != nil {
		ui.Warning("Groups of object %d could not be changed: %v", record.ID, err)
	}
	b.store(record.ID)
	if !obj.Inactive() {
		obj.ForcedUpdate(b.now)
	}
	b.refreshSnapshot(obj)
	return b.readObject(record.ID)
}

func (b *Box) createObject(record Record) ([]byte, error) {
	id, err := b.CreateObject(record.ID, record.Groups, record.Type, record.Data)
	if err != nil {
		return nil, err
	}
	return b.readObject(id)
}

// CreateObject creates, stores and activates a new object. An id of 0 lets
// the container choose one.
func (b *Box) CreateObject(id cbox.ObjectID, groups cbox.Groups, typeID cbox.TypeID, data []byte) (cbox.ObjectID, error) {
	if id != cbox.InvalidID {
		if id < b.container.StartID() || b.container.FetchContained(id) != nil {
			return cbox.InvalidID, cbox.ErrInvalidObjectID
		}
	}
	if b.container.Full() {
		return cbox.InvalidID, cbox.ErrInsufficientHeap
	}

	obj, err := b.container.Factory().Make(typeID)
	if err != nil {
		return cbox.InvalidID, err
	}
	if err = obj.StreamFrom(bytes.NewReader(data)); err != nil {
		return cbox.InvalidID, err
	}
	id = b.container.Add(obj, groups, id, false)
	if id == cbox.InvalidID {
		return cbox.InvalidID, cbox.ErrInsufficientHeap
	}
	b.store(id)
	if err = b.container.SyncActivation(id); err != nil {
		ui.Warning("Object %d could not be activated: %v", id, err)
	}

	contained := b.container.FetchContained(id)
	if !contained.Inactive() {
		contained.ForcedUpdate(b.now)
	}
	b.refreshSnapshot(contained)
	ui.Debug("Created object %d (%s)", id, b.TypeName(typeID))
	return id, nil
}

// CreateObjectFromMap creates an object from generic payload data, as found
// in configuration files.
func (b *Box) CreateObjectFromMap(id cbox.ObjectID, groups cbox.Groups, typeName string, data map[string]interface{}) (cbox.ObjectID, error) {
	typeID, ok := b.TypeByName(typeName)
	if !ok {
		return cbox.InvalidID, cbox.ErrObjectNotCreatable
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	m, err := codec.FromMap(data)
	if err != nil {
		return cbox.InvalidID, cbox.ErrInputStreamRead
	}
	payload, err := m.Marshal()
	if err != nil {
		return cbox.InvalidID, cbox.ErrOutputStreamEncoding
	}
	return b.CreateObject(id, groups, typeID, payload)
}

func (b *Box) deleteObject(id cbox.ObjectID) error {
	if err := b.container.Remove(id); err != nil {
		return err
	}
	b.snapshots.remove(id)
	ui.Debug("Deleted object %d", id)
	return nil
}

func (b *Box) listObjects() ([]byte, error) {
	var out []byte
	err := b.container.Map(func(obj *cbox.ContainedObject) error {
		record, err := b.record(obj)
		if err != nil {
			return err
		}
		out = record.AppendTo(out)
		return nil
	})
	return out, err
}

func (b *Box) readStoredObject(id cbox.ObjectID) ([]byte, error) {
	var stored cbox.StoredRecord
	err := b.storage.RetrieveObject(id, func(r io.Reader) (err error) {
		stored, err = cbox.ReadStoredRecord(id, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return Record{ID: stored.ID, Groups: stored.Groups, Type: stored.Type, Data: stored.Data}.AppendTo(nil), nil
}

func (b *Box) listStoredObjects() ([]byte, error) {
	var out []byte
	err := b.storage.RetrieveObjects(func(id cbox.ObjectID, r io.Reader) error {
		stored, err := cbox.ReadStoredRecord(id, r)
		if err != nil {
			ui.Warning("Skipping unreadable stored object %d: %v", id, err)
			return nil
		}
		out = Record{ID: stored.ID, Groups: stored.Groups, Type: stored.Type, Data: stored.Data}.AppendTo(out)
		return nil
	})
	return out, err
}

func (b *Box) clearObjects() error {
	err := b.container.Clear()
	b.refreshSnapshots()
	return err
}

func (b *Box) snapshot(obj *cbox.ContainedObject) (Snapshot, error) {
	var buf bytes.Buffer
	if err := obj.Object().StreamTo(&buf); err != nil {
		return Snapshot{}, err
	}
	m, err := codec.Unmarshal(buf.Bytes())
	if err != nil {
		return Snapshot{}, err
	}
	typeID := obj.ActualType()
	return Snapshot{
		ID:       obj.ID(),
		Groups:   groupList(obj.Groups()),
		Type:     typeID,
		TypeName: b.TypeName(typeID),
		Inactive: obj.Inactive(),
		Data:     m.AsMap(),
	}, nil
}

func (b *Box) refreshSnapshot(obj *cbox.ContainedObject) {
	snapshot, err := b.snapshot(obj)
	if err != nil {
		ui.Debug("Snapshot of object %d failed: %v", obj.ID(), err)
		return
	}
	b.snapshots.set(snapshot)
}

func (b *Box) refreshSnapshots() {
	ids := map[cbox.ObjectID]bool{}
	_ = b.container.Map(func(obj *cbox.ContainedObject) error {
		ids[obj.ID()] = true
		b.refreshSnapshot(obj)
		return nil
	})
	b.snapshots.retain(ids)
	b.lastSnapshot = b.now
	b.snapshotValid = true
}
