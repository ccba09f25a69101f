package cbox

import (
	"io"

	"github.com/markusressel/controlbox/internal/ui"
	"go.uber.org/multierr"
	"golang.org/x/exp/slices"
)

// ContainedObject is one slot of the registry.
type ContainedObject struct {
	id         ObjectID
	groups     Groups
	object     Object
	nextUpdate Ticks
}

func NewContainedObject(id ObjectID, groups Groups, object Object) *ContainedObject {
	return &ContainedObject{
		id:     id,
		groups: groups,
		object: object,
	}
}

func (c *ContainedObject) ID() ObjectID {
	return c.id
}

func (c *ContainedObject) Groups() Groups {
	return c.groups
}

func (c *ContainedObject) Object() Object {
	return c.object
}

// Inactive reports whether the slot currently holds a placeholder.
func (c *ContainedObject) Inactive() bool {
	_, ok := c.object.(*InactiveObject)
	return ok
}

// ActualType returns the type of the object, also while it is inactive.
func (c *ContainedObject) ActualType() TypeID {
	if inactive, ok := c.object.(*InactiveObject); ok {
		return inactive.ActualType()
	}
	return c.object.TypeID()
}

// Update runs the object when it is due.
func (c *ContainedObject) Update(now Ticks) {
	if now-c.nextUpdate >= 0 {
		c.nextUpdate = c.object.Update(now)
	}
}

// ForcedUpdate runs the object regardless of its next due time.
func (c *ContainedObject) ForcedUpdate(now Ticks) {
	c.nextUpdate = c.object.Update(now)
}

func (c *ContainedObject) release() {
	if releaser, ok := c.object.(Releaser); ok {
		releaser.Release()
	}
}

func (c *ContainedObject) deactivate() {
	if c.Inactive() {
		return
	}
	c.release()
	c.object = NewInactiveObject(c.object.TypeID())
	c.nextUpdate = 0
}

// ObjectContainer is the registry of all objects, sorted by ascending id.
// It is not safe for concurrent use.
type ObjectContainer struct {
	objects      []*ContainedObject
	startID      ObjectID
	maxObjects   int
	activeGroups Groups
	storage      ObjectStorage
	factory      *ObjectFactory
}

// NewObjectContainer creates a container. The system objects are added
// with their given ids and can never be removed.
func NewObjectContainer(storage ObjectStorage, factory *ObjectFactory, startID ObjectID, system ...*ContainedObject) *ObjectContainer {
	c := &ObjectContainer{
		startID:      startID,
		activeGroups: SystemGroup | 0x01,
		storage:      storage,
		factory:      factory,
	}
	for _, obj := range system {
		c.insert(obj)
	}
	return c
}

// SetMaxObjects limits the total number of objects, 0 means unlimited.
func (c *ObjectContainer) SetMaxObjects(maxObjects int) {
	c.maxObjects = maxObjects
}

func (c *ObjectContainer) StartID() ObjectID {
	return c.startID
}

func (c *ObjectContainer) Factory() *ObjectFactory {
	return c.factory
}

func (c *ObjectContainer) Len() int {
	return len(c.objects)
}

// Full reports whether another object can be added.
func (c *ObjectContainer) Full() bool {
	return c.maxObjects > 0 && len(c.objects) >= c.maxObjects
}

func (c *ObjectContainer) search(id ObjectID) (int, bool) {
	return slices.BinarySearchFunc(c.objects, id, func(obj *ContainedObject, target ObjectID) int {
		return int(obj.id) - int(target)
	})
}

func identify(obj Object, id ObjectID) {
	if identifiable, ok := obj.(Identifiable); ok {
		identifiable.SetObjectID(id)
	}
}

func (c *ObjectContainer) insert(obj *ContainedObject) {
	identify(obj.object, obj.id)
	idx, found := c.search(obj.id)
	if found {
		c.objects[idx] = obj
		return
	}
	c.objects = slices.Insert(c.objects, idx, obj)
}

// NextID returns the id the container assigns to the next object added
// without an explicit id.
func (c *ObjectContainer) NextID() ObjectID {
	if len(c.objects) == 0 {
		return c.startID
	}
	last := c.objects[len(c.objects)-1].id
	if last < c.startID {
		return c.startID
	}
	if last < ^ObjectID(0) {
		return last + 1
	}
	// the top of the id range is taken, look for a gap
	for id := c.startID; id < ^ObjectID(0); id++ {
		if _, found := c.search(id); !found {
			return id
		}
	}
	return InvalidID
}

// Add inserts obj. An id of InvalidID lets the container assign one. It
// returns InvalidID when the id is below the start id (and replace is
// false), when it is taken (and replace is false) or when the container is
// full. A replaced object is released.
func (c *ObjectContainer) Add(obj Object, groups Groups, id ObjectID, replace bool) ObjectID {
	if id == InvalidID {
		id = c.NextID()
		if id == InvalidID {
			return InvalidID
		}
	} else if id < c.startID && !replace {
		return InvalidID
	}

	idx, found := c.search(id)
	if found {
		if !replace {
			return InvalidID
		}
		existing := c.objects[idx]
		existing.release()
		identify(obj, id)
		existing.object = obj
		existing.nextUpdate = 0
		if id >= c.startID {
			existing.groups = groups
		}
		return id
	}

	if id < c.startID || c.Full() {
		return InvalidID
	}
	identify(obj, id)
	c.objects = slices.Insert(c.objects, idx, NewContainedObject(id, groups, obj))
	return id
}

// Remove deletes a user object and its storage record.
func (c *ObjectContainer) Remove(id ObjectID) error {
	if id < c.startID {
		return ErrObjectNotDeletable
	}
	idx, found := c.search(id)
	if !found {
		return ErrInvalidObjectID
	}
	c.objects[idx].release()
	c.objects = slices.Delete(c.objects, idx, idx+1)
	if c.storage != nil {
		c.storage.DisposeObject(id)
	}
	return nil
}

func (c *ObjectContainer) FetchContained(id ObjectID) *ContainedObject {
	idx, found := c.search(id)
	if !found {
		return nil
	}
	return c.objects[idx]
}

// Fetch returns the object with the given id or nil. The result must not be
// kept, objects can be removed or replaced at any time.
func (c *ObjectContainer) Fetch(id ObjectID) Object {
	contained := c.FetchContained(id)
	if contained == nil {
		return nil
	}
	return contained.object
}

// Map calls fn for every object in ascending id order and stops at the
// first error.
func (c *ObjectContainer) Map(fn func(obj *ContainedObject) error) error {
	for _, obj := range c.objects {
		if err := fn(obj); err != nil {
			return err
		}
	}
	return nil
}

// Update runs all objects that are due.
func (c *ObjectContainer) Update(now Ticks) {
	for i := 0; i < len(c.objects); i++ {
		c.objects[i].Update(now)
	}
}

// ForcedUpdate runs all objects.
func (c *ObjectContainer) ForcedUpdate(now Ticks) {
	for i := 0; i < len(c.objects); i++ {
		c.objects[i].ForcedUpdate(now)
	}
}

func (c *ObjectContainer) ActiveGroups() Groups {
	return c.activeGroups
}

func (c *ObjectContainer) isActive(groups Groups) bool {
	return groups&c.activeGroups != 0
}

// SetActiveGroups changes the active groups. Objects that are no longer in
// an active group are released and replaced by a placeholder, placeholders
// that are now active are recreated from storage.
func (c *ObjectContainer) SetActiveGroups(groups Groups) error {
	c.activeGroups = groups | SystemGroup
	var result error
	for _, obj := range c.objects {
		if obj.id < c.startID {
			continue
		}
		if !c.isActive(obj.groups) {
			obj.deactivate()
		} else if obj.Inactive() {
			multierr.AppendInto(&result, c.reactivate(obj))
		}
	}
	return result
}

// SyncActivation deactivates the object with the given id when none of its
// groups is active, or reactivates it from storage when it is.
func (c *ObjectContainer) SyncActivation(id ObjectID) error {
	obj := c.FetchContained(id)
	if obj == nil {
		return ErrInvalidObjectID
	}
	if obj.id < c.startID {
		return nil
	}
	if !c.isActive(obj.groups) {
		obj.deactivate()
		return nil
	}
	if obj.Inactive() {
		return c.reactivate(obj)
	}
	return nil
}

func (c *ObjectContainer) reactivate(contained *ContainedObject) error {
	if c.factory == nil || c.storage == nil {
		return ErrPersistedObjectNotFound
	}
	obj, err := c.factory.Make(contained.ActualType())
	if err != nil {
		return err
	}
	err = c.storage.RetrieveObject(contained.id, func(r io.Reader) error {
		if _, _, err := readRecordHeader(r); err != nil {
			return err
		}
		return obj.StreamFrom(r)
	})
	if err != nil {
		return err
	}
	identify(obj, contained.id)
	contained.object = obj
	contained.nextUpdate = 0
	return nil
}

// SetGroups changes the groups of a user object, persists them and updates
// its activation.
func (c *ObjectContainer) SetGroups(id ObjectID, groups Groups) error {
	obj := c.FetchContained(id)
	if obj == nil {
		return ErrInvalidObjectID
	}
	if id < c.startID || obj.groups == groups {
		return nil
	}
	if obj.Inactive() && c.storage != nil {
		// the live object is gone, rewrite the header of the stored record
		var record StoredRecord
		err := c.storage.RetrieveObject(id, func(r io.Reader) (err error) {
			record, err = ReadStoredRecord(id, r)
			return err
		})
		if err != nil {
			return err
		}
		err = c.storage.StoreObject(id, func(w io.Writer) error {
			if err := writeRecordHeader(w, record.Type, groups); err != nil {
				return err
			}
			_, err := w.Write(record.Data)
			return err
		})
		if err != nil {
			return err
		}
		obj.groups = groups
		return c.SyncActivation(id)
	}
	obj.groups = groups
	if err := c.Store(id); err != nil {
		return err
	}
	return c.SyncActivation(id)
}

// Store writes the persisted form of an object to storage. Inactive objects
// keep their existing record.
func (c *ObjectContainer) Store(id ObjectID) error {
	obj := c.FetchContained(id)
	if obj == nil {
		return ErrInvalidObjectID
	}
	if obj.Inactive() || c.storage == nil {
		return nil
	}
	return c.storage.StoreObject(id, func(w io.Writer) error {
		if err := writeRecordHeader(w, obj.object.TypeID(), obj.groups); err != nil {
			return err
		}
		return obj.object.StreamPersistedTo(w)
	})
}

// ReloadStored replays the stored record of an object into the live object.
func (c *ObjectContainer) ReloadStored(id ObjectID) error {
	obj := c.FetchContained(id)
	if obj == nil {
		return ErrInvalidObjectID
	}
	if c.storage == nil {
		return ErrPersistedObjectNotFound
	}
	return c.storage.RetrieveObject(id, func(r io.Reader) error {
		typeID, _, err := readRecordHeader(r)
		if err != nil {
			return err
		}
		if typeID != obj.object.TypeID() {
			return ErrInvalidObjectType
		}
		return obj.object.StreamFrom(r)
	})
}

// LoadAllFromStorage restores all stored objects. System objects are
// updated in place, user objects are created with the factory. Records that
// fail are skipped and reported in the returned error.
func (c *ObjectContainer) LoadAllFromStorage() error {
	if c.storage == nil {
		return nil
	}
	var result error
	err := c.storage.RetrieveObjects(func(id ObjectID, r io.Reader) error {
		multierr.AppendInto(&result, c.loadStored(id, r))
		return nil
	})
	multierr.AppendInto(&result, err)
	return result
}

func (c *ObjectContainer) loadStored(id ObjectID, r io.Reader) error {
	typeID, groups, err := readRecordHeader(r)
	if err != nil {
		ui.Warning("Skipping stored object %d: %v", id, err)
		return err
	}

	if id < c.startID {
		existing := c.FetchContained(id)
		if existing == nil {
			return ErrInvalidObjectID
		}
		if existing.object.TypeID() != typeID {
			ui.Warning("Skipping stored system object %d: type %d does not match %d", id, typeID, existing.object.TypeID())
			return ErrInvalidObjectType
		}
		return existing.object.StreamFrom(r)
	}

	if !c.isActive(groups) {
		if c.Add(NewInactiveObject(typeID), groups, id, true) == InvalidID {
			return ErrInsufficientHeap
		}
		return nil
	}

	obj, err := c.factory.Make(typeID)
	if err != nil {
		ui.Warning("Skipping stored object %d: %v", id, err)
		return err
	}
	if err = obj.StreamFrom(r); err != nil {
		ui.Warning("Skipping stored object %d: %v", id, err)
		return err
	}
	if c.Add(obj, groups, id, true) == InvalidID {
		return ErrInsufficientHeap
	}
	ui.Debug("Loaded object %d (%s)", id, c.factory.TypeName(typeID))
	return nil
}

// Clear removes all user objects and their stored records. System objects
// are stored again afterwards.
func (c *ObjectContainer) Clear() error {
	kept := c.objects[:0]
	for _, obj := range c.objects {
		if obj.id < c.startID {
			kept = append(kept, obj)
			continue
		}
		obj.release()
	}
	for i := len(kept); i < len(c.objects); i++ {
		c.objects[i] = nil
	}
	c.objects = kept

	if c.storage == nil {
		return nil
	}
	result := c.storage.Clear()
	for _, obj := range c.objects {
		multierr.AppendInto(&result, c.Store(obj.id))
	}
	return result
}
