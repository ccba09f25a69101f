package cbox

// FactoryEntry maps a type id to a constructor.
type FactoryEntry struct {
	Type TypeID
	Name string
	New  func() Object
}

// ObjectFactory creates objects by type id from a fixed table.
type ObjectFactory struct {
	entries []FactoryEntry
}

func NewObjectFactory(entries ...FactoryEntry) *ObjectFactory {
	return &ObjectFactory{entries: entries}
}

// Make creates a new object of the given type.
func (f *ObjectFactory) Make(typeID TypeID) (Object, error) {
	for _, entry := range f.entries {
		if entry.Type != typeID {
			continue
		}
		obj := entry.New()
		if obj == nil {
			return nil, ErrInsufficientHeap
		}
		return obj, nil
	}
	return nil, ErrObjectNotCreatable
}

// TypeName returns the registered name of a type, or "" if unknown.
func (f *ObjectFactory) TypeName(typeID TypeID) string {
	if typeID == InactiveObjectTypeID {
		return "InactiveObject"
	}
	for _, entry := range f.entries {
		if entry.Type == typeID {
			return entry.Name
		}
	}
	return ""
}

// TypeByName looks up a type id by its registered name.
func (f *ObjectFactory) TypeByName(name string) (TypeID, bool) {
	for _, entry := range f.entries {
		if entry.Name == name {
			return entry.Type, true
		}
	}
	return 0, false
}

func (f *ObjectFactory) Entries() []FactoryEntry {
	return f.entries
}
