package cbox

// Ptr is a non owning reference to another object. The target is resolved
// on every call to Get, because it can be removed or replaced at any time.
type Ptr[T any] struct {
	id      ObjectID
	iface   InterfaceID
	fetcher Fetcher
}

func NewPtr[T any](fetcher Fetcher, iface InterfaceID) Ptr[T] {
	return Ptr[T]{
		iface:   iface,
		fetcher: fetcher,
	}
}

func (p *Ptr[T]) ID() ObjectID {
	return p.id
}

func (p *Ptr[T]) SetID(id ObjectID) {
	p.id = id
}

// Get resolves the reference. It returns false when the id is unset, the
// object does not exist or does not implement the requested capability.
func (p *Ptr[T]) Get() (T, bool) {
	var zero T
	if p.id == InvalidID || p.fetcher == nil {
		return zero, false
	}
	obj := p.fetcher.Fetch(p.id)
	if obj == nil {
		return zero, false
	}
	impl := obj.Implements(p.iface)
	if impl == nil {
		return zero, false
	}
	t, ok := impl.(T)
	return t, ok
}

// Valid reports whether the reference currently resolves.
func (p *Ptr[T]) Valid() bool {
	_, ok := p.Get()
	return ok
}
