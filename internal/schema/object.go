package schema

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Handle is a process-unique surrogate identity of an object. Handles are
// issued lazily and never reused, so a stale handle can never alias a newer
// object.
type Handle uint64

var lastHandle atomic.Uint64

// Object is a persistable entity with an internal storage identity and at
// most one owning parent. Implementations embed Base or PublicBase.
type Object interface {
	Type() *Type
	Handle() Handle
	Parent() Object
	base() *Base // Sealed: satisfied by embedding Base
}

// PublicObject is an Object carrying a globally unique public ID.
type PublicObject interface {
	Object
	PublicID() string
	SetPublicID(id string)
}

// Observer is notified when an object is destroyed.
type Observer interface {
	ObjectDestroyed(obj Object)
}

// ErrOwned is returned when attaching a child that already has a parent.
var ErrOwned = errors.New("object already has a parent")

// Base carries the bookkeeping shared by all objects.
type Base struct {
	handle       Handle
	parent       Object
	lastModified time.Time
	observers    []Observer
}

func (b *Base) base() *Base { return b }

// Handle returns the surrogate identity, issuing it on first use.
func (b *Base) Handle() Handle {
	if b.handle == 0 {
		b.handle = Handle(lastHandle.Add(1))
	}
	return b.handle
}

// Parent returns the owning object or nil for roots.
func (b *Base) Parent() Object {
	return b.parent
}

// LastModified returns the storage modification stamp, zero if unknown.
func (b *Base) LastModified() time.Time {
	return b.lastModified
}

// SetLastModified records the storage modification stamp.
func (b *Base) SetLastModified(t time.Time) {
	b.lastModified = t
}

// Observe registers o for destruction notifications. Registering the same
// observer twice has no effect.
func (b *Base) Observe(o Observer) {
	for _, existing := range b.observers {
		if existing == o {
			return
		}
	}
	b.observers = append(b.observers, o)
}

// Unobserve removes o from the observer list.
func (b *Base) Unobserve(o Observer) {
	for i, existing := range b.observers {
		if existing == o {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

// PublicBase is embedded by public object types.
type PublicBase struct {
	Base
	publicID string
}

// PublicID returns the public ID.
func (b *PublicBase) PublicID() string {
	return b.publicID
}

// SetPublicID sets the public ID.
func (b *PublicBase) SetPublicID(id string) {
	b.publicID = id
}

// Observe registers o for destruction notifications of obj.
func Observe(obj Object, o Observer) {
	obj.base().Observe(o)
}

// Unobserve removes o from the observers of obj.
func Unobserve(obj Object, o Observer) {
	obj.base().Unobserve(o)
}

// Attach makes parent the owner of child. Children are never shared.
func Attach(parent, child Object) error {
	b := child.base()
	if b.parent != nil && b.parent != parent {
		return fmt.Errorf("attach %s to %s: %w", child.Type().Name(), parent.Type().Name(), ErrOwned)
	}
	b.parent = parent
	return nil
}

// Detach clears the owner of child.
func Detach(child Object) {
	child.base().parent = nil
}

// Children returns the owned children of obj across all collection fields,
// in declaration order.
func Children(obj Object) []Object {
	var out []Object
	for _, f := range obj.Type().Collections() {
		out = append(out, f.Children(obj)...)
	}
	return out
}

// Walk visits obj and its owned descendants parents first. Returning false
// from fn skips the descendants of the visited object.
func Walk(obj Object, fn func(Object) bool) {
	if !fn(obj) {
		return
	}
	for _, child := range Children(obj) {
		Walk(child, fn)
	}
}

// WalkChildrenFirst visits the owned descendants of obj before obj itself.
func WalkChildrenFirst(obj Object, fn func(Object)) {
	for _, child := range Children(obj) {
		WalkChildrenFirst(child, fn)
	}
	fn(obj)
}

// Destroy ends the in-memory lifetime of obj and its owned descendants.
// Observers are notified children first; afterwards the objects hold no
// observers and no parent.
func Destroy(obj Object) {
	WalkChildrenFirst(obj, func(o Object) {
		b := o.base()
		observers := b.observers
		b.observers = nil
		for _, ob := range observers {
			ob.ObjectDestroyed(o)
		}
		b.parent = nil
	})
}
