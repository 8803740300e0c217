package schema

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicatePublicID is returned when registering a second object under a
// public ID that is already taken.
var ErrDuplicatePublicID = errors.New("duplicate public ID")

// ObjectRegistry maps public IDs to the live objects carrying them. The
// archive consults it to reuse resident instances instead of constructing
// duplicates. Destroyed objects unregister themselves.
//
// Thread-safety: ObjectRegistry is safe for concurrent use via internal mutex.
type ObjectRegistry struct {
	mu      sync.Mutex
	objects map[string]PublicObject
}

// NewObjectRegistry creates an empty registry.
func NewObjectRegistry() *ObjectRegistry {
	return &ObjectRegistry{objects: make(map[string]PublicObject)}
}

// Register adds obj under its public ID.
func (r *ObjectRegistry) Register(obj PublicObject) error {
	id := obj.PublicID()
	if id == "" {
		return fmt.Errorf("register %s: empty public ID", obj.Type().Name())
	}

	r.mu.Lock()
	existing, ok := r.objects[id]
	if ok && existing != obj {
		r.mu.Unlock()
		return fmt.Errorf("register %s %q: %w", obj.Type().Name(), id, ErrDuplicatePublicID)
	}
	r.objects[id] = obj
	r.mu.Unlock()

	Observe(obj, r)
	return nil
}

// Find returns the object registered under id, or nil.
func (r *ObjectRegistry) Find(id string) PublicObject {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.objects[id]
}

// Unregister removes obj if it is the object registered under its ID.
func (r *ObjectRegistry) Unregister(obj PublicObject) {
	r.mu.Lock()
	if r.objects[obj.PublicID()] == obj {
		delete(r.objects, obj.PublicID())
	}
	r.mu.Unlock()
	Unobserve(obj, r)
}

// Len returns the number of registered objects.
func (r *ObjectRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

// ObjectDestroyed implements Observer.
func (r *ObjectRegistry) ObjectDestroyed(obj Object) {
	po, ok := obj.(PublicObject)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.objects[po.PublicID()] == po {
		delete(r.objects, po.PublicID())
	}
}
