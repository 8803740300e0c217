package schema

import "github.com/google/uuid"

// PublicIDGenerator creates public IDs for objects that arrive without one.
type PublicIDGenerator interface {
	Generate(t *Type) string
}

// UUIDGenerator generates time-sortable public IDs of the form
// "<Class>/<UUIDv7>".
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate creates a new public ID for an instance of t.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDGenerator) Generate(t *Type) string {
	return t.Name() + "/" + uuid.Must(uuid.NewV7()).String()
}

// AssignPublicIDs gives every public object in the tree rooted at obj that
// lacks a public ID a fresh one. It returns the number of IDs assigned.
func AssignPublicIDs(obj Object, gen PublicIDGenerator) int {
	n := 0
	Walk(obj, func(o Object) bool {
		if po, ok := o.(PublicObject); ok && po.PublicID() == "" {
			po.SetPublicID(gen.Generate(o.Type()))
			n++
		}
		return true
	})
	return n
}
