package schema

import (
	"fmt"
	"strings"
)

// Separator joins nested attribute names into column names. Field names must
// not contain it, otherwise column names could not be split unambiguously.
const Separator = "_"

// Type describes a persistable object type or a nested composite type.
type Type struct {
	name   string
	table  string
	public bool
	fields []Field
	newFn  func() Object
}

// NewType describes a composite that only exists nested inside another type.
// Composites stored with the InTable hint use name as their table.
func NewType(name string, fields ...Field) *Type {
	t := &Type{name: name, table: name, fields: fields}
	t.validate()
	return t
}

// NewObjectType describes a child object type without a public ID.
func NewObjectType[T Object](name string, newFn func() T, fields ...Field) *Type {
	t := &Type{
		name:   name,
		table:  name,
		fields: fields,
		newFn:  func() Object { return newFn() },
	}
	t.validate()
	return t
}

// NewPublicObjectType describes an object type identified by a public ID.
func NewPublicObjectType[T PublicObject](name string, newFn func() T, fields ...Field) *Type {
	t := &Type{
		name:   name,
		table:  name,
		public: true,
		fields: fields,
		newFn:  func() Object { return newFn() },
	}
	t.validate()
	return t
}

func (t *Type) validate() {
	if t.name == "" {
		panic("schema: type without name")
	}
	seen := make(map[string]bool, len(t.fields))
	for _, f := range t.fields {
		if f.Name == "" {
			panic(fmt.Errorf("schema: %s has a field without name", t.name))
		}
		if strings.Contains(f.Name, Separator) {
			panic(fmt.Errorf("schema: %s.%s: field names must not contain %q", t.name, f.Name, Separator))
		}
		if seen[f.Name] {
			panic(fmt.Errorf("schema: %s.%s declared twice", t.name, f.Name))
		}
		seen[f.Name] = true

		switch {
		case f.Kind == KindObject || f.Kind == KindCollection:
			if f.nested == nil {
				panic(fmt.Errorf("schema: %s.%s: %s field without nested type", t.name, f.Name, f.Kind))
			}
		case f.get == nil:
			panic(fmt.Errorf("schema: %s.%s: primitive field without accessor", t.name, f.Name))
		}
		if f.HasHint(HintTable) && f.Kind != KindObject {
			panic(fmt.Errorf("schema: %s.%s: table hint on %s field", t.name, f.Name, f.Kind))
		}
		if f.HasHint(HintSplitTime) && f.Kind != KindTime {
			panic(fmt.Errorf("schema: %s.%s: split time hint on %s field", t.name, f.Name, f.Kind))
		}
		if f.Kind == KindCollection && f.nested.newFn == nil {
			panic(fmt.Errorf("schema: %s.%s: collection of composite %s", t.name, f.Name, f.nested.name))
		}
	}
}

// WithTable overrides the table name and returns t.
func (t *Type) WithTable(table string) *Type {
	t.table = table
	return t
}

// Name returns the class name.
func (t *Type) Name() string { return t.name }

// Table returns the table name.
func (t *Type) Table() string { return t.table }

// IsPublic reports whether instances carry a public ID.
func (t *Type) IsPublic() bool { return t.public }

// IsObject reports whether the type describes standalone objects as opposed
// to nested composites.
func (t *Type) IsObject() bool { return t.newFn != nil }

// Fields returns the field descriptors in declaration order.
func (t *Type) Fields() []Field { return t.fields }

// Field looks up a field by name.
func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Collections returns the collection fields in declaration order.
func (t *Type) Collections() []Field {
	var out []Field
	for _, f := range t.fields {
		if f.Kind == KindCollection {
			out = append(out, f)
		}
	}
	return out
}

// HasIndex reports whether any field is part of the natural key.
func (t *Type) HasIndex() bool {
	for _, f := range t.fields {
		if f.Index {
			return true
		}
	}
	return false
}

// New constructs an empty instance. It panics for composite types.
func (t *Type) New() Object {
	if t.newFn == nil {
		panic(fmt.Errorf("schema: %s is a composite and cannot be instantiated", t.name))
	}
	return t.newFn()
}

func (t *Type) String() string { return t.name }

// Registry maps class names to object types. It provides construction by
// class name.
type Registry struct {
	byName map[string]*Type
	order  []*Type
}

// NewRegistry creates a registry holding the given types.
func NewRegistry(types ...*Type) *Registry {
	r := &Registry{byName: make(map[string]*Type)}
	for _, t := range types {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds an object type. Registering the same type twice is a no-op.
func (r *Registry) Register(t *Type) error {
	if !t.IsObject() {
		return fmt.Errorf("register %s: composite types are not registered", t.name)
	}
	if existing, ok := r.byName[t.name]; ok {
		if existing == t {
			return nil
		}
		return fmt.Errorf("register %s: class name already taken", t.name)
	}
	r.byName[t.name] = t
	r.order = append(r.order, t)
	return nil
}

// Lookup finds a type by class name.
func (r *Registry) Lookup(name string) (*Type, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// New constructs an instance of the named class.
func (r *Registry) New(name string) (Object, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown class %q", name)
	}
	return t.New(), nil
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []*Type {
	out := make([]*Type, len(r.order))
	copy(out, r.order)
	return out
}
