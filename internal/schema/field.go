package schema

import (
	"fmt"
	"time"
)

// Kind classifies a Field.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
	KindTime
	KindComplex
	KindInts
	KindFloats
	KindStrings
	KindTimes
	KindComplexes
	KindObject     // nested composite owned by value
	KindCollection // owned child objects, persisted separately
)

var kindNames = map[Kind]string{
	KindInt:        "int",
	KindFloat:      "float",
	KindBool:       "bool",
	KindString:     "string",
	KindTime:       "time",
	KindComplex:    "complex",
	KindInts:       "ints",
	KindFloats:     "floats",
	KindStrings:    "strings",
	KindTimes:      "times",
	KindComplexes:  "complexes",
	KindObject:     "object",
	KindCollection: "collection",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsPrimitive reports whether values of this kind map to a single column.
func (k Kind) IsPrimitive() bool {
	return k != KindObject && k != KindCollection
}

// Hint is a bitmask of storage hints.
type Hint uint8

const (
	// HintSplitTime stores the microseconds of a timestamp in a companion
	// "<column>_ms" integer column.
	HintSplitTime Hint = 1 << iota

	// HintTable stores a nested composite in its own table, referenced from
	// the owner row through a "<column>_oid" foreign key.
	HintTable
)

// Field describes one persistable member of a Type.
type Field struct {
	Name     string
	Kind     Kind
	Index    bool
	Optional bool
	Hints    Hint

	nested   *Type
	get      func(owner any) Value
	set      func(owner any, v Value) error
	object   func(owner any) any
	attach   func(owner any) any
	detach   func(owner any)
	children func(owner any) []Object
	adopt    func(owner any, child Object) error
}

// FieldOption adjusts a Field at registration time.
type FieldOption func(*Field)

// AsIndex marks the field as part of the natural key.
func AsIndex() FieldOption {
	return func(f *Field) { f.Index = true }
}

// SplitTime requests a separate microseconds column for a timestamp.
func SplitTime() FieldOption {
	return func(f *Field) { f.Hints |= HintSplitTime }
}

// InTable stores a nested composite in its own table.
func InTable() FieldOption {
	return func(f *Field) { f.Hints |= HintTable }
}

// HasHint reports whether h is set on the field.
func (f Field) HasHint(h Hint) bool {
	return f.Hints&h != 0
}

// Nested returns the composite type of a KindObject field or the child type
// of a KindCollection field.
func (f Field) Nested() *Type {
	return f.nested
}

// Get reads a primitive attribute. Absent optional values yield Null.
func (f Field) Get(owner any) Value {
	if f.get == nil {
		panic(fmt.Errorf("schema: field %s (%s) has no primitive accessor", f.Name, f.Kind))
	}
	return f.get(owner)
}

// Set assigns a primitive attribute. Null clears an optional attribute and
// resets a mandatory one to its zero value.
func (f Field) Set(owner any, v Value) error {
	if f.set == nil {
		panic(fmt.Errorf("schema: field %s (%s) has no primitive accessor", f.Name, f.Kind))
	}
	return f.set(owner, v)
}

// Object returns the nested composite held by owner, or nil when an
// optional composite is absent.
func (f Field) Object(owner any) any {
	return f.object(owner)
}

// Attach returns the nested composite of owner, allocating it if absent.
func (f Field) Attach(owner any) any {
	return f.attach(owner)
}

// Detach clears an optional nested composite. For mandatory composites it
// resets the value to zero.
func (f Field) Detach(owner any) {
	f.detach(owner)
}

// Children lists the owned children of a collection field in order.
func (f Field) Children(owner any) []Object {
	return f.children(owner)
}

// Adopt appends child to the collection of owner.
func (f Field) Adopt(owner any, child Object) error {
	return f.adopt(owner, child)
}

func mismatch(name string, kind Kind, v Value) error {
	return fmt.Errorf("schema: field %s: cannot assign %T to %s attribute", name, v, kind)
}

func scalarField[O, V any](name string, kind Kind, get func(O) V, set func(O, V), wrap func(V) Value, unwrap func(Value) (V, bool), opts []FieldOption) Field {
	f := Field{Name: name, Kind: kind}
	f.get = func(owner any) Value {
		return wrap(get(owner.(O)))
	}
	f.set = func(owner any, v Value) error {
		if IsNull(v) {
			var zero V
			set(owner.(O), zero)
			return nil
		}
		x, ok := unwrap(v)
		if !ok {
			return mismatch(name, kind, v)
		}
		set(owner.(O), x)
		return nil
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

func optionalField[O, V any](name string, kind Kind, get func(O) *V, set func(O, *V), wrap func(V) Value, unwrap func(Value) (V, bool), opts []FieldOption) Field {
	f := Field{Name: name, Kind: kind, Optional: true}
	f.get = func(owner any) Value {
		p := get(owner.(O))
		if p == nil {
			return Null{}
		}
		return wrap(*p)
	}
	f.set = func(owner any, v Value) error {
		if IsNull(v) {
			set(owner.(O), nil)
			return nil
		}
		x, ok := unwrap(v)
		if !ok {
			return mismatch(name, kind, v)
		}
		set(owner.(O), &x)
		return nil
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

func wrapInt(v int64) Value { return Int(v) }
func unwrapInt(v Value) (int64, bool) {
	x, ok := v.(Int)
	return int64(x), ok
}

func wrapFloat(v float64) Value { return Float(v) }
func unwrapFloat(v Value) (float64, bool) {
	x, ok := v.(Float)
	return float64(x), ok
}

func wrapBool(v bool) Value { return Bool(v) }
func unwrapBool(v Value) (bool, bool) {
	x, ok := v.(Bool)
	return bool(x), ok
}

func wrapString(v string) Value { return String(v) }
func unwrapString(v Value) (string, bool) {
	x, ok := v.(String)
	return string(x), ok
}

func wrapTime(v time.Time) Value { return Time(v) }
func unwrapTime(v Value) (time.Time, bool) {
	x, ok := v.(Time)
	return time.Time(x), ok
}

func wrapComplex(v complex128) Value { return Complex(v) }
func unwrapComplex(v Value) (complex128, bool) {
	x, ok := v.(Complex)
	return complex128(x), ok
}

func wrapInts(v []int64) Value { return Ints(v) }
func unwrapInts(v Value) ([]int64, bool) {
	x, ok := v.(Ints)
	return []int64(x), ok
}

func wrapFloats(v []float64) Value { return Floats(v) }
func unwrapFloats(v Value) ([]float64, bool) {
	x, ok := v.(Floats)
	return []float64(x), ok
}

func wrapStrings(v []string) Value { return Strings(v) }
func unwrapStrings(v Value) ([]string, bool) {
	x, ok := v.(Strings)
	return []string(x), ok
}

func wrapTimes(v []time.Time) Value { return Times(v) }
func unwrapTimes(v Value) ([]time.Time, bool) {
	x, ok := v.(Times)
	return []time.Time(x), ok
}

func wrapComplexes(v []complex128) Value { return Complexes(v) }
func unwrapComplexes(v Value) ([]complex128, bool) {
	x, ok := v.(Complexes)
	return []complex128(x), ok
}

// IntField describes a mandatory integer attribute.
func IntField[O any](name string, get func(O) int64, set func(O, int64), opts ...FieldOption) Field {
	return scalarField(name, KindInt, get, set, wrapInt, unwrapInt, opts)
}

// OptionalIntField describes a nullable integer attribute.
func OptionalIntField[O any](name string, get func(O) *int64, set func(O, *int64), opts ...FieldOption) Field {
	return optionalField(name, KindInt, get, set, wrapInt, unwrapInt, opts)
}

// FloatField describes a mandatory double attribute.
func FloatField[O any](name string, get func(O) float64, set func(O, float64), opts ...FieldOption) Field {
	return scalarField(name, KindFloat, get, set, wrapFloat, unwrapFloat, opts)
}

// OptionalFloatField describes a nullable double attribute.
func OptionalFloatField[O any](name string, get func(O) *float64, set func(O, *float64), opts ...FieldOption) Field {
	return optionalField(name, KindFloat, get, set, wrapFloat, unwrapFloat, opts)
}

// BoolField describes a mandatory boolean attribute.
func BoolField[O any](name string, get func(O) bool, set func(O, bool), opts ...FieldOption) Field {
	return scalarField(name, KindBool, get, set, wrapBool, unwrapBool, opts)
}

// OptionalBoolField describes a nullable boolean attribute.
func OptionalBoolField[O any](name string, get func(O) *bool, set func(O, *bool), opts ...FieldOption) Field {
	return optionalField(name, KindBool, get, set, wrapBool, unwrapBool, opts)
}

// StringField describes a text attribute. Strings are never NULL; the empty
// string is stored as ''.
func StringField[O any](name string, get func(O) string, set func(O, string), opts ...FieldOption) Field {
	return scalarField(name, KindString, get, set, wrapString, unwrapString, opts)
}

// TimeField describes a mandatory timestamp attribute.
func TimeField[O any](name string, get func(O) time.Time, set func(O, time.Time), opts ...FieldOption) Field {
	return scalarField(name, KindTime, get, set, wrapTime, unwrapTime, opts)
}

// OptionalTimeField describes a nullable timestamp attribute.
func OptionalTimeField[O any](name string, get func(O) *time.Time, set func(O, *time.Time), opts ...FieldOption) Field {
	return optionalField(name, KindTime, get, set, wrapTime, unwrapTime, opts)
}

// ComplexField describes a mandatory complex attribute.
func ComplexField[O any](name string, get func(O) complex128, set func(O, complex128), opts ...FieldOption) Field {
	return scalarField(name, KindComplex, get, set, wrapComplex, unwrapComplex, opts)
}

// IntsField describes an integer vector stored in a single column.
func IntsField[O any](name string, get func(O) []int64, set func(O, []int64), opts ...FieldOption) Field {
	return scalarField(name, KindInts, get, set, wrapInts, unwrapInts, opts)
}

// FloatsField describes a double vector stored in a single column.
func FloatsField[O any](name string, get func(O) []float64, set func(O, []float64), opts ...FieldOption) Field {
	return scalarField(name, KindFloats, get, set, wrapFloats, unwrapFloats, opts)
}

// StringsField describes a string vector stored in a single column.
func StringsField[O any](name string, get func(O) []string, set func(O, []string), opts ...FieldOption) Field {
	return scalarField(name, KindStrings, get, set, wrapStrings, unwrapStrings, opts)
}

// TimesField describes a timestamp vector stored in a single column.
func TimesField[O any](name string, get func(O) []time.Time, set func(O, []time.Time), opts ...FieldOption) Field {
	return scalarField(name, KindTimes, get, set, wrapTimes, unwrapTimes, opts)
}

// ComplexesField describes a complex vector stored in a single column.
func ComplexesField[O any](name string, get func(O) []complex128, set func(O, []complex128), opts ...FieldOption) Field {
	return scalarField(name, KindComplexes, get, set, wrapComplexes, unwrapComplexes, opts)
}

// EmbeddedField describes a mandatory nested composite held by value. The
// accessor returns a pointer into the owner.
func EmbeddedField[O, N any](name string, typ *Type, get func(O) *N, opts ...FieldOption) Field {
	f := Field{Name: name, Kind: KindObject, nested: typ}
	f.object = func(owner any) any {
		return get(owner.(O))
	}
	f.attach = f.object
	f.detach = func(owner any) {
		var zero N
		*get(owner.(O)) = zero
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// OptionalField describes a nullable nested composite held by pointer.
func OptionalField[O, N any](name string, typ *Type, get func(O) *N, set func(O, *N), opts ...FieldOption) Field {
	f := Field{Name: name, Kind: KindObject, Optional: true, nested: typ}
	f.object = func(owner any) any {
		if p := get(owner.(O)); p != nil {
			return p
		}
		return nil
	}
	f.attach = func(owner any) any {
		p := get(owner.(O))
		if p == nil {
			p = new(N)
			set(owner.(O), p)
		}
		return p
	}
	f.detach = func(owner any) {
		set(owner.(O), nil)
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// ChildrenField describes an owned collection of child objects. Children are
// persisted as rows of their own type linked through _parent_oid; the flat
// serialization pass skips collections.
func ChildrenField[O any, C Object](name string, typ *Type, list func(O) []C, add func(O, C) error) Field {
	f := Field{Name: name, Kind: KindCollection, nested: typ}
	f.children = func(owner any) []Object {
		items := list(owner.(O))
		out := make([]Object, len(items))
		for i, item := range items {
			out[i] = item
		}
		return out
	}
	f.adopt = func(owner any, child Object) error {
		c, ok := child.(C)
		if !ok {
			return fmt.Errorf("schema: collection %s cannot hold %T", name, child)
		}
		return add(owner.(O), c)
	}
	return f
}
