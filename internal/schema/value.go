package schema

import "time"

// Value is a sealed interface over the attribute values a Field can carry.
// Only the types declared in this file implement it.
type Value interface {
	value() // Sealed
}

// Null marks an absent optional attribute.
type Null struct{}

func (Null) value() {}

// Int is a signed integer attribute.
type Int int64

func (Int) value() {}

// Float is a double precision attribute.
type Float float64

func (Float) value() {}

// Bool is a boolean attribute.
type Bool bool

func (Bool) value() {}

// String is a text attribute.
type String string

func (String) value() {}

// Time is a timestamp attribute. Precision is one microsecond.
type Time time.Time

func (Time) value() {}

// Complex is a complex number attribute.
type Complex complex128

func (Complex) value() {}

// Ints is a vector of integers.
type Ints []int64

func (Ints) value() {}

// Floats is a vector of doubles.
type Floats []float64

func (Floats) value() {}

// Strings is a vector of strings.
type Strings []string

func (Strings) value() {}

// Times is a vector of timestamps.
type Times []time.Time

func (Times) value() {}

// Complexes is a vector of complex numbers.
type Complexes []complex128

func (Complexes) value() {}

// IsNull reports whether v represents an absent value.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}
