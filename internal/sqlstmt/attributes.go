// Package sqlstmt builds the SQL statement text issued by the archive.
//
// Values arrive pre-rendered: the serializer is responsible for quoting and
// escaping, this package only assembles column and value lists.
package sqlstmt

import (
	"iter"
	"strings"
)

// Null is the token rendered for absent values.
const Null = "NULL"

type attribute struct {
	column string
	value  *string
}

// Attributes is an ordered map from column name to an optional rendered
// value. Setting a column twice overwrites the earlier value in place.
type Attributes struct {
	items []attribute
	index map[string]int
}

// NewAttributes creates an empty map.
func NewAttributes() *Attributes {
	return &Attributes{index: make(map[string]int)}
}

// Set stores value under column. A nil value renders as NULL.
func (a *Attributes) Set(column string, value *string) {
	if a.index == nil {
		a.index = make(map[string]int)
	}
	if i, ok := a.index[column]; ok {
		a.items[i].value = value
		return
	}
	a.index[column] = len(a.items)
	a.items = append(a.items, attribute{column: column, value: value})
}

// SetValue stores a non-null rendered value.
func (a *Attributes) SetValue(column, value string) {
	a.Set(column, &value)
}

// SetNull stores an absent value.
func (a *Attributes) SetNull(column string) {
	a.Set(column, nil)
}

// Get returns the rendered value of column and whether the column is present.
// A present column with a nil value is NULL.
func (a *Attributes) Get(column string) (*string, bool) {
	i, ok := a.index[column]
	if !ok {
		return nil, false
	}
	return a.items[i].value, true
}

// Delete removes column if present.
func (a *Attributes) Delete(column string) {
	i, ok := a.index[column]
	if !ok {
		return
	}
	a.items = append(a.items[:i], a.items[i+1:]...)
	delete(a.index, column)
	for j := i; j < len(a.items); j++ {
		a.index[a.items[j].column] = j
	}
}

// Merge copies the columns of other into a in order.
func (a *Attributes) Merge(other *Attributes) {
	for _, it := range other.items {
		a.Set(it.column, it.value)
	}
}

// Len returns the number of columns.
func (a *Attributes) Len() int {
	return len(a.items)
}

// Keys yields the column names in insertion order.
func (a *Attributes) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, it := range a.items {
			if !yield(it.column) {
				return
			}
		}
	}
}

// Values yields the rendered values in insertion order, NULL for absent ones.
func (a *Attributes) Values() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, it := range a.items {
			v := Null
			if it.value != nil {
				v = *it.value
			}
			if !yield(v) {
				return
			}
		}
	}
}

// All yields (column, rendered value) pairs in insertion order.
func (a *Attributes) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, it := range a.items {
			v := Null
			if it.value != nil {
				v = *it.value
			}
			if !yield(it.column, v) {
				return
			}
		}
	}
}

// join renders seq separated by sep.
func join(seq iter.Seq[string], sep string) string {
	var b strings.Builder
	first := true
	for s := range seq {
		if !first {
			b.WriteString(sep)
		}
		first = false
		b.WriteString(s)
	}
	return b.String()
}

// ColumnList renders the comma-joined column names.
func (a *Attributes) ColumnList() string {
	return join(a.Keys(), ",")
}

// ValueList renders the comma-joined values.
func (a *Attributes) ValueList() string {
	return join(a.Values(), ",")
}
