package schema

import (
	"fmt"
	"math"
	"time"
)

// PublicIDKey is the document key holding the public ID of public objects.
const PublicIDKey = "publicID"

// ToDocument renders obj and its owned descendants as nested maps suitable
// for YAML or JSON encoding. Absent optional values are omitted.
func ToDocument(obj Object) map[string]any {
	doc := encodeFields(obj, obj.Type())
	if po, ok := obj.(PublicObject); ok && po.PublicID() != "" {
		doc[PublicIDKey] = po.PublicID()
	}
	for _, f := range obj.Type().Collections() {
		children := f.Children(obj)
		if len(children) == 0 {
			continue
		}
		list := make([]any, len(children))
		for i, child := range children {
			list[i] = ToDocument(child)
		}
		doc[f.Name] = list
	}
	return doc
}

func encodeFields(owner any, t *Type) map[string]any {
	doc := make(map[string]any)
	for _, f := range t.Fields() {
		switch f.Kind {
		case KindCollection:
			continue
		case KindObject:
			nested := f.Object(owner)
			if nested == nil {
				continue
			}
			doc[f.Name] = encodeFields(nested, f.Nested())
		default:
			if v := encodeValue(f.Get(owner)); v != nil {
				doc[f.Name] = v
			}
		}
	}
	return doc
}

func encodeValue(v Value) any {
	switch v := v.(type) {
	case Int:
		return int64(v)
	case Float:
		return float64(v)
	case Bool:
		return bool(v)
	case String:
		return string(v)
	case Time:
		return time.Time(v).UTC().Format(time.RFC3339Nano)
	case Complex:
		return []any{real(v), imag(v)}
	case Ints:
		return []int64(v)
	case Floats:
		return []float64(v)
	case Strings:
		return []string(v)
	case Times:
		out := make([]string, len(v))
		for i, t := range v {
			out[i] = t.UTC().Format(time.RFC3339Nano)
		}
		return out
	case Complexes:
		out := make([][]float64, len(v))
		for i, c := range v {
			out[i] = []float64{real(c), imag(c)}
		}
		return out
	default:
		return nil
	}
}

// FromDocument builds an object of type t from a document produced by
// ToDocument or parsed from YAML/JSON. Children listed under collection keys
// are constructed and attached recursively.
func FromDocument(t *Type, doc map[string]any) (Object, error) {
	obj := t.New()
	for key, raw := range doc {
		if key == PublicIDKey {
			po, ok := obj.(PublicObject)
			if !ok {
				return nil, fmt.Errorf("%s: %s on non-public type", t.Name(), PublicIDKey)
			}
			id, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%s: %s must be a string", t.Name(), PublicIDKey)
			}
			po.SetPublicID(id)
			continue
		}
		f, ok := t.Field(key)
		if !ok {
			return nil, fmt.Errorf("%s: unknown attribute %q", t.Name(), key)
		}
		if f.Kind != KindCollection {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%s.%s: expected a list", t.Name(), key)
		}
		for i, item := range items {
			childDoc, ok := asMap(item)
			if !ok {
				return nil, fmt.Errorf("%s.%s[%d]: expected a mapping", t.Name(), key, i)
			}
			child, err := FromDocument(f.Nested(), childDoc)
			if err != nil {
				return nil, fmt.Errorf("%s.%s[%d]: %w", t.Name(), key, i, err)
			}
			if err := f.Adopt(obj, child); err != nil {
				return nil, err
			}
		}
	}
	if err := decodeFields(obj, t, doc); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeFields(owner any, t *Type, doc map[string]any) error {
	for _, f := range t.Fields() {
		if f.Kind == KindCollection {
			continue
		}
		raw, present := doc[f.Name]
		if f.Kind == KindObject {
			if !present || raw == nil {
				if f.Optional {
					f.Detach(owner)
				}
				continue
			}
			nestedDoc, ok := asMap(raw)
			if !ok {
				return fmt.Errorf("%s.%s: expected a mapping", t.Name(), f.Name)
			}
			if err := decodeFields(f.Attach(owner), f.Nested(), nestedDoc); err != nil {
				return fmt.Errorf("%s.%w", t.Name(), err)
			}
			continue
		}
		if !present || raw == nil {
			if err := f.Set(owner, Null{}); err != nil {
				return err
			}
			continue
		}
		v, err := decodeValue(f.Kind, raw)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), f.Name, err)
		}
		if err := f.Set(owner, v); err != nil {
			return err
		}
	}
	for key := range doc {
		if key == PublicIDKey {
			continue
		}
		if _, ok := t.Field(key); !ok {
			return fmt.Errorf("%s: unknown attribute %q", t.Name(), key)
		}
	}
	return nil
}

func decodeValue(kind Kind, raw any) (Value, error) {
	switch kind {
	case KindInt:
		n, ok := asInt(raw)
		if !ok {
			return nil, fmt.Errorf("expected an integer, got %T", raw)
		}
		return Int(n), nil
	case KindFloat:
		x, ok := asFloat(raw)
		if !ok {
			return nil, fmt.Errorf("expected a number, got %T", raw)
		}
		return Float(x), nil
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %T", raw)
		}
		return Bool(b), nil
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", raw)
		}
		return String(s), nil
	case KindTime:
		t, err := asTime(raw)
		if err != nil {
			return nil, err
		}
		return Time(t), nil
	case KindComplex:
		c, err := asComplex(raw)
		if err != nil {
			return nil, err
		}
		return Complex(c), nil
	}

	items, ok := asList(raw)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}
	switch kind {
	case KindInts:
		out := make([]int64, len(items))
		for i, item := range items {
			n, ok := asInt(item)
			if !ok {
				return nil, fmt.Errorf("element %d: expected an integer, got %T", i, item)
			}
			out[i] = n
		}
		return Ints(out), nil
	case KindFloats:
		out := make([]float64, len(items))
		for i, item := range items {
			x, ok := asFloat(item)
			if !ok {
				return nil, fmt.Errorf("element %d: expected a number, got %T", i, item)
			}
			out[i] = x
		}
		return Floats(out), nil
	case KindStrings:
		out := make([]string, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: expected a string, got %T", i, item)
			}
			out[i] = s
		}
		return Strings(out), nil
	case KindTimes:
		out := make([]time.Time, len(items))
		for i, item := range items {
			t, err := asTime(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = t
		}
		return Times(out), nil
	case KindComplexes:
		out := make([]complex128, len(items))
		for i, item := range items {
			c, err := asComplex(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = c
		}
		return Complexes(out), nil
	}
	return nil, fmt.Errorf("unsupported kind %s", kind)
}

func asMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func asList(raw any) ([]any, bool) {
	switch l := raw.(type) {
	case []any:
		return l, true
	case []int64:
		out := make([]any, len(l))
		for i, v := range l {
			out[i] = v
		}
		return out, true
	case []float64:
		out := make([]any, len(l))
		for i, v := range l {
			out[i] = v
		}
		return out, true
	case []string:
		out := make([]any, len(l))
		for i, v := range l {
			out[i] = v
		}
		return out, true
	case [][]float64:
		out := make([]any, len(l))
		for i, v := range l {
			out[i] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func asInt(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asTime(raw any) (time.Time, error) {
	switch t := raw.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", t, err)
		}
		return parsed.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("expected a timestamp, got %T", raw)
	}
}

func asComplex(raw any) (complex128, error) {
	parts, ok := asList(raw)
	if !ok || len(parts) != 2 {
		return 0, fmt.Errorf("expected [real, imag], got %v", raw)
	}
	re, ok1 := asFloat(parts[0])
	im, ok2 := asFloat(parts[1])
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("expected numeric [real, imag], got %v", raw)
	}
	return complex(re, im), nil
}
