package archive

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/dbarchive/internal/schema"
	"github.com/roach88/dbarchive/internal/sqlstmt"
)

type mode int

const (
	// modeWrite collects column/value pairs of all data attributes.
	modeWrite mode = iota
	// modeRead assigns attributes from the driver's current row.
	modeRead
	// modeIndex collects the natural key attributes only.
	modeIndex
)

// rowRef identifies a row of a table-backed composite.
type rowRef struct {
	typ *schema.Type
	oid int64
}

// pendingRow is a table-backed composite whose row has yet to be fetched.
type pendingRow struct {
	owner any
	field schema.Field
	oid   int64
}

type fieldState int

const (
	columnMissing fieldState = iota
	columnNull
	columnValue
)

// serializer walks the fields of one object in one mode. A serializer is
// created per pass, so prefix state never leaks between calls.
type serializer struct {
	a    *Archive
	ctx  context.Context
	mode mode
	path attributePath

	attrs *sqlstmt.Attributes

	// excludeIndex leaves natural key attributes out of a write pass.
	excludeIndex bool
	// forUpdate writes NULL references for absent table-backed composites.
	forUpdate bool
	// fallback makes an index pass capture all top-level primitives.
	fallback bool
	// indexDepth is positive inside a composite flagged as index.
	indexDepth int

	valid bool
	cause error
	err   error

	inserted []rowRef
	pending  []pendingRow
}

func (a *Archive) newSerializer(ctx context.Context, m mode) *serializer {
	return &serializer{
		a:     a,
		ctx:   ctx,
		mode:  m,
		attrs: sqlstmt.NewAttributes(),
		valid: true,
	}
}

// serialize runs the pass over the flat attributes of obj. Collections are
// skipped.
func (s *serializer) serialize(obj schema.Object) error {
	s.fields(obj, obj.Type())
	return s.result()
}

// result reports the outcome of the pass.
func (s *serializer) result() error {
	if s.err != nil {
		return s.err
	}
	if !s.valid {
		return &Error{Code: ErrCodeConversion, Op: "serialize", Err: s.cause}
	}
	return nil
}

func (s *serializer) fields(owner any, t *schema.Type) {
	for _, f := range t.Fields() {
		if s.err != nil {
			return
		}
		switch {
		case f.Kind == schema.KindCollection:
			continue
		case f.Kind == schema.KindObject && f.HasHint(schema.HintTable):
			s.tableObject(owner, f)
		case f.Kind == schema.KindObject:
			s.inlineObject(owner, f)
		default:
			s.primitive(owner, f)
		}
	}
}

// captures reports whether the current pass records attribute f.
func (s *serializer) captures(f schema.Field) bool {
	index := f.Index || s.indexDepth > 0
	switch s.mode {
	case modeIndex:
		return index || (s.fallback && s.path.depth() == 0 && f.Kind.IsPrimitive())
	case modeWrite:
		return !(index && s.excludeIndex)
	}
	return true
}

func (s *serializer) fail(code ErrorCode, err error) {
	if s.err == nil {
		s.err = &Error{Code: code, Op: "serialize", Err: err}
	}
}

func (s *serializer) invalidate(col string, err error) {
	s.valid = false
	if s.cause == nil {
		s.cause = fmt.Errorf("%s: %w", col, err)
	}
}

func (s *serializer) set(col string, v *string) {
	s.attrs.Set(s.a.driver.ConvertColumnName(col), v)
}

// field fetches the raw text of col from the current row.
func (s *serializer) field(col string) (string, fieldState) {
	drv := s.a.driver
	i := drv.FindColumn(drv.ConvertColumnName(col))
	if i < 0 {
		return "", columnMissing
	}
	raw := drv.RowField(i)
	if raw == nil {
		return "", columnNull
	}
	return string(raw), columnValue
}

func (s *serializer) primitive(owner any, f schema.Field) {
	switch s.mode {
	case modeRead:
		s.readPrimitive(owner, f)
	default:
		if s.captures(f) {
			s.writePrimitive(owner, f)
		}
	}
}

func (s *serializer) writePrimitive(owner any, f schema.Field) {
	col := s.path.column(f.Name)
	v := f.Get(owner)

	if f.HasHint(schema.HintSplitTime) {
		t, ok := v.(schema.Time)
		if !ok {
			s.set(col, nil)
			s.set(col+msSuffix, nil)
			return
		}
		tt := time.Time(t)
		s.set(col, renderValue(schema.Time(tt.Truncate(time.Second)), s.a.driver))
		us := strconv.Itoa(tt.Nanosecond() / 1000)
		s.set(col+msSuffix, &us)
		return
	}

	s.set(col, renderValue(v, s.a.driver))
}

func (s *serializer) readPrimitive(owner any, f schema.Field) {
	col := s.path.column(f.Name)
	raw, state := s.field(col)
	switch state {
	case columnMissing:
		return
	case columnNull:
		s.absent(owner, f, col)
		return
	}

	v, err := parseValue(f.Kind, raw, s.a.driver)
	if err != nil {
		s.invalidate(col, err)
		return
	}

	if f.HasHint(schema.HintSplitTime) {
		if msRaw, state := s.field(col + msSuffix); state == columnValue {
			us, err := strconv.ParseInt(strings.TrimSpace(msRaw), 10, 64)
			if err != nil {
				s.invalidate(col+msSuffix, err)
				return
			}
			t := time.Time(v.(schema.Time)).Truncate(time.Second)
			v = schema.Time(t.Add(time.Duration(us) * time.Microsecond))
		}
	}

	if err := f.Set(owner, v); err != nil {
		s.invalidate(col, err)
	}
}

// absent handles a NULL column. Optional attributes are cleared, strings and
// vectors read as empty and mandatory floats as NaN, the form non-finite
// floats are written in. Any other mandatory attribute makes the row
// unreadable.
func (s *serializer) absent(owner any, f schema.Field, col string) {
	switch {
	case f.Optional, f.Kind == schema.KindString, f.Kind >= schema.KindInts && f.Kind <= schema.KindComplexes:
		if err := f.Set(owner, schema.Null{}); err != nil {
			s.invalidate(col, err)
		}
	case f.Kind == schema.KindFloat:
		if err := f.Set(owner, schema.Float(math.NaN())); err != nil {
			s.invalidate(col, err)
		}
	default:
		s.invalidate(col, fmt.Errorf("NULL in mandatory %s attribute", f.Kind))
	}
}

func (s *serializer) inlineObject(owner any, f schema.Field) {
	col := s.path.column(f.Name)

	if s.mode == modeRead {
		if f.Optional {
			used := false
			if raw, state := s.field(col + usedSuffix); state == columnValue {
				b, err := parseBool(raw)
				if err != nil {
					s.invalidate(col+usedSuffix, err)
					return
				}
				used = b
			}
			if !used {
				f.Detach(owner)
				return
			}
		}
		s.descend(f, f.Attach(owner))
		return
	}

	nested := f.Object(owner)
	if f.Optional {
		if s.captures(f) {
			s.set(col+usedSuffix, renderValue(schema.Bool(nested != nil), s.a.driver))
		}
		if nested == nil {
			return
		}
	}
	s.descend(f, nested)
}

func (s *serializer) descend(f schema.Field, nested any) {
	if err := s.path.push(f.Name); err != nil {
		s.fail(ErrCodePrefixStack, fmt.Errorf("%s: %w", f.Name, err))
		return
	}
	if f.Index {
		s.indexDepth++
	}
	s.fields(nested, f.Nested())
	if f.Index {
		s.indexDepth--
	}
	if err := s.path.pop(); err != nil {
		s.fail(ErrCodePrefixStack, fmt.Errorf("%s: %w", f.Name, err))
	}
}

func (s *serializer) tableObject(owner any, f schema.Field) {
	col := s.path.column(f.Name) + oidSuffix

	switch s.mode {
	case modeIndex:
		return

	case modeWrite:
		nested := f.Object(owner)
		if nested == nil {
			if s.forUpdate {
				s.set(col, nil)
			}
			return
		}
		oid, err := s.insertRow(f.Nested(), nested)
		if err != nil {
			s.fail(ErrCodeDriver, err)
			return
		}
		v := strconv.FormatInt(oid, 10)
		s.set(col, &v)

	case modeRead:
		raw, state := s.field(col)
		if state != columnValue {
			if state == columnNull && f.Optional {
				f.Detach(owner)
			}
			return
		}
		oid, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			s.invalidate(col, err)
			return
		}
		s.pending = append(s.pending, pendingRow{owner: owner, field: f, oid: oid})
	}
}

// insertRow stores a table-backed composite in its own table and returns the
// generated row identifier. Nested columns carry no prefix of the owner.
func (s *serializer) insertRow(t *schema.Type, nested any) (int64, error) {
	child := s.a.newSerializer(s.ctx, modeWrite)
	child.fields(nested, t)
	s.inserted = append(s.inserted, child.inserted...)
	if err := child.result(); err != nil {
		return 0, err
	}

	row := sqlstmt.NewAttributes()
	row.SetValue(oidColumn, s.a.driver.DefaultValue())
	row.Merge(child.attrs)
	if err := s.a.driver.Execute(s.ctx, sqlstmt.Insert(t.Table(), row)); err != nil {
		return 0, err
	}
	oid, err := s.a.driver.LastInsertID(s.ctx, t.Table())
	if err != nil {
		return 0, err
	}
	s.inserted = append(s.inserted, rowRef{typ: t, oid: oid})
	return oid, nil
}
