package archive

import (
	"context"
	"errors"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/dbarchive/internal/schema"
	"github.com/roach88/dbarchive/internal/sqlstmt"
)

var errCursorSuperseded = errors.New("cursor result set released by a newer query")

// Cursor is a forward-only, single-pass sequence of objects read from one
// query. Each Next materializes one object from the current row; rows that
// cannot be read are skipped with a warning.
//
// The cursor owns the driver's result set until it is exhausted or closed.
// Starting another query on the archive releases it as well, after which
// Next returns false and Err reports the release. Composites stored in
// their own tables are not fetched by cursors; their reference column is
// read and the composite left unset.
type Cursor struct {
	a   *Archive
	ctx context.Context
	typ *schema.Type

	obj          schema.Object
	oid          int64
	parentOID    int64
	lastModified time.Time
	count        int

	err    error
	closed bool

	pending []pendingRow
}

// openCursor starts query and binds a cursor to its result set.
func (a *Archive) openCursor(ctx context.Context, typ *schema.Type, query string) (*Cursor, error) {
	if _, ok := a.types.Lookup(typ.Name()); !ok {
		return nil, &Error{Code: ErrCodeInvalidObject, Op: "query", Type: typ.Name(), Err: errors.New("type not registered")}
	}
	if err := a.beginQuery(ctx, query); err != nil {
		return nil, &Error{Code: ErrCodeDriver, Op: "query", Type: typ.Name(), Err: err}
	}
	c := &Cursor{a: a, ctx: ctx, typ: typ}
	a.active = c
	return c, nil
}

// Next advances to the next readable row. It returns false when the result
// set is exhausted, the cursor is closed or an error occurred.
func (c *Cursor) Next() bool {
	c.obj = nil
	if c.closed {
		return false
	}
	drv := c.a.driver
	for {
		ok, err := drv.FetchRow()
		if err != nil {
			c.err = &Error{Code: ErrCodeDriver, Op: "fetch", Type: c.typ.Name(), Err: err}
			c.Close()
			return false
		}
		if !ok {
			c.Close()
			return false
		}

		obj, err := c.materialize()
		if err != nil {
			metricCursorRows.WithLabelValues("skipped").Inc()
			c.a.logger.Warn("skipping unreadable row", "type", c.typ.Name(), "oid", c.oid, "error", err)
			continue
		}
		c.obj = obj
		c.count++
		return true
	}
}

// pseudoInt reads an integer pseudo column of the current row.
func (c *Cursor) pseudoInt(name string) (int64, bool) {
	drv := c.a.driver
	raw := drv.RowField(drv.FindColumn(name))
	if raw == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	return n, err == nil
}

func (c *Cursor) materialize() (schema.Object, error) {
	a := c.a
	drv := a.driver

	c.oid, _ = c.pseudoInt(oidColumn)
	c.parentOID, _ = c.pseudoInt(parentOIDColumn)
	c.lastModified = time.Time{}
	if raw := drv.RowField(drv.FindColumn(lastModifiedColumn)); raw != nil {
		if t, err := drv.StringToTime(string(raw)); err == nil {
			c.lastModified = t
		}
	}

	var publicID string
	if c.typ.IsPublic() {
		publicID = string(drv.RowField(drv.FindColumn(drv.ConvertColumnName(publicIDAttribute))))
		if a.cacheLookup && a.objects != nil && publicID != "" {
			if existing := a.objects.Find(publicID); existing != nil && existing.Type() == c.typ {
				metricCursorRows.WithLabelValues("cached").Inc()
				if c.oid > 0 {
					a.cache.register(existing, c.oid)
				}
				return existing, nil
			}
		}
	}

	obj, err := a.types.New(c.typ.Name())
	if err != nil {
		return nil, err
	}
	if po, ok := obj.(schema.PublicObject); ok {
		po.SetPublicID(publicID)
	}

	s := a.newSerializer(c.ctx, modeRead)
	if err := s.serialize(obj); err != nil {
		return nil, err
	}
	if lm, ok := obj.(interface{ SetLastModified(time.Time) }); ok {
		lm.SetLastModified(c.lastModified)
	}
	c.pending = append(c.pending, s.pending...)

	if c.oid > 0 {
		a.cache.register(obj, c.oid)
	}
	if po, ok := obj.(schema.PublicObject); ok && a.objects != nil && publicID != "" {
		if err := a.objects.Register(po); err != nil {
			a.logger.Debug("public object not registered", "public_id", publicID, "error", err)
		}
	}
	metricCursorRows.WithLabelValues("ok").Inc()
	return obj, nil
}

// Object returns the object read by the last successful Next.
func (c *Cursor) Object() schema.Object {
	return c.obj
}

// OID returns the storage identifier of the current row.
func (c *Cursor) OID() int64 {
	return c.oid
}

// ParentOID returns the parent storage identifier of the current row, zero
// for roots.
func (c *Cursor) ParentOID() int64 {
	return c.parentOID
}

// LastModified returns the modification stamp of the current row.
func (c *Cursor) LastModified() time.Time {
	return c.lastModified
}

// Count returns the number of objects returned so far.
func (c *Cursor) Count() int {
	return c.count
}

// Err returns the error that ended iteration, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Close releases the result set. It is safe to call more than once.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.a.active == c {
		c.a.active = nil
		c.a.driver.EndQuery()
	}
	return nil
}

// release marks the cursor closed after its result set was taken away.
func (c *Cursor) release(cause error) {
	if c.closed {
		return
	}
	c.closed = true
	c.obj = nil
	if c.err == nil {
		c.err = cause
	}
}

// All returns the remaining objects as a sequence. Breaking out of the loop
// closes the cursor.
func (c *Cursor) All() iter.Seq[schema.Object] {
	return func(yield func(schema.Object) bool) {
		for c.Next() {
			if !yield(c.Object()) {
				c.Close()
				return
			}
		}
	}
}

// collect drains the cursor and completes composites stored in their own
// tables.
func (c *Cursor) collect() ([]schema.Object, error) {
	var out []schema.Object
	for c.Next() {
		out = append(out, c.Object())
	}
	if c.err != nil {
		return nil, c.err
	}
	if err := c.a.fetchComposites(c.ctx, c.pending); err != nil {
		return nil, err
	}
	return out, nil
}

// fetchComposites reads the rows of table-backed composites and assigns them
// to their owners.
func (a *Archive) fetchComposites(ctx context.Context, pending []pendingRow) error {
	for len(pending) > 0 {
		p := pending[0]
		pending = pending[1:]
		t := p.field.Nested()

		if err := a.beginQuery(ctx, sqlstmt.Select("*", t.Table(), whereOID(p.oid))); err != nil {
			return &Error{Code: ErrCodeDriver, Op: "read composite", Type: t.Name(), Err: err}
		}
		ok, err := a.driver.FetchRow()
		if err != nil {
			a.endQuery()
			return &Error{Code: ErrCodeDriver, Op: "read composite", Type: t.Name(), Err: err}
		}
		if !ok {
			a.endQuery()
			a.logger.Warn("dangling composite reference", "table", t.Table(), "oid", p.oid)
			if p.field.Optional {
				p.field.Detach(p.owner)
			}
			continue
		}

		s := a.newSerializer(ctx, modeRead)
		s.fields(p.field.Attach(p.owner), t)
		a.endQuery()
		if err := s.result(); err != nil {
			return failure("read composite", ErrCodeConversion, t.Name(), "", err)
		}
		pending = append(pending, s.pending...)
	}
	return nil
}
