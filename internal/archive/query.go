package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/dbarchive/internal/schema"
	"github.com/roach88/dbarchive/internal/sqlstmt"
)

// Parent selects the owner of the objects a query returns.
type Parent struct {
	obj      schema.Object
	publicID string
}

// NoParent selects objects regardless of their owner.
var NoParent = Parent{}

// ParentObject selects the children of obj.
func ParentObject(obj schema.Object) Parent {
	return Parent{obj: obj}
}

// ParentPublicID selects the children of the object with the given public ID.
func ParentPublicID(publicID string) Parent {
	return Parent{publicID: publicID}
}

func (p Parent) isSet() bool {
	return p.obj != nil || p.publicID != ""
}

func (p Parent) String() string {
	switch {
	case p.publicID != "":
		return p.publicID
	case p.obj != nil:
		if id := publicIDOf(p.obj); id != "" {
			return id
		}
		return p.obj.Type().Name()
	}
	return ""
}

// resolve returns the storage identifier of the parent.
func (a *Archive) resolveParent(ctx context.Context, p Parent) (int64, bool, error) {
	if p.obj != nil {
		return a.resolveOID(ctx, p.obj, "")
	}
	return a.PublicObjectID(ctx, p.publicID)
}

// selectObjects renders the query for objects of typ. Public types are
// joined with PublicObject to obtain their public IDs unless ignoreJoin is
// set.
func (a *Archive) selectObjects(typ *schema.Type, where *sqlstmt.Attributes, ignoreJoin bool) string {
	table := typ.Table()
	if !typ.IsPublic() || ignoreJoin {
		q := sqlstmt.Select(table+".*", table, where)
		return q + " ORDER BY " + table + "." + oidColumn
	}

	join := sqlstmt.NewAttributes()
	join.SetValue(publicObjectTable+"."+oidColumn, table+"."+oidColumn)
	join.Merge(where)
	q := sqlstmt.Select(
		fmt.Sprintf("%s.%s, %s.*", publicObjectTable, a.driver.ConvertColumnName(publicIDAttribute), table),
		table+", "+publicObjectTable,
		join,
	)
	return q + " ORDER BY " + table + "." + oidColumn
}

// GetObjects returns a cursor over the objects of typ owned by parent, in
// storage order.
func (a *Archive) GetObjects(ctx context.Context, parent Parent, typ *schema.Type, ignorePublicObjectJoin bool) (c *Cursor, err error) {
	start := time.Now()
	defer func() { observe("get_objects", start, err) }()

	where := sqlstmt.NewAttributes()
	if parent.isSet() {
		oid, found, err := a.resolveParent(ctx, parent)
		if err != nil {
			return nil, failure("get objects", ErrCodeDriver, typ.Name(), "", err)
		}
		if !found {
			return nil, &Error{Code: ErrCodeMissingParent, Op: "get objects", Type: typ.Name(),
				Err: fmt.Errorf("parent %q not stored", parent)}
		}
		where.SetValue(typ.Table()+"."+parentOIDColumn, oidValue(oid))
	}
	return a.openCursor(ctx, typ, a.selectObjects(typ, where, ignorePublicObjectJoin))
}

// QueryObjects returns a cursor over the rows of query read as objects of typ.
// Public IDs are read from the publicID column if the query selects it.
func (a *Archive) QueryObjects(ctx context.Context, typ *schema.Type, query string) (c *Cursor, err error) {
	start := time.Now()
	defer func() { observe("query_objects", start, err) }()
	return a.openCursor(ctx, typ, query)
}

// QueryObject returns the first object of typ read from query, including
// composites stored in their own tables.
func (a *Archive) QueryObject(ctx context.Context, typ *schema.Type, query string) (obj schema.Object, err error) {
	start := time.Now()
	defer func() { observe("query_object", start, err) }()

	c, err := a.openCursor(ctx, typ, query)
	if err != nil {
		return nil, err
	}
	if !c.Next() {
		c.Close()
		if c.Err() != nil {
			return nil, c.Err()
		}
		return nil, &Error{Code: ErrCodeNotFound, Op: "query object", Type: typ.Name(), Err: errors.New("no readable row")}
	}
	obj = c.Object()
	pending := c.pending
	c.Close()

	if err := a.fetchComposites(ctx, pending); err != nil {
		return nil, err
	}
	return obj, nil
}

// GetObject returns the public object of typ with the given public ID.
func (a *Archive) GetObject(ctx context.Context, typ *schema.Type, publicID string) (schema.PublicObject, error) {
	if !typ.IsPublic() {
		return nil, &Error{Code: ErrCodeInvalidObject, Op: "get object", Type: typ.Name(), Err: errors.New("type has no public ID")}
	}
	where := sqlstmt.NewAttributes()
	where.SetValue(publicObjectTable+"."+a.driver.ConvertColumnName(publicIDAttribute), sqlstmt.Quote(publicID))

	obj, err := a.QueryObject(ctx, typ, a.selectObjects(typ, where, false))
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) && ae.PublicID == "" {
			ae.PublicID = publicID
		}
		return nil, err
	}
	return obj.(schema.PublicObject), nil
}

// GetObjectCount returns the number of stored objects of typ owned by parent.
func (a *Archive) GetObjectCount(ctx context.Context, parent Parent, typ *schema.Type) (n int, err error) {
	start := time.Now()
	defer func() { observe("get_object_count", start, err) }()

	where := sqlstmt.NewAttributes()
	if parent.isSet() {
		oid, found, err := a.resolveParent(ctx, parent)
		if err != nil {
			return 0, failure("get object count", ErrCodeDriver, typ.Name(), "", err)
		}
		if !found {
			return 0, &Error{Code: ErrCodeMissingParent, Op: "get object count", Type: typ.Name(),
				Err: fmt.Errorf("parent %q not stored", parent)}
		}
		where.SetValue(parentOIDColumn, oidValue(oid))
	}

	count, _, err := a.queryInt(ctx, sqlstmt.Select("COUNT(*)", typ.Table(), where))
	if err != nil {
		return 0, &Error{Code: ErrCodeDriver, Op: "get object count", Type: typ.Name(), Err: err}
	}
	return int(count), nil
}

// LoadChildren fills the collections of obj from storage, recursively. It
// returns the number of objects added.
func (a *Archive) LoadChildren(ctx context.Context, obj schema.Object) (int, error) {
	total := 0
	for _, f := range obj.Type().Collections() {
		c, err := a.GetObjects(ctx, ParentObject(obj), f.Nested(), false)
		if err != nil {
			return total, err
		}
		children, err := c.collect()
		if err != nil {
			return total, err
		}

		present := make(map[schema.Handle]bool)
		for _, existing := range f.Children(obj) {
			present[existing.Handle()] = true
		}
		for _, child := range children {
			if present[child.Handle()] {
				continue
			}
			if err := f.Adopt(obj, child); err != nil {
				return total, failure("load children", ErrCodeInvalidObject, child.Type().Name(), publicIDOf(child), err)
			}
			total++
		}
		for _, child := range children {
			n, err := a.LoadChildren(ctx, child)
			total += n
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}
