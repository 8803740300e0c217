package archive

import (
	"context"
	"fmt"

	"github.com/roach88/dbarchive/internal/schema"
	"github.com/roach88/dbarchive/internal/sqlstmt"
)

// PublicObjectID returns the storage identifier of the object with the given
// public ID.
func (a *Archive) PublicObjectID(ctx context.Context, publicID string) (int64, bool, error) {
	where := sqlstmt.NewAttributes()
	where.SetValue(a.driver.ConvertColumnName(publicIDAttribute), sqlstmt.Quote(publicID))
	id, ok, err := a.queryInt(ctx, sqlstmt.Select(oidColumn, publicObjectTable, where))
	if err != nil {
		return 0, false, &Error{Code: ErrCodeDriver, Op: "public object id", PublicID: publicID, Err: err}
	}
	return id, ok, nil
}

// ObjectID resolves the storage identifier of obj. Public objects are looked
// up by public ID. Other objects are matched by their natural key within
// their parent, where the parent is the in-memory parent of obj or, for
// detached objects, the object with public ID parentID. Types without index
// attributes are matched on all top-level attributes; if several rows match,
// the first one is returned.
func (a *Archive) ObjectID(ctx context.Context, obj schema.Object, parentID string) (int64, bool, error) {
	if po, ok := obj.(schema.PublicObject); ok {
		if po.PublicID() == "" {
			return 0, false, nil
		}
		return a.PublicObjectID(ctx, po.PublicID())
	}

	typ := obj.Type()
	where, err := a.naturalKey(ctx, obj)
	if err != nil {
		return 0, false, err
	}

	parentOID, hasParent, err := a.parentOID(ctx, obj, parentID)
	if err != nil {
		return 0, false, err
	}
	if hasParent {
		where.SetValue(parentOIDColumn, oidValue(parentOID))
	} else if obj.Parent() != nil || parentID != "" {
		return 0, false, nil
	}

	id, ok, err := a.queryInt(ctx, sqlstmt.Select(oidColumn, typ.Table(), where))
	if err != nil {
		return 0, false, &Error{Code: ErrCodeDriver, Op: "object id", Type: typ.Name(), Err: err}
	}
	return id, ok, nil
}

// naturalKey collects the index attributes of obj, or all of its top-level
// attributes when the type declares no index.
func (a *Archive) naturalKey(ctx context.Context, obj schema.Object) (*sqlstmt.Attributes, error) {
	s := a.newSerializer(ctx, modeIndex)
	if err := s.serialize(obj); err != nil {
		return nil, err
	}
	if s.attrs.Len() > 0 {
		return s.attrs, nil
	}

	a.logger.Debug("no index attributes, matching on all attributes", "type", obj.Type().Name())
	s = a.newSerializer(ctx, modeIndex)
	s.fallback = true
	if err := s.serialize(obj); err != nil {
		return nil, err
	}
	return s.attrs, nil
}

// resolveOID returns the storage identifier of obj from the identity cache
// or, failing that, from storage.
func (a *Archive) resolveOID(ctx context.Context, obj schema.Object, parentID string) (int64, bool, error) {
	if id, ok := a.cache.get(obj); ok {
		return id, true, nil
	}
	return a.ObjectID(ctx, obj, parentID)
}

// parentOID resolves the storage identifier of the parent of obj: the
// in-memory parent if present, else the object with public ID parentID. It
// reports false for roots without either.
func (a *Archive) parentOID(ctx context.Context, obj schema.Object, parentID string) (int64, bool, error) {
	if p := obj.Parent(); p != nil {
		if id, ok := a.cache.get(p); ok {
			return id, true, nil
		}
		return a.ObjectID(ctx, p, "")
	}
	if parentID != "" {
		return a.PublicObjectID(ctx, parentID)
	}
	return 0, false, nil
}

// ParentPublicID returns the public ID of the stored parent of obj.
func (a *Archive) ParentPublicID(ctx context.Context, obj schema.Object) (string, bool, error) {
	oid, ok, err := a.resolveOID(ctx, obj, "")
	if err != nil || !ok {
		return "", false, err
	}

	table := obj.Type().Table()
	publicIDColumn := a.driver.ConvertColumnName(publicIDAttribute)
	query := fmt.Sprintf("SELECT %s.%s FROM %s, %s WHERE %s.%s=%s.%s AND %s.%s=%d",
		publicObjectTable, publicIDColumn,
		publicObjectTable, table,
		publicObjectTable, oidColumn, table, parentOIDColumn,
		table, oidColumn, oid)

	if err := a.beginQuery(ctx, query); err != nil {
		return "", false, &Error{Code: ErrCodeDriver, Op: "parent public id", Type: obj.Type().Name(), Err: err}
	}
	defer a.endQuery()

	found, err := a.driver.FetchRow()
	if err != nil {
		return "", false, &Error{Code: ErrCodeDriver, Op: "parent public id", Type: obj.Type().Name(), Err: err}
	}
	if !found {
		return "", false, nil
	}
	return string(a.driver.RowField(0)), true, nil
}
