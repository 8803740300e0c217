package archive

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/dbarchive/internal/schema"
	"github.com/roach88/dbarchive/internal/sqlstmt"
)

func publicIDOf(obj schema.Object) string {
	if po, ok := obj.(schema.PublicObject); ok {
		return po.PublicID()
	}
	return ""
}

// Write inserts obj as a new row. The parent reference is taken from the
// in-memory parent of obj or, for detached objects, from the object with
// public ID parentID. Roots have neither.
//
// On failure all rows inserted so far are deleted again. On success the
// storage identifier of obj is cached.
func (a *Archive) Write(ctx context.Context, obj schema.Object, parentID string) (err error) {
	start := time.Now()
	defer func() { observe("write", start, err) }()

	typ := obj.Type()
	publicID := publicIDOf(obj)
	fail := func(code ErrorCode, err error) error {
		return failure("write", code, typ.Name(), publicID, err)
	}

	po, isPublic := obj.(schema.PublicObject)
	if isPublic {
		if publicID == "" {
			return fail(ErrCodeInvalidObject, errors.New("public object without public ID"))
		}
		_, exists, err := a.PublicObjectID(ctx, publicID)
		if err != nil {
			return fail(ErrCodeDriver, err)
		}
		if exists {
			return fail(ErrCodeDuplicatePublicID, errors.New("public ID already stored"))
		}
	}

	parentOID, hasParent, err := a.parentOID(ctx, obj, parentID)
	if err != nil {
		return fail(ErrCodeDriver, err)
	}
	if !hasParent && (obj.Parent() != nil || parentID != "") {
		return fail(ErrCodeMissingParent, fmt.Errorf("parent %q not stored", a.describeParent(obj, parentID)))
	}

	oid, err := a.insertBase(ctx, publicID, isPublic)
	if err != nil {
		return fail(ErrCodeDriver, err)
	}

	s := a.newSerializer(ctx, modeWrite)
	if err := s.serialize(obj); err != nil {
		a.compensate(ctx, typ, oid, isPublic, s.inserted)
		return fail(ErrCodeConversion, err)
	}

	row := sqlstmt.NewAttributes()
	row.SetValue(oidColumn, oidValue(oid))
	if hasParent {
		row.SetValue(parentOIDColumn, oidValue(parentOID))
	}
	row.Merge(s.attrs)
	if err := a.execute(ctx, "write", sqlstmt.Insert(typ.Table(), row)); err != nil {
		a.compensate(ctx, typ, oid, isPublic, s.inserted)
		return fail(ErrCodeDriver, err)
	}

	a.cache.register(obj, oid)
	if isPublic && a.objects != nil {
		if err := a.objects.Register(po); err != nil {
			a.logger.Debug("public object not registered", "public_id", publicID, "error", err)
		}
	}
	return nil
}

func (a *Archive) describeParent(obj schema.Object, parentID string) string {
	if p := obj.Parent(); p != nil {
		if id := publicIDOf(p); id != "" {
			return id
		}
		return p.Type().Name()
	}
	return parentID
}

// insertBase allocates a storage identifier by inserting the Object row and,
// for public objects, the PublicObject row.
func (a *Archive) insertBase(ctx context.Context, publicID string, isPublic bool) (int64, error) {
	base := sqlstmt.NewAttributes()
	base.SetValue(oidColumn, a.driver.DefaultValue())
	if err := a.driver.Execute(ctx, sqlstmt.Insert(objectTable, base)); err != nil {
		return 0, err
	}
	oid, err := a.driver.LastInsertID(ctx, objectTable)
	if err != nil {
		return 0, err
	}
	if !isPublic {
		return oid, nil
	}

	pub := sqlstmt.NewAttributes()
	pub.SetValue(oidColumn, oidValue(oid))
	pub.SetValue(a.driver.ConvertColumnName(publicIDAttribute), sqlstmt.Quote(publicID))
	if err := a.driver.Execute(ctx, sqlstmt.Insert(publicObjectTable, pub)); err != nil {
		_ = a.driver.Execute(ctx, sqlstmt.Delete(objectTable, whereOID(oid)))
		return 0, err
	}
	return oid, nil
}

// compensate deletes the composite and base rows of a failed write.
func (a *Archive) compensate(ctx context.Context, typ *schema.Type, oid int64, isPublic bool, inserted []rowRef) {
	a.logger.Warn("write failed, deleting inserted rows", "type", typ.Name(), "oid", oid, "composite_rows", len(inserted))
	a.deleteRows(ctx, inserted)
	var stmts []string
	if isPublic {
		stmts = append(stmts, sqlstmt.Delete(publicObjectTable, whereOID(oid)))
	}
	stmts = append(stmts, sqlstmt.Delete(objectTable, whereOID(oid)))
	for _, stmt := range stmts {
		if err := a.driver.Execute(ctx, stmt); err != nil {
			a.logger.Warn("compensation failed", "sql", stmt, "error", err)
		}
	}
}

// deleteRows removes rows of table-backed composites. Failures are logged.
func (a *Archive) deleteRows(ctx context.Context, rows []rowRef) {
	for _, r := range rows {
		stmt := sqlstmt.Delete(r.typ.Table(), whereOID(r.oid))
		if err := a.driver.Execute(ctx, stmt); err != nil {
			a.logger.Warn("composite row not deleted", "sql", stmt, "error", err)
		}
	}
}

// Update rewrites all data attributes of the stored row of obj.
//
// Objects with a cached identifier and public objects are addressed by
// storage identifier. Other objects are addressed by natural key and parent,
// and their natural key attributes are not rewritten. An object without data
// attributes is left untouched.
func (a *Archive) Update(ctx context.Context, obj schema.Object, parentID string) (err error) {
	start := time.Now()
	defer func() { observe("update", start, err) }()

	typ := obj.Type()
	publicID := publicIDOf(obj)
	fail := func(code ErrorCode, err error) error {
		return failure("update", code, typ.Name(), publicID, err)
	}

	parentOID, hasParent, err := a.parentOID(ctx, obj, parentID)
	if err != nil {
		return fail(ErrCodeDriver, err)
	}
	if !hasParent && (obj.Parent() != nil || parentID != "") {
		return fail(ErrCodeMissingParent, fmt.Errorf("parent %q not stored", a.describeParent(obj, parentID)))
	}

	where := sqlstmt.NewAttributes()
	s := a.newSerializer(ctx, modeWrite)
	s.forUpdate = true

	_, isPublic := obj.(schema.PublicObject)
	switch cached, ok := a.cache.get(obj); {
	case ok:
		where.SetValue(oidColumn, oidValue(cached))
	case isPublic:
		oid, found, err := a.PublicObjectID(ctx, publicID)
		if err != nil {
			return fail(ErrCodeDriver, err)
		}
		if !found {
			return fail(ErrCodeNotFound, errors.New("public ID not stored"))
		}
		where.SetValue(oidColumn, oidValue(oid))
	default:
		key, err := a.naturalKey(ctx, obj)
		if err != nil {
			return fail(ErrCodeConversion, err)
		}
		where.Merge(key)
		if hasParent {
			where.SetValue(parentOIDColumn, oidValue(parentOID))
		}
		s.excludeIndex = typ.HasIndex()
	}

	if err := s.serialize(obj); err != nil {
		a.deleteRows(ctx, s.inserted)
		return fail(ErrCodeConversion, err)
	}
	if s.attrs.Len() == 0 {
		a.logger.Debug("update without data attributes", "type", typ.Name(), "public_id", publicID)
		return nil
	}

	old, err := a.compositeRows(ctx, typ, where)
	if err != nil {
		a.deleteRows(ctx, s.inserted)
		return fail(ErrCodeDriver, err)
	}

	s.attrs.SetValue(lastModifiedColumn, a.driver.Dialect().Now)
	if err := a.execute(ctx, "update", sqlstmt.Update(typ.Table(), s.attrs, where)); err != nil {
		a.deleteRows(ctx, s.inserted)
		return fail(ErrCodeDriver, err)
	}
	a.deleteRows(ctx, old)
	return nil
}

// Remove deletes the stored rows of obj and forgets its identifier. Removing
// an object that is not stored succeeds without effect.
func (a *Archive) Remove(ctx context.Context, obj schema.Object, parentID string) (err error) {
	start := time.Now()
	defer func() { observe("remove", start, err) }()

	typ := obj.Type()
	publicID := publicIDOf(obj)
	fail := func(code ErrorCode, err error) error {
		return failure("remove", code, typ.Name(), publicID, err)
	}

	oid, found, err := a.resolveOID(ctx, obj, parentID)
	if err != nil {
		return fail(ErrCodeDriver, err)
	}
	if !found {
		a.logger.Debug("remove of unstored object", "type", typ.Name(), "public_id", publicID)
		a.cache.evict(obj)
		return nil
	}

	composites, err := a.compositeRows(ctx, typ, whereOID(oid))
	if err != nil {
		return fail(ErrCodeDriver, err)
	}

	stmts := []string{sqlstmt.Delete(typ.Table(), whereOID(oid))}
	if _, ok := obj.(schema.PublicObject); ok {
		stmts = append(stmts, sqlstmt.Delete(publicObjectTable, whereOID(oid)))
	}
	stmts = append(stmts, sqlstmt.Delete(objectTable, whereOID(oid)))
	for _, stmt := range stmts {
		if err := a.execute(ctx, "remove", stmt); err != nil {
			return fail(ErrCodeDriver, err)
		}
	}
	a.deleteRows(ctx, composites)

	a.cache.evict(obj)
	if po, ok := obj.(schema.PublicObject); ok && a.objects != nil {
		a.objects.Unregister(po)
	}
	return nil
}

type compositeRef struct {
	column string
	typ    *schema.Type
}

// compositeRefs lists the reference columns of the table-backed composites
// of t.
func compositeRefs(t *schema.Type, path *attributePath) []compositeRef {
	var out []compositeRef
	for _, f := range t.Fields() {
		if f.Kind != schema.KindObject {
			continue
		}
		if f.HasHint(schema.HintTable) {
			out = append(out, compositeRef{column: path.column(f.Name) + oidSuffix, typ: f.Nested()})
			continue
		}
		_ = path.push(f.Name)
		out = append(out, compositeRefs(f.Nested(), path)...)
		_ = path.pop()
	}
	return out
}

// compositeRows collects the composite rows referenced by the rows of t
// matching where, including composites referenced by those rows.
func (a *Archive) compositeRows(ctx context.Context, t *schema.Type, where *sqlstmt.Attributes) ([]rowRef, error) {
	refs := compositeRefs(t, &attributePath{})
	if len(refs) == 0 {
		return nil, nil
	}

	cols := make([]string, len(refs))
	for i, ref := range refs {
		cols[i] = a.driver.ConvertColumnName(ref.column)
	}
	if err := a.beginQuery(ctx, sqlstmt.Select(strings.Join(cols, ","), t.Table(), where)); err != nil {
		return nil, err
	}

	var found []rowRef
	for {
		ok, err := a.driver.FetchRow()
		if err != nil {
			a.endQuery()
			return nil, err
		}
		if !ok {
			break
		}
		for i, ref := range refs {
			raw := a.driver.RowField(i)
			if raw == nil {
				continue
			}
			oid, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
			if err != nil {
				continue
			}
			found = append(found, rowRef{typ: ref.typ, oid: oid})
		}
	}
	a.endQuery()

	out := found
	for _, r := range found {
		nested, err := a.compositeRows(ctx, r.typ, whereOID(r.oid))
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}
