package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/dbarchive/internal/dbdriver"
	"github.com/roach88/dbarchive/internal/schema"
	"github.com/roach88/dbarchive/internal/sqlstmt"
)

type columnDef struct {
	name string
	typ  dbdriver.ColumnType
}

// columns lists the attribute columns of t with their storage class.
// Table-backed composites encountered on the way are passed to table.
func columns(t *schema.Type, path *attributePath, table func(*schema.Type)) []columnDef {
	var out []columnDef
	for _, f := range t.Fields() {
		col := path.column(f.Name)
		switch {
		case f.Kind == schema.KindCollection:
			continue
		case f.Kind == schema.KindObject && f.HasHint(schema.HintTable):
			table(f.Nested())
			out = append(out, columnDef{col + oidSuffix, dbdriver.ColumnInt})
		case f.Kind == schema.KindObject:
			if f.Optional {
				out = append(out, columnDef{col + usedSuffix, dbdriver.ColumnBool})
			}
			_ = path.push(f.Name)
			out = append(out, columns(f.Nested(), path, table)...)
			_ = path.pop()
		default:
			out = append(out, columnDef{col, columnType(f.Kind)})
			if f.HasHint(schema.HintSplitTime) {
				out = append(out, columnDef{col + msSuffix, dbdriver.ColumnInt})
			}
		}
	}
	return out
}

func columnType(k schema.Kind) dbdriver.ColumnType {
	switch k {
	case schema.KindInt:
		return dbdriver.ColumnInt
	case schema.KindFloat:
		return dbdriver.ColumnFloat
	case schema.KindBool:
		return dbdriver.ColumnBool
	case schema.KindTime:
		return dbdriver.ColumnTime
	default:
		return dbdriver.ColumnText
	}
}

// GenerateDDL returns the statements creating the base tables, one table per
// registered type and per table-backed composite, and the schema version
// entry. Statements are idempotent.
func GenerateDDL(dialect *dbdriver.Dialect, types *schema.Registry, version Version) []string {
	intType := dialect.ColumnType(dbdriver.ColumnInt)
	timeType := dialect.ColumnType(dbdriver.ColumnTime)
	textType := dialect.ColumnType(dbdriver.ColumnText)
	cascade := fmt.Sprintf("FOREIGN KEY(%s) REFERENCES %s(%s) ON DELETE CASCADE", oidColumn, objectTable, oidColumn)

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s(name %s NOT NULL PRIMARY KEY, value %s NOT NULL)",
			metaTable, textType, textType),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s(%s %s, %s %s NOT NULL DEFAULT %s)",
			objectTable, oidColumn, dialect.Serial, timestampColumn, timeType, dialect.Now),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s(%s %s NOT NULL PRIMARY KEY, %s %s NOT NULL UNIQUE, %s)",
			publicObjectTable, oidColumn, intType, dbdriver.ConvertColumnName(publicIDAttribute), textType, cascade),
	}

	render := func(defs []columnDef) []string {
		out := make([]string, len(defs))
		for i, d := range defs {
			out[i] = dbdriver.ConvertColumnName(d.name) + " " + dialect.ColumnType(d.typ)
		}
		return out
	}

	seen := make(map[string]bool)
	var composite func(t *schema.Type)
	composite = func(t *schema.Type) {
		if seen[t.Table()] {
			return
		}
		seen[t.Table()] = true
		defs := columns(t, &attributePath{}, composite)
		parts := append([]string{oidColumn + " " + dialect.Serial}, render(defs)...)
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s(%s)", t.Table(), strings.Join(parts, ", ")))
	}

	for _, t := range types.Types() {
		defs := columns(t, &attributePath{}, composite)
		parts := []string{
			oidColumn + " " + intType + " NOT NULL PRIMARY KEY",
			parentOIDColumn + " " + intType,
			fmt.Sprintf("%s %s NOT NULL DEFAULT %s", lastModifiedColumn, timeType, dialect.Now),
		}
		parts = append(parts, render(defs)...)
		parts = append(parts, cascade)
		stmts = append(stmts,
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s(%s)", t.Table(), strings.Join(parts, ", ")),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s%s ON %s(%s)", t.Table(), parentOIDColumn, t.Table(), parentOIDColumn),
		)
	}

	where := sqlstmt.NewAttributes()
	where.SetValue("name", sqlstmt.Quote(schemaVersionKey))
	meta := sqlstmt.NewAttributes()
	meta.SetValue("name", sqlstmt.Quote(schemaVersionKey))
	meta.SetValue("value", sqlstmt.Quote(version.String()))
	stmts = append(stmts,
		sqlstmt.Delete(metaTable, where),
		sqlstmt.Insert(metaTable, meta),
	)
	return stmts
}

// DDL returns the statements CreateTables executes.
func (a *Archive) DDL() []string {
	return GenerateDDL(a.driver.Dialect(), a.types, a.supported)
}

// CreateTables creates all tables of the registered types and records the
// supported schema version.
func (a *Archive) CreateTables(ctx context.Context) error {
	if a.driver.Dialect() == nil {
		return &Error{Code: ErrCodeDriver, Op: "create tables", Err: dbdriver.ErrNotConnected}
	}
	for _, stmt := range a.DDL() {
		if err := a.execute(ctx, "create tables", stmt); err != nil {
			return err
		}
	}
	a.version = a.supported
	a.logger.Info("tables created", "types", len(a.types.Types()), "schema_version", a.version.String())
	return nil
}
