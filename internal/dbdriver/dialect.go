package dbdriver

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// ColumnType is the storage class of a generated column.
type ColumnType int

const (
	ColumnInt ColumnType = iota
	ColumnFloat
	ColumnBool
	ColumnText
	ColumnTime
)

// Dialect describes the backend specific parts of a connection: how to reach
// it, how to read generated keys and which column types DDL uses.
type Dialect struct {
	// Scheme is the data source URL scheme selecting this dialect.
	Scheme string
	// SQLDriver is the database/sql driver name.
	SQLDriver string
	// Default is the literal requesting a column default on insert.
	Default string
	// Serial declares an auto-incrementing primary key column.
	Serial string
	// Now is the expression for the current timestamp in column defaults.
	Now string

	types   map[ColumnType]string
	pragmas []string
	dsn     func(rest string) string
	lastID  func(ctx context.Context, q querier, res sql.Result, table string) (int64, error)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ColumnType returns the DDL type of t.
func (d *Dialect) ColumnType(t ColumnType) string {
	return d.types[t]
}

func resultLastID(_ context.Context, _ querier, res sql.Result, table string) (int64, error) {
	if res == nil {
		return 0, fmt.Errorf("no insert into %s recorded", table)
	}
	return res.LastInsertId()
}

func sequenceLastID(ctx context.Context, q querier, _ sql.Result, table string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, "SELECT currval(pg_get_serial_sequence($1, '_oid'))", strings.ToLower(table)).Scan(&id)
	return id, err
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Timestamps are declared TEXT on sqlite: both drivers convert DATETIME
// columns to time.Time on their own, and mattn turns unparsable values into
// the zero time instead of reporting them.
var sqliteTypes = map[ColumnType]string{
	ColumnInt:   "INTEGER",
	ColumnFloat: "DOUBLE",
	ColumnBool:  "INTEGER",
	ColumnText:  "TEXT",
	ColumnTime:  "TEXT",
}

var dialects = map[string]*Dialect{}

// Register makes d available under its scheme.
func Register(d *Dialect) {
	dialects[d.Scheme] = d
}

// Lookup returns the dialect registered for scheme.
func Lookup(scheme string) (*Dialect, bool) {
	d, ok := dialects[scheme]
	return d, ok
}

// Schemes lists the registered schemes in sorted order.
func Schemes() []string {
	out := make([]string, 0, len(dialects))
	for s := range dialects {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func init() {
	// mattn/go-sqlite3 (cgo)
	Register(&Dialect{
		Scheme:    "sqlite3",
		SQLDriver: "sqlite3",
		Default:   "NULL",
		Serial:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		Now:       "CURRENT_TIMESTAMP",
		types:     sqliteTypes,
		pragmas:   sqlitePragmas,
		dsn:       func(rest string) string { return rest },
		lastID:    resultLastID,
	})

	// modernc.org/sqlite (pure Go)
	Register(&Dialect{
		Scheme:    "sqlite",
		SQLDriver: "sqlite",
		Default:   "NULL",
		Serial:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		Now:       "CURRENT_TIMESTAMP",
		types:     sqliteTypes,
		pragmas:   sqlitePragmas,
		dsn:       func(rest string) string { return rest },
		lastID:    resultLastID,
	})

	postgres := &Dialect{
		Scheme:    "postgresql",
		SQLDriver: "pgx",
		Default:   "DEFAULT",
		Serial:    "BIGSERIAL PRIMARY KEY",
		Now:       "CURRENT_TIMESTAMP",
		types: map[ColumnType]string{
			ColumnInt:   "BIGINT",
			ColumnFloat: "DOUBLE PRECISION",
			ColumnBool:  "BOOLEAN",
			ColumnText:  "TEXT",
			ColumnTime:  "TIMESTAMP",
		},
		dsn:    func(rest string) string { return "postgresql://" + rest },
		lastID: sequenceLastID,
	}
	Register(postgres)
	alias := *postgres
	alias.Scheme = "postgres"
	Register(&alias)
}

// ParseSource splits a data source URL into its dialect and the database/sql
// DSN. A source without a scheme is a sqlite3 file path.
func ParseSource(source string) (*Dialect, string, error) {
	scheme, rest, ok := strings.Cut(source, "://")
	if !ok {
		scheme, rest = "sqlite3", source
	}
	d, found := Lookup(scheme)
	if !found {
		return nil, "", fmt.Errorf("unsupported data source scheme %q (supported: %s)", scheme, strings.Join(Schemes(), ", "))
	}
	if rest == "" {
		return nil, "", fmt.Errorf("empty data source for scheme %q", scheme)
	}
	return d, d.dsn(rest), nil
}
