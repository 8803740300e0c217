// Package dbdriver provides the stateful database connection the archive
// talks to: one connection, at most one result set in flight, optional
// explicit transaction.
//
// Statements are plain SQL text. Row fields are exposed as raw bytes so the
// archive can apply its own textual decoding independent of the backend.
package dbdriver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors.
var (
	ErrNotConnected = errors.New("not connected")
	ErrNoQuery      = errors.New("no query in progress")
	ErrNoRow        = errors.New("no current row")
)

// Driver is a single stateful database connection.
//
// Thread-safety: Driver implementations are NOT safe for concurrent use. The
// query state (BeginQuery/FetchRow/EndQuery) is shared by all callers.
type Driver interface {
	// Connect opens the connection described by source.
	Connect(ctx context.Context, source string) error
	// Disconnect releases the connection. Safe to call when not connected.
	Disconnect() error
	IsConnected() bool

	// Start opens a transaction; subsequent statements run inside it until
	// Commit or Rollback.
	Start(ctx context.Context) error
	Commit() error
	Rollback() error

	// Execute runs a statement that returns no rows.
	Execute(ctx context.Context, query string) error

	// BeginQuery starts a query, ending any query still in progress.
	BeginQuery(ctx context.Context, query string) error
	// EndQuery releases the current result set. Safe to call at any time.
	EndQuery()
	// FetchRow advances to the next row. It returns false at the end of the
	// result set.
	FetchRow() (bool, error)
	FieldCount() int
	// FindColumn returns the index of a result column, matched case
	// insensitively, or -1.
	FindColumn(name string) int
	// RowField returns the raw text of field i of the current row; nil for
	// SQL NULL.
	RowField(i int) []byte
	RowFieldSize(i int) int

	// LastInsertID returns the key generated by the last INSERT into table.
	LastInsertID(ctx context.Context, table string) (int64, error)

	// DefaultValue is the literal requesting a column's default on insert.
	DefaultValue() string
	TimeToString(t time.Time) string
	StringToTime(s string) (time.Time, error)
	// ConvertColumnName maps an attribute column name to its stored name.
	ConvertColumnName(name string) string

	Dialect() *Dialect
}

// Error describes a failed driver operation. Query holds the failing SQL
// text, if any.
type Error struct {
	Op    string
	Query string
	Err   error
}

func (e *Error) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("%s: %v (query: %s)", e.Op, e.Err, e.Query)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// LastQuery extracts the SQL text of a failed statement from err, if any.
func LastQuery(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Query
	}
	return ""
}
