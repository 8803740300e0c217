package dbdriver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/cases"
)

// SQLDriver implements Driver on top of database/sql. All statements run on
// one dedicated connection so that session settings and transactions apply
// uniformly.
type SQLDriver struct {
	logger *slog.Logger

	dialect *Dialect
	db      *sql.DB
	conn    *sql.Conn
	tx      *sql.Tx

	// Query state
	rows     *sql.Rows
	columns  map[string]int
	row      [][]byte
	hasRow   bool
	fold     cases.Caser
	lastExec sql.Result
}

var _ Driver = (*SQLDriver)(nil)

// Option configures an SQLDriver.
type Option func(*SQLDriver)

// WithLogger sets the logger used for statement tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(d *SQLDriver) {
		d.logger = logger
	}
}

// NewSQLDriver creates an unconnected driver.
func NewSQLDriver(opts ...Option) *SQLDriver {
	d := &SQLDriver{
		logger: slog.Default(),
		fold:   cases.Fold(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open creates a driver and connects it to source.
func Open(ctx context.Context, source string, opts ...Option) (*SQLDriver, error) {
	d := NewSQLDriver(opts...)
	if err := d.Connect(ctx, source); err != nil {
		return nil, err
	}
	return d, nil
}

// Connect implements Driver.
func (d *SQLDriver) Connect(ctx context.Context, source string) error {
	if d.IsConnected() {
		if err := d.Disconnect(); err != nil {
			return err
		}
	}

	dialect, dsn, err := ParseSource(source)
	if err != nil {
		return &Error{Op: "connect", Err: err}
	}

	db, err := sql.Open(dialect.SQLDriver, dsn)
	if err != nil {
		return &Error{Op: "connect", Err: fmt.Errorf("failed to open database: %w", err)}
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return &Error{Op: "connect", Err: fmt.Errorf("failed to connect to database: %w", err)}
	}
	for _, pragma := range dialect.pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			db.Close()
			return &Error{Op: "connect", Query: pragma, Err: err}
		}
	}

	d.dialect = dialect
	d.db = db
	d.conn = conn
	d.logger.Debug("connected", "scheme", dialect.Scheme)
	return nil
}

// Disconnect implements Driver.
func (d *SQLDriver) Disconnect() error {
	if d.db == nil {
		return nil
	}
	d.EndQuery()
	if d.tx != nil {
		_ = d.tx.Rollback()
		d.tx = nil
	}
	connErr := d.conn.Close()
	dbErr := d.db.Close()
	d.conn, d.db = nil, nil
	if connErr != nil {
		return &Error{Op: "disconnect", Err: connErr}
	}
	if dbErr != nil {
		return &Error{Op: "disconnect", Err: dbErr}
	}
	return nil
}

// IsConnected implements Driver.
func (d *SQLDriver) IsConnected() bool {
	return d.conn != nil
}

// Start implements Driver.
func (d *SQLDriver) Start(ctx context.Context) error {
	if !d.IsConnected() {
		return &Error{Op: "start", Err: ErrNotConnected}
	}
	if d.tx != nil {
		return &Error{Op: "start", Err: fmt.Errorf("transaction already active")}
	}
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Op: "start", Err: err}
	}
	d.tx = tx
	return nil
}

// Commit implements Driver.
func (d *SQLDriver) Commit() error {
	if d.tx == nil {
		return &Error{Op: "commit", Err: fmt.Errorf("no active transaction")}
	}
	d.EndQuery()
	err := d.tx.Commit()
	d.tx = nil
	if err != nil {
		return &Error{Op: "commit", Err: err}
	}
	return nil
}

// Rollback implements Driver.
func (d *SQLDriver) Rollback() error {
	if d.tx == nil {
		return nil
	}
	d.EndQuery()
	err := d.tx.Rollback()
	d.tx = nil
	if err != nil {
		return &Error{Op: "rollback", Err: err}
	}
	return nil
}

type execQuerier interface {
	querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// target returns the active transaction or the plain connection.
func (d *SQLDriver) target() execQuerier {
	if d.tx != nil {
		return d.tx
	}
	return d.conn
}

// Execute implements Driver.
func (d *SQLDriver) Execute(ctx context.Context, query string) error {
	if !d.IsConnected() {
		return &Error{Op: "execute", Query: query, Err: ErrNotConnected}
	}
	d.logger.Debug("execute", "sql", query)
	res, err := d.target().ExecContext(ctx, query)
	if err != nil {
		return &Error{Op: "execute", Query: query, Err: err}
	}
	d.lastExec = res
	return nil
}

// BeginQuery implements Driver.
func (d *SQLDriver) BeginQuery(ctx context.Context, query string) error {
	if !d.IsConnected() {
		return &Error{Op: "query", Query: query, Err: ErrNotConnected}
	}
	d.EndQuery()

	d.logger.Debug("query", "sql", query)
	rows, err := d.target().QueryContext(ctx, query)
	if err != nil {
		return &Error{Op: "query", Query: query, Err: err}
	}
	names, err := rows.Columns()
	if err != nil {
		rows.Close()
		return &Error{Op: "query", Query: query, Err: err}
	}

	d.rows = rows
	d.columns = make(map[string]int, len(names))
	for i, name := range names {
		key := d.fold.String(name)
		if _, dup := d.columns[key]; !dup {
			d.columns[key] = i
		}
	}
	d.row = make([][]byte, len(names))
	d.hasRow = false
	return nil
}

// EndQuery implements Driver.
func (d *SQLDriver) EndQuery() {
	if d.rows == nil {
		return
	}
	_ = d.rows.Close()
	d.rows = nil
	d.columns = nil
	d.row = nil
	d.hasRow = false
}

// FetchRow implements Driver.
func (d *SQLDriver) FetchRow() (bool, error) {
	if d.rows == nil {
		return false, &Error{Op: "fetch", Err: ErrNoQuery}
	}
	if !d.rows.Next() {
		d.hasRow = false
		if err := d.rows.Err(); err != nil {
			return false, &Error{Op: "fetch", Err: err}
		}
		return false, nil
	}

	dest := make([]any, len(d.row))
	for i := range d.row {
		d.row[i] = nil
		dest[i] = &d.row[i]
	}
	if err := d.rows.Scan(dest...); err != nil {
		d.hasRow = false
		return false, &Error{Op: "fetch", Err: err}
	}
	d.hasRow = true
	return true, nil
}

// FieldCount implements Driver.
func (d *SQLDriver) FieldCount() int {
	return len(d.row)
}

// FindColumn implements Driver.
func (d *SQLDriver) FindColumn(name string) int {
	if i, ok := d.columns[d.fold.String(name)]; ok {
		return i
	}
	return -1
}

// RowField implements Driver.
func (d *SQLDriver) RowField(i int) []byte {
	if !d.hasRow || i < 0 || i >= len(d.row) {
		return nil
	}
	return d.row[i]
}

// RowFieldSize implements Driver.
func (d *SQLDriver) RowFieldSize(i int) int {
	return len(d.RowField(i))
}

// LastInsertID implements Driver.
func (d *SQLDriver) LastInsertID(ctx context.Context, table string) (int64, error) {
	if !d.IsConnected() {
		return 0, &Error{Op: "last insert id", Err: ErrNotConnected}
	}
	id, err := d.dialect.lastID(ctx, d.target(), d.lastExec, table)
	if err != nil {
		return 0, &Error{Op: "last insert id", Err: fmt.Errorf("%s: %w", table, err)}
	}
	return id, nil
}

// DefaultValue implements Driver.
func (d *SQLDriver) DefaultValue() string {
	if d.dialect == nil {
		return "NULL"
	}
	return d.dialect.Default
}

// TimeToString implements Driver.
func (d *SQLDriver) TimeToString(t time.Time) string {
	return FormatTime(t)
}

// StringToTime implements Driver.
func (d *SQLDriver) StringToTime(s string) (time.Time, error) {
	return ParseTime(s)
}

// ConvertColumnName implements Driver.
func (d *SQLDriver) ConvertColumnName(name string) string {
	return ConvertColumnName(name)
}

// Dialect implements Driver.
func (d *SQLDriver) Dialect() *Dialect {
	return d.dialect
}
