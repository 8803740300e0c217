package archive

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/dbarchive/internal/dbdriver"
	"github.com/roach88/dbarchive/internal/schema"
	"github.com/roach88/dbarchive/internal/sqlstmt"
)

// Table and column names shared by all object types.
const (
	objectTable       = "Object"
	publicObjectTable = "PublicObject"
	metaTable         = "Meta"

	oidColumn          = "_oid"
	parentOIDColumn    = "_parent_oid"
	lastModifiedColumn = "_last_modified"
	timestampColumn    = "_timestamp"
	publicIDAttribute  = "publicID"

	schemaVersionKey = "Schema-Version"
)

// Version is a database schema version.
type Version struct {
	Major int
	Minor int
}

// CurrentVersion is the schema version written by CreateTables and the
// newest version an archive accepts by default.
var CurrentVersion = Version{Major: 1, Minor: 0}

// ParseVersion parses "major[.minor]".
func ParseVersion(s string) (Version, error) {
	majorText, minorText, hasMinor := strings.Cut(strings.TrimSpace(s), ".")
	major, err := strconv.Atoi(majorText)
	if err != nil {
		return Version{}, fmt.Errorf("invalid schema version %q", s)
	}
	v := Version{Major: major}
	if hasMinor {
		if v.Minor, err = strconv.Atoi(minorText); err != nil {
			return Version{}, fmt.Errorf("invalid schema version %q", s)
		}
	}
	return v, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare returns -1, 0 or 1 if v is older, equal or newer than o.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		if v.Major < o.Major {
			return -1
		}
		return 1
	case v.Minor < o.Minor:
		return -1
	case v.Minor > o.Minor:
		return 1
	}
	return 0
}

// Archive maps objects described by a schema registry onto relational
// tables.
//
// Thread-safety: Archive is NOT safe for concurrent use. The driver carries
// one result set at a time, so callers must serialize access. Independent
// archives may be used concurrently.
type Archive struct {
	driver  dbdriver.Driver
	types   *schema.Registry
	objects *schema.ObjectRegistry
	logger  *slog.Logger

	batchSize   int
	cacheLookup bool
	supported   Version
	version     Version

	cache *identityCache

	// active is the cursor owning the driver's result set, if any.
	active *Cursor
}

func newArchive(types *schema.Registry, opts []Option) *Archive {
	a := &Archive{
		types:     types,
		logger:    slog.Default(),
		batchSize: DefaultBatchSize,
		supported: CurrentVersion,
		cache:     newIdentityCache(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Open connects to the data source URL and opens an archive on it.
func Open(ctx context.Context, source string, types *schema.Registry, opts ...Option) (*Archive, error) {
	a := newArchive(types, opts)
	drv, err := dbdriver.Open(ctx, source, dbdriver.WithLogger(a.logger))
	if err != nil {
		return nil, &Error{Code: ErrCodeDriver, Op: "open", Err: err}
	}
	if err := a.attach(ctx, drv); err != nil {
		return nil, err
	}
	return a, nil
}

// New opens an archive on a connected driver. The archive takes ownership of
// the driver and disconnects it on Close or when the stored schema version is
// not supported.
func New(ctx context.Context, driver dbdriver.Driver, types *schema.Registry, opts ...Option) (*Archive, error) {
	a := newArchive(types, opts)
	if err := a.attach(ctx, driver); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archive) attach(ctx context.Context, driver dbdriver.Driver) error {
	if !driver.IsConnected() {
		return &Error{Code: ErrCodeDriver, Op: "open", Err: dbdriver.ErrNotConnected}
	}
	a.driver = driver

	v, err := a.readVersion(ctx)
	if err != nil {
		a.Close()
		return err
	}
	a.version = v
	if v.Compare(a.supported) > 0 {
		a.logger.Warn("schema version not supported", "version", v.String(), "supported", a.supported.String())
		a.Close()
		return &Error{
			Code: ErrCodeSchemaVersion,
			Op:   "open",
			Err:  fmt.Errorf("database schema version %s is newer than supported version %s", v, a.supported),
		}
	}
	a.logger.Info("archive opened", "schema_version", v.String())
	return nil
}

func (a *Archive) readVersion(ctx context.Context) (Version, error) {
	where := sqlstmt.NewAttributes()
	where.SetValue("name", sqlstmt.Quote(schemaVersionKey))
	if err := a.beginQuery(ctx, sqlstmt.Select("value", metaTable, where)); err != nil {
		a.logger.Warn("no schema version stored", "error", err)
		return Version{}, nil
	}
	defer a.endQuery()

	ok, err := a.driver.FetchRow()
	if err != nil {
		return Version{}, &Error{Code: ErrCodeDriver, Op: "open", Err: err}
	}
	if !ok {
		a.logger.Warn("no schema version stored")
		return Version{}, nil
	}
	v, err := ParseVersion(string(a.driver.RowField(0)))
	if err != nil {
		return Version{}, &Error{Code: ErrCodeSchemaVersion, Op: "open", Err: err}
	}
	return v, nil
}

// Close releases the open cursor, forgets all cached identifiers and
// disconnects the driver.
func (a *Archive) Close() error {
	if a.driver == nil {
		return nil
	}
	a.endQuery()
	a.cache.clear()
	if err := a.driver.Disconnect(); err != nil {
		return &Error{Code: ErrCodeDriver, Op: "close", Err: err}
	}
	return nil
}

// SchemaVersion returns the schema version found at open time, or the
// version written by CreateTables.
func (a *Archive) SchemaVersion() Version {
	return a.version
}

// Driver returns the underlying driver.
func (a *Archive) Driver() dbdriver.Driver {
	return a.driver
}

// Types returns the registry of archived types.
func (a *Archive) Types() *schema.Registry {
	return a.types
}

// CachedID returns the cached storage identifier of obj.
func (a *Archive) CachedID(obj schema.Object) (int64, bool) {
	return a.cache.get(obj)
}

// RegisterID records the storage identifier of obj. The entry is dropped
// when obj is destroyed.
func (a *Archive) RegisterID(obj schema.Object, id int64) {
	a.cache.register(obj, id)
}

// EvictID forgets the storage identifier of obj.
func (a *Archive) EvictID(obj schema.Object) {
	a.cache.evict(obj)
}

// CacheSize returns the number of cached identifiers.
func (a *Archive) CacheSize() int {
	return a.cache.size()
}

// beginQuery starts a query, releasing the result set of any open cursor.
func (a *Archive) beginQuery(ctx context.Context, query string) error {
	a.releaseActive()
	return a.driver.BeginQuery(ctx, query)
}

func (a *Archive) endQuery() {
	a.releaseActive()
	a.driver.EndQuery()
}

func (a *Archive) releaseActive() {
	if a.active != nil {
		a.active.release(errCursorSuperseded)
		a.active = nil
	}
}

// execute runs a statement, mapping failures to DRIVER errors.
func (a *Archive) execute(ctx context.Context, op string, query string) error {
	if err := a.driver.Execute(ctx, query); err != nil {
		return &Error{Code: ErrCodeDriver, Op: op, Err: err}
	}
	return nil
}

// queryInt runs a query returning a single integer column and yields the
// value of the first row.
func (a *Archive) queryInt(ctx context.Context, query string) (int64, bool, error) {
	if err := a.beginQuery(ctx, query); err != nil {
		return 0, false, err
	}
	defer a.endQuery()

	ok, err := a.driver.FetchRow()
	if err != nil || !ok {
		return 0, false, err
	}
	raw := a.driver.RowField(0)
	if raw == nil {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid integer %q: %w", raw, err)
	}
	return n, true, nil
}

func oidValue(oid int64) string {
	return strconv.FormatInt(oid, 10)
}

// whereOID renders "_oid = oid".
func whereOID(oid int64) *sqlstmt.Attributes {
	where := sqlstmt.NewAttributes()
	where.SetValue(oidColumn, oidValue(oid))
	return where
}
