package archive

import (
	"log/slog"

	"github.com/roach88/dbarchive/internal/schema"
)

// DefaultBatchSize is the number of objects a tree operation writes per
// transaction.
const DefaultBatchSize = 200

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithBatchSize sets the number of objects a tree operation commits at once.
// Zero or less disables batching.
func WithBatchSize(n int) Option {
	return func(a *Archive) {
		a.batchSize = n
	}
}

// WithPublicObjectCacheLookup makes cursors return resident instances from
// the object registry instead of constructing new ones.
func WithPublicObjectCacheLookup(enabled bool) Option {
	return func(a *Archive) {
		a.cacheLookup = enabled
	}
}

// WithObjectRegistry sets the registry of live public objects. Objects read
// or written by the archive are registered in it.
func WithObjectRegistry(reg *schema.ObjectRegistry) Option {
	return func(a *Archive) {
		a.objects = reg
	}
}

// WithSupportedVersion overrides the newest schema version the archive
// accepts. Mainly useful for tests.
func WithSupportedVersion(v Version) Option {
	return func(a *Archive) {
		a.supported = v
	}
}
