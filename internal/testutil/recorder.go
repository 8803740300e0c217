package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/roach88/dbarchive/internal/dbdriver"
)

// RecordingDriver wraps a driver and records every statement and query it
// is given, in order.
type RecordingDriver struct {
	dbdriver.Driver

	mu         sync.Mutex
	statements []string
	commitErr  error
}

// NewRecordingDriver wraps drv.
func NewRecordingDriver(drv dbdriver.Driver) *RecordingDriver {
	return &RecordingDriver{Driver: drv}
}

func (r *RecordingDriver) record(query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = append(r.statements, query)
}

// Execute records query and passes it on.
func (r *RecordingDriver) Execute(ctx context.Context, query string) error {
	r.record(query)
	return r.Driver.Execute(ctx, query)
}

// BeginQuery records query and passes it on.
func (r *RecordingDriver) BeginQuery(ctx context.Context, query string) error {
	r.record(query)
	return r.Driver.BeginQuery(ctx, query)
}

// FailNextCommit makes the next Commit roll the transaction back and return
// err instead, the way a server reports a transaction it had to abort.
func (r *RecordingDriver) FailNextCommit(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitErr = err
}

// Commit passes on to the wrapped driver unless a failure is pending.
func (r *RecordingDriver) Commit() error {
	r.mu.Lock()
	err := r.commitErr
	r.commitErr = nil
	r.mu.Unlock()

	if err == nil {
		return r.Driver.Commit()
	}
	if rbErr := r.Driver.Rollback(); rbErr != nil {
		return rbErr
	}
	return err
}

// Statements returns a copy of the recorded statements.
func (r *RecordingDriver) Statements() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statements...)
}

// Matching returns the recorded statements starting with prefix, e.g.
// "INSERT INTO Origin".
func (r *RecordingDriver) Matching(prefix string) []string {
	var out []string
	for _, s := range r.Statements() {
		if strings.HasPrefix(s, prefix) {
			out = append(out, s)
		}
	}
	return out
}

// Reset forgets the recorded statements.
func (r *RecordingDriver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = nil
}
