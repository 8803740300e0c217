package archive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/dbarchive/internal/dbdriver"
)

// ErrorCode categorizes archive errors.
type ErrorCode string

const (
	// ErrCodeDriver indicates a failed connection or statement. The wrapped
	// *dbdriver.Error carries the failing SQL text.
	ErrCodeDriver ErrorCode = "DRIVER"

	// ErrCodeSchemaVersion indicates the database schema is newer than
	// supported.
	ErrCodeSchemaVersion ErrorCode = "SCHEMA_VERSION"

	// ErrCodeConversion indicates stored text could not be parsed into the
	// attribute type, or an object could not be serialized.
	ErrCodeConversion ErrorCode = "CONVERSION"

	// ErrCodeDuplicatePublicID indicates a public ID is already persisted.
	ErrCodeDuplicatePublicID ErrorCode = "DUPLICATE_PUBLIC_ID"

	// ErrCodeMissingParent indicates the parent of an object could not be
	// resolved to a stored row.
	ErrCodeMissingParent ErrorCode = "MISSING_PARENT"

	// ErrCodeNotFound indicates the requested object is not stored.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodePrefixStack indicates unbalanced or too deeply nested
	// attribute prefixes.
	ErrCodePrefixStack ErrorCode = "PREFIX_STACK"

	// ErrCodeInvalidObject indicates the object cannot be handled at all,
	// e.g. a public object without public ID or an unregistered type.
	ErrCodeInvalidObject ErrorCode = "INVALID_OBJECT"
)

// Error is returned by archive operations.
type Error struct {
	Code ErrorCode

	// Op is the archive operation, e.g. "write".
	Op string

	// Type is the class name of the affected object, if any.
	Type string

	// PublicID identifies the affected object, if it has one.
	PublicID string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Type != "" {
		b.WriteString(" ")
		b.WriteString(e.Type)
	}
	if e.PublicID != "" {
		fmt.Fprintf(&b, " %q", e.PublicID)
	}
	fmt.Fprintf(&b, ": %s", e.Code)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the archive error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsDuplicate reports whether err is a duplicate public ID error.
func IsDuplicate(err error) bool {
	return CodeOf(err) == ErrCodeDuplicatePublicID
}

// IsConversion reports whether err is a conversion error.
func IsConversion(err error) bool {
	return CodeOf(err) == ErrCodeConversion
}

// IsMissingParent reports whether err is a missing parent error.
func IsMissingParent(err error) bool {
	return CodeOf(err) == ErrCodeMissingParent
}

// IsSchemaVersion reports whether err is a schema version error.
func IsSchemaVersion(err error) bool {
	return CodeOf(err) == ErrCodeSchemaVersion
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// LastQuery returns the SQL text of the statement that caused err, if any.
func LastQuery(err error) string {
	return dbdriver.LastQuery(err)
}

// TreeError reports the per-object failures of a tree operation.
type TreeError struct {
	Op     string
	Failed int
	Total  int
	Errs   []error
}

func (e *TreeError) Error() string {
	msg := fmt.Sprintf("%s: %d of %d objects failed", e.Op, e.Failed, e.Total)
	if len(e.Errs) > 0 {
		msg += ": " + e.Errs[0].Error()
	}
	return msg
}

func (e *TreeError) Unwrap() []error {
	return e.Errs
}

// failure wraps err into an *Error for obj unless it already is one.
func failure(op string, code ErrorCode, typ, publicID string, err error) error {
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Code: code, Op: op, Type: typ, PublicID: publicID, Err: err}
}
