// Package archive maps object trees described by a schema.Registry onto
// relational tables and back.
//
// STORAGE LAYOUT:
//
// Every stored object has a row in the Object table, which allocates its
// storage identifier (_oid). Public objects additionally have a row in
// PublicObject mapping the _oid to their public ID. The attributes live in
// one table per type, keyed by the same _oid and linked to the owner through
// _parent_oid. Composites are flattened into their owner's row using
// underscore-joined column names ("time_value"); composites marked as table
// backed get their own table and a "<name>_oid" reference column instead.
//
// Identity:
// Public objects are addressed by public ID. Other objects are addressed by
// their index attributes (natural key) within their parent. Identifiers
// resolved once are kept in an identity cache keyed by the object handle and
// dropped when the object is destroyed.
//
// Result sets:
// The driver carries exactly one result set. A Cursor owns it until it is
// exhausted or closed, and any other query on the archive releases it. Use
// GetObject, QueryObject or LoadChildren when composites stored in their
// own tables must be read as well.
//
// Errors are *Error values carrying an ErrorCode. Rows that cannot be read
// are skipped by cursors and logged.
package archive
