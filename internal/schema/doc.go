// Package schema describes persistable object types explicitly.
//
// Every persistable type registers a Type holding an ordered list of Field
// descriptors. A descriptor knows its column-facing name, its Kind, whether it
// is part of the natural key (Index) or nullable (Optional), storage hints, and
// typed accessors bound at registration time. The archive walks these
// descriptors instead of reflecting over Go structs.
//
// This package imports nothing internal. All other internal packages import
// schema; schema remains the foundational layer.
//
// Key constraints:
//   - Field names never contain the column path separator '_'
//   - Objects embed Base (or PublicBase) and are owned by at most one parent
//   - Identity is a process-unique Handle, never a memory address
//   - Destroy is the lifecycle hook: observers (caches, registries) forget the
//     object and its owned descendants when it is called
package schema
