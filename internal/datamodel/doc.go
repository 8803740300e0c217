// Package datamodel defines the seismological object types the dbarchive
// command stores: event parameters with their picks, origins and events.
//
// Every type is described explicitly through schema field descriptors and
// registered by Registry. Composite attributes (quantities, creation info,
// stream identifiers) are flattened into the owner's table; OriginQuality is
// kept in a table of its own.
package datamodel
