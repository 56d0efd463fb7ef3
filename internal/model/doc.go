// Package model defines the harness revision records, the typed design
// document, revision labels, and canonical snapshot encoding.
//
// # Harness rows
//
// A Harness is one revision row of a wire-harness design. Rows are never
// deleted. A released row is never edited in place: an edit forks a new row
// whose PreviousRevisionID points back at the source.
//
// # Design documents
//
// The Document is decoded once at the boundary into tagged variants
// (Connector, Cable, Component, SubHarnessRef, Connection with a typed
// Endpoint). Fields the engine does not understand (diagram geometry,
// editor state) are kept verbatim and written back on encode, so a snapshot
// round-trips byte-for-byte through canonical JSON.
//
// # Canonical JSON
//
// Snapshots are digested with MarshalCanonical: object keys sorted by UTF-16
// code units, no HTML escaping, NFC-normalized strings. The digest uses
// SHA-256 with a domain prefix (see DocumentDigest).
package model
