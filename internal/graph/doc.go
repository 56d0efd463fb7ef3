// Package graph answers questions about the embedding graph: the directed
// graph whose edges run from a harness to every harness it embeds as a
// sub-assembly.
//
// The graph must stay acyclic. WouldCreateCycle gates each new edge;
// AnalyzeCycles audits a whole stored graph for cycles that slipped in
// through imports or legacy data. FindParents walks edges backwards.
//
// Nothing here caches: every call reads the edges it needs from the
// supplied source, which is normally bound to the caller's transaction.
package graph
