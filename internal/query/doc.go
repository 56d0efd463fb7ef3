// Package query is a small filter IR for listing harnesses, compiled to
// parameterised SQL.
//
// Predicate is a sealed interface (marker method), so the compiler can
// switch exhaustively over Equals, In, Like and And. Field names are logical
// (e.g. "releaseState") and are mapped to columns through an explicit
// allow-list; an unknown field is a compile error, never interpolated.
// Values are always bound as ? parameters.
//
//	query.And{Predicates: []query.Predicate{
//	    query.Equals{Field: "active", Value: true},
//	    query.Like{Field: "name", Pattern: "Main%"},
//	}}
//
// compiles to
//
//	active_flag = ? AND name LIKE ? ESCAPE '\'
package query
