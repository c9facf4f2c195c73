// Package table parses and rebuilds the pipe-delimited markdown rows that
// hold roadmap records.
//
// Parsing is driven by a Schema: a declarative list of columns, each with a
// field, a position, and optional formatter and parser overrides. Building
// rewrites only the cells of changed fields, so a row rebuilt with no
// changes is byte-identical to the original and every untouched cell keeps
// its padding.
package table
