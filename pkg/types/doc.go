// Package types defines the record model, the store interfaces, and the
// structured error kinds shared by every roadmap component.
//
// Records live in markdown tables. A Record carries the typed field values
// parsed from one row plus the verbatim row and its line position, so a
// changed record can be written back without disturbing anything else in
// the file.
package types
