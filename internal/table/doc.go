// Package table implements the in-memory typed table that every transform
// operates on: an ordered header, per-column kinds, and rows of ir.Value
// cells, plus delimited-text reading (with type inference and NA handling)
// and writing.
package table
