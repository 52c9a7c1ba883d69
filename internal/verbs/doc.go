// Package verbs implements the relational transforms over tables: column
// selection, row filtering, computed columns, sorting, grouping with
// aggregation, joins, and the two pivots. Every verb is a pure function
// from tables to a new table; inputs are never mutated.
//
// Determinism rules shared by all verbs: sorts are stable, group order is
// first appearance in the input, and joins emit right-side matches in
// right-row order. The same input always produces the same output bytes.
package verbs
