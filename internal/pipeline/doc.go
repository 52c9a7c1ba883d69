// Package pipeline defines the analysis IR: the sealed Step, Predicate, and
// Expr interfaces that a compiled analysis is made of, and the Analysis
// container tying steps to a dataset, an output, and an optional
// contingency test.
//
// The IR is produced by the compiler (from CUE analysis specs) and consumed
// by two backends: the in-memory executor (internal/engine via
// internal/verbs) and the SQL compiler (internal/querysql) for the portable
// select/filter/join prefix.
package pipeline
