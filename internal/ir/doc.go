// Package ir defines the value model shared by tables, pipelines, and the
// store: the sealed Value interface for table cells, RFC 8785 canonical JSON
// serialization, and content-addressed hashing for fingerprints and run
// provenance.
package ir
