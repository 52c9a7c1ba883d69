// Package store provides durable SQLite storage for ingested datasets and
// analysis run provenance.
//
// Each ingested dataset gets its own data table (ds_<name>) with columns
// typed from the dataset's kinds, plus a row in the datasets catalog
// recording header, kinds and fingerprint. The runs table records every
// analysis execution with the spec hash and the dataset fingerprint it saw,
// so a result can always be traced back to its exact inputs.
//
// SQLite is opened in WAL mode with a single-writer connection pool;
// concurrent readers are safe, concurrent writers are serialized.
package store
