package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix enables
// future algorithm migration without colliding with old hashes.
const (
	DomainTable    = "tidyseq/table/v1"
	DomainAnalysis = "tidyseq/analysis/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TableFingerprint computes a content-addressed fingerprint for a table:
// header, column kinds, and every row, in order. The same data always
// fingerprints the same, so provenance records can tell whether an analysis
// ran against the dataset it claims.
func TableFingerprint(header []string, kinds []string, rows []Array) (string, error) {
	headerArr := make(Array, len(header))
	for i, h := range header {
		headerArr[i] = String(h)
	}
	kindArr := make(Array, len(kinds))
	for i, k := range kinds {
		kindArr[i] = String(k)
	}
	rowArr := make(Array, len(rows))
	for i, r := range rows {
		rowArr[i] = r
	}

	obj := Object{
		"header": headerArr,
		"kinds":  kindArr,
		"rows":   rowArr,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TableFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTable, canonical), nil
}

// AnalysisHash computes a content-addressed hash of a compiled analysis spec,
// given its canonical object form. Stored with each run so a provenance row
// pins the exact spec that produced it.
func AnalysisHash(spec Object) (string, error) {
	canonical, err := MarshalCanonical(spec)
	if err != nil {
		return "", fmt.Errorf("AnalysisHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainAnalysis, canonical), nil
}

// MustTableFingerprint is like TableFingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTableFingerprint(header []string, kinds []string, rows []Array) string {
	fp, err := TableFingerprint(header, kinds, rows)
	if err != nil {
		panic(err)
	}
	return fp
}
