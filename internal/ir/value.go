package ir

import (
	"slices"
	"strconv"
	"unicode/utf16"
)

// Value is a sealed interface representing the cell types a table can hold.
// Only Null, String, Int, Float, and Bool implement it.
//
// Float is part of the model: expression measures and p-values are inherently
// fractional. Determinism is preserved by canonical float formatting
// (FormatFloat) rather than by banning floats.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents a missing cell (NA in the source files).
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a text cell.
type String string

func (String) value() {}

// Int represents an integer cell. Always int64.
type Int int64

func (Int) value() {}

// Float represents a floating-point cell.
type Float float64

func (Float) value() {}

// Bool represents a boolean cell.
type Bool bool

func (Bool) value() {}

// Object represents a map of string keys to Values.
// Used for canonical snapshots (harness, provenance), not for table cells.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// Array represents an ordered list of Values.
// Used for canonical snapshots, not for table cells.
type Array []Value

func (Array) value() {}

// IsNull reports whether v is the missing value.
func IsNull(v Value) bool {
	_, ok := v.(Null)
	return ok
}

// FormatFloat renders a float in the canonical form used everywhere a float
// becomes text: shortest representation that round-trips (strconv 'g', -1).
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// AsFloat returns the numeric value of an Int or Float cell.
// The second return is false for every other variant.
func AsFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Float:
		return float64(val), true
	default:
		return 0, false
	}
}

// Text renders a scalar Value the way WriteDelim and the table renderer do:
// Null → "NA", canonical float formatting, "true"/"false" for bools.
func Text(v Value) string {
	switch val := v.(type) {
	case Null:
		return "NA"
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return FormatFloat(float64(val))
	case Bool:
		return strconv.FormatBool(bool(val))
	default:
		return ""
	}
}

// Compare imposes a total order over scalar Values for sorting:
// Null < Bool < numeric (Int and Float compared as numbers) < String.
// Bools order false < true. Returns -1, 0, or +1.
//
// Arrange relies on this order being total; Null sorting first here lets
// callers place missing values last by reversing the rank.
func Compare(a, b Value) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case Null:
		return 0
	case Bool:
		bv := b.(Bool)
		switch {
		case !bool(av) && bool(bv):
			return -1
		case bool(av) && !bool(bv):
			return 1
		default:
			return 0
		}
	case Int, Float:
		fa, _ := AsFloat(a)
		fb, _ := AsFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case String:
		bv := b.(String)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

// rank buckets variants for cross-type comparison. Int and Float share a
// bucket so 2 == 2.0 when sorting mixed numeric columns.
func rank(v Value) int {
	switch v.(type) {
	case Null:
		return 0
	case Bool:
		return 1
	case Int, Float:
		return 2
	case String:
		return 3
	default:
		return 4
	}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 which produces a different order for some
// inputs, so the comparison goes through utf16.Encode.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering as
// required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ua) < len(ub):
		return -1
	case len(ua) > len(ub):
		return 1
	default:
		return 0
	}
}
