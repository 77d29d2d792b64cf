package domain

import (
	"fmt"
	"regexp"
)

// Kind selects which class of Wikidata entities a query targets.
type Kind string

const (
	// KindItem targets items (Q-entities).
	KindItem Kind = "item"
	// KindProperty targets properties (P-entities).
	KindProperty Kind = "property"
)

// ParseKind validates a raw entity kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindItem:
		return KindItem, nil
	case KindProperty:
		return KindProperty, nil
	default:
		return "", fmt.Errorf("%w: unknown entity kind %q", ErrInvalidRequest, s)
	}
}

var entityIDPattern = regexp.MustCompile(`^[QP]\d+$`)

// IsEntityID reports whether s is a well-formed QID or PID.
func IsEntityID(s string) bool {
	return entityIDPattern.MatchString(s)
}

// CompareEntityID orders entity ids deterministically: properties before
// items, then by numeric value. Used as the final tie-breaker in result
// ordering so identical queries always produce identical sequences.
func CompareEntityID(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) > 0 && len(b) > 0 && a[0] != b[0] {
		if a[0] < b[0] {
			return -1
		}
		return 1
	}
	// Same prefix: a shorter digit run is the smaller number.
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	if a < b {
		return -1
	}
	return 1
}
