// Package catalog holds the process-wide language catalog: which languages
// have a dedicated vector partition and which fall back to translation.
// Constructed once at startup and safe for unsynchronized concurrent reads.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// Catalog is the immutable set of known languages.
type Catalog struct {
	native     []string
	nativeSet  map[string]struct{}
	fallback   []string
	pivot      string
	dimensions int
}

// New builds and validates a catalog.
// The native and fallback sets must be disjoint, the pivot language must be
// native, and dimensions must match the embedding model's output width.
func New(native, fallback []string, pivot string, dimensions int) (Catalog, error) {
	if len(native) == 0 {
		return Catalog{}, errors.New("at least one native partition language is required")
	}
	if dimensions <= 0 {
		return Catalog{}, fmt.Errorf("embedding dimensions must be positive, got %d", dimensions)
	}

	nativeSet := make(map[string]struct{}, len(native))
	nativeSorted := make([]string, 0, len(native))
	for _, code := range native {
		if code == "" {
			return Catalog{}, errors.New("empty language code in native set")
		}
		if _, dup := nativeSet[code]; dup {
			return Catalog{}, fmt.Errorf("duplicate native language %q", code)
		}
		nativeSet[code] = struct{}{}
		nativeSorted = append(nativeSorted, code)
	}
	sort.Strings(nativeSorted)

	fallbackSet := make(map[string]struct{}, len(fallback))
	fallbackSorted := make([]string, 0, len(fallback))
	for _, code := range fallback {
		if code == "" {
			return Catalog{}, errors.New("empty language code in fallback set")
		}
		if _, overlaps := nativeSet[code]; overlaps {
			return Catalog{}, fmt.Errorf("language %q appears in both native and fallback sets", code)
		}
		if _, dup := fallbackSet[code]; dup {
			continue
		}
		fallbackSet[code] = struct{}{}
		fallbackSorted = append(fallbackSorted, code)
	}
	sort.Strings(fallbackSorted)

	if _, ok := nativeSet[pivot]; !ok {
		return Catalog{}, fmt.Errorf("pivot language %q must have a native partition", pivot)
	}

	return Catalog{
		native:     nativeSorted,
		nativeSet:  nativeSet,
		fallback:   fallbackSorted,
		pivot:      pivot,
		dimensions: dimensions,
	}, nil
}

// Native returns the sorted native partition language codes.
func (c Catalog) Native() []string {
	out := make([]string, len(c.native))
	copy(out, c.native)
	return out
}

// Fallback returns the sorted fallback language codes.
func (c Catalog) Fallback() []string {
	out := make([]string, len(c.fallback))
	copy(out, c.fallback)
	return out
}

// Pivot returns the language queries are translated into on the fallback path.
func (c Catalog) Pivot() string { return c.pivot }

// Dimensions returns the embedding width every partition must use.
func (c Catalog) Dimensions() int { return c.dimensions }

// IsNative reports whether code has a dedicated partition.
func (c Catalog) IsNative(code string) bool {
	_, ok := c.nativeSet[code]
	return ok
}
