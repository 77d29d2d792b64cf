package query

import (
	"strings"

	"github.com/semref/wdsearch/internal/domain/catalog"
	"github.com/semref/wdsearch/internal/domain/ranked"
)

// LangAll is the sentinel requesting every native partition at once.
const LangAll = "all"

// plan is the routing decision for one request. lang holds the
// normalized (lowercased, trimmed) requested code; downstream calls
// such as the translation source must use it, not the raw request value.
type plan struct {
	lang       string
	partitions []string
	translate  bool
	source     ranked.Source
}

// route applies the language decision table:
//   - "all"            → every native partition, no translation
//   - native code      → that single partition, text unmodified
//   - anything else    → translate once to the pivot, query the pivot partition
func route(cat catalog.Catalog, lang string) plan {
	lang = strings.ToLower(strings.TrimSpace(lang))

	switch {
	case lang == LangAll:
		return plan{lang: lang, partitions: cat.Native(), source: ranked.SourceNative}
	case cat.IsNative(lang):
		return plan{lang: lang, partitions: []string{lang}, source: ranked.SourceNative}
	default:
		return plan{lang: lang, partitions: []string{cat.Pivot()}, translate: true, source: ranked.SourceTranslated}
	}
}
