package query

import (
	"sort"

	"github.com/semref/wdsearch/internal/domain"
	"github.com/semref/wdsearch/internal/domain/match"
	"github.com/semref/wdsearch/internal/domain/ranked"
)

// scoredCandidate is the assembler's working unit: a candidate with its
// final score resolved (rerank score when present, raw similarity otherwise).
type scoredCandidate struct {
	id         string
	final      float64
	similarity float64
	source     ranked.Source
}

// assemble merges candidates across partitions, deduplicates by entity id
// keeping the highest-scoring occurrence, orders descending by final score
// (ties: raw similarity descending, then entity id ascending), truncates to
// topK, and assigns 1-based ranks. Never returns nil: an empty slice is the
// correct representation of "no matches".
func assemble(
	cands []match.Candidate,
	rerankScores map[string]float64,
	baseSource ranked.Source,
	topK int,
) []ranked.Result {
	best := make(map[string]scoredCandidate, len(cands))

	for i := range cands {
		c := &cands[i]
		sc := scoredCandidate{
			id:         c.ID(),
			final:      c.Similarity(),
			similarity: c.Similarity(),
			source:     baseSource,
		}
		if score, ok := rerankScores[c.ID()]; ok {
			sc.final = score
			sc.source = ranked.SourceReranked
		}

		prev, seen := best[sc.id]
		if !seen || better(sc, prev) {
			best[sc.id] = sc
		}
	}

	merged := make([]scoredCandidate, 0, len(best))
	for _, sc := range best {
		merged = append(merged, sc)
	}

	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.final != b.final {
			return a.final > b.final
		}
		if a.similarity != b.similarity {
			return a.similarity > b.similarity
		}
		return domain.CompareEntityID(a.id, b.id) < 0
	})

	if len(merged) > topK {
		merged = merged[:topK]
	}

	results := make([]ranked.Result, 0, len(merged))
	for i, sc := range merged {
		results = append(results, ranked.New(sc.id, sc.final, sc.source, i+1))
	}
	return results
}

// better reports whether a beats b for dedup purposes.
func better(a, b scoredCandidate) bool {
	if a.final != b.final {
		return a.final > b.final
	}
	return a.similarity > b.similarity
}
