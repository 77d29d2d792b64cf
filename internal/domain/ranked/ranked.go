// Package ranked defines the externally visible, ordered retrieval unit.
package ranked

// Source tags which path produced a result.
type Source string

const (
	// SourceNative means the result came from a native-language partition.
	SourceNative Source = "native"
	// SourceTranslated means the query was translated before searching.
	SourceTranslated Source = "translated"
	// SourceReranked means the final score came from the reranking pass.
	SourceReranked Source = "reranked"
)

// Result is one entry of the final ranked list.
type Result struct {
	id     string
	score  float64
	source Source
	rank   int
}

// New creates a ranked result. rank is 1-based.
func New(id string, score float64, source Source, rank int) Result {
	return Result{id: id, score: score, source: source, rank: rank}
}

// ID returns the entity identifier.
func (r *Result) ID() string { return r.id }

// Score returns the final, monotonically comparable score.
func (r *Result) Score() float64 { return r.score }

// Source returns the provenance tag.
func (r *Result) Source() Source { return r.source }

// Rank returns the 1-based position.
func (r *Result) Rank() int { return r.rank }
