package query

import (
	"context"

	"github.com/semref/wdsearch/internal/domain"
	"github.com/semref/wdsearch/internal/domain/match"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Translator translates query text into the pivot language on the fallback path.
type Translator interface {
	Translate(ctx context.Context, text, src, dst string) (string, error)
}

// PartitionSearcher reads the language-scoped vector partitions.
type PartitionSearcher interface {
	Search(ctx context.Context, lang string, kind domain.Kind, vector []float32, topK int) ([]match.Candidate, error)
	Lookup(ctx context.Context, lang, id string) (vector []float32, content string, ok bool, err error)
}

// Reranker re-scores candidates with a cross-encoder model. docs are
// referenced by position in the returned scores.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string) ([]domain.RerankScore, error)
}
