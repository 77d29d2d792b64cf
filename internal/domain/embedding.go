package domain

import "context"

// EmbeddingResult is the outcome of a single embedding call.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// RerankScore is a cross-encoder relevance score for one document by its
// position in the submitted document list.
type RerankScore struct {
	Index int
	Score float64
}

// HealthChecker is implemented by providers that can verify their own availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
