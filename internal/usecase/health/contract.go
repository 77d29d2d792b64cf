package health

import "context"

// DBPinger checks vector database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// FeedbackPinger checks the feedback log's backing store.
type FeedbackPinger interface {
	Ping(ctx context.Context) error
}
