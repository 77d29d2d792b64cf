// Package feedback records user relevance judgements on search results.
package feedback

import (
	"context"
	"fmt"

	"github.com/semref/wdsearch/internal/domain"
	"github.com/semref/wdsearch/internal/domain/feedback"
	"github.com/semref/wdsearch/internal/metrics"
)

// Submission is one raw feedback submission as received from the client.
type Submission struct {
	Query     string
	EntityID  string
	Sentiment string
	Position  int
}

// Service validates and persists feedback submissions.
type Service struct {
	store Appender
}

// New creates a Service.
func New(store Appender) *Service {
	return &Service{store: store}
}

// Submit validates a submission and appends it to the feedback log.
// Duplicate submissions are stored as-is: repeat signal is signal.
// Persistence failures surface as domain.ErrFeedbackWrite so callers can
// keep them isolated from the retrieval path.
func (s *Service) Submit(ctx context.Context, sub Submission) error {
	sentiment, err := feedback.ParseSentiment(sub.Sentiment)
	if err != nil {
		return err
	}

	rec, err := feedback.New(sub.Query, sub.EntityID, sentiment, sub.Position)
	if err != nil {
		return err
	}

	if err := s.store.Append(ctx, rec); err != nil {
		metrics.FeedbackWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("append feedback: %v: %w", err, domain.ErrFeedbackWrite)
	}
	metrics.FeedbackWritesTotal.WithLabelValues("success").Inc()
	return nil
}
