// Package feedback defines the append-only per-result feedback record.
package feedback

import (
	"fmt"
	"time"

	"github.com/semref/wdsearch/internal/domain"
)

// Sentiment is a thumbs-up or thumbs-down signal.
type Sentiment string

const (
	// Up is positive feedback.
	Up Sentiment = "up"
	// Down is negative feedback.
	Down Sentiment = "down"
)

// ParseSentiment validates a raw sentiment string.
func ParseSentiment(s string) (Sentiment, error) {
	switch Sentiment(s) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	default:
		return "", fmt.Errorf("%w: sentiment must be %q or %q, got %q", domain.ErrInvalidRequest, Up, Down, s)
	}
}

// Record is one feedback submission. Records are write-once; retried
// submissions produce additional records rather than collapsing.
type Record struct {
	query     string
	entityID  string
	sentiment Sentiment
	position  int
	createdAt time.Time
}

// New validates and creates a feedback record stamped with the current time.
func New(query, entityID string, sentiment Sentiment, position int) (Record, error) {
	if query == "" {
		return Record{}, fmt.Errorf("%w: feedback query is required", domain.ErrInvalidRequest)
	}
	if !domain.IsEntityID(entityID) {
		return Record{}, fmt.Errorf("%w: malformed entity id %q", domain.ErrInvalidRequest, entityID)
	}
	if position < 0 {
		return Record{}, fmt.Errorf("%w: result position must be >= 0, got %d", domain.ErrInvalidRequest, position)
	}
	return Record{
		query:     query,
		entityID:  entityID,
		sentiment: sentiment,
		position:  position,
		createdAt: time.Now().UTC(),
	}, nil
}

// Query returns the query text the feedback refers to.
func (r *Record) Query() string { return r.query }

// EntityID returns the entity the feedback refers to.
func (r *Record) EntityID() string { return r.entityID }

// Sentiment returns the feedback polarity.
func (r *Record) Sentiment() Sentiment { return r.sentiment }

// Position returns the 0-based result position at submission time.
func (r *Record) Position() int { return r.position }

// CreatedAt returns the submission timestamp (UTC).
func (r *Record) CreatedAt() time.Time { return r.createdAt }
