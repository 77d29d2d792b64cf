package feedback

import (
	"context"

	"github.com/semref/wdsearch/internal/domain/feedback"
)

// Appender persists feedback records.
type Appender interface {
	Append(ctx context.Context, rec feedback.Record) error
}
