package domain

import "errors"

var (
	// ErrAccessDenied signals a missing or incorrect API secret.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidRequest signals malformed request parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRetrievalUnavailable signals that an external retrieval dependency
	// (embedding provider, translation provider, or every targeted vector
	// partition) is unreachable or erroring. Retryable by the caller.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrFeedbackWrite signals a failed durable feedback append.
	ErrFeedbackWrite = errors.New("feedback write failed")
)
