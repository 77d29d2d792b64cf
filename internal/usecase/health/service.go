package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure: retrieval still works but a
	// secondary component (embedding provider, feedback log) does not.
	Degraded Status = "degraded"
	// Unhealthy indicates the vector database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	feedback  FeedbackPinger
}

// New creates a Service. embedding and feedback can be nil.
func New(db DBPinger, embedding EmbeddingChecker, feedback FeedbackPinger) *Service {
	return &Service{db: db, embedding: embedding, feedback: feedback}
}

// Check runs health checks against all components. The vector database is
// load-bearing: its failure alone makes the whole service unhealthy.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	dbOK := true
	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		dbOK = false
	} else {
		checks["database"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if s.feedback != nil {
		if err := s.feedback.Ping(ctx); err != nil {
			checks["feedback"] = CheckError
		} else {
			checks["feedback"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if !dbOK {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}
