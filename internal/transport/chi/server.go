// Package chi exposes the search service over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/semref/wdsearch/internal/domain"
	"github.com/semref/wdsearch/internal/domain/catalog"
	feedbackuc "github.com/semref/wdsearch/internal/usecase/feedback"
	healthuc "github.com/semref/wdsearch/internal/usecase/health"
	queryuc "github.com/semref/wdsearch/internal/usecase/query"
)

// errCode is a machine-readable error code in API error responses.
type errCode string

const (
	errCodeAccessDenied         errCode = "access_denied"
	errCodeBadRequest           errCode = "bad_request"
	errCodeRetrievalUnavailable errCode = "retrieval_unavailable"
	errCodeFeedbackWriteFailed  errCode = "feedback_write_failed"
	errCodeInternalError        errCode = "internal_error"
)

// QueryService executes search requests.
type QueryService interface {
	Query(ctx context.Context, req queryuc.Request) (queryuc.Outcome, error)
}

// FeedbackService records relevance judgements.
type FeedbackService interface {
	Submit(ctx context.Context, sub feedbackuc.Submission) error
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server routes HTTP requests to the use case services.
type Server struct {
	queries       QueryService
	feedback      FeedbackService
	health        HealthService
	cat           catalog.Catalog
	apiSecret     string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	queries QueryService,
	feedback FeedbackService,
	health HealthService,
	cat catalog.Catalog,
	apiSecret string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		queries:   queries,
		feedback:  feedback,
		health:    health,
		cat:       cat,
		apiSecret: apiSecret,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrAccessDenied, http.StatusUnauthorized, errCodeAccessDenied),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, errCodeBadRequest),
		sentinelHandler(domain.ErrRetrievalUnavailable, http.StatusBadGateway, errCodeRetrievalUnavailable),
		sentinelHandler(domain.ErrFeedbackWrite, http.StatusInternalServerError, errCodeFeedbackWriteFailed),
	}
	return s
}

// Register mounts all routes on r. Only the query endpoints sit behind the
// secret gate: /languages lets clients build pickers before authenticating,
// and /feedback stays open the way the query gate's access probe is open.
func (s *Server) Register(r chi.Router) {
	gate := SecretGate(s.apiSecret)

	r.Group(func(r chi.Router) {
		r.Use(gate)
		r.Get("/item/query", s.searchHandler(domain.KindItem))
		r.Get("/property/query", s.searchHandler(domain.KindProperty))
	})

	r.Get("/languages", s.Languages)
	r.Post("/feedback", s.SubmitFeedback)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// resultItem is one ranked match on the wire.
type resultItem struct {
	ID     string  `json:"id"`
	Score  float64 `json:"similarity_score"`
	Source string  `json:"source"`
	Rank   int     `json:"rank"`
}

// searchHandler handles GET /item/query and GET /property/query.
func (s *Server) searchHandler(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		req := queryuc.Request{
			Text: q.Get("query"),
			Kind: kind,
			Lang: q.Get("lang"),
		}
		if req.Lang == "" {
			req.Lang = queryuc.LangAll
		}

		if v := q.Get("rerank"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, errCodeBadRequest, "rerank must be a boolean")
				return
			}
			req.Rerank = b
		}

		// The documented spelling of the top-K override is "K"; the
		// lowercase form is accepted as well.
		kv := q.Get("K")
		if kv == "" {
			kv = q.Get("k")
		}
		if kv != "" {
			n, err := strconv.Atoi(kv)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, errCodeBadRequest, "K must be a positive integer")
				return
			}
			req.TopK = n
		}

		out, err := s.queries.Query(r.Context(), req)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}

		items := make([]resultItem, len(out.Results))
		for i, res := range out.Results {
			items[i] = resultItem{
				ID:     res.ID(),
				Score:  res.Score(),
				Source: string(res.Source()),
				Rank:   res.Rank(),
			}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// languagesResponse splits the catalog into directly-indexed and
// translate-first language codes.
type languagesResponse struct {
	VectorDBLangs []string `json:"vectordb_langs"`
	OtherLangs    []string `json:"other_langs"`
}

// Languages handles GET /languages.
func (s *Server) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, languagesResponse{
		VectorDBLangs: s.cat.Native(),
		OtherLangs:    s.cat.Fallback(),
	})
}

// SubmitFeedback handles POST /feedback.
func (s *Server) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sub := feedbackuc.Submission{
		Query:     q.Get("query"),
		EntityID:  q.Get("id"),
		Sentiment: q.Get("sentiment"),
	}
	if v := q.Get("index"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errCodeBadRequest, "index must be a non-negative integer")
			return
		}
		sub.Position = n
	}

	if err := s.feedback.Submit(r.Context(), sub); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// healthResponse mirrors the health report on the wire.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// errorBody is the JSON error envelope shared by every endpoint.
type errorBody struct {
	Code    errCode `json:"code"`
	Message string  `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errCode, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrAccessDenied,
		domain.ErrInvalidRequest,
		domain.ErrRetrievalUnavailable,
		domain.ErrFeedbackWrite,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, errCodeInternalError, "internal error")
}
