// Package jina is a client for the Jina rerank API, used as the optional
// cross-encoder refinement stage.
package jina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/semref/wdsearch/internal/domain"
	"github.com/semref/wdsearch/internal/metrics"
)

const (
	defaultBaseURL = "https://api.jina.ai"
	defaultModel   = "jina-reranker-v2-base-multilingual"
)

// Reranker scores query/document pairs with a cross-encoder model.
type Reranker struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger
}

// Config holds the rerank provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewReranker creates a Jina rerank client.
func NewReranker(cfg *Config) *Reranker {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Reranker{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      model,
		logger:     cfg.Logger,
	}
}

type rerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	ReturnDocuments bool     `json:"return_documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores docs against query. Scores reference documents by their
// position in the submitted slice. Errors here are non-fatal to the query
// pipeline; the caller falls back to similarity ordering.
func (r *Reranker) Rerank(ctx context.Context, query string, docs []string) ([]domain.RerankScore, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(rerankRequest{
		Model:           r.model,
		Query:           query,
		Documents:       docs,
		ReturnDocuments: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/v1/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		metrics.RerankRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.RerankRequestsTotal.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rerank API status %d: %s", resp.StatusCode, string(body))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.RerankRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	metrics.RerankRequestsTotal.WithLabelValues("success").Inc()

	scores := make([]domain.RerankScore, 0, len(parsed.Results))
	for _, res := range parsed.Results {
		if res.Index < 0 || res.Index >= len(docs) {
			if r.logger != nil {
				r.logger.Warn("rerank result index out of range", zap.Int("index", res.Index))
			}
			continue
		}
		scores = append(scores, domain.RerankScore{Index: res.Index, Score: res.RelevanceScore})
	}
	return scores, nil
}
