// Package query implements the retrieval pipeline: language routing, query
// embedding, partition fan-out, optional reranking, and result assembly.
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/semref/wdsearch/internal/domain"
	"github.com/semref/wdsearch/internal/domain/catalog"
	"github.com/semref/wdsearch/internal/domain/match"
	"github.com/semref/wdsearch/internal/domain/ranked"
	"github.com/semref/wdsearch/internal/logger"
	"github.com/semref/wdsearch/internal/metrics"
)

// Request is one immutable query request.
type Request struct {
	Text   string
	Kind   domain.Kind
	Lang   string
	Rerank bool
	TopK   int // 0 = service default
}

// Outcome is the tagged result of one pipeline run. FailedPartitions is
// non-empty on degraded success: some partitions timed out or errored during
// an "all" fan-out but at least one survived.
type Outcome struct {
	Results          []ranked.Result
	Translated       bool
	Reranked         bool
	FailedPartitions []string
}

// Service executes query requests.
type Service struct {
	cat              catalog.Catalog
	embed            Embedder
	translate        Translator
	parts            PartitionSearcher
	rerank           Reranker // nil = reranking disabled
	defaultTopK      int
	maxTopK          int
	partitionTimeout time.Duration
}

// New creates a query service.
func New(cat catalog.Catalog, embed Embedder, translate Translator, parts PartitionSearcher) *Service {
	return &Service{
		cat:              cat,
		embed:            embed,
		translate:        translate,
		parts:            parts,
		defaultTopK:      10,
		maxTopK:          50,
		partitionTimeout: 5 * time.Second,
	}
}

// WithRerank enables the optional rerank stage.
func (s *Service) WithRerank(r Reranker) *Service {
	s.rerank = r
	return s
}

// WithLimits overrides the default and maximum top-K.
func (s *Service) WithLimits(defaultTopK, maxTopK int) *Service {
	if defaultTopK > 0 {
		s.defaultTopK = defaultTopK
	}
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
	return s
}

// WithPartitionTimeout overrides the per-partition search timeout.
func (s *Service) WithPartitionTimeout(d time.Duration) *Service {
	if d > 0 {
		s.partitionTimeout = d
	}
	return s
}

// Query runs the full pipeline for one request.
//
// An empty query short-circuits to an empty result set before any external
// call; clients use this as an access probe. A single failing partition
// during an "all" fan-out degrades silently; every targeted partition
// failing escalates to domain.ErrRetrievalUnavailable.
func (s *Service) Query(ctx context.Context, req Request) (Outcome, error) {
	log := logger.FromContext(ctx)
	out := Outcome{Results: []ranked.Result{}}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return out, nil
	}

	topK := s.resolveTopK(req.TopK)
	p := route(s.cat, req.Lang)

	// A query that is itself an entity id reuses the stored embedding
	// instead of calling the embedding provider.
	var vector []float32
	var seed *match.Candidate
	if domain.IsEntityID(text) {
		vector, seed = s.lookupEntity(ctx, p.partitions, text, log)
	}

	if vector == nil {
		if p.translate {
			translated, err := s.translate.Translate(ctx, text, p.lang, s.cat.Pivot())
			if err != nil {
				return out, fmt.Errorf("fallback translation: %w", err)
			}
			text = translated
			out.Translated = true
		}

		emb, err := s.embed.Embed(ctx, text)
		if err != nil {
			return out, fmt.Errorf("embed query: %w", err)
		}
		vector = emb.Embedding
	}

	cands, failed, err := s.fanOut(ctx, p.partitions, req.Kind, vector, topK)
	if err != nil {
		return out, err
	}
	out.FailedPartitions = failed
	if len(failed) > 0 {
		log.Warn("partition fan-out degraded",
			zap.Strings("failed_partitions", failed),
			zap.Int("surviving", len(p.partitions)-len(failed)),
		)
	}

	if seed != nil {
		cands = append(cands, *seed)
	}
	cands = dedupe(cands)

	var rerankScores map[string]float64
	if req.Rerank && s.rerank != nil {
		rerankScores, out.Reranked = s.rerankCandidates(ctx, req.Text, cands, log)
	}

	out.Results = assemble(cands, rerankScores, p.source, topK)
	return out, nil
}

func (s *Service) resolveTopK(k int) int {
	if k <= 0 {
		return s.defaultTopK
	}
	if k > s.maxTopK {
		return s.maxTopK
	}
	return k
}

// lookupEntity probes the planned partitions for a stored entity. The first
// hit supplies the query vector and seeds an exact match with similarity 1.
func (s *Service) lookupEntity(
	ctx context.Context, partitions []string, id string, log *zap.Logger,
) ([]float32, *match.Candidate) {
	for _, lang := range partitions {
		vec, content, ok, err := s.parts.Lookup(ctx, lang, id)
		if err != nil {
			log.Warn("entity lookup failed", zap.String("partition", lang), zap.Error(err))
			continue
		}
		if ok {
			c := match.New(id, 1.0, lang, content)
			return vec, &c
		}
	}
	return nil, nil
}

// fanOut queries every planned partition concurrently and joins before
// merging. Partition order never affects the merged outcome; assembly is
// deterministic regardless of completion order.
func (s *Service) fanOut(
	ctx context.Context, partitions []string, kind domain.Kind, vector []float32, topK int,
) ([]match.Candidate, []string, error) {
	type slot struct {
		cands []match.Candidate
		err   error
	}

	slots := make([]slot, len(partitions))
	var wg sync.WaitGroup
	for i, lang := range partitions {
		wg.Add(1)
		go func(i int, lang string) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, s.partitionTimeout)
			defer cancel()

			cands, err := s.parts.Search(pctx, lang, kind, vector, topK)
			if err != nil {
				metrics.PartitionSearchTotal.WithLabelValues(lang, "error").Inc()
			} else {
				metrics.PartitionSearchTotal.WithLabelValues(lang, "success").Inc()
			}
			slots[i] = slot{cands: cands, err: err}
		}(i, lang)
	}
	wg.Wait()

	var merged []match.Candidate
	var failed []string
	var firstErr error
	for i, sl := range slots {
		if sl.err != nil {
			failed = append(failed, partitions[i])
			if firstErr == nil {
				firstErr = sl.err
			}
			continue
		}
		merged = append(merged, sl.cands...)
	}

	if len(failed) == len(partitions) {
		return nil, nil, fmt.Errorf("all %d partition(s) failed: %v: %w",
			len(partitions), firstErr, domain.ErrRetrievalUnavailable)
	}
	return merged, failed, nil
}

// rerankCandidates re-scores candidates that carry content. Any failure
// falls back to similarity ordering: reranking is strictly a refinement.
func (s *Service) rerankCandidates(
	ctx context.Context, queryText string, cands []match.Candidate, log *zap.Logger,
) (map[string]float64, bool) {
	docs := make([]string, 0, len(cands))
	ids := make([]string, 0, len(cands))
	for i := range cands {
		if cands[i].Content() == "" {
			continue
		}
		docs = append(docs, cands[i].Content())
		ids = append(ids, cands[i].ID())
	}
	if len(docs) == 0 {
		return nil, false
	}

	scores, err := s.rerank.Rerank(ctx, queryText, docs)
	if err != nil {
		log.Warn("rerank failed, falling back to similarity order", zap.Error(err))
		return nil, false
	}

	byID := make(map[string]float64, len(scores))
	for _, sc := range scores {
		if sc.Index < 0 || sc.Index >= len(ids) {
			continue
		}
		byID[ids[sc.Index]] = sc.Score
	}
	return byID, true
}

// dedupe collapses duplicate entity ids keeping the highest raw similarity.
func dedupe(cands []match.Candidate) []match.Candidate {
	if len(cands) <= 1 {
		return cands
	}
	bestIdx := make(map[string]int, len(cands))
	out := cands[:0]
	for i := range cands {
		c := cands[i]
		if j, ok := bestIdx[c.ID()]; ok {
			if c.Similarity() > out[j].Similarity() {
				out[j] = c
			}
			continue
		}
		bestIdx[c.ID()] = len(out)
		out = append(out, c)
	}
	return out
}
