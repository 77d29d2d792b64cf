// Package partition executes KNN lookups against the language-scoped FT
// indexes and translates raw hits into domain candidates.
package partition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/semref/wdsearch/internal/db"
	"github.com/semref/wdsearch/internal/domain"
	"github.com/semref/wdsearch/internal/domain/match"
)

// store is the consumer interface for partition operations.
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error)
}

// Repo reads vector partitions. One FT index per native language, documents
// keyed "{prefix}{lang}:{entityID}" with a kind TAG for item/property
// pre-filtering. Scores are cosine similarity, higher is closer; all
// partitions share one embedding model, so scores merge without rescaling.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a partition repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// IndexName returns the FT index name for a language partition.
func (r *Repo) IndexName(lang string) string {
	return fmt.Sprintf("%s%s:idx", r.keyPrefix, lang)
}

func (r *Repo) docKey(lang, id string) string {
	return fmt.Sprintf("%s%s:%s", r.keyPrefix, lang, id)
}

// Search runs a KNN query against one language partition filtered by entity kind.
func (r *Repo) Search(
	ctx context.Context, lang string, kind domain.Kind, vector []float32, topK int,
) ([]match.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    r.IndexName(lang),
		Filter:       fmt.Sprintf("@kind:{%s}", kind),
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{"__content", "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search partition %s: %w", lang, err)
	}

	return parseCandidates(sr, lang, r.keyPrefix+lang+":"), nil
}

// Lookup fetches a stored entity by id from one partition, returning its
// embedding and content. ok=false means the entity is not in that partition.
func (r *Repo) Lookup(ctx context.Context, lang, id string) ([]float32, string, bool, error) {
	fields, err := r.store.HGetAll(ctx, r.docKey(lang, id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, "", false, nil
		}
		return nil, "", false, fmt.Errorf("lookup %s in %s: %w", id, lang, err)
	}

	raw, ok := fields["__vector"]
	if !ok {
		return nil, "", false, nil
	}
	vec := db.BytesToVector([]byte(raw))
	if vec == nil {
		return nil, "", false, fmt.Errorf("lookup %s in %s: stored vector is malformed", id, lang)
	}
	return vec, fields["__content"], true, nil
}

// VerifyDimensions checks that every partition index declares the expected
// embedding width. Mismatch is a fatal configuration error: scores from a
// partition built with a different model are not comparable.
func (r *Repo) VerifyDimensions(ctx context.Context, langs []string, want int) error {
	for _, lang := range langs {
		info, err := r.store.IndexInfo(ctx, r.IndexName(lang))
		if err != nil {
			return fmt.Errorf("inspect partition %s: %w", lang, err)
		}
		if info.VectorDim != want {
			return fmt.Errorf("partition %s declares embedding dim %d, embedder produces %d",
				lang, info.VectorDim, want)
		}
	}
	return nil
}

// parseCandidates converts raw search entries into candidates. Entries whose
// key does not decode to a well-formed entity id are skipped.
func parseCandidates(sr *db.SearchResult, lang, keyPrefix string) []match.Candidate {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	out := make([]match.Candidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, keyPrefix)
		if !domain.IsEntityID(id) {
			continue
		}
		out = append(out, match.New(id, entry.Score, lang, entry.Fields["__content"]))
	}
	return out
}
