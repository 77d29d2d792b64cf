package query

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/semref/wdsearch/internal/domain"
	"github.com/semref/wdsearch/internal/domain/catalog"
	"github.com/semref/wdsearch/internal/domain/match"
	"github.com/semref/wdsearch/internal/domain/ranked"
)

// --- Mocks ---

type mockEmbedder struct {
	vec    []float32
	err    error
	called int
	last   string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.called++
	m.last = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 3}, nil
}

type mockTranslator struct {
	out    string
	err    error
	called int
	src    string
	dst    string
}

func (m *mockTranslator) Translate(_ context.Context, _ string, src, dst string) (string, error) {
	m.called++
	m.src, m.dst = src, dst
	if m.err != nil {
		return "", m.err
	}
	return m.out, nil
}

type mockPartitions struct {
	// results and errs are keyed by partition language.
	results map[string][]match.Candidate
	errs    map[string]error
	lookups map[string]lookupEntry
	calls   []string
}

type lookupEntry struct {
	vec     []float32
	content string
}

func (m *mockPartitions) Search(
	_ context.Context, lang string, _ domain.Kind, _ []float32, _ int,
) ([]match.Candidate, error) {
	m.calls = append(m.calls, lang)
	if err := m.errs[lang]; err != nil {
		return nil, err
	}
	return m.results[lang], nil
}

func (m *mockPartitions) Lookup(_ context.Context, lang, id string) ([]float32, string, bool, error) {
	e, ok := m.lookups[lang+"/"+id]
	if !ok {
		return nil, "", false, nil
	}
	return e.vec, e.content, true, nil
}

type mockReranker struct {
	scores []domain.RerankScore
	err    error
	called int
	docs   []string
}

func (m *mockReranker) Rerank(_ context.Context, _ string, docs []string) ([]domain.RerankScore, error) {
	m.called++
	m.docs = docs
	if m.err != nil {
		return nil, m.err
	}
	return m.scores, nil
}

func testCatalog(t *testing.T) catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]string{"en", "de"}, []string{"fr", "es"}, "en", 4)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return cat
}

func newTestService(
	t *testing.T, parts *mockPartitions, embed *mockEmbedder, trans *mockTranslator,
) *Service {
	t.Helper()
	return New(testCatalog(t), embed, trans, parts)
}

func ids(results []ranked.Result) []string {
	out := make([]string, len(results))
	for i := range results {
		out[i] = results[i].ID()
	}
	return out
}

// --- Tests ---

func TestQuery_EmptyText_ShortCircuits(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1}}
	parts := &mockPartitions{}
	svc := newTestService(t, parts, embed, &mockTranslator{})

	out, err := svc.Query(context.Background(), Request{Text: "   ", Kind: domain.KindItem, Lang: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Results == nil {
		t.Fatal("results must be an empty slice, not nil")
	}
	if len(out.Results) != 0 {
		t.Fatalf("expected no results, got %d", len(out.Results))
	}
	if embed.called != 0 {
		t.Error("Embed should not be called for an empty query")
	}
	if len(parts.calls) != 0 {
		t.Error("no partition should be searched for an empty query")
	}
}

func TestQuery_NativeLang_NoTranslation(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	trans := &mockTranslator{out: "unused"}
	parts := &mockPartitions{
		results: map[string][]match.Candidate{
			"de": {match.New("Q2", 0.9, "de", "earth"), match.New("Q5", 0.7, "de", "human")},
		},
	}
	svc := newTestService(t, parts, embed, trans)

	out, err := svc.Query(context.Background(), Request{Text: "erde", Kind: domain.KindItem, Lang: "de"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trans.called != 0 {
		t.Error("native language must not be translated")
	}
	if out.Translated {
		t.Error("Translated flag must be false on the native path")
	}
	if len(parts.calls) != 1 || parts.calls[0] != "de" {
		t.Errorf("expected a single search on de, got %v", parts.calls)
	}
	got := ids(out.Results)
	if len(got) != 2 || got[0] != "Q2" || got[1] != "Q5" {
		t.Errorf("unexpected order: %v", got)
	}
	if out.Results[0].Rank() != 1 || out.Results[1].Rank() != 2 {
		t.Error("ranks must be 1-based and sequential")
	}
	if out.Results[0].Source() != ranked.SourceNative {
		t.Errorf("expected native source, got %q", out.Results[0].Source())
	}
}

func TestQuery_FallbackLang_TranslatesExactlyOnce(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	trans := &mockTranslator{out: "earth"}
	parts := &mockPartitions{
		results: map[string][]match.Candidate{
			"en": {match.New("Q2", 0.9, "en", "earth")},
		},
	}
	svc := newTestService(t, parts, embed, trans)

	out, err := svc.Query(context.Background(), Request{Text: "terre", Kind: domain.KindItem, Lang: "fr"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trans.called != 1 {
		t.Fatalf("expected exactly one translation call, got %d", trans.called)
	}
	if trans.src != "fr" || trans.dst != "en" {
		t.Errorf("expected fr->en, got %s->%s", trans.src, trans.dst)
	}
	if embed.last != "earth" {
		t.Errorf("the translated text must be embedded, got %q", embed.last)
	}
	if !out.Translated {
		t.Error("Translated flag must be set")
	}
	if len(parts.calls) != 1 || parts.calls[0] != "en" {
		t.Errorf("fallback path must query only the pivot partition, got %v", parts.calls)
	}
	if out.Results[0].Source() != ranked.SourceTranslated {
		t.Errorf("expected translated source, got %q", out.Results[0].Source())
	}
}

func TestQuery_FallbackLang_NormalizesTranslationSource(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	trans := &mockTranslator{out: "earth"}
	parts := &mockPartitions{
		results: map[string][]match.Candidate{
			"en": {match.New("Q2", 0.9, "en", "earth")},
		},
	}
	svc := newTestService(t, parts, embed, trans)

	_, err := svc.Query(context.Background(), Request{Text: "terre", Kind: domain.KindItem, Lang: " FR "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trans.src != "fr" {
		t.Errorf("translation source must be the normalized code, got %q", trans.src)
	}
}

func TestQuery_TranslationFailure_IsFatal(t *testing.T) {
	trans := &mockTranslator{err: domain.ErrRetrievalUnavailable}
	svc := newTestService(t, &mockPartitions{}, &mockEmbedder{vec: []float32{1}}, trans)

	_, err := svc.Query(context.Background(), Request{Text: "terre", Kind: domain.KindItem, Lang: "fr"})
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestQuery_AllLang_FansOutAndMerges(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	parts := &mockPartitions{
		results: map[string][]match.Candidate{
			"en": {match.New("Q2", 0.9, "en", "earth"), match.New("Q42", 0.5, "en", "douglas adams")},
			"de": {match.New("Q2", 0.8, "de", "erde"), match.New("Q111", 0.7, "de", "mars")},
		},
	}
	svc := newTestService(t, parts, embed, &mockTranslator{})

	out, err := svc.Query(context.Background(), Request{Text: "earth", Kind: domain.KindItem, Lang: "all"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parts.calls) != 2 {
		t.Fatalf("expected both partitions searched, got %v", parts.calls)
	}
	got := ids(out.Results)
	// Q2 deduplicated keeping the 0.9 hit; Q111 (0.7) beats Q42 (0.5).
	want := []string{"Q2", "Q111", "Q42"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected merged order: got %v, want %v", got, want)
		}
	}
	if out.Results[0].Score() != 0.9 {
		t.Errorf("dedup must keep the highest similarity, got %f", out.Results[0].Score())
	}
}

func TestQuery_PartialPartitionFailure_Degrades(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	parts := &mockPartitions{
		results: map[string][]match.Candidate{
			"en": {match.New("Q2", 0.9, "en", "earth")},
		},
		errs: map[string]error{"de": errors.New("timeout")},
	}
	svc := newTestService(t, parts, embed, &mockTranslator{})

	out, err := svc.Query(context.Background(), Request{Text: "earth", Kind: domain.KindItem, Lang: "all"})
	if err != nil {
		t.Fatalf("a single failing partition must not fail the request: %v", err)
	}
	if len(out.FailedPartitions) != 1 || out.FailedPartitions[0] != "de" {
		t.Errorf("expected de reported as failed, got %v", out.FailedPartitions)
	}
	if len(out.Results) != 1 || out.Results[0].ID() != "Q2" {
		t.Errorf("surviving partition results must be returned, got %v", ids(out.Results))
	}
}

func TestQuery_AllPartitionsFail_ReturnsRetrievalUnavailable(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	parts := &mockPartitions{
		errs: map[string]error{
			"en": errors.New("down"),
			"de": errors.New("down"),
		},
	}
	svc := newTestService(t, parts, embed, &mockTranslator{})

	_, err := svc.Query(context.Background(), Request{Text: "earth", Kind: domain.KindItem, Lang: "all"})
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestQuery_EmbedFailure_ReturnsError(t *testing.T) {
	embed := &mockEmbedder{err: domain.ErrRetrievalUnavailable}
	svc := newTestService(t, &mockPartitions{}, embed, &mockTranslator{})

	_, err := svc.Query(context.Background(), Request{Text: "earth", Kind: domain.KindItem, Lang: "en"})
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestQuery_RerankSuccess_ReordersAndTags(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	parts := &mockPartitions{
		results: map[string][]match.Candidate{
			"en": {
				match.New("Q2", 0.9, "en", "earth"),
				match.New("Q42", 0.8, "en", "douglas adams"),
			},
		},
	}
	rr := &mockReranker{scores: []domain.RerankScore{
		{Index: 0, Score: 0.1},
		{Index: 1, Score: 0.95},
	}}
	svc := newTestService(t, parts, embed, &mockTranslator{}).WithRerank(rr)

	out, err := svc.Query(context.Background(), Request{
		Text: "earth", Kind: domain.KindItem, Lang: "en", Rerank: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rr.called != 1 {
		t.Fatalf("expected one rerank call, got %d", rr.called)
	}
	if len(rr.docs) != 2 || rr.docs[0] != "earth" {
		t.Errorf("rerank documents must be candidate contents, got %v", rr.docs)
	}
	if !out.Reranked {
		t.Error("Reranked flag must be set")
	}
	got := ids(out.Results)
	if got[0] != "Q42" || got[1] != "Q2" {
		t.Errorf("rerank scores must dominate similarity, got %v", got)
	}
	if out.Results[0].Source() != ranked.SourceReranked {
		t.Errorf("expected reranked source, got %q", out.Results[0].Source())
	}
}

func TestQuery_RerankFailure_FallsBackToSimilarity(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	parts := &mockPartitions{
		results: map[string][]match.Candidate{
			"en": {
				match.New("Q2", 0.9, "en", "earth"),
				match.New("Q42", 0.8, "en", "douglas adams"),
			},
		},
	}
	rr := &mockReranker{err: errors.New("rerank provider down")}
	svc := newTestService(t, parts, embed, &mockTranslator{}).WithRerank(rr)

	out, err := svc.Query(context.Background(), Request{
		Text: "earth", Kind: domain.KindItem, Lang: "en", Rerank: true,
	})
	if err != nil {
		t.Fatalf("rerank failure must not fail the request: %v", err)
	}
	if out.Reranked {
		t.Error("Reranked flag must be false after a rerank failure")
	}
	got := ids(out.Results)
	if got[0] != "Q2" || got[1] != "Q42" {
		t.Errorf("expected similarity order, got %v", got)
	}
	if out.Results[0].Source() != ranked.SourceNative {
		t.Errorf("expected native source after fallback, got %q", out.Results[0].Source())
	}
}

func TestQuery_RerankRequestedButDisabled_Ignored(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	parts := &mockPartitions{
		results: map[string][]match.Candidate{
			"en": {match.New("Q2", 0.9, "en", "earth")},
		},
	}
	svc := newTestService(t, parts, embed, &mockTranslator{})

	out, err := svc.Query(context.Background(), Request{
		Text: "earth", Kind: domain.KindItem, Lang: "en", Rerank: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Reranked {
		t.Error("Reranked must stay false when no reranker is configured")
	}
}

func TestQuery_EntityID_SeedsExactMatch(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{9, 9, 9, 9}}
	trans := &mockTranslator{}
	parts := &mockPartitions{
		results: map[string][]match.Candidate{
			"en": {match.New("Q5", 0.8, "en", "human")},
		},
		lookups: map[string]lookupEntry{
			"en/Q42": {vec: []float32{1, 0, 0, 0}, content: "douglas adams"},
		},
	}
	svc := newTestService(t, parts, embed, trans)

	out, err := svc.Query(context.Background(), Request{Text: "Q42", Kind: domain.KindItem, Lang: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embed.called != 0 {
		t.Error("a stored entity id must reuse its stored vector, not re-embed")
	}
	got := ids(out.Results)
	if got[0] != "Q42" {
		t.Fatalf("the looked-up entity must rank first, got %v", got)
	}
	if out.Results[0].Score() != 1.0 {
		t.Errorf("exact id match must score 1.0, got %f", out.Results[0].Score())
	}
}

func TestQuery_EntityIDNotStored_FallsBackToEmbedding(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	parts := &mockPartitions{
		results: map[string][]match.Candidate{
			"en": {match.New("Q1", 0.6, "en", "universe")},
		},
	}
	svc := newTestService(t, parts, embed, &mockTranslator{})

	out, err := svc.Query(context.Background(), Request{Text: "Q99999", Kind: domain.KindItem, Lang: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embed.called != 1 {
		t.Error("an unknown id falls back to embedding its literal text")
	}
	if len(out.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out.Results))
	}
}

func TestQuery_TopKClamping(t *testing.T) {
	var many []match.Candidate
	for i := 1; i <= 30; i++ {
		many = append(many, match.New(fmt.Sprintf("Q%d", i), 1.0-float64(i)/100, "en", "x"))
	}
	embed := &mockEmbedder{vec: []float32{1, 0, 0, 0}}
	parts := &mockPartitions{results: map[string][]match.Candidate{"en": many}}
	svc := newTestService(t, parts, embed, &mockTranslator{}).WithLimits(10, 20)

	out, err := svc.Query(context.Background(), Request{Text: "x", Kind: domain.KindItem, Lang: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Results) != 10 {
		t.Errorf("default top-k must apply, got %d", len(out.Results))
	}

	out, err = svc.Query(context.Background(), Request{Text: "x", Kind: domain.KindItem, Lang: "en", TopK: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Results) != 20 {
		t.Errorf("top-k must clamp to the maximum, got %d", len(out.Results))
	}
}
