package mimir_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/knowledge"
	"github.com/w-h-a/knowledge/mimir"
	"github.com/w-h-a/knowledge/providers/embedder"
	localembedder "github.com/w-h-a/knowledge/providers/embedder/local"
	"github.com/w-h-a/knowledge/providers/storer"
	memorystorer "github.com/w-h-a/knowledge/providers/storer/memory"
)

// mapEmbedder returns canned vectors per input text so tests control
// similarity scores exactly.
type mapEmbedder struct {
	dim     int
	vectors map[string][]float32
	calls   int
}

func (e *mapEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	vec, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("%w: no canned vector for %q", embedder.ErrUnavailable, text)
	}
	return vec, nil
}

func (e *mapEmbedder) Dimensions() int {
	return e.dim
}

func (e *mapEmbedder) Provider() string {
	return "map"
}

func newStore(st storer.Storer, e embedder.Embedder, opts ...knowledge.Option) knowledge.KnowledgeStore {
	base := []knowledge.Option{
		knowledge.WithStorer(st),
		knowledge.WithEmbedder(e),
	}
	return mimir.NewKnowledgeStore(append(base, opts...)...)
}

func TestKnowledgeStore_StoreThenRetrieve(t *testing.T) {
	ctx := context.Background()
	st := memorystorer.NewStorer()
	store := newStore(st, localembedder.NewEmbedder())

	id, err := store.Store(ctx, "the payment service deploys from the main branch", "ops")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	results, err := store.Retrieve(ctx, "the payment service deploys from the main branch")
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, id, results[0].Record.Id)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-4)
}

func TestKnowledgeStore_StoreRejectsEmptyContent(t *testing.T) {
	ctx := context.Background()
	store := newStore(memorystorer.NewStorer(), localembedder.NewEmbedder())

	_, err := store.Store(ctx, "   ", "")
	require.ErrorIs(t, err, embedder.ErrEmptyInput)
}

func TestKnowledgeStore_StoreEmbedsJSONPayloadContent(t *testing.T) {
	ctx := context.Background()
	st := memorystorer.NewStorer()
	store := newStore(st, localembedder.NewEmbedder())

	payload := `{"content": "rotate the signing keys every ninety days", "graph_dependencies": []}`

	id, err := store.Store(ctx, payload, "security")
	require.NoError(t, err)

	// the raw payload is persisted, not the extracted text
	rec, err := st.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, payload, rec.Content)

	// but retrieval by the inner text still matches well
	results, err := store.Retrieve(ctx, "rotate the signing keys every ninety days")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-4)
}

func TestKnowledgeStore_RetrieveRanksAndFilters(t *testing.T) {
	ctx := context.Background()
	st := memorystorer.NewStorer()

	e := &mapEmbedder{
		dim: 2,
		vectors: map[string][]float32{
			"query": {1, 0},
		},
	}

	store := newStore(st, e)

	st.Seed(storer.Record{Id: "close", Content: "close", Embedding: []float32{0.9, 0.436}})
	st.Seed(storer.Record{Id: "half", Content: "half", Embedding: []float32{0.5, 0.866}})
	st.Seed(storer.Record{Id: "below", Content: "below", Embedding: []float32{0.1, 0.995}})

	results, err := store.Retrieve(
		ctx,
		"query",
		knowledge.WithTopK(2),
		knowledge.WithMinSimilarity(0.2),
	)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "close", results[0].Record.Id)
	assert.Equal(t, "half", results[1].Record.Id)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestKnowledgeStore_RetrieveExcludesStaleRecordsWithoutError(t *testing.T) {
	ctx := context.Background()
	st := memorystorer.NewStorer()

	e := &mapEmbedder{
		dim: 2,
		vectors: map[string][]float32{
			"query": {1, 0},
		},
	}

	store := newStore(st, e)

	st.Seed(storer.Record{Id: "fresh", Content: "fresh", Embedding: []float32{1, 0}})
	st.Seed(storer.Record{Id: "legacy", Content: "legacy", Embedding: []float32{1, 0, 0}})
	st.Seed(storer.Record{Id: "empty", Content: "empty"})

	results, err := store.Retrieve(ctx, "query")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fresh", results[0].Record.Id)
}

func TestKnowledgeStore_NarrowLegacyVectorsStayInvisible(t *testing.T) {
	ctx := context.Background()
	st := memorystorer.NewStorer()

	// a 768-wide provider over a corpus holding one 384-wide legacy vector
	store := newStore(st, localembedder.NewEmbedder(embedder.WithDimensions(768)))

	st.Seed(storer.Record{Id: "legacy", Content: "legacy", Embedding: make([]float32, 384)})

	id, err := store.Store(ctx, "current knowledge", "")
	require.NoError(t, err)

	results, err := store.Retrieve(ctx, "current knowledge")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].Record.Id)
}

func TestKnowledgeStore_RetrieveFiltersByCategory(t *testing.T) {
	ctx := context.Background()
	st := memorystorer.NewStorer()
	store := newStore(st, localembedder.NewEmbedder())

	_, err := store.Store(ctx, "scale the ingress controller", "ops")
	require.NoError(t, err)

	_, err = store.Store(ctx, "scale the ingress controller", "archive")
	require.NoError(t, err)

	results, err := store.Retrieve(ctx, "scale the ingress controller", knowledge.WithCategory("ops"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ops", results[0].Record.Category)
}

func TestKnowledgeStore_RetrieveServesFromCache(t *testing.T) {
	ctx := context.Background()
	st := memorystorer.NewStorer()

	e := &mapEmbedder{
		dim: 2,
		vectors: map[string][]float32{
			"query": {1, 0},
		},
	}

	store := newStore(st, e)

	st.Seed(storer.Record{Id: "only", Content: "only", Embedding: []float32{1, 0}})

	first, err := store.Retrieve(ctx, "query")
	require.NoError(t, err)
	require.Len(t, first, 1)
	embedsAfterFirst := e.calls

	// a new row lands, but the cached result is still served
	st.Seed(storer.Record{Id: "newer", Content: "newer", Embedding: []float32{1, 0}})

	second, err := store.Retrieve(ctx, "query")
	require.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Equal(t, embedsAfterFirst, e.calls)

	// clearing the cache forces a fresh scan
	store.ClearCache()

	third, err := store.Retrieve(ctx, "query")
	require.NoError(t, err)
	assert.Len(t, third, 2)
}

func TestKnowledgeStore_ZeroTTLDisablesCaching(t *testing.T) {
	ctx := context.Background()
	st := memorystorer.NewStorer()

	e := &mapEmbedder{
		dim: 2,
		vectors: map[string][]float32{
			"query": {1, 0},
		},
	}

	store := newStore(st, e, knowledge.WithCacheTTL(0))

	st.Seed(storer.Record{Id: "only", Content: "only", Embedding: []float32{1, 0}})

	_, err := store.Retrieve(ctx, "query")
	require.NoError(t, err)

	st.Seed(storer.Record{Id: "newer", Content: "newer", Embedding: []float32{1, 0}})

	results, err := store.Retrieve(ctx, "query")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestKnowledgeStore_RetrieveRejectsEmptyQuery(t *testing.T) {
	ctx := context.Background()
	store := newStore(memorystorer.NewStorer(), localembedder.NewEmbedder())

	_, err := store.Retrieve(ctx, "  ")
	require.ErrorIs(t, err, embedder.ErrEmptyInput)
}

func TestKnowledgeStore_UseEmbedderMakesOldRecordsStale(t *testing.T) {
	ctx := context.Background()
	st := memorystorer.NewStorer()

	store := newStore(st, localembedder.NewEmbedder())

	id, err := store.Store(ctx, "migrate the billing database", "")
	require.NoError(t, err)

	// swap to a provider with a different width
	wide := localembedder.NewEmbedder(embedder.WithDimensions(128))
	store.UseEmbedder(wide)

	// the old record is invisible now, not an error
	results, err := store.Retrieve(ctx, "migrate the billing database")
	require.NoError(t, err)
	assert.Empty(t, results)

	// explicit repair brings it back
	report, err := store.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, report.Repaired)
	assert.Empty(t, report.Failed)

	results, err = store.Retrieve(ctx, "migrate the billing database")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-4)
}

func TestKnowledgeStore_RepairIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memorystorer.NewStorer()

	store := newStore(st, localembedder.NewEmbedder())

	_, err := store.Store(ctx, "first note", "")
	require.NoError(t, err)
	_, err = store.Store(ctx, "second note", "")
	require.NoError(t, err)

	store.UseEmbedder(localembedder.NewEmbedder(embedder.WithDimensions(64)))

	first, err := store.Repair(ctx)
	require.NoError(t, err)
	assert.Len(t, first.Repaired, 2)

	second, err := store.Repair(ctx)
	require.NoError(t, err)
	assert.Empty(t, second.Repaired)
	assert.Equal(t, 2, second.Skipped)
}

func TestKnowledgeStore_RepairClearsTheCache(t *testing.T) {
	ctx := context.Background()
	st := memorystorer.NewStorer()

	e := &mapEmbedder{
		dim: 2,
		vectors: map[string][]float32{
			"query":  {1, 0},
			"legacy": {0, 1},
		},
	}

	store := newStore(st, e, knowledge.WithCacheTTL(time.Hour))

	st.Seed(storer.Record{Id: "legacy", Content: "legacy", Embedding: []float32{1, 0, 0}})

	// stale record: cached result is empty
	results, err := store.Retrieve(ctx, "query")
	require.NoError(t, err)
	require.Empty(t, results)

	report, err := store.Repair(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"legacy"}, report.Repaired)

	// the repair invalidated the cached empty result
	results, err = store.Retrieve(ctx, "query")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestKnowledgeStore_StoreRejectsProviderDimensionDrift(t *testing.T) {
	ctx := context.Background()
	st := memorystorer.NewStorer()

	// the provider claims 3 dimensions but returns 2
	e := &mapEmbedder{
		dim: 3,
		vectors: map[string][]float32{
			"drifting": {1, 0},
		},
	}

	store := newStore(st, e)

	_, err := store.Store(ctx, "drifting", "")
	require.ErrorIs(t, err, knowledge.ErrDimensionMismatch)

	count, err := st.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
