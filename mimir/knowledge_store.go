package mimir

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/w-h-a/knowledge"
	"github.com/w-h-a/knowledge/providers/embedder"
)

type mimirKnowledgeStore struct {
	options    knowledge.Options
	reconciler *knowledge.Reconciler
	cache      *knowledge.QueryCache
	embedder   embedder.Embedder
	mtx        sync.RWMutex
}

func (m *mimirKnowledgeStore) Store(ctx context.Context, content string, category string, opts ...knowledge.StoreOption) (string, error) {
	options := knowledge.NewStoreOptions(opts...)

	e := m.activeEmbedder()

	text := knowledge.Truncate(knowledge.ExtractText(content), m.options.TruncateLimit)
	if len(strings.TrimSpace(text)) == 0 {
		return "", embedder.ErrEmptyInput
	}

	embedCtx, cancel := context.WithTimeout(ctx, m.options.EmbedTimeout)
	defer cancel()

	vec, err := e.Embed(embedCtx, text)
	if err != nil {
		return "", err
	}

	if len(vec) != e.Dimensions() {
		return "", fmt.Errorf("%w: provider %s returned %d dimensions, expected %d", knowledge.ErrDimensionMismatch, e.Provider(), len(vec), e.Dimensions())
	}

	return m.options.Storer.Write(ctx, content, category, options.Metadata, vec)
}

func (m *mimirKnowledgeStore) Retrieve(ctx context.Context, query string, opts ...knowledge.RetrieveOption) ([]knowledge.ScoredRecord, error) {
	options := knowledge.NewRetrieveOptions(opts...)

	if len(strings.TrimSpace(query)) == 0 {
		return nil, embedder.ErrEmptyInput
	}

	if cached, ok := m.cache.Get(query, options.Category); ok {
		return cached, nil
	}

	generation := m.cache.Generation()

	e := m.activeEmbedder()

	embedCtx, cancel := context.WithTimeout(ctx, m.options.EmbedTimeout)
	defer cancel()

	vec, err := e.Embed(embedCtx, knowledge.Truncate(query, m.options.TruncateLimit))
	if err != nil {
		return nil, err
	}

	candidates, err := m.options.Storer.ReadCandidates(ctx, options.Category, 0)
	if err != nil {
		return nil, err
	}

	fresh, stale := knowledge.Classify(candidates, e.Dimensions())
	if len(stale) > 0 {
		slog.WarnContext(ctx, "excluding stale records from ranking", "count", len(stale), "provider", e.Provider())
	}

	results, err := knowledge.Rank(vec, fresh, options.TopK, options.MinSimilarity)
	if err != nil {
		if errors.Is(err, knowledge.ErrDimensionMismatch) {
			slog.ErrorContext(ctx, "ranking saw a vector the reconciler should have caught", "error", err)
		}
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.cache.Put(generation, query, options.Category, results, m.options.CacheTTL)

	return results, nil
}

func (m *mimirKnowledgeStore) Repair(ctx context.Context, opts ...knowledge.RepairOption) (knowledge.RepairReport, error) {
	options := knowledge.NewRepairOptions(opts...)

	e := m.activeEmbedder()

	report, err := m.reconciler.RepairAll(ctx, options.Category, e)

	// repaired rows may now rank differently than anything cached
	if len(report.Repaired) > 0 {
		m.cache.Clear()
	}

	return report, err
}

func (m *mimirKnowledgeStore) ClearCache() {
	m.cache.Clear()
}

// UseEmbedder swaps the active provider. Existing records keep their stored
// vectors; the ones whose dimensionality no longer matches become stale and
// stay out of results until repaired.
func (m *mimirKnowledgeStore) UseEmbedder(e embedder.Embedder) {
	if e == nil {
		return
	}

	m.mtx.Lock()
	m.embedder = e
	m.mtx.Unlock()

	m.cache.Clear()
}

// activeEmbedder captures the provider once so a concurrent UseEmbedder cannot
// split a single call across two providers.
func (m *mimirKnowledgeStore) activeEmbedder() embedder.Embedder {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.embedder
}

func NewKnowledgeStore(opts ...knowledge.Option) knowledge.KnowledgeStore {
	options := knowledge.NewOptions(opts...)

	if options.Storer == nil {
		panic("storer is required")
	}

	if options.Embedder == nil {
		panic("embedder is required")
	}

	m := &mimirKnowledgeStore{
		options:    options,
		reconciler: knowledge.NewReconciler(options.Storer, options.TruncateLimit),
		cache:      knowledge.NewQueryCache(),
		embedder:   options.Embedder,
		mtx:        sync.RWMutex{},
	}

	return m
}
