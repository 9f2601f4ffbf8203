package knowledge

import (
	"context"

	"github.com/w-h-a/knowledge/providers/embedder"
	"github.com/w-h-a/knowledge/providers/storer"
)

type KnowledgeStore interface {
	Store(ctx context.Context, content string, category string, opts ...StoreOption) (string, error)
	Retrieve(ctx context.Context, query string, opts ...RetrieveOption) ([]ScoredRecord, error)
	Repair(ctx context.Context, opts ...RepairOption) (RepairReport, error)
	ClearCache()
	UseEmbedder(e embedder.Embedder)
}

// ScoredRecord pairs a stored record with its similarity to a query vector.
// It is produced by Rank and never persisted.
type ScoredRecord struct {
	Record     storer.Record
	Similarity float32
}
