package storer

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("record not found")

	// ErrWriteFailed is returned when a write or update did not take effect.
	ErrWriteFailed = errors.New("write failed")

	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// Storer is the boundary to the persistence service that holds knowledge
// records. It owns no ranking logic. Writes are durable before Write
// returns, and ReadCandidates never omits a record matching the filter that
// was durably written before the call began. An empty category means no
// filter; a limit below 1 means the adapter reads everything.
type Storer interface {
	Write(ctx context.Context, content string, category string, metadata map[string]any, vector []float32) (string, error)
	ReadCandidates(ctx context.Context, category string, limit int) ([]Record, error)
	Read(ctx context.Context, id string) (Record, error)
	UpdateEmbedding(ctx context.Context, id string, vector []float32) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, category string) (int, error)
}
