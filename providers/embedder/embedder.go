package embedder

import (
	"context"
	"errors"
)

var (
	// ErrEmptyInput is returned when the text to embed is empty after trimming.
	ErrEmptyInput = errors.New("empty input text")

	// ErrUnavailable is returned when the embedding backend cannot be reached,
	// including calls cut short by a context deadline.
	ErrUnavailable = errors.New("embedding backend unavailable")
)

// Embedder wraps exactly one embedding backend. Embed must be deterministic
// for a given input, and implementations do no caching of their own.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Provider() string
}
