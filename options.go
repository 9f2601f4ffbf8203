package knowledge

import (
	"context"
	"time"

	"github.com/w-h-a/knowledge/providers/embedder"
	"github.com/w-h-a/knowledge/providers/storer"
)

type Option func(*Options)

type Options struct {
	Storer        storer.Storer
	Embedder      embedder.Embedder
	CacheTTL      time.Duration
	TruncateLimit int
	EmbedTimeout  time.Duration
	Context       context.Context
}

func WithStorer(storer storer.Storer) Option {
	return func(o *Options) {
		o.Storer = storer
	}
}

func WithEmbedder(embedder embedder.Embedder) Option {
	return func(o *Options) {
		o.Embedder = embedder
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.CacheTTL = ttl
	}
}

func WithTruncateLimit(limit int) Option {
	return func(o *Options) {
		o.TruncateLimit = limit
	}
}

func WithEmbedTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.EmbedTimeout = timeout
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		CacheTTL:      60 * time.Second,  // forces frequent resync with the backing store
		TruncateLimit: 1000,              // runes of content sent to the embedder
		EmbedTimeout:  10 * time.Second,
		Context:       context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type StoreOption func(*StoreOptions)

type StoreOptions struct {
	Metadata map[string]any
	Context  context.Context
}

func WithMetadata(metadata map[string]any) StoreOption {
	return func(o *StoreOptions) {
		o.Metadata = metadata
	}
}

func NewStoreOptions(opts ...StoreOption) StoreOptions {
	options := StoreOptions{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type RetrieveOption func(*RetrieveOptions)

type RetrieveOptions struct {
	Category      string
	TopK          int
	MinSimilarity float32
	Context       context.Context
}

func WithCategory(category string) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.Category = category
	}
}

func WithTopK(topK int) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.TopK = topK
	}
}

func WithMinSimilarity(min float32) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.MinSimilarity = min
	}
}

func NewRetrieveOptions(opts ...RetrieveOption) RetrieveOptions {
	options := RetrieveOptions{
		TopK:          5,
		MinSimilarity: 0.0,
		Context:       context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type RepairOption func(*RepairOptions)

type RepairOptions struct {
	Category string
	Context  context.Context
}

func WithRepairCategory(category string) RepairOption {
	return func(o *RepairOptions) {
		o.Category = category
	}
}

func NewRepairOptions(opts ...RepairOption) RepairOptions {
	options := RepairOptions{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
