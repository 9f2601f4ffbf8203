package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/w-h-a/knowledge/providers/embedder"
	genaiopt "google.golang.org/api/option"
)

var modelDimensions = map[string]int{
	"text-embedding-004": 768,
	"embedding-001":      768,
}

type googleEmbedder struct {
	options    embedder.Options
	dimensions int
	client     *genai.Client
}

func (e *googleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(strings.TrimSpace(text)) == 0 {
		return nil, embedder.ErrEmptyInput
	}

	model := e.client.EmbeddingModel(e.options.Model)

	rsp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", embedder.ErrUnavailable, err)
	}

	if rsp == nil || rsp.Embedding == nil || len(rsp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: no response from Google", embedder.ErrUnavailable)
	}

	return rsp.Embedding.Values, nil
}

func (e *googleEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *googleEmbedder) Provider() string {
	return "google:" + e.options.Model
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	if len(options.Model) == 0 {
		options.Model = "text-embedding-004"
	}

	dimensions := options.Dimensions
	if dimensions == 0 {
		dimensions = modelDimensions[options.Model]
	}
	if dimensions == 0 {
		panic(fmt.Sprintf("unknown dimensionality for google model %s", options.Model))
	}

	e := &googleEmbedder{
		options:    options,
		dimensions: dimensions,
	}

	client, err := genai.NewClient(
		context.Background(),
		genaiopt.WithAPIKey(options.ApiKey),
	)
	if err != nil {
		panic(err)
	}

	e.client = client

	return e
}
