package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/w-h-a/knowledge/providers/embedder"
)

// Output widths advertised by the OpenAI embedding models we support.
var modelDimensions = map[string]int{
	string(openai.SmallEmbedding3): 1536,
	string(openai.LargeEmbedding3): 3072,
	string(openai.AdaEmbeddingV2):  1536,
}

type openAIEmbedder struct {
	options    embedder.Options
	dimensions int
	client     *openai.Client
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(strings.TrimSpace(text)) == 0 {
		return nil, embedder.ErrEmptyInput
	}

	rsp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.options.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", embedder.ErrUnavailable, err)
	}

	if len(rsp.Data) == 0 || len(rsp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no response from OpenAI", embedder.ErrUnavailable)
	}

	return rsp.Data[0].Embedding, nil
}

func (e *openAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *openAIEmbedder) Provider() string {
	return "openai:" + e.options.Model
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	if len(options.Model) == 0 {
		options.Model = string(openai.SmallEmbedding3)
	}

	dimensions := options.Dimensions
	if dimensions == 0 {
		dimensions = modelDimensions[options.Model]
	}
	if dimensions == 0 {
		panic(fmt.Sprintf("unknown dimensionality for openai model %s", options.Model))
	}

	e := &openAIEmbedder{
		options:    options,
		dimensions: dimensions,
	}

	client := openai.NewClient(options.ApiKey)

	e.client = client

	return e
}
