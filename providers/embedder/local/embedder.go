package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/w-h-a/knowledge/providers/embedder"
)

// DefaultDimensions matches the output width of the small sentence-embedding
// models this backend stands in for.
const DefaultDimensions = 384

// localEmbedder hashes token and character-trigram features into a fixed
// width vector and normalizes it to unit length. It runs without a network
// and the same text always hashes to the same vector, which makes it the
// small-footprint option for development and tests. It captures lexical
// overlap, not meaning; use a model-backed provider when semantics matter.
type localEmbedder struct {
	options    embedder.Options
	dimensions int
}

func (e *localEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(strings.TrimSpace(text)) == 0 {
		return nil, embedder.ErrEmptyInput
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dimensions)

	for _, token := range tokenize(text) {
		addFeature(vec, token)

		runes := []rune(token)
		for i := 0; i+3 <= len(runes); i++ {
			addFeature(vec, "#"+string(runes[i:i+3]))
		}
	}

	normalize(vec)

	return vec, nil
}

func (e *localEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *localEmbedder) Provider() string {
	return "local"
}

func addFeature(vec []float32, feature string) {
	h := fnv.New32a()
	h.Write([]byte(feature))
	sum := h.Sum32()

	bucket := int(sum % uint32(len(vec)))

	// top bit picks the sign so colliding features can cancel instead of
	// always reinforcing
	if sum&0x80000000 != 0 {
		vec[bucket] -= 1
	} else {
		vec[bucket] += 1
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	if norm == 0 {
		return
	}

	scale := 1 / math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * scale)
	}
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	dimensions := options.Dimensions
	if dimensions < 1 {
		dimensions = DefaultDimensions
	}

	return &localEmbedder{
		options:    options,
		dimensions: dimensions,
	}
}
