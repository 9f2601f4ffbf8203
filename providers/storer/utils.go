package storer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DecodeEmbedding decodes a stored embedding value into a vector. Historical
// writers left vectors behind in more than one shape: the native vector
// column's textual form ("[0.1,0.2]"), a JSON array, or that array
// double-encoded inside a JSON string. All of them parse here. Empty, null,
// or undecodable values decode to nil rather than an error; the reconciler
// classifies nil embeddings as stale.
func DecodeEmbedding(raw []byte) []float32 {
	trimmed := bytes.TrimSpace(raw)

	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil
		}
		trimmed = bytes.TrimSpace([]byte(inner))
	}

	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}

	var vec []float32
	if err := json.Unmarshal(trimmed, &vec); err != nil {
		return nil
	}

	if len(vec) == 0 {
		return nil
	}

	return vec
}

// EncodeEmbedding renders the canonical textual form of a vector, the same
// "[a,b,c]" shape the vector column reports. Adapters that cannot store a
// native vector value write this form and nothing else.
func EncodeEmbedding(vec []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
