package knowledge

import (
	"encoding/json"
	"math"
	"strings"

	getsafe "github.com/w-h-a/knowledge/util/get_safe"
)

func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ExtractText returns the text to embed for a piece of stored content. Rows
// sometimes hold a serialized JSON payload instead of plain text; in that
// case the payload's content or text field wins. The stored content itself
// is never rewritten.
func ExtractText(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return content
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return content
	}

	if s := getsafe.String(payload, "content"); len(strings.TrimSpace(s)) > 0 {
		return s
	}

	if s := getsafe.String(payload, "text"); len(strings.TrimSpace(s)) > 0 {
		return s
	}

	return content
}

// Truncate cuts text to at most limit runes. A limit below 1 means no cut.
func Truncate(text string, limit int) string {
	if limit < 1 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}
