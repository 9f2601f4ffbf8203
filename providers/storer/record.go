package storer

import "time"

// Record is one row of stored knowledge. Embedding length always matches the
// dimensionality of whichever provider produced it, which is not necessarily
// the provider that is active now. A nil embedding means the stored value was
// missing or failed to decode.
type Record struct {
	Id        string
	Content   string
	Category  string
	Metadata  map[string]any
	Embedding []float32
	CreatedAt time.Time
}
