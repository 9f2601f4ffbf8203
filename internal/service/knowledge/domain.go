package knowledge

import "time"

type StoreRequest struct {
	Content  string         `json:"content"`
	Category string         `json:"category,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type StoreResponse struct {
	Id string `json:"id"`
}

type SearchRequest struct {
	Query         string  `json:"q"`
	Category      string  `json:"category,omitempty"`
	TopK          int     `json:"top_k,omitempty"`
	MinSimilarity float32 `json:"min_similarity,omitempty"`
}

type SearchResult struct {
	Id         string         `json:"id"`
	Content    string         `json:"content"`
	Category   string         `json:"category,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Similarity float32        `json:"similarity"`
	CreatedAt  time.Time      `json:"created_at"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

type RepairRequest struct {
	Category string `json:"category,omitempty"`
}

type StatsResponse struct {
	Total         int    `json:"total"`
	Category      string `json:"category,omitempty"`
	CategoryCount *int   `json:"category_count,omitempty"`
}
