package knowledge

import (
	"fmt"
	"sort"

	"github.com/w-h-a/knowledge/providers/storer"
)

// Rank scores candidates against the query vector with cosine similarity and
// returns the topK best matches in strictly descending order. Ties are broken
// by ascending record id so repeated calls over the same corpus produce the
// same ordering. Candidates scoring strictly below minSimilarity are dropped
// before truncation to topK; every candidate is scored, there is no early
// pruning.
func Rank(query []float32, candidates []storer.Record, topK int, minSimilarity float32) ([]ScoredRecord, error) {
	if topK < 1 {
		return nil, nil
	}

	scored := make([]ScoredRecord, 0, len(candidates))

	for _, rec := range candidates {
		if len(rec.Embedding) != len(query) {
			return nil, fmt.Errorf("%w: record %s has %d dimensions, query has %d", ErrDimensionMismatch, rec.Id, len(rec.Embedding), len(query))
		}

		sim := float32(CosineSimilarity(query, rec.Embedding))
		if sim < minSimilarity {
			continue
		}

		scored = append(scored, ScoredRecord{Record: rec, Similarity: sim})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Record.Id < scored[j].Record.Id
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}

	return scored, nil
}
