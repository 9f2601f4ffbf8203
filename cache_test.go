package knowledge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/knowledge"
	"github.com/w-h-a/knowledge/providers/storer"
)

func scoredFixture(ids ...string) []knowledge.ScoredRecord {
	var results []knowledge.ScoredRecord
	for i, id := range ids {
		results = append(results, knowledge.ScoredRecord{
			Record:     storer.Record{Id: id},
			Similarity: 1 - float32(i)*0.1,
		})
	}
	return results
}

func TestQueryCache_PutThenGet(t *testing.T) {
	cache := knowledge.NewQueryCache()

	cache.Put(cache.Generation(), "how do i deploy", "ops", scoredFixture("a", "b"), time.Minute)

	results, ok := cache.Get("how do i deploy", "ops")
	require.True(t, ok)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Record.Id)
}

func TestQueryCache_KeysAreVerbatim(t *testing.T) {
	cache := knowledge.NewQueryCache()

	cache.Put(cache.Generation(), "Deploy", "", scoredFixture("a"), time.Minute)

	_, ok := cache.Get("deploy", "")
	assert.False(t, ok)

	_, ok = cache.Get("Deploy ", "")
	assert.False(t, ok)

	_, ok = cache.Get("Deploy", "ops")
	assert.False(t, ok)

	_, ok = cache.Get("Deploy", "")
	assert.True(t, ok)
}

func TestQueryCache_EntriesExpire(t *testing.T) {
	cache := knowledge.NewQueryCache()

	cache.Put(cache.Generation(), "q", "", scoredFixture("a"), 10*time.Millisecond)

	time.Sleep(25 * time.Millisecond)

	_, ok := cache.Get("q", "")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestQueryCache_ZeroTTLNeverStores(t *testing.T) {
	cache := knowledge.NewQueryCache()

	cache.Put(cache.Generation(), "q", "", scoredFixture("a"), 0)

	_, ok := cache.Get("q", "")
	assert.False(t, ok)
}

func TestQueryCache_ClearDropsEverything(t *testing.T) {
	cache := knowledge.NewQueryCache()

	cache.Put(cache.Generation(), "one", "", scoredFixture("a"), time.Minute)
	cache.Put(cache.Generation(), "two", "cat", scoredFixture("b"), time.Minute)
	require.Equal(t, 2, cache.Len())

	cache.Clear()

	assert.Equal(t, 0, cache.Len())

	_, ok := cache.Get("one", "")
	assert.False(t, ok)
	_, ok = cache.Get("two", "cat")
	assert.False(t, ok)
}

func TestQueryCache_ClearDiscardsInFlightPut(t *testing.T) {
	cache := knowledge.NewQueryCache()

	// a retrieval takes the generation before clearing lands
	generation := cache.Generation()

	cache.Clear()

	cache.Put(generation, "q", "", scoredFixture("a"), time.Minute)

	_, ok := cache.Get("q", "")
	assert.False(t, ok)
}

func TestQueryCache_GetReturnsACopy(t *testing.T) {
	cache := knowledge.NewQueryCache()

	cache.Put(cache.Generation(), "q", "", scoredFixture("a", "b"), time.Minute)

	first, ok := cache.Get("q", "")
	require.True(t, ok)

	first[0].Record.Id = "mutated"

	second, ok := cache.Get("q", "")
	require.True(t, ok)
	assert.Equal(t, "a", second[0].Record.Id)
}
