package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/knowledge/providers/storer"
)

type memoryStorer struct {
	options storer.Options
	records map[string]storer.Record
	mtx     sync.RWMutex
}

func (s *memoryStorer) Write(ctx context.Context, content string, category string, metadata map[string]any, vector []float32) (string, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	id := uuid.New().String()

	now := time.Now().UTC()

	cpy := make([]float32, len(vector))
	copy(cpy, vector)

	rec := storer.Record{
		Id:        id,
		Content:   content,
		Category:  category,
		Metadata:  cloneMetadata(metadata),
		Embedding: cpy,
		CreatedAt: now,
	}

	s.records[id] = rec

	return id, nil
}

func (s *memoryStorer) ReadCandidates(ctx context.Context, category string, limit int) ([]storer.Record, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	candidates := make([]storer.Record, 0, len(s.records))

	for _, rec := range s.records {
		if len(category) > 0 && rec.Category != category {
			continue
		}
		candidates = append(candidates, cloneRecord(rec))
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Id < candidates[j].Id
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

func (s *memoryStorer) Read(ctx context.Context, id string) (storer.Record, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	rec, exists := s.records[id]
	if !exists {
		return storer.Record{}, fmt.Errorf("%w: id %s", storer.ErrNotFound, id)
	}

	return cloneRecord(rec), nil
}

func (s *memoryStorer) UpdateEmbedding(ctx context.Context, id string, vector []float32) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	rec, exists := s.records[id]
	if !exists {
		return fmt.Errorf("%w: id %s", storer.ErrNotFound, id)
	}

	cpy := make([]float32, len(vector))
	copy(cpy, vector)

	rec.Embedding = cpy

	s.records[id] = rec

	return nil
}

func (s *memoryStorer) Delete(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.records, id)

	return nil
}

func (s *memoryStorer) Count(ctx context.Context, category string) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if len(category) == 0 {
		return len(s.records), nil
	}

	count := 0
	for _, rec := range s.records {
		if rec.Category == category {
			count++
		}
	}

	return count, nil
}

// Seed inserts a record as-is, embedding included, bypassing the embed path.
// Tests use it to plant vectors with arbitrary dimensionality.
func (s *memoryStorer) Seed(rec storer.Record) string {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if len(rec.Id) == 0 {
		rec.Id = uuid.New().String()
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	s.records[rec.Id] = cloneRecord(rec)

	return rec.Id
}

func cloneRecord(rec storer.Record) storer.Record {
	cpy := rec

	cpy.Embedding = make([]float32, len(rec.Embedding))
	copy(cpy.Embedding, rec.Embedding)
	if len(rec.Embedding) == 0 {
		cpy.Embedding = nil
	}

	cpy.Metadata = cloneMetadata(rec.Metadata)

	return cpy
}

func cloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	cpy := make(map[string]any, len(metadata))
	maps.Copy(cpy, metadata)
	return cpy
}

func NewStorer(opts ...storer.Option) *memoryStorer {
	options := storer.NewOptions(opts...)

	s := &memoryStorer{
		options: options,
		records: map[string]storer.Record{},
		mtx:     sync.RWMutex{},
	}

	return s
}
