package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/w-h-a/knowledge"
	"github.com/w-h-a/knowledge/providers/embedder"
	"github.com/w-h-a/knowledge/providers/storer"
)

const maxTopK = 100

var ErrInvalidRequest = errors.New("invalid request")

type Service struct {
	store  knowledge.KnowledgeStore
	storer storer.Storer
}

func (s *Service) Store(ctx context.Context, req StoreRequest) (StoreResponse, error) {
	if len(strings.TrimSpace(req.Content)) == 0 {
		return StoreResponse{}, fmt.Errorf("%w: content is required", ErrInvalidRequest)
	}

	id, err := s.store.Store(
		ctx,
		req.Content,
		strings.TrimSpace(req.Category),
		knowledge.WithMetadata(req.Metadata),
	)
	if err != nil {
		return StoreResponse{}, err
	}

	return StoreResponse{Id: id}, nil
}

func (s *Service) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	if len(strings.TrimSpace(req.Query)) == 0 {
		return SearchResponse{}, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 5
	}
	if topK > maxTopK {
		return SearchResponse{}, fmt.Errorf("%w: top_k must be at most %d", ErrInvalidRequest, maxTopK)
	}

	if req.MinSimilarity < -1 || req.MinSimilarity > 1 {
		return SearchResponse{}, fmt.Errorf("%w: min_similarity must be between -1 and 1", ErrInvalidRequest)
	}

	results, err := s.store.Retrieve(
		ctx,
		req.Query,
		knowledge.WithCategory(strings.TrimSpace(req.Category)),
		knowledge.WithTopK(topK),
		knowledge.WithMinSimilarity(req.MinSimilarity),
	)
	if err != nil {
		return SearchResponse{}, err
	}

	rsp := SearchResponse{Results: []SearchResult{}}

	for _, scored := range results {
		rsp.Results = append(rsp.Results, SearchResult{
			Id:         scored.Record.Id,
			Content:    scored.Record.Content,
			Category:   scored.Record.Category,
			Metadata:   scored.Record.Metadata,
			Similarity: scored.Similarity,
			CreatedAt:  scored.Record.CreatedAt,
		})
	}

	return rsp, nil
}

func (s *Service) Repair(ctx context.Context, req RepairRequest) (knowledge.RepairReport, error) {
	return s.store.Repair(ctx, knowledge.WithRepairCategory(strings.TrimSpace(req.Category)))
}

func (s *Service) ClearCache(ctx context.Context) {
	s.store.ClearCache()
}

func (s *Service) Stats(ctx context.Context, category string) (StatsResponse, error) {
	total, err := s.storer.Count(ctx, "")
	if err != nil {
		return StatsResponse{}, err
	}

	rsp := StatsResponse{Total: total}

	category = strings.TrimSpace(category)
	if len(category) > 0 {
		count, err := s.storer.Count(ctx, category)
		if err != nil {
			return StatsResponse{}, err
		}
		rsp.Category = category
		rsp.CategoryCount = &count
	}

	return rsp, nil
}

func (s *Service) UseEmbedder(e embedder.Embedder) {
	s.store.UseEmbedder(e)
}

func New(store knowledge.KnowledgeStore, st storer.Storer) *Service {
	return &Service{
		store:  store,
		storer: st,
	}
}
