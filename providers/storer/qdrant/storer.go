package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/knowledge/providers/storer"
	getsafe "github.com/w-h-a/knowledge/util/get_safe"
)

const scrollPageSize = 128

type qdrantStorer struct {
	options storer.Options
	client  *http.Client
}

func (s *qdrantStorer) Write(ctx context.Context, content string, category string, metadata map[string]any, vector []float32) (string, error) {
	id := uuid.New().String()

	payload := map[string]any{
		"content":    content,
		"category":   category,
		"metadata":   metadata,
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	}

	point := map[string]any{
		"id":      id,
		"vector":  vector,
		"payload": payload,
	}

	req := map[string]any{
		"points": []map[string]any{point},
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPut, path, req, &rsp); err != nil {
		return "", fmt.Errorf("%w: %v", storer.ErrWriteFailed, err)
	}

	if !strings.EqualFold(rsp.Status.State, "ok") && len(rsp.Status.Error) > 0 {
		return "", fmt.Errorf("%w: %s", storer.ErrWriteFailed, rsp.Status.Error)
	}

	return id, nil
}

func (s *qdrantStorer) ReadCandidates(ctx context.Context, category string, limit int) ([]storer.Record, error) {
	var records []storer.Record
	var offset json.RawMessage

	for {
		pageSize := scrollPageSize
		if limit > 0 && limit-len(records) < pageSize {
			pageSize = limit - len(records)
		}
		if pageSize < 1 {
			break
		}

		req := map[string]any{
			"limit":        pageSize,
			"with_vector":  true,
			"with_payload": true,
		}

		if len(category) > 0 {
			req["filter"] = map[string]any{
				"must": []map[string]any{
					{
						"key":   "category",
						"match": map[string]any{"value": category},
					},
				},
			}
		}

		if offset != nil {
			req["offset"] = offset
		}

		var rsp qdrantEnvelope[qdrantScrollResult]

		path := fmt.Sprintf("/collections/%s/points/scroll", url.PathEscape(s.options.Collection))

		if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
			return nil, fmt.Errorf("%w: %v", storer.ErrUnavailable, err)
		}

		for _, point := range rsp.Result.Points {
			records = append(records, pointToRecord(point))
		}

		if rsp.Result.NextPageOffset == nil || bytes.Equal(rsp.Result.NextPageOffset, []byte("null")) {
			break
		}

		offset = rsp.Result.NextPageOffset
	}

	return records, nil
}

func (s *qdrantStorer) Read(ctx context.Context, id string) (storer.Record, error) {
	req := map[string]any{
		"ids":          []string{id},
		"with_vector":  true,
		"with_payload": true,
	}

	var rsp qdrantEnvelope[[]qdrantPoint]

	path := fmt.Sprintf("/collections/%s/points", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return storer.Record{}, fmt.Errorf("%w: %v", storer.ErrUnavailable, err)
	}

	if len(rsp.Result) == 0 {
		return storer.Record{}, fmt.Errorf("%w: id %s", storer.ErrNotFound, id)
	}

	return pointToRecord(rsp.Result[0]), nil
}

func (s *qdrantStorer) UpdateEmbedding(ctx context.Context, id string, vector []float32) error {
	req := map[string]any{
		"points": []map[string]any{
			{
				"id":     id,
				"vector": vector,
			},
		},
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points/vectors?wait=true", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPut, path, req, &rsp); err != nil {
		return fmt.Errorf("%w: %v", storer.ErrWriteFailed, err)
	}

	if !strings.EqualFold(rsp.Status.State, "ok") && len(rsp.Status.Error) > 0 {
		return fmt.Errorf("%w: %s", storer.ErrWriteFailed, rsp.Status.Error)
	}

	return nil
}

func (s *qdrantStorer) Delete(ctx context.Context, id string) error {
	req := map[string]any{
		"points": []string{id},
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return fmt.Errorf("%w: %v", storer.ErrWriteFailed, err)
	}

	return nil
}

func (s *qdrantStorer) Count(ctx context.Context, category string) (int, error) {
	req := map[string]any{
		"exact": true,
	}

	if len(category) > 0 {
		req["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key":   "category",
					"match": map[string]any{"value": category},
				},
			},
		}
	}

	var rsp qdrantEnvelope[qdrantCountResult]

	path := fmt.Sprintf("/collections/%s/points/count", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return 0, fmt.Errorf("%w: %v", storer.ErrUnavailable, err)
	}

	return rsp.Result.Count, nil
}

func pointToRecord(point qdrantPoint) storer.Record {
	payload := point.Payload

	createdAt, _ := time.Parse(time.RFC3339Nano, getsafe.String(payload, "created_at"))

	return storer.Record{
		Id:        point.Id,
		Content:   getsafe.String(payload, "content"),
		Category:  getsafe.String(payload, "category"),
		Metadata:  getsafe.Metadata(payload, "metadata"),
		Embedding: point.Vector,
		CreatedAt: createdAt,
	}
}

func (s *qdrantStorer) do(ctx context.Context, method string, path string, req any, rsp any) error {
	u := s.options.Location + path

	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")

	if len(s.options.ApiKey) > 0 {
		request.Header.Set("api-key", s.options.ApiKey)
		request.Header.Set("Authorization", "Bearer "+s.options.ApiKey)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("qdrant http %d: %s", response.StatusCode, string(payload))
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return err
		}
	}

	return nil
}

func (s *qdrantStorer) configure() error {
	exists, err := s.collectionExists()
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return s.createCollection()
}

func (s *qdrantStorer) collectionExists() (bool, error) {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	err := s.do(context.Background(), http.MethodGet, path, nil, &rsp)
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, err
	}

	return strings.EqualFold(rsp.Status.State, "ok"), nil
}

func (s *qdrantStorer) createCollection() error {
	distance := s.options.Distance
	if len(distance) == 0 {
		distance = "Cosine"
	}

	req := map[string]any{
		"vectors": map[string]any{
			"size":     s.options.VectorSize,
			"distance": distance,
		},
	}

	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	if err := s.do(context.Background(), http.MethodPut, path, req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") {
		return errors.New(rsp.Status.Error)
	}

	return nil
}

func NewStorer(opts ...storer.Option) storer.Storer {
	options := storer.NewOptions(opts...)

	if len(options.Location) == 0 ||
		len(options.Collection) == 0 ||
		options.VectorSize == 0 {
		panic("missing location, collection, or vector size for qdrant storer")
	}

	client := &http.Client{
		Timeout: 15 * time.Second,
	}

	s := &qdrantStorer{
		options: options,
		client:  client,
	}

	if err := s.configure(); err != nil {
		panic(err)
	}

	return s
}
