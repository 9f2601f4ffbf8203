package knowledge

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	knowledgeservice "github.com/w-h-a/knowledge/internal/service/knowledge"
	"github.com/w-h-a/knowledge/providers/embedder"
	"github.com/w-h-a/knowledge/providers/storer"
)

type knowledgeHandler struct {
	service *knowledgeservice.Service
}

func (h *knowledgeHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req knowledgeservice.StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, errors.New("invalid json"))
		return
	}
	defer r.Body.Close()

	rsp, err := h.service.Store(r.Context(), req)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusCreated, rsp)
}

func (h *knowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := knowledgeservice.SearchRequest{
		Query:    query.Get("q"),
		Category: query.Get("category"),
	}

	if raw := query.Get("top_k"); len(raw) > 0 {
		topK, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, errors.New("top_k must be an integer"))
			return
		}
		req.TopK = topK
	}

	if raw := query.Get("min_similarity"); len(raw) > 0 {
		min, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, errors.New("min_similarity must be a number"))
			return
		}
		req.MinSimilarity = float32(min)
	}

	rsp, err := h.service.Search(r.Context(), req)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, rsp)
}

func (h *knowledgeHandler) Repair(w http.ResponseWriter, r *http.Request) {
	var req knowledgeservice.RepairRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, errors.New("invalid json"))
			return
		}
	}
	defer r.Body.Close()

	report, err := h.service.Repair(r.Context(), req)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *knowledgeHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.service.ClearCache(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *knowledgeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	rsp, err := h.service.Stats(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, rsp)
}

func (h *knowledgeHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, knowledgeservice.ErrInvalidRequest), errors.Is(err, embedder.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, storer.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, embedder.ErrUnavailable), errors.Is(err, storer.ErrUnavailable):
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= 500 {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func NewHandler(service *knowledgeservice.Service) *mux.Router {
	h := &knowledgeHandler{service: service}

	router := mux.NewRouter()

	router.HandleFunc("/api/v1/knowledge", h.Store).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/knowledge/search", h.Search).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/knowledge/repair", h.Repair).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/knowledge/cache/clear", h.ClearCache).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/knowledge/stats", h.Stats).Methods(http.MethodGet)
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	return router
}
