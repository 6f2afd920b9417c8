package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/docwise/medkb/internal/api"
	"github.com/docwise/medkb/internal/api/middleware"
)

type IndexerService interface {
	Reindex(ctx context.Context, tenantID string) (int, error)
	IngestTopic(ctx context.Context, topic string) (int, error)
}

type ReindexQueue interface {
	Enqueue(ctx context.Context, tenantID string) error
}

type IndexHandler struct {
	svc   IndexerService
	queue ReindexQueue
}

func NewIndexHandler(svc IndexerService, queue ReindexQueue) *IndexHandler {
	return &IndexHandler{svc: svc, queue: queue}
}

type ReindexRequest struct {
	// Async queues the reindex for the background worker instead of running
	// it in the request.
	Async bool `json:"async"`
}

type ReindexResponse struct {
	Indexed int    `json:"indexed,omitempty"`
	Status  string `json:"status"`
}

type IngestRequest struct {
	Topic string `json:"topic"`
}

type IngestResponse struct {
	Ingested int    `json:"ingested"`
	Topic    string `json:"topic"`
}

// Reindex handles POST /reindex: rebuild the calling tenant's index points.
// An empty body runs synchronously.
func (h *IndexHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ReindexRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if req.Async {
		if h.queue == nil {
			api.Error(w, http.StatusBadRequest, "async reindex is not available")
			return
		}
		if err := h.queue.Enqueue(r.Context(), tenantID); err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusAccepted, ReindexResponse{Status: "queued"})
		return
	}

	count, err := h.svc.Reindex(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ReindexResponse{Indexed: count, Status: "completed"})
}

// Ingest handles POST /ingest: fetch external knowledge for a topic and add
// it to the shared knowledge slice of the index.
func (h *IndexHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Topic == "" {
		api.Error(w, http.StatusBadRequest, "topic is required")
		return
	}

	count, err := h.svc.IngestTopic(r.Context(), req.Topic)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, IngestResponse{Ingested: count, Topic: req.Topic})
}
