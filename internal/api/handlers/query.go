package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/docwise/medkb/internal/api"
	"github.com/docwise/medkb/internal/api/middleware"
	"github.com/docwise/medkb/internal/service"
)

type QueryService interface {
	Query(ctx context.Context, tenantID, query, lang string) (*service.QueryResult, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Query string `json:"query"`
	Lang  string `json:"lang"`
}

// Query handles POST /query: combined live-source and index retrieval.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.svc.Query(r.Context(), tenantID, req.Query, req.Lang)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}
