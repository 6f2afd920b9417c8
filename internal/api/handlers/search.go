package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/docwise/medkb/internal/api"
	"github.com/docwise/medkb/internal/api/middleware"
	"github.com/docwise/medkb/internal/domain"
	"github.com/docwise/medkb/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, q domain.SearchQuery) (*service.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Search handles GET /search: a filtered similarity search over the tenant's
// slice of the index. Out-of-range limit and offset values are clamped by
// the service, not rejected.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	params := r.URL.Query()

	query := domain.SearchQuery{
		Text:        params.Get("q"),
		TenantID:    tenantID,
		TypeFilter:  domain.PointType(params.Get("type")),
		PatientID:   params.Get("patientId"),
		PatientName: params.Get("patientName"),
		Date:        params.Get("date"),
	}

	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		query.Limit = limit
	}
	if raw := params.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
		query.Offset = offset
	}
	if raw := params.Get("scoreThreshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "scoreThreshold must be a number")
			return
		}
		query.ScoreThreshold = float32(threshold)
	}

	result, err := h.svc.Search(r.Context(), query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}
