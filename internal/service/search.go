package service

import (
	"context"
	"strings"

	"github.com/docwise/medkb/internal/domain"
	"github.com/docwise/medkb/internal/telemetry"
	"github.com/docwise/medkb/internal/vectorstore"
)

const (
	// DefaultSearchLimit applies when the caller does not set a limit.
	DefaultSearchLimit = 10
	// MaxSearchLimit caps the page size.
	MaxSearchLimit = 50
	// MaxSearchOffset caps how deep pagination can reach.
	MaxSearchOffset = 10000
)

// SearchResult is the answer to one similarity search.
type SearchResult struct {
	Count   int                  `json:"count"`
	Matches []domain.SearchMatch `json:"matches"`
}

// SearchService embeds a query and runs it against the tenant's slice of the
// vector index.
type SearchService struct {
	embedder Embedder
	index    VectorIndex
}

func NewSearchService(embedder Embedder, index VectorIndex) *SearchService {
	return &SearchService{embedder: embedder, index: index}
}

// Search validates and clamps the query, embeds it, and returns the scored
// matches. TenantID comes from verified identity; an empty tenant is a
// programming error upstream and is rejected.
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) (*SearchResult, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, domain.ErrEmptyQuery
	}
	if q.TenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeUnauthorized, "tenant identity not resolved")
	}
	if q.TypeFilter != "" {
		if err := domain.ValidatePointType(q.TypeFilter); err != nil {
			return nil, err
		}
	}

	if q.Limit <= 0 {
		q.Limit = DefaultSearchLimit
	}
	if q.Limit > MaxSearchLimit {
		q.Limit = MaxSearchLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Offset > MaxSearchOffset {
		q.Offset = MaxSearchOffset
	}

	ctx, span := telemetry.StartSpan(ctx, "search.query", telemetry.SpanAttributes{
		TenantID:  q.TenantID,
		Operation: "search",
	})
	defer span.End()

	vector, err := s.embedder.EmbedQuery(ctx, q.Text)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "embedding generation failed", err)
	}

	matches, err := s.index.Search(ctx, vector, vectorstore.Filter{
		TenantID:    q.TenantID,
		Type:        q.TypeFilter,
		PatientID:   q.PatientID,
		PatientName: q.PatientName,
		Date:        q.Date,
	}, q.Limit, q.Offset, q.ScoreThreshold)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "vector search failed", err)
	}

	if matches == nil {
		matches = []domain.SearchMatch{}
	}
	return &SearchResult{Count: len(matches), Matches: matches}, nil
}
