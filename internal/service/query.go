package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/docwise/medkb/internal/aggregate"
	"github.com/docwise/medkb/internal/domain"
	"github.com/docwise/medkb/internal/intent"
	"github.com/docwise/medkb/internal/telemetry"
)

// QueryResult combines live external knowledge with indexed record matches
// for one query, plus a rendered context block for LLM consumption.
type QueryResult struct {
	Agent   domain.AgentType       `json:"agent"`
	Items   []domain.KnowledgeItem `json:"items"`
	Matches []domain.SearchMatch   `json:"matches"`
	Context string                 `json:"context"`
}

// QueryService answers the combined retrieval call: it classifies the query,
// fans out to the live sources, and searches the tenant's index, both halves
// in parallel.
type QueryService struct {
	fetcher KnowledgeFetcher
	search  *SearchService
	opts    aggregate.Options
}

// NewQueryService wires the live fan-out and the index search. Zero fields in
// opts fall back to the aggregate defaults.
func NewQueryService(fetcher KnowledgeFetcher, search *SearchService, opts aggregate.Options) *QueryService {
	return &QueryService{fetcher: fetcher, search: search, opts: opts}
}

// Query runs retrieval for a tenant. The live fan-out never fails; a failed
// index search degrades to an empty match list so external knowledge still
// reaches the caller.
func (s *QueryService) Query(ctx context.Context, tenantID, query, lang string) (*QueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if tenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeUnauthorized, "tenant identity not resolved")
	}

	ctx, span := telemetry.StartSpan(ctx, "query.combined", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "query",
	})
	defer span.End()

	agent := intent.Classify(query, lang)

	var (
		wg        sync.WaitGroup
		items     []domain.KnowledgeItem
		matches   []domain.SearchMatch
		searchErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		items = s.fetcher.Aggregate(ctx, query, s.opts)
	}()
	go func() {
		defer wg.Done()
		result, err := s.search.Search(ctx, domain.SearchQuery{
			Text:     query,
			TenantID: tenantID,
			Limit:    DefaultSearchLimit,
		})
		if err != nil {
			searchErr = err
			return
		}
		matches = result.Matches
	}()
	wg.Wait()

	if searchErr != nil {
		log.Printf("query: index search degraded to empty result: %v", searchErr)
		telemetry.CaptureError(ctx, searchErr)
		matches = []domain.SearchMatch{}
	}
	if items == nil {
		items = []domain.KnowledgeItem{}
	}
	if matches == nil {
		matches = []domain.SearchMatch{}
	}

	return &QueryResult{
		Agent:   agent,
		Items:   items,
		Matches: matches,
		Context: renderContext(items, matches),
	}, nil
}

// renderContext flattens both result sets into a plain-text block an LLM can
// take as grounding context.
func renderContext(items []domain.KnowledgeItem, matches []domain.SearchMatch) string {
	var b strings.Builder

	if len(items) > 0 {
		b.WriteString("External sources:\n")
		for _, item := range items {
			b.WriteString("- ")
			b.WriteString(item.Title)
			meta := item.Source
			if item.Date != "" {
				meta += ", " + item.Date
			}
			fmt.Fprintf(&b, " (%s)", meta)
			if item.Summary != "" {
				b.WriteString(": ")
				b.WriteString(item.Summary)
			}
			if item.URL != "" {
				fmt.Fprintf(&b, " [%s]", item.URL)
			}
			b.WriteString("\n")
		}
	}

	if len(matches) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Indexed records:\n")
		for _, m := range matches {
			fmt.Fprintf(&b, "- [%s", m.Payload.Type)
			if m.Payload.PatientName != "" {
				fmt.Fprintf(&b, ", %s", m.Payload.PatientName)
			}
			if m.Payload.Date != "" {
				fmt.Fprintf(&b, ", %s", m.Payload.Date)
			}
			fmt.Fprintf(&b, "] %s\n", m.Payload.Text)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
