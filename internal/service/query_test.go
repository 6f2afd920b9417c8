package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docwise/medkb/internal/aggregate"
	"github.com/docwise/medkb/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueryService(fetcher *fakeFetcher, index *fakeIndex) *QueryService {
	return NewQueryService(fetcher, NewSearchService(&fakeEmbedder{}, index), aggregate.Options{})
}

func TestQueryEmpty(t *testing.T) {
	svc := newQueryService(&fakeFetcher{}, newFakeIndex())

	_, err := svc.Query(context.Background(), "t1", "   ", "en")
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestQueryMissingTenant(t *testing.T) {
	svc := newQueryService(&fakeFetcher{}, newFakeIndex())

	_, err := svc.Query(context.Background(), "", "diabetes", "en")
	require.Error(t, err)
}

func TestQueryCombinesBothHalves(t *testing.T) {
	fetcher := &fakeFetcher{items: []domain.KnowledgeItem{
		{Title: "Metformin trial", Summary: "Outcomes.", URL: "https://example.org/1", Source: "EuropePMC", Date: "2024-01-02"},
	}}
	index := newFakeIndex()
	index.matches = []domain.SearchMatch{
		{ID: "rep-1::report::0", Score: 0.9, Payload: domain.PointPayload{
			Type: domain.PointTypeReport, Text: "Findings: normal.", PatientName: "Erika Muster", Date: "2024-03-01",
		}},
	}
	svc := newQueryService(fetcher, index)

	result, err := svc.Query(context.Background(), "tenant-a", "diabetes therapy for my patient", "en")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentMedical, result.Agent)
	assert.Len(t, result.Items, 1)
	assert.Len(t, result.Matches, 1)
	assert.Equal(t, 1, fetcher.calls)

	assert.Contains(t, result.Context, "External sources:")
	assert.Contains(t, result.Context, "Metformin trial (EuropePMC, 2024-01-02): Outcomes. [https://example.org/1]")
	assert.Contains(t, result.Context, "Indexed records:")
	assert.Contains(t, result.Context, "[report, Erika Muster, 2024-03-01] Findings: normal.")
}

func TestQueryPassesConfiguredSourceOptions(t *testing.T) {
	fetcher := &fakeFetcher{}
	opts := aggregate.Options{MaxPerSource: 3, Timeout: 2 * time.Second}
	svc := NewQueryService(fetcher, NewSearchService(&fakeEmbedder{}, newFakeIndex()), opts)

	_, err := svc.Query(context.Background(), "tenant-a", "diabetes", "en")
	require.NoError(t, err)
	assert.Equal(t, opts, fetcher.lastOpts)
}

func TestQueryClassifiesFinancialIntent(t *testing.T) {
	svc := newQueryService(&fakeFetcher{}, newFakeIndex())

	result, err := svc.Query(context.Background(), "tenant-a", "invoice and billing for the insurance claim", "en")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentFinancial, result.Agent)
}

func TestQueryGermanIntent(t *testing.T) {
	svc := newQueryService(&fakeFetcher{}, newFakeIndex())

	result, err := svc.Query(context.Background(), "tenant-a", "Abrechnung der Privatliquidation nach GOÄ", "de")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentFinancial, result.Agent)
}

func TestQuerySearchFailureDegrades(t *testing.T) {
	fetcher := &fakeFetcher{items: []domain.KnowledgeItem{
		{Title: "Item", URL: "https://example.org/1", Source: "EuropePMC"},
	}}
	index := newFakeIndex()
	index.searchErr = errors.New("db down")
	svc := newQueryService(fetcher, index)

	result, err := svc.Query(context.Background(), "tenant-a", "diabetes", "en")
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Empty(t, result.Matches)
	assert.NotNil(t, result.Matches)
}

func TestQueryEmptyResults(t *testing.T) {
	svc := newQueryService(&fakeFetcher{}, newFakeIndex())

	result, err := svc.Query(context.Background(), "tenant-a", "something obscure", "en")
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Empty(t, result.Matches)
	assert.Empty(t, result.Context)
}
