//go:build integration

package vectorstore

import (
	"context"
	"testing"

	"github.com/docwise/medkb/internal/domain"
	"github.com/docwise/medkb/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testVector builds a 1536-dim unit-ish vector dominated by one axis so
// cosine ordering in tests is predictable.
func testVector(axis int) []float32 {
	v := make([]float32, Dimensions)
	for i := range v {
		v[i] = 0.001
	}
	v[axis] = 1.0
	return v
}

func insertTenant(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(ctx,
		`INSERT INTO tenants (id, name) VALUES ($1, $2)`, id, name)
	require.NoError(t, err)
	return id
}

func patientPoint(id, tenantID, text string, axis int) domain.VectorPoint {
	return domain.VectorPoint{
		ID:     id,
		Vector: testVector(axis),
		Payload: domain.PointPayload{
			TenantID:    tenantID,
			Type:        domain.PointTypePatient,
			Text:        text,
			PatientID:   "pat-1",
			PatientName: "Anna Schmidt",
			Date:        "2024-03-01",
		},
	}
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantID := insertTenant(ctx, t, pool, "Praxis A")
	store := NewStore(pool)

	point := patientPoint("pat-1::patient::0", tenantID, "first text", 0)
	require.NoError(t, store.Upsert(ctx, []domain.VectorPoint{point}))
	require.NoError(t, store.Upsert(ctx, []domain.VectorPoint{point}))

	count, err := store.Count(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Re-upserting with new text replaces the payload in place
	point.Payload.Text = "updated text"
	require.NoError(t, store.Upsert(ctx, []domain.VectorPoint{point}))

	matches, err := store.Search(ctx, testVector(0), Filter{TenantID: tenantID}, 10, 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "updated text", matches[0].Payload.Text)
}

func TestStore_Upsert_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewStore(pool)

	badType := domain.VectorPoint{
		ID:      "x",
		Vector:  testVector(0),
		Payload: domain.PointPayload{Type: "bogus", Text: "t"},
	}
	assert.ErrorIs(t, store.Upsert(ctx, []domain.VectorPoint{badType}), domain.ErrInvalidPointType)

	shortVec := domain.VectorPoint{
		ID:      "y",
		Vector:  []float32{1, 2, 3},
		Payload: domain.PointPayload{Type: domain.PointTypeKnowledge, Text: "t"},
	}
	err := store.Upsert(ctx, []domain.VectorPoint{shortVec})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}

func TestStore_Upsert_EmptyOptionalFields(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantID := insertTenant(ctx, t, pool, "Praxis A")
	store := NewStore(pool)

	// A record point carries no topic; a knowledge point carries no patient
	// fields and no tenant. Both shapes must insert cleanly.
	record := domain.VectorPoint{
		ID:     "pat-9::patient::0",
		Vector: testVector(0),
		Payload: domain.PointPayload{
			TenantID: tenantID,
			Type:     domain.PointTypePatient,
			Text:     "Patient: Max Weber",
		},
	}
	knowledge := domain.VectorPoint{
		ID:     domain.KnowledgePointID("https://example.org/9"),
		Vector: testVector(1),
		Payload: domain.PointPayload{
			Type:  domain.PointTypeKnowledge,
			Text:  "Shared article",
			Topic: "diabetes",
		},
	}
	require.NoError(t, store.Upsert(ctx, []domain.VectorPoint{record, knowledge}))

	matches, err := store.Search(ctx, testVector(0), Filter{TenantID: tenantID}, 10, 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		if m.ID == record.ID {
			assert.Empty(t, m.Payload.Topic)
			assert.Empty(t, m.Payload.SourceRef)
			assert.Empty(t, m.Payload.Date)
		} else {
			assert.Empty(t, m.Payload.PatientID)
			assert.Empty(t, m.Payload.PatientName)
			assert.Equal(t, "diabetes", m.Payload.Topic)
		}
	}
}

func TestStore_Search_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantA := insertTenant(ctx, t, pool, "Praxis A")
	tenantB := insertTenant(ctx, t, pool, "Praxis B")
	store := NewStore(pool)

	require.NoError(t, store.Upsert(ctx, []domain.VectorPoint{
		patientPoint("a::patient::0", tenantA, "tenant A record", 0),
		patientPoint("b::patient::0", tenantB, "tenant B record", 0),
	}))

	matches, err := store.Search(ctx, testVector(0), Filter{TenantID: tenantA}, 10, 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a::patient::0", matches[0].ID)
}

func TestStore_Search_SharedKnowledgeVisibleToAllTenants(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantA := insertTenant(ctx, t, pool, "Praxis A")
	tenantB := insertTenant(ctx, t, pool, "Praxis B")
	store := NewStore(pool)

	shared := domain.VectorPoint{
		ID:     domain.KnowledgePointID("https://example.org/diabetes"),
		Vector: testVector(0),
		Payload: domain.PointPayload{
			Type:      domain.PointTypeKnowledge,
			Text:      "Diabetes overview",
			SourceRef: "https://example.org/diabetes",
			Topic:     "diabetes",
		},
	}
	require.NoError(t, store.Upsert(ctx, []domain.VectorPoint{shared}))

	for _, tenantID := range []string{tenantA, tenantB} {
		matches, err := store.Search(ctx, testVector(0), Filter{TenantID: tenantID}, 10, 0, 0)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, domain.PointTypeKnowledge, matches[0].Payload.Type)
		assert.Empty(t, matches[0].Payload.TenantID)
	}
}

func TestStore_Search_RequiresTenant(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewStore(pool)

	_, err := store.Search(ctx, testVector(0), Filter{}, 10, 0, 0)
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestStore_Search_FiltersAndOrdering(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantID := insertTenant(ctx, t, pool, "Praxis A")
	store := NewStore(pool)

	near := patientPoint("near::patient::0", tenantID, "near", 0)
	far := patientPoint("far::patient::0", tenantID, "far", 7)
	report := domain.VectorPoint{
		ID:     "rep-1::report::0",
		Vector: testVector(0),
		Payload: domain.PointPayload{
			TenantID:    tenantID,
			Type:        domain.PointTypeReport,
			Text:        "Kardiologischer Befund",
			PatientID:   "pat-2",
			PatientName: "Ben Fischer",
			Date:        "2024-04-01",
		},
	}
	require.NoError(t, store.Upsert(ctx, []domain.VectorPoint{near, far, report}))

	// Nearest first
	matches, err := store.Search(ctx, testVector(0), Filter{TenantID: tenantID}, 10, 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.NotEqual(t, "far::patient::0", matches[0].ID)
	assert.Greater(t, matches[0].Score, matches[2].Score)

	// Type filter
	matches, err = store.Search(ctx, testVector(0), Filter{TenantID: tenantID, Type: domain.PointTypeReport}, 10, 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "rep-1::report::0", matches[0].ID)

	// Patient name is a case-insensitive substring match
	matches, err = store.Search(ctx, testVector(0), Filter{TenantID: tenantID, PatientName: "fischer"}, 10, 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Ben Fischer", matches[0].Payload.PatientName)

	// Score threshold drops the distant point
	matches, err = store.Search(ctx, testVector(0), Filter{TenantID: tenantID}, 10, 0, 0.5)
	require.NoError(t, err)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Score, float32(0.5))
	}
	assert.NotContains(t, matchIDs(matches), "far::patient::0")
}

func TestStore_Search_LimitAndOffset(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantID := insertTenant(ctx, t, pool, "Praxis A")
	store := NewStore(pool)

	points := []domain.VectorPoint{
		patientPoint("p0::patient::0", tenantID, "p0", 0),
		patientPoint("p1::patient::0", tenantID, "p1", 1),
		patientPoint("p2::patient::0", tenantID, "p2", 2),
	}
	require.NoError(t, store.Upsert(ctx, points))

	page1, err := store.Search(ctx, testVector(0), Filter{TenantID: tenantID}, 2, 0, 0)
	require.NoError(t, err)
	require.Len(t, page1, 2)

	page2, err := store.Search(ctx, testVector(0), Filter{TenantID: tenantID}, 2, 2, 0)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.NotContains(t, matchIDs(page1), page2[0].ID)
}

func matchIDs(matches []domain.SearchMatch) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}
