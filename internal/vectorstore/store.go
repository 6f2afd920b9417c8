// Package vectorstore is a thin client over the pgvector-backed semantic
// index. One table holds the single logical collection; upserts are keyed by
// deterministic point id so retries and re-ingestion are safe.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/docwise/medkb/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Dimensions is the vector length of the collection schema.
const Dimensions = 1536

// Filter scopes a nearest-neighbor search. TenantID is mandatory; points
// with a NULL tenant (public knowledge) are visible to every tenant, rows
// owned by other tenants never are.
type Filter struct {
	TenantID    string
	Type        domain.PointType
	PatientID   string
	PatientName string
	Date        string
}

// Store wraps the vector_points table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Upsert writes points by id, last write wins. All points go in one batch;
// any failure aborts the call (already-committed rows are safe to re-send).
func (s *Store) Upsert(ctx context.Context, points []domain.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range points {
		if err := domain.ValidatePointType(p.Payload.Type); err != nil {
			return err
		}
		if len(p.Vector) != Dimensions {
			return fmt.Errorf("point %s: expected %d dimensions, got %d", p.ID, Dimensions, len(p.Vector))
		}
		batch.Queue(
			`INSERT INTO vector_points
				(id, tenant_id, type, text, source_ref, topic, patient_id, patient_name, date, tags, embedding, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
			 ON CONFLICT (id) DO UPDATE SET
				tenant_id = EXCLUDED.tenant_id,
				type = EXCLUDED.type,
				text = EXCLUDED.text,
				source_ref = EXCLUDED.source_ref,
				topic = EXCLUDED.topic,
				patient_id = EXCLUDED.patient_id,
				patient_name = EXCLUDED.patient_name,
				date = EXCLUDED.date,
				tags = EXCLUDED.tags,
				embedding = EXCLUDED.embedding,
				updated_at = now()`,
			p.ID,
			nullableString(p.Payload.TenantID),
			string(p.Payload.Type),
			p.Payload.Text,
			nullableString(p.Payload.SourceRef),
			nullableString(p.Payload.Topic),
			nullableString(p.Payload.PatientID),
			nullableString(p.Payload.PatientName),
			nullableString(p.Payload.Date),
			p.Payload.Tags,
			pgvector.NewVector(p.Vector),
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range points {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert failed: %w", err)
		}
	}
	return nil
}

// Search runs a filtered nearest-neighbor query. The tenant clause is always
// the first filter and is never derived from client input.
func (s *Store) Search(ctx context.Context, vector []float32, filter Filter, limit, offset int, scoreThreshold float32) ([]domain.SearchMatch, error) {
	if filter.TenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required for search")
	}
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(vector)

	query := `
		SELECT id, tenant_id, type, text, source_ref, topic, patient_id, patient_name, date, tags,
		       1 - (embedding <=> $1) AS score
		FROM vector_points
		WHERE (tenant_id = $2 OR tenant_id IS NULL)`
	args := []interface{}{vec, filter.TenantID}

	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.PatientID != "" {
		args = append(args, filter.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if filter.PatientName != "" {
		args = append(args, "%"+filter.PatientName+"%")
		query += fmt.Sprintf(" AND patient_name ILIKE $%d", len(args))
	}
	if filter.Date != "" {
		args = append(args, filter.Date)
		query += fmt.Sprintf(" AND date = $%d", len(args))
	}
	if scoreThreshold > 0 {
		args = append(args, scoreThreshold)
		query += fmt.Sprintf(" AND 1 - (embedding <=> $1) >= $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	matches := make([]domain.SearchMatch, 0, limit)
	for rows.Next() {
		var (
			m        domain.SearchMatch
			tenantID, sourceRef, topic, patientID, patientName, date *string
			pointType string
		)
		if err := rows.Scan(
			&m.ID, &tenantID, &pointType, &m.Payload.Text,
			&sourceRef, &topic, &patientID, &patientName, &date,
			&m.Payload.Tags, &m.Score,
		); err != nil {
			return nil, err
		}
		m.Payload.Type = domain.PointType(pointType)
		m.Payload.TenantID = deref(tenantID)
		m.Payload.SourceRef = deref(sourceRef)
		m.Payload.Topic = deref(topic)
		m.Payload.PatientID = deref(patientID)
		m.Payload.PatientName = deref(patientName)
		m.Payload.Date = deref(date)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Count reports how many points a tenant owns; an empty tenant counts the
// public knowledge points.
func (s *Store) Count(ctx context.Context, tenantID string) (int, error) {
	var count int
	var err error
	if tenantID == "" {
		err = s.pool.QueryRow(ctx, `SELECT count(*) FROM vector_points WHERE tenant_id IS NULL`).Scan(&count)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT count(*) FROM vector_points WHERE tenant_id = $1`, tenantID).Scan(&count)
	}
	return count, err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
