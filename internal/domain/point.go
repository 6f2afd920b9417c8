package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// PointType classifies what a vector point was built from.
type PointType string

const (
	PointTypePatient   PointType = "patient"
	PointTypeReport    PointType = "report"
	PointTypeLab       PointType = "lab"
	PointTypeKnowledge PointType = "knowledge"
)

// ValidatePointType checks that a point type is one of the known values.
func ValidatePointType(t PointType) error {
	switch t {
	case PointTypePatient, PointTypeReport, PointTypeLab, PointTypeKnowledge:
		return nil
	default:
		return ErrInvalidPointType
	}
}

// PointPayload is the metadata stored alongside a vector.
// TenantID is empty for public knowledge points, which are tenant-agnostic.
type PointPayload struct {
	TenantID    string    `json:"tenant_id,omitempty"`
	Type        PointType `json:"type"`
	Text        string    `json:"text"`
	SourceRef   string    `json:"source_ref,omitempty"`
	Topic       string    `json:"topic,omitempty"`
	PatientID   string    `json:"patient_id,omitempty"`
	PatientName string    `json:"patient_name,omitempty"`
	Date        string    `json:"date,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// VectorPoint is the unit of the persistent semantic index.
// The ID is deterministic so re-running ingestion over unchanged input
// upserts the same rows instead of growing the index.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload PointPayload
}

// ChunkPointID builds the deterministic id for a chunk of a tenant record.
// Record ids are only unique within a tenant, so the tenant is part of the id;
// two tenants reusing the same record id index separate points.
func ChunkPointID(tenantID, recordID string, kind PointType, chunkIndex int) string {
	return fmt.Sprintf("%s::%s::%s::%d", tenantID, recordID, kind, chunkIndex)
}

// KnowledgePointID derives a deterministic id for an ingested knowledge item
// from its natural key (URL preferred, external id as fallback). A truncated
// content hash keeps ids short and collision-resistant for long URLs.
func KnowledgePointID(naturalKey string) string {
	sum := sha256.Sum256([]byte(naturalKey))
	return "kn_" + hex.EncodeToString(sum[:16])
}

// SearchQuery describes a tenant-scoped similarity search.
// TenantID is always derived from verified identity, never from the request body.
type SearchQuery struct {
	Text           string
	TenantID       string
	Limit          int
	Offset         int
	TypeFilter     PointType
	PatientID      string
	PatientName    string
	Date           string
	ScoreThreshold float32
}

// SearchMatch is one scored hit from the vector index. The vector itself is
// never returned.
type SearchMatch struct {
	ID      string       `json:"id"`
	Score   float32      `json:"score"`
	Payload PointPayload `json:"payload"`
}
