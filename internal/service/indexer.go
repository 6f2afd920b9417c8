package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/docwise/medkb/internal/aggregate"
	"github.com/docwise/medkb/internal/domain"
	"github.com/docwise/medkb/internal/telemetry"
	"github.com/docwise/medkb/internal/vectorstore"
)

// RecordStore lists the tenant record collections the indexer reads.
type RecordStore interface {
	ListPatients(ctx context.Context, tenantID string) ([]*domain.Patient, error)
	ListReports(ctx context.Context, tenantID string) ([]*domain.Report, error)
	ListLabResults(ctx context.Context, tenantID string) ([]*domain.LabResult, error)
}

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the persistent semantic index the pipelines write to.
type VectorIndex interface {
	Upsert(ctx context.Context, points []domain.VectorPoint) error
	Search(ctx context.Context, vector []float32, filter vectorstore.Filter, limit, offset int, scoreThreshold float32) ([]domain.SearchMatch, error)
}

// KnowledgeFetcher runs the multi-source fan-out for a topic.
type KnowledgeFetcher interface {
	Aggregate(ctx context.Context, query string, opts aggregate.Options) []domain.KnowledgeItem
}

// SnapshotArchiver persists raw knowledge snapshots outside the index.
// Archiving is best effort; failures must not fail ingestion.
type SnapshotArchiver interface {
	ArchiveKnowledgeItem(ctx context.Context, topic, pointID string, item domain.KnowledgeItem) error
}

// upsertBatchSize bounds how many points one Upsert call carries so a large
// tenant reindex keeps memory and statement size flat.
const upsertBatchSize = 100

// IngestMaxPerSource widens the per-source cap for ingestion compared to the
// interactive query path.
const IngestMaxPerSource = 8

// IngestMaxTotal caps the merged item count persisted per ingest call.
const IngestMaxTotal = 48

// IndexerService rebuilds a tenant's slice of the vector index from its
// records and ingests external knowledge topics into the shared slice.
type IndexerService struct {
	records  RecordStore
	embedder Embedder
	index    VectorIndex
	fetcher  KnowledgeFetcher
	archiver SnapshotArchiver
	chunkCfg ChunkConfig
}

func NewIndexerService(records RecordStore, embedder Embedder, index VectorIndex, fetcher KnowledgeFetcher, archiver SnapshotArchiver) *IndexerService {
	return &IndexerService{
		records:  records,
		embedder: embedder,
		index:    index,
		fetcher:  fetcher,
		archiver: archiver,
		chunkCfg: DefaultChunkConfig(),
	}
}

// textBlock is one record rendered to prose, carrying the payload fields its
// chunks inherit.
type textBlock struct {
	recordID    string
	kind        domain.PointType
	text        string
	sourceRef   string
	patientID   string
	patientName string
	date        string
}

// Reindex rebuilds the index points for every record the tenant owns and
// returns the number of points written. Embedding or store failures abort
// the run; already-written points are safe because upserts are idempotent.
func (s *IndexerService) Reindex(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "indexer.reindex", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "reindex",
	})
	defer span.End()

	blocks, err := s.collectBlocks(ctx, tenantID)
	if err != nil {
		span.SetError(err)
		return 0, err
	}

	total := 0
	batch := make([]domain.VectorPoint, 0, upsertBatchSize)
	texts := make([]string, 0, upsertBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "embedding generation failed", err)
		}
		for i := range batch {
			batch[i].Vector = vectors[i]
		}
		if err := s.index.Upsert(ctx, batch); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "vector store upsert failed", err)
		}
		total += len(batch)
		batch = batch[:0]
		texts = texts[:0]
		return nil
	}

	for _, block := range blocks {
		for idx, chunk := range chunkText(block.text, s.chunkCfg) {
			batch = append(batch, domain.VectorPoint{
				ID: domain.ChunkPointID(tenantID, block.recordID, block.kind, idx),
				Payload: domain.PointPayload{
					TenantID:    tenantID,
					Type:        block.kind,
					Text:        chunk,
					SourceRef:   block.sourceRef,
					PatientID:   block.patientID,
					PatientName: block.patientName,
					Date:        block.date,
				},
			})
			texts = append(texts, chunk)
			if len(batch) >= upsertBatchSize {
				if err := flush(); err != nil {
					span.SetError(err)
					return total, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		span.SetError(err)
		return total, err
	}

	log.Printf("indexer: reindexed tenant %s (%d points from %d records)", tenantID, total, len(blocks))
	return total, nil
}

// IngestTopic fetches external knowledge for a topic and persists it as
// tenant-agnostic knowledge points. Returns the number of points written.
func (s *IndexerService) IngestTopic(ctx context.Context, topic string) (int, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return 0, domain.ErrEmptyTopic
	}

	ctx, span := telemetry.StartSpan(ctx, "indexer.ingest_topic", telemetry.SpanAttributes{
		Topic:     topic,
		Operation: "ingest",
	})
	defer span.End()

	items := s.fetcher.Aggregate(ctx, topic, aggregate.Options{
		MaxPerSource: IngestMaxPerSource,
		MaxTotal:     IngestMaxTotal,
	})
	if len(items) == 0 {
		return 0, nil
	}

	points := make([]domain.VectorPoint, 0, len(items))
	texts := make([]string, 0, len(items))
	kept := make([]domain.KnowledgeItem, 0, len(items))
	for _, item := range items {
		text := item.EmbeddingText()
		if text == "" {
			continue
		}
		points = append(points, domain.VectorPoint{
			ID: domain.KnowledgePointID(item.DedupKey()),
			Payload: domain.PointPayload{
				Type:      domain.PointTypeKnowledge,
				Text:      text,
				SourceRef: item.URL,
				Topic:     topic,
				Date:      item.Date,
				Tags:      item.Tags,
			},
		})
		texts = append(texts, text)
		kept = append(kept, item)
	}
	if len(points) == 0 {
		return 0, nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		span.SetError(err)
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "embedding generation failed", err)
	}
	for i := range points {
		points[i].Vector = vectors[i]
	}

	if err := s.index.Upsert(ctx, points); err != nil {
		span.SetError(err)
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "vector store upsert failed", err)
	}

	s.archiveSnapshots(ctx, topic, points, kept)

	log.Printf("indexer: ingested topic %q (%d points)", topic, len(points))
	return len(points), nil
}

// archiveSnapshots writes the raw items next to the index. Errors are logged
// and swallowed; the index write already succeeded.
func (s *IndexerService) archiveSnapshots(ctx context.Context, topic string, points []domain.VectorPoint, items []domain.KnowledgeItem) {
	if s.archiver == nil {
		return
	}
	for i, item := range items {
		if err := s.archiver.ArchiveKnowledgeItem(ctx, topic, points[i].ID, item); err != nil {
			log.Printf("indexer: snapshot archive failed for %s: %v", points[i].ID, err)
		}
	}
}

func (s *IndexerService) collectBlocks(ctx context.Context, tenantID string) ([]textBlock, error) {
	patients, err := s.records.ListPatients(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	reports, err := s.records.ListReports(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	labs, err := s.records.ListLabResults(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list lab results: %w", err)
	}

	blocks := make([]textBlock, 0, len(patients)+len(reports)+len(labs))
	for _, p := range patients {
		blocks = append(blocks, textBlock{
			recordID:    p.ID,
			kind:        domain.PointTypePatient,
			text:        patientText(p),
			sourceRef:   "patient/" + p.ID,
			patientID:   p.ID,
			patientName: p.FullName(),
			date:        p.BirthDate,
		})
	}
	patientNames := make(map[string]string, len(patients))
	for _, p := range patients {
		patientNames[p.ID] = p.FullName()
	}
	for _, r := range reports {
		blocks = append(blocks, textBlock{
			recordID:    r.ID,
			kind:        domain.PointTypeReport,
			text:        reportText(r),
			sourceRef:   "report/" + r.ID,
			patientID:   r.PatientID,
			patientName: patientNames[r.PatientID],
			date:        r.Date,
		})
	}
	for _, l := range labs {
		blocks = append(blocks, textBlock{
			recordID:    l.ID,
			kind:        domain.PointTypeLab,
			text:        labText(l),
			sourceRef:   "lab/" + l.ID,
			patientID:   l.PatientID,
			patientName: patientNames[l.PatientID],
			date:        l.Date,
		})
	}
	return blocks, nil
}

// patientText renders a patient record to prose. Missing fields render as
// nothing rather than placeholder text.
func patientText(p *domain.Patient) string {
	var b strings.Builder
	writeField(&b, "Patient", p.FullName())
	writeField(&b, "Birth date", p.BirthDate)
	writeField(&b, "Gender", p.Gender)
	writeField(&b, "Diagnoses", strings.Join(p.Diagnoses, "; "))
	writeField(&b, "Allergies", strings.Join(p.Allergies, "; "))
	writeField(&b, "Notes", p.Notes)
	return b.String()
}

func reportText(r *domain.Report) string {
	var b strings.Builder
	writeField(&b, "Report", r.Title)
	writeField(&b, "Date", r.Date)
	writeField(&b, "Findings", r.Findings)
	writeField(&b, "Diagnosis", r.Diagnosis)
	writeField(&b, "Therapy", r.Therapy)
	return b.String()
}

func labText(l *domain.LabResult) string {
	var b strings.Builder
	writeField(&b, "Lab test", l.TestName)
	writeField(&b, "Date", l.Date)
	value := strings.TrimSpace(l.Value + " " + l.Unit)
	writeField(&b, "Value", value)
	writeField(&b, "Reference range", l.RefRange)
	writeField(&b, "Flag", l.Flag)
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
}
