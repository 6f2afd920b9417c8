package repository

import (
	"context"

	"github.com/docwise/medkb/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordRepository reads the tenant-scoped record collections the indexing
// pipeline draws from. This subsystem never writes records.
type RecordRepository struct {
	pool *pgxpool.Pool
}

func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

func (r *RecordRepository) ListPatients(ctx context.Context, tenantID string) ([]*domain.Patient, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, first_name, last_name, birth_date, gender, diagnoses, allergies, notes, updated_at
		 FROM patients WHERE tenant_id = $1 ORDER BY id`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []*domain.Patient
	for rows.Next() {
		var p domain.Patient
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.FirstName, &p.LastName, &p.BirthDate,
			&p.Gender, &p.Diagnoses, &p.Allergies, &p.Notes, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		patients = append(patients, &p)
	}
	return patients, rows.Err()
}

func (r *RecordRepository) ListReports(ctx context.Context, tenantID string) ([]*domain.Report, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, patient_id, title, findings, diagnosis, therapy, date, updated_at
		 FROM reports WHERE tenant_id = $1 ORDER BY id`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		var rep domain.Report
		if err := rows.Scan(
			&rep.ID, &rep.TenantID, &rep.PatientID, &rep.Title,
			&rep.Findings, &rep.Diagnosis, &rep.Therapy, &rep.Date, &rep.UpdatedAt,
		); err != nil {
			return nil, err
		}
		reports = append(reports, &rep)
	}
	return reports, rows.Err()
}

func (r *RecordRepository) ListLabResults(ctx context.Context, tenantID string) ([]*domain.LabResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, patient_id, test_name, value, unit, ref_range, flag, date, updated_at
		 FROM lab_results WHERE tenant_id = $1 ORDER BY id`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labs []*domain.LabResult
	for rows.Next() {
		var lab domain.LabResult
		if err := rows.Scan(
			&lab.ID, &lab.TenantID, &lab.PatientID, &lab.TestName,
			&lab.Value, &lab.Unit, &lab.RefRange, &lab.Flag, &lab.Date, &lab.UpdatedAt,
		); err != nil {
			return nil, err
		}
		labs = append(labs, &lab)
	}
	return labs, rows.Err()
}
