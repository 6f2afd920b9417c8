package domain

import "time"

// Patient is a tenant-owned patient record as read from the record store.
type Patient struct {
	ID        string
	TenantID  string
	FirstName string
	LastName  string
	BirthDate string
	Gender    string
	Diagnoses []string
	Allergies []string
	Notes     string
	UpdatedAt time.Time
}

// FullName returns the display name, tolerating missing parts.
func (p Patient) FullName() string {
	switch {
	case p.FirstName == "" && p.LastName == "":
		return ""
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// Report is a clinical report belonging to a patient.
type Report struct {
	ID        string
	TenantID  string
	PatientID string
	Title     string
	Findings  string
	Diagnosis string
	Therapy   string
	Date      string
	UpdatedAt time.Time
}

// LabResult is a laboratory result belonging to a patient.
type LabResult struct {
	ID        string
	TenantID  string
	PatientID string
	TestName  string
	Value     string
	Unit      string
	RefRange  string
	Flag      string
	Date      string
	UpdatedAt time.Time
}

// ReindexJobStatus tracks the lifecycle of a queued reindex job.
type ReindexJobStatus string

const (
	ReindexJobStatusPending    ReindexJobStatus = "pending"
	ReindexJobStatusProcessing ReindexJobStatus = "processing"
	ReindexJobStatusCompleted  ReindexJobStatus = "completed"
	ReindexJobStatusFailed     ReindexJobStatus = "failed"
)

// ReindexJob is a queued request to rebuild a tenant's slice of the index.
// Jobs are enqueued by record create/update hooks or by the async reindex
// endpoint and drained by the background worker.
type ReindexJob struct {
	ID        string
	TenantID  string
	Status    ReindexJobStatus
	Retries   int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}
