//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docwise/medkb/internal/aggregate"
	"github.com/docwise/medkb/internal/api/handlers"
	"github.com/docwise/medkb/internal/cache"
	"github.com/docwise/medkb/internal/domain"
	"github.com/docwise/medkb/internal/repository"
	"github.com/docwise/medkb/internal/server"
	"github.com/docwise/medkb/internal/service"
	"github.com/docwise/medkb/internal/sources"
	"github.com/docwise/medkb/internal/testutil"
	"github.com/docwise/medkb/internal/vectorstore"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	AuthSvc    *service.AuthService
	JobRepo    *repository.ReindexJobRepository
	TenantID   string
	AuthToken  string
	HTTPClient *http.Client
}

// stubAdapter serves canned knowledge items so e2e runs never touch the
// real medical APIs.
type stubAdapter struct {
	name  string
	items []domain.KnowledgeItem
}

func (s *stubAdapter) Name() string  { return s.name }
func (s *stubAdapter) Priority() int { return 9 }

func (s *stubAdapter) Fetch(ctx context.Context, p sources.Params) ([]domain.KnowledgeItem, error) {
	max := p.Max
	if max <= 0 || max > len(s.items) {
		max = len(s.items)
	}
	return s.items[:max], nil
}

// hashEmbedder derives deterministic vectors from a content hash so indexing
// and search are reproducible without an embedding provider.
type hashEmbedder struct{}

func hashVector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, vectorstore.Dimensions)
	for i := range v {
		v[i] = float32(sum[i%len(sum)])/255.0 + 0.001
	}
	return v
}

func (hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = hashVector(t)
	}
	return vecs, nil
}

func (hashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return hashVector(text), nil
}

// SetupE2EEnv creates a full E2E test environment with a database container
// and an in-process server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	recordRepo := repository.NewRecordRepository(pool)
	jobRepo := repository.NewReindexJobRepository(pool)
	store := vectorstore.NewStore(pool)

	adapters := []sources.Adapter{&stubAdapter{
		name: "stubpmc",
		items: []domain.KnowledgeItem{
			{ID: "stubpmc:1", Title: "Diabetes management guideline", Summary: "Current therapy overview.", URL: "https://stub.example/diabetes-1", Source: "stubpmc", Date: "2024-01-10"},
			{ID: "stubpmc:2", Title: "HbA1c targets in type 2 diabetes", Summary: "Target ranges and evidence.", URL: "https://stub.example/diabetes-2", Source: "stubpmc", Date: "2023-06-02"},
		},
	}}
	aggregator := aggregate.New(adapters, cache.NewMemory(time.Minute, cache.DefaultMaxEntries))

	embedder := hashEmbedder{}
	authSvc := service.NewAuthService(tenantRepo, apiKeyRepo, &service.DefaultUUIDGenerator{})
	indexerSvc := service.NewIndexerService(recordRepo, embedder, store, aggregator, nil)
	searchSvc := service.NewSearchService(embedder, store)
	querySvc := service.NewQueryService(aggregator, searchSvc, aggregate.Options{})

	router := server.NewRouter(server.RouterConfig{
		AuthValidator: authSvc,
		QueryHandler:  handlers.NewQueryHandler(querySvc),
		SearchHandler: handlers.NewSearchHandler(searchSvc),
		IndexHandler:  handlers.NewIndexHandler(indexerSvc, jobRepo),
	})

	srv := httptest.NewServer(router)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		Server:     srv,
		AuthSvc:    authSvc,
		JobRepo:    jobRepo,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Bootstrap creates a tenant and API key for testing
func (e *E2ETestEnv) Bootstrap() {
	tenant, err := e.AuthSvc.CreateTenant(e.Ctx, "E2E Praxis")
	if err != nil {
		e.T.Fatalf("failed to create tenant: %v", err)
	}
	e.TenantID = tenant.ID

	token, err := e.AuthSvc.CreateAPIKey(e.Ctx, tenant.ID, "e2e-key")
	if err != nil {
		e.T.Fatalf("failed to create API key: %v", err)
	}
	e.AuthToken = token
}

// NewTenant creates an additional tenant with its own API key
func (e *E2ETestEnv) NewTenant(name string) (string, string) {
	tenant, err := e.AuthSvc.CreateTenant(e.Ctx, name)
	if err != nil {
		e.T.Fatalf("failed to create tenant %s: %v", name, err)
	}
	token, err := e.AuthSvc.CreateAPIKey(e.Ctx, tenant.ID, name+"-key")
	if err != nil {
		e.T.Fatalf("failed to create API key for %s: %v", name, err)
	}
	return tenant.ID, token
}

type apiResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

func (e *E2ETestEnv) request(method, path, token string, body interface{}) (int, *apiResponse) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("failed to marshal request: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reqBody)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read response: %v", err)
	}

	var parsed apiResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			e.T.Fatalf("failed to parse response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, &parsed
}

// Get performs an authenticated GET request
func (e *E2ETestEnv) Get(path, token string) (int, *apiResponse) {
	return e.request(http.MethodGet, path, token, nil)
}

// Post performs an authenticated POST request
func (e *E2ETestEnv) Post(path, token string, body interface{}) (int, *apiResponse) {
	return e.request(http.MethodPost, path, token, body)
}

// InsertPatient inserts a patient record directly into the database
func (e *E2ETestEnv) InsertPatient(tenantID, id, firstName, lastName string, diagnoses []string) {
	_, err := e.Pool.Exec(e.Ctx,
		`INSERT INTO patients (id, tenant_id, first_name, last_name, diagnoses)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, tenantID, firstName, lastName, diagnoses,
	)
	if err != nil {
		e.T.Fatalf("failed to insert patient: %v", err)
	}
}

// InsertReport inserts a report record directly into the database
func (e *E2ETestEnv) InsertReport(tenantID, id, patientID, title, findings, date string) {
	_, err := e.Pool.Exec(e.Ctx,
		`INSERT INTO reports (id, tenant_id, patient_id, title, findings, date)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, tenantID, patientID, title, findings, date,
	)
	if err != nil {
		e.T.Fatalf("failed to insert report: %v", err)
	}
}

func unmarshalData(t *testing.T, resp *apiResponse, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Data, out); err != nil {
		t.Fatalf("failed to parse data %q: %v", resp.Data, err)
	}
}
