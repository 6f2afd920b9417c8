package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docwise/medkb/internal/aggregate"
	"github.com/docwise/medkb/internal/api/handlers"
	"github.com/docwise/medkb/internal/cache"
	"github.com/docwise/medkb/internal/config"
	"github.com/docwise/medkb/internal/domain"
	"github.com/docwise/medkb/internal/jobs"
	"github.com/docwise/medkb/internal/openai"
	"github.com/docwise/medkb/internal/repository"
	"github.com/docwise/medkb/internal/server"
	"github.com/docwise/medkb/internal/service"
	"github.com/docwise/medkb/internal/sources"
	"github.com/docwise/medkb/internal/storage"
	"github.com/docwise/medkb/internal/telemetry"
	"github.com/docwise/medkb/internal/vectorstore"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the medkb API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	recordRepo := repository.NewRecordRepository(pool)
	reindexJobRepo := repository.NewReindexJobRepository(pool)
	vectorStore := vectorstore.NewStore(pool)

	if cfg.InitTenantName != "" {
		if err := bootstrapInitialTenant(ctx, cfg, tenantRepo, apiKeyRepo); err != nil {
			return fmt.Errorf("failed to bootstrap initial tenant: %w", err)
		}
	}

	// Source cache: shared Redis when configured, in-process otherwise.
	var sourceCache cache.Store
	if cfg.HasRedis() {
		redisCache := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL)
		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		defer redisCache.Close()
		sourceCache = redisCache
		log.Println("using redis source cache")
	} else {
		sourceCache = cache.NewMemory(cfg.CacheTTL, cache.DefaultMaxEntries)
	}

	adapters := sources.All(nil, cfg.OpenFDAAPIKey)
	var aggregator *aggregate.Aggregator
	if cfg.Debug {
		aggregator = aggregate.NewDebug(adapters, sourceCache)
	} else {
		aggregator = aggregate.New(adapters, sourceCache)
	}

	var archiver service.SnapshotArchiver
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archiver = s3Client
	}

	var embedder service.Embedder
	if cfg.HasOpenAI() {
		embedder = openai.NewClient(cfg.OpenAIAPIKey)
	} else {
		log.Println("no embedding provider configured, search and indexing disabled")
		embedder = &noopEmbedder{}
	}

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(tenantRepo, apiKeyRepo, uuidGen)
	indexerSvc := service.NewIndexerService(recordRepo, embedder, vectorStore, aggregator, archiver)
	searchSvc := service.NewSearchService(embedder, vectorStore)
	querySvc := service.NewQueryService(aggregator, searchSvc, aggregate.Options{
		MaxPerSource: cfg.MaxPerSource,
		Timeout:      cfg.SourceTimeout,
	})

	var reindexWorker *jobs.Worker
	if cfg.HasOpenAI() {
		processor := jobs.NewReindexWorker(reindexJobRepo, indexerSvc)
		reindexWorker = jobs.NewWorker(processor, 10*time.Second)
		go reindexWorker.Start(ctx)
		log.Println("reindex worker started")
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator: authSvc,
		QueryHandler:  handlers.NewQueryHandler(querySvc),
		SearchHandler: handlers.NewSearchHandler(searchSvc),
		IndexHandler:  handlers.NewIndexHandler(indexerSvc, reindexJobRepo),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if reindexWorker != nil {
		reindexWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// noopEmbedder stands in when no embedding provider is configured. Query
// still serves live knowledge; search and indexing fail with a clear error.
type noopEmbedder struct{}

func (noopEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: MEDKB_OPENAI_API_KEY required")
}

func (noopEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: MEDKB_OPENAI_API_KEY required")
}

func bootstrapInitialTenant(ctx context.Context, cfg *config.Config, tenantRepo *repository.TenantRepository, apiKeyRepo *repository.APIKeyRepository) error {
	tenant, err := tenantRepo.GetByName(ctx, cfg.InitTenantName)
	if err != nil && !errors.Is(err, domain.ErrTenantNotFound) {
		return fmt.Errorf("failed to check existing tenant: %w", err)
	}
	if errors.Is(err, domain.ErrTenantNotFound) {
		tenant = nil
	}

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(tenantRepo, apiKeyRepo, uuidGen)

	if tenant == nil {
		tenant, err = authSvc.CreateTenant(ctx, cfg.InitTenantName)
		if err != nil {
			return fmt.Errorf("failed to create tenant: %w", err)
		}
		log.Printf("bootstrap: created tenant '%s' (id: %s)", tenant.Name, tenant.ID)
	} else {
		log.Printf("bootstrap: tenant '%s' already exists (id: %s)", tenant.Name, tenant.ID)
	}

	if cfg.InitAPIKey != "" {
		if !service.IsValidAPIToken(cfg.InitAPIKey) {
			return fmt.Errorf("invalid MEDKB_INIT_API_KEY format (expected 'mkb_<64 hex chars>')")
		}

		existingKey, err := authSvc.GetAPIKeyByHash(ctx, cfg.InitAPIKey)
		if err == nil && existingKey != nil {
			log.Printf("bootstrap: API key already exists (id: %s)", existingKey.ID)
			return nil
		}

		if err := authSvc.CreateAPIKeyWithToken(ctx, tenant.ID, "bootstrap", cfg.InitAPIKey); err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}
		log.Printf("bootstrap: created API key")
	}

	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs a database/sql connection
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
