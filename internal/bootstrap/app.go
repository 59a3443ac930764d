package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"pdfvault-backend/internal/documents"
	"pdfvault-backend/internal/extract"
	"pdfvault-backend/internal/queue"
	"pdfvault-backend/internal/services/health"
	"pdfvault-backend/internal/shared/auth"
	"pdfvault-backend/internal/shared/config"
	"pdfvault-backend/internal/shared/server"
	"pdfvault-backend/internal/shared/server/middleware"
	"pdfvault-backend/internal/shared/storage/db"
	"pdfvault-backend/internal/shared/storage/object"
	localstore "pdfvault-backend/internal/shared/storage/object/local"
	s3store "pdfvault-backend/internal/shared/storage/object/s3"
	"pdfvault-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Dialect          string
	Store            object.Uploader
	Extractor        *extract.Extractor
	Queue            queue.Publisher
	Verifier         auth.Verifier
	DocumentsRepo    documents.Repo
	DocumentsService *documents.Service
	DocumentsHandler *documents.Handler
	Health           *health.Service
}

// Build prepares shared dependencies and the HTTP router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	app, err := BuildCore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	verifier, err := buildVerifier(cfg)
	if err != nil {
		return nil, err
	}
	app.Verifier = verifier

	if app.DB != nil {
		app.Health = health.NewService(app.DB)
	} else {
		app.Health = health.NewService(nil)
	}
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService, cfg.MaxFileSizeBytes, cfg.MaxFilesPerRequest)
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Verifier:        app.Verifier,
		Health:          app.Health,
		DocumentHandler: app.DocumentsHandler,
		RateLimiter:     middleware.NewRateLimiter(nil),
	})
	return app, nil
}

// BuildCore wires storage, extraction and the documents service without any
// HTTP surface. The CLI uses it directly.
func BuildCore(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	sqlDB, dialect, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	extractor, err := extract.NewForBackend(cfg.PDFBackend)
	if err != nil {
		return nil, err
	}

	publisher, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Dialect:   dialect,
		Store:     store,
		Extractor: extractor,
		Queue:     publisher,
	}
	app.DocumentsRepo = buildRepo(sqlDB, dialect)
	app.DocumentsService = &documents.Service{
		Extractor: extractor,
		Store:     store,
		Repo:      app.DocumentsRepo,
		Folder:    cfg.UploadFolder,
	}
	if publisher != nil {
		app.DocumentsService.Notifier = queueNotifier{client: publisher}
	}

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"record_store": recordStoreName(sqlDB, dialect),
		"pdf_backend":  extractor.Backend(),
	})
	return app, nil
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, string, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("DATABASE_URL is required")
	}

	dialect := db.DialectFor(cfg.DatabaseURL)
	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database.memory", map[string]any{"reason": "connect failed", "error": err})
			return nil, "", nil
		}
		return nil, "", err
	}

	// Embedded SQLite files are migrated in place; Postgres goes through cmd/migrate.
	if dialect == db.DialectSQLite {
		if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
			sqlDB.Close()
			return nil, "", fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return sqlDB, dialect, nil
}

func buildRepo(sqlDB *sql.DB, dialect string) documents.Repo {
	switch {
	case sqlDB == nil:
		return documents.NewMemoryRepo()
	case dialect == db.DialectSQLite:
		return documents.NewSQLiteRepo(sqlDB)
	default:
		return &documents.PGRepo{DB: sqlDB}
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.Uploader, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			ForcePathStyle:  cfg.S3ForcePathStyle,
			PublicBaseURL:   cfg.PublicBaseURL,
			KMSKeyID:        cfg.SSEKMSKeyID,
			AccessKeyID:     cfg.StorageCredentials.AccessKeyID,
			SecretAccessKey: cfg.StorageCredentials.SecretAccessKey,
			SessionToken:    cfg.StorageCredentials.SessionToken,
		})
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Publisher, error) {
	if strings.TrimSpace(cfg.IngestQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, queue.SQSOptions{
		QueueURL:        cfg.IngestQueueURL,
		Region:          cfg.AWSRegion,
		Endpoint:        cfg.SQSEndpoint,
		AccessKeyID:     cfg.StorageCredentials.AccessKeyID,
		SecretAccessKey: cfg.StorageCredentials.SecretAccessKey,
		SessionToken:    cfg.StorageCredentials.SessionToken,
	})
}

func buildVerifier(cfg config.Config) (auth.Verifier, error) {
	secret := cfg.SigningKey
	if strings.TrimSpace(secret) == "" {
		if !isDevLike(cfg.Env) {
			return nil, auth.ErrMissingSecret
		}
		secret = "dev-only-signing-key"
		telemetry.Warn("bootstrap.jwt.dev_secret", map[string]any{"env": cfg.Env})
	}
	return auth.NewJWT(secret)
}

func recordStoreName(sqlDB *sql.DB, dialect string) string {
	if sqlDB == nil {
		return "memory"
	}
	return dialect
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
