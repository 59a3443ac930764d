package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"pdfvault-backend/internal/shared/telemetry"
)

const (
	DefaultMaxFileSizeBytes   int64 = 10 << 20
	DefaultMaxFilesPerRequest       = 10
	DefaultUploadFolder             = "pdfs"
)

// StorageCredentials are static object store credentials. Empty values fall
// back to the SDK's default credential chain.
type StorageCredentials struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// Config holds application configuration.
type Config struct {
	Port               string             `yaml:"port"`
	Env                string             `yaml:"env"`
	CORSAllowOrigin    []string           `yaml:"cors_allow_origins"`
	DatabaseURL        string             `yaml:"database_url"`
	ObjectStoreType    string             `yaml:"object_store"`
	LocalStoreDir      string             `yaml:"local_store_dir"`
	PublicBaseURL      string             `yaml:"public_base_url"`
	AWSRegion          string             `yaml:"aws_region"`
	S3Bucket           string             `yaml:"s3_bucket"`
	S3Prefix           string             `yaml:"s3_prefix"`
	S3Endpoint         string             `yaml:"s3_endpoint"`
	S3ForcePathStyle   bool               `yaml:"s3_force_path_style"`
	SSEKMSKeyID        string             `yaml:"sse_kms_key_id"`
	StorageCredentials StorageCredentials `yaml:"storage_credentials"`
	UploadFolder       string             `yaml:"upload_folder"`
	SigningKey         string             `yaml:"jwt_secret"`
	MaxFileSizeBytes   int64              `yaml:"max_file_size_bytes"`
	MaxFilesPerRequest int                `yaml:"max_files_per_request"`
	PDFBackend         string             `yaml:"pdf_backend"`
	RateLimitRPS       float64            `yaml:"rate_limit_rps"`
	RateLimitBurst     int                `yaml:"rate_limit_burst"`
	IngestQueueURL     string             `yaml:"ingest_queue_url"`
	SQSEndpoint        string             `yaml:"sqs_endpoint"`
}

// Defaults returns the configuration used before any file or env overrides.
func Defaults() Config {
	return Config{
		Port:               "8080",
		Env:                "dev",
		CORSAllowOrigin:    []string{"http://localhost:5173"},
		ObjectStoreType:    "local",
		LocalStoreDir:      "./data",
		UploadFolder:       DefaultUploadFolder,
		MaxFileSizeBytes:   DefaultMaxFileSizeBytes,
		MaxFilesPerRequest: DefaultMaxFilesPerRequest,
		PDFBackend:         "ledongthuc",
		RateLimitRPS:       5,
		RateLimitBurst:     10,
	}
}

// Load reads configuration from .env files, an optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	if strings.TrimSpace(cfg.UploadFolder) == "" {
		cfg.UploadFolder = DefaultUploadFolder
	}

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		telemetry.Warn("config.database_url.missing", map[string]any{"env": cfg.Env})
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		cfg.CORSAllowOrigin = splitAndTrim(raw)
	}
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ObjectStoreType = getEnv("OBJECT_STORE", cfg.ObjectStoreType)
	cfg.LocalStoreDir = getEnv("LOCAL_STORE_DIR", cfg.LocalStoreDir)
	cfg.PublicBaseURL = getEnv("PUBLIC_BASE_URL", cfg.PublicBaseURL)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Prefix = getEnv("S3_PREFIX", cfg.S3Prefix)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3ForcePathStyle = getEnvBool("S3_FORCE_PATH_STYLE", cfg.S3ForcePathStyle)
	cfg.SSEKMSKeyID = getEnv("SSE_KMS_KEY_ID", cfg.SSEKMSKeyID)
	cfg.StorageCredentials.AccessKeyID = getEnv("STORAGE_ACCESS_KEY_ID", cfg.StorageCredentials.AccessKeyID)
	cfg.StorageCredentials.SecretAccessKey = getEnv("STORAGE_SECRET_ACCESS_KEY", cfg.StorageCredentials.SecretAccessKey)
	cfg.StorageCredentials.SessionToken = getEnv("STORAGE_SESSION_TOKEN", cfg.StorageCredentials.SessionToken)
	cfg.UploadFolder = getEnv("UPLOAD_FOLDER", cfg.UploadFolder)
	cfg.SigningKey = getEnv("JWT_SECRET", cfg.SigningKey)
	cfg.MaxFileSizeBytes = getEnvInt64("MAX_FILE_SIZE_BYTES", cfg.MaxFileSizeBytes)
	cfg.MaxFilesPerRequest = int(getEnvInt64("MAX_FILES_PER_REQUEST", int64(cfg.MaxFilesPerRequest)))
	cfg.PDFBackend = getEnv("PDF_BACKEND", cfg.PDFBackend)
	cfg.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = int(getEnvInt64("RATE_LIMIT_BURST", int64(cfg.RateLimitBurst)))
	cfg.IngestQueueURL = getEnv("INGEST_QUEUE_URL", cfg.IngestQueueURL)
	cfg.SQSEndpoint = getEnv("SQS_ENDPOINT", cfg.SQSEndpoint)
}

// Validate reports configuration that cannot serve requests.
func (c Config) Validate() error {
	var errs []error
	if c.MaxFileSizeBytes <= 0 {
		errs = append(errs, errors.New("max_file_size_bytes must be > 0"))
	}
	if c.MaxFilesPerRequest <= 0 {
		errs = append(errs, errors.New("max_files_per_request must be > 0"))
	}
	switch strings.ToLower(strings.TrimSpace(c.PDFBackend)) {
	case "", "ledongthuc", "pdfcpu":
	default:
		errs = append(errs, fmt.Errorf("unsupported pdf_backend %q", c.PDFBackend))
	}
	if c.ObjectStoreType == "s3" && c.S3Bucket == "" {
		errs = append(errs, errors.New("s3_bucket is required when object_store is s3"))
	}
	if c.Env == "production" {
		if strings.TrimSpace(c.SigningKey) == "" {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		}
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required in production"))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		telemetry.Warn("config.env.invalid", map[string]any{"key": key, "error": err})
		return def
	}
	return val
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		telemetry.Warn("config.env.invalid", map[string]any{"key": key, "error": err})
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		telemetry.Warn("config.env.invalid", map[string]any{"key": key, "error": err})
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
