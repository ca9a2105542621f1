package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/doc-chat/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr     string        `env:"SERVER_ADDR" envDefault:":8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10m"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Debug exposes internal error messages to the client
	Debug bool `env:"DEBUG" envDefault:"false"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Path to the service account credentials file
	CredentialsFile string `env:"CREDENTIALS_FILE" envDefault:"credentials.json"`

	// License key for office document parsing
	UnidocLicenseKey string `env:"UNIDOC_LICENSE_API_KEY"`

	FileUploadCfg FileUploadConfig `envPrefix:"UPLOAD_"`
	RAGCfg        RAGConfig        `envPrefix:"RAG_"`
	StorageCfg    StorageConfig    `envPrefix:"STORAGE_"`
	HTTPClientCfg HTTPClientConfig `envPrefix:"HTTP_CLIENT_"`
	StateCfg      StateConfig      `envPrefix:"STATE_"`
	RateLimitCfg  RateLimitConfig  `envPrefix:"RATE_LIMIT_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	Dir               string   `env:"DIR" envDefault:"uploads"`
	MaxUploadSize     int64    `env:"MAX_SIZE" envDefault:"52428800"` // 50 MiB
	AllowedExtensions []string `env:"ALLOWED_EXTENSIONS" envSeparator:"," envDefault:"pdf,docx,doc,pptx,ppt,xlsx,xls,txt,md,rst,json,yaml,yml,eml,msg,png,jpg,jpeg,tiff,bmp"`
}

// RAGConfig holds defaults used to build a per-request entity.RagConfig
type RAGConfig struct {
	Location        string `env:"LOCATION" envDefault:"us-central1"`
	DisplayName     string `env:"DISPLAY_NAME" envDefault:"default_corpus"`
	EmbeddingModel  string `env:"EMBEDDING_MODEL" envDefault:"textembedding-gecko-multilingual@001"`
	ChunkSize       int    `env:"CHUNK_SIZE" envDefault:"512"`
	ChunkOverlap    int    `env:"CHUNK_OVERLAP" envDefault:"100"`
	BlobPrefix      string `env:"BLOB_PREFIX" envDefault:"rag-documents"`
	GenerationModel string `env:"GENERATION_MODEL" envDefault:"gemini-1.0-pro"`
	TopK            int    `env:"TOP_K" envDefault:"5"`
	OCRModel        string `env:"OCR_MODEL" envDefault:"gemini-1.5-flash"`
}

type StorageConfig struct {
	BucketLocation string               `env:"BUCKET_LOCATION" envDefault:"us-central1"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"5m"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"30s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"5m"`
}

// StateConfig bounds the cross-request state store
type StateConfig struct {
	TTL             time.Duration `env:"TTL" envDefault:"1h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"10m"`
	MaxEntries      int           `env:"MAX_ENTRIES" envDefault:"10000"`
}

// RateLimitConfig throttles upload and query requests per client IP. Zero RPM disables it.
type RateLimitConfig struct {
	RequestsPerMinute int           `env:"RPM" envDefault:"30"`
	Burst             int           `env:"BURST" envDefault:"5"`
	IdleTTL           time.Duration `env:"IDLE_TTL" envDefault:"1h"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag
	return cfg, nil
}

// Parse reads the configuration from the process environment and validates it
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	normalizeExtensions(&cfg.FileUploadCfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func normalizeExtensions(cfg *FileUploadConfig) {
	exts := make([]string, 0, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	cfg.AllowedExtensions = exts
}

func validateConfig(cfg *Config) error {
	var errors []string

	if cfg.FileUploadCfg.MaxUploadSize < 1 {
		errors = append(errors, fmt.Sprintf("UPLOAD_MAX_SIZE must be positive, got %d", cfg.FileUploadCfg.MaxUploadSize))
	}

	if len(cfg.FileUploadCfg.AllowedExtensions) == 0 {
		errors = append(errors, "UPLOAD_ALLOWED_EXTENSIONS must not be empty")
	}

	if cfg.RAGCfg.ChunkSize < 1 {
		errors = append(errors, fmt.Sprintf("RAG_CHUNK_SIZE must be positive, got %d", cfg.RAGCfg.ChunkSize))
	}

	if cfg.RAGCfg.ChunkOverlap < 0 || cfg.RAGCfg.ChunkOverlap >= cfg.RAGCfg.ChunkSize {
		errors = append(errors, fmt.Sprintf("RAG_CHUNK_OVERLAP must be between 0 and RAG_CHUNK_SIZE(%d), got %d", cfg.RAGCfg.ChunkSize, cfg.RAGCfg.ChunkOverlap))
	}

	if cfg.RAGCfg.TopK < 1 || cfg.RAGCfg.TopK > 100 {
		errors = append(errors, fmt.Sprintf("RAG_TOP_K must be between 1 and 100, got %d", cfg.RAGCfg.TopK))
	}

	if cfg.StateCfg.MaxEntries < 1 {
		errors = append(errors, fmt.Sprintf("STATE_MAX_ENTRIES must be positive, got %d", cfg.StateCfg.MaxEntries))
	}

	if cfg.RateLimitCfg.RequestsPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("RATE_LIMIT_RPM must not be negative, got %d", cfg.RateLimitCfg.RequestsPerMinute))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
