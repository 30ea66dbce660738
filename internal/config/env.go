package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/docqueryhq/docquery/internal/apperr"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds everything read from the environment at startup. It is
// built once and passed to components; nothing reads env vars ad hoc.
type Config struct {
	Port        string
	DatabaseURL string

	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	EmbedModel string
	EmbedDim   int

	ChunkSize    int
	ChunkOverlap int

	TopK                int
	SimilarityThreshold float64

	MaxFileSizeMB int

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	BatchAPIToken string

	IngestWorkers int
}

// Load reads the environment (honoring a local .env) and validates the
// result. Missing credentials for the selected provider are fatal.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		LLMProvider:  strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		// Empty means "provider default": text-embedding-004 for
		// gemini, text-embedding-3-small for openai.
		EmbedModel: getEnv("EMBED_MODEL", ""),
		EmbedDim:   getEnvInt("EMBED_DIM", 768),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),

		TopK:                getEnvInt("TOP_K_RESULTS", 5),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.5),

		MaxFileSizeMB: getEnvInt("MAX_FILE_SIZE", 50),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-1"),
		BucketName:   getEnv("BUCKET_NAME", "docquery-uploads"),

		BatchAPIToken: getEnv("BATCH_API_TOKEN", ""),

		IngestWorkers: getEnvInt("INGEST_WORKERS", 2),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return apperr.New(apperr.Configuration, "DATABASE_URL not set")
	}
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return apperr.New(apperr.Configuration, "LLM_PROVIDER is 'gemini' but GEMINI_API_KEY is missing")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return apperr.New(apperr.Configuration, "LLM_PROVIDER is 'openai' but OPENAI_API_KEY is missing")
		}
	default:
		return apperr.Newf(apperr.Configuration, "unknown LLM_PROVIDER %q (want gemini or openai)", c.LLMProvider)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return apperr.Newf(apperr.Configuration, "SIMILARITY_THRESHOLD %v out of range [0,1]", c.SimilarityThreshold)
	}
	if c.ChunkSize <= 0 {
		return apperr.New(apperr.Configuration, "CHUNK_SIZE must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return apperr.New(apperr.Configuration, "CHUNK_OVERLAP must be non-negative and smaller than CHUNK_SIZE")
	}
	if c.EmbedDim <= 0 {
		return apperr.New(apperr.Configuration, "EMBED_DIM must be positive")
	}
	return nil
}

// Helper to read environment variables with a default fallback.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
