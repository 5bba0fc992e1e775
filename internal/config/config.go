package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported LLM providers.
const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Supported recipe index backends.
const (
	BackendSQLite      = "sqlite"
	BackendPostgres    = "postgres"
	BackendMeilisearch = "meilisearch"
)

// Config holds the configuration for the application.
type Config struct {
	LogMode string
	DataDir string

	// LLM
	LLMProvider          string
	GroqAPIKey           string
	GroqBaseURL          string
	GroqModel            string
	GeminiAPIKey         string
	GeminiModel          string
	GeminiEmbeddingModel string
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string
	OpenAIEmbeddingModel string
	OllamaHost           string
	OllamaChatModel      string
	OllamaEmbeddingModel string

	// Embeddings
	EmbeddingProviders []string
	VectorDim          int
	EmbeddingCachePath string

	// Recipe index
	IndexBackend        string
	SQLitePath          string
	PostgresDSN         string
	MeilisearchHost     string
	MeilisearchAPIKey   string
	MeilisearchIndex    string
	MeilisearchEmbedder string

	// Planning
	CandidatePoolSize         int
	SyntheticBatchSize        int
	BackfillBatchSize         int
	FilterConfidenceThreshold float64
	PlannerTemperature        float64
	IncludeSnacks             bool

	PlanDays      int
	DefaultUserID string

	// Ghost ingestion
	GhostURL          string
	GhostContentKey   string
	GhostAdminKey     string
	GhostTag          string
	IngestConcurrency int

	MetricsDBPath        string
	MetricsRetentionDays int
	MetricsTextfile      string
}

// LoadDotEnv loads .env files into the process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_MODE", "development")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("LLM_PROVIDER", ProviderGroq)
	v.SetDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1")
	v.SetDefault("GROQ_MODEL", "llama-3.3-70b-versatile")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("GEMINI_EMBEDDING_MODEL", "text-embedding-004")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small")
	v.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	v.SetDefault("OLLAMA_CHAT_MODEL", "llama3.1")
	v.SetDefault("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text")
	v.SetDefault("EMBEDDING_PROVIDERS", "gemini,openai,ollama")
	v.SetDefault("VECTOR_DIM", 768)
	v.SetDefault("EMBEDDING_CACHE_PATH", "data/embeddings_cache.json")
	v.SetDefault("INDEX_BACKEND", BackendSQLite)
	v.SetDefault("SQLITE_PATH", "data/db/recipes.db")
	v.SetDefault("MEILISEARCH_INDEX", "recipes")
	v.SetDefault("MEILISEARCH_EMBEDDER", "default")
	v.SetDefault("CANDIDATE_POOL_SIZE", 24)
	v.SetDefault("SYNTHETIC_BATCH_SIZE", 10)
	v.SetDefault("BACKFILL_BATCH_SIZE", 4)
	v.SetDefault("FILTER_CONFIDENCE_THRESHOLD", 0.75)
	v.SetDefault("PLANNER_TEMPERATURE", 0.8)
	v.SetDefault("INCLUDE_SNACKS", true)
	v.SetDefault("PLAN_DAYS", 7)
	v.SetDefault("DEFAULT_USER_ID", "default_user")
	v.SetDefault("GHOST_TAG", "recipe")
	v.SetDefault("INGEST_CONCURRENCY", 2)
	v.SetDefault("METRICS_DB_PATH", "data/db/metrics.db")
	v.SetDefault("METRICS_RETENTION_DAYS", 30)
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		LogMode:                   v.GetString("LOG_MODE"),
		DataDir:                   v.GetString("DATA_DIR"),
		LLMProvider:               strings.ToLower(v.GetString("LLM_PROVIDER")),
		GroqAPIKey:                v.GetString("GROQ_API_KEY"),
		GroqBaseURL:               v.GetString("GROQ_BASE_URL"),
		GroqModel:                 v.GetString("GROQ_MODEL"),
		GeminiAPIKey:              v.GetString("GEMINI_API_KEY"),
		GeminiModel:               v.GetString("GEMINI_MODEL"),
		GeminiEmbeddingModel:      v.GetString("GEMINI_EMBEDDING_MODEL"),
		OpenAIAPIKey:              v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:             v.GetString("OPENAI_BASE_URL"),
		OpenAIModel:               v.GetString("OPENAI_MODEL"),
		OpenAIEmbeddingModel:      v.GetString("OPENAI_EMBEDDING_MODEL"),
		OllamaHost:                v.GetString("OLLAMA_HOST"),
		OllamaChatModel:           v.GetString("OLLAMA_CHAT_MODEL"),
		OllamaEmbeddingModel:      v.GetString("OLLAMA_EMBEDDING_MODEL"),
		EmbeddingProviders:        splitList(v.GetString("EMBEDDING_PROVIDERS")),
		VectorDim:                 v.GetInt("VECTOR_DIM"),
		EmbeddingCachePath:        v.GetString("EMBEDDING_CACHE_PATH"),
		IndexBackend:              strings.ToLower(v.GetString("INDEX_BACKEND")),
		SQLitePath:                v.GetString("SQLITE_PATH"),
		PostgresDSN:               v.GetString("POSTGRES_DSN"),
		MeilisearchHost:           v.GetString("MEILISEARCH_HOST"),
		MeilisearchAPIKey:         v.GetString("MEILISEARCH_API_KEY"),
		MeilisearchIndex:          v.GetString("MEILISEARCH_INDEX"),
		MeilisearchEmbedder:       v.GetString("MEILISEARCH_EMBEDDER"),
		CandidatePoolSize:         v.GetInt("CANDIDATE_POOL_SIZE"),
		SyntheticBatchSize:        v.GetInt("SYNTHETIC_BATCH_SIZE"),
		BackfillBatchSize:         v.GetInt("BACKFILL_BATCH_SIZE"),
		FilterConfidenceThreshold: v.GetFloat64("FILTER_CONFIDENCE_THRESHOLD"),
		PlannerTemperature:        v.GetFloat64("PLANNER_TEMPERATURE"),
		IncludeSnacks:             v.GetBool("INCLUDE_SNACKS"),
		PlanDays:                  v.GetInt("PLAN_DAYS"),
		DefaultUserID:             v.GetString("DEFAULT_USER_ID"),
		GhostURL:                  v.GetString("GHOST_URL"),
		GhostContentKey:           v.GetString("GHOST_CONTENT_KEY"),
		GhostAdminKey:             v.GetString("GHOST_ADMIN_KEY"),
		GhostTag:                  v.GetString("GHOST_TAG"),
		IngestConcurrency:         v.GetInt("INGEST_CONCURRENCY"),
		MetricsDBPath:             v.GetString("METRICS_DB_PATH"),
		MetricsRetentionDays:      v.GetInt("METRICS_RETENTION_DAYS"),
		MetricsTextfile:           v.GetString("METRICS_TEXTFILE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLMProvider {
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}

	switch c.IndexBackend {
	case BackendSQLite:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN environment variable not set")
		}
	case BackendMeilisearch:
		if c.MeilisearchHost == "" {
			return fmt.Errorf("MEILISEARCH_HOST environment variable not set")
		}
	default:
		return fmt.Errorf("unsupported INDEX_BACKEND %q", c.IndexBackend)
	}

	if c.VectorDim <= 0 {
		return fmt.Errorf("VECTOR_DIM must be positive, got %d", c.VectorDim)
	}
	if c.PlanDays < 1 || c.PlanDays > 14 {
		return fmt.Errorf("PLAN_DAYS must be between 1 and 14, got %d", c.PlanDays)
	}
	if c.CandidatePoolSize <= 0 {
		return fmt.Errorf("CANDIDATE_POOL_SIZE must be positive, got %d", c.CandidatePoolSize)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
