package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"grounded-meal-planner/internal/config"
	"grounded-meal-planner/internal/database"
	"grounded-meal-planner/internal/embedding"
	"grounded-meal-planner/internal/index"
	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/logger"
)

// newTextGenerator returns the chat model of the configured provider. The
// returned closer is nil when the client holds no resources.
func newTextGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, io.Closer, error) {
	switch cfg.LLMProvider {
	case config.ProviderGroq:
		return llm.NewChatClient(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GroqModel), nil, nil
	case config.ProviderOpenAI:
		return llm.NewChatClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), nil, nil
	case config.ProviderGemini:
		c, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.ProviderOllama:
		return llm.NewOllamaClient(cfg.OllamaHost, cfg.OllamaChatModel, cfg.OllamaEmbeddingModel), nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
}

// newEmbeddingProviders builds the providers named in cfg.EmbeddingProviders,
// in order, skipping hosted ones without credentials. With a cache path set
// every provider gets its own cache file.
func newEmbeddingProviders(ctx context.Context, cfg *config.Config, log *logger.Logger) ([]embedding.Provider, []io.Closer, error) {
	var (
		providers []embedding.Provider
		closers   []io.Closer
	)
	for _, name := range cfg.EmbeddingProviders {
		var gen llm.EmbeddingGenerator
		switch name {
		case config.ProviderGemini:
			if cfg.GeminiAPIKey == "" {
				log.Debug("skipping embedding provider without key", "provider", name)
				continue
			}
			c, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEmbeddingModel)
			if err != nil {
				return nil, closers, fmt.Errorf("failed to create gemini embedder: %w", err)
			}
			closers = append(closers, c)
			gen = c
		case config.ProviderOpenAI:
			if cfg.OpenAIAPIKey == "" {
				log.Debug("skipping embedding provider without key", "provider", name)
				continue
			}
			gen = llm.NewOpenAIEmbedder(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel, cfg.VectorDim)
		case config.ProviderOllama:
			gen = llm.NewOllamaClient(cfg.OllamaHost, cfg.OllamaChatModel, cfg.OllamaEmbeddingModel)
		default:
			log.Warn("unknown embedding provider", "provider", name)
			continue
		}

		if cfg.EmbeddingCachePath != "" {
			cached, err := llm.NewCachedEmbeddingGenerator(gen, cachePath(cfg.EmbeddingCachePath, name), log)
			if err != nil {
				return nil, closers, err
			}
			closers = append(closers, closerFunc(cached.SaveCache))
			gen = cached
		}
		providers = append(providers, embedding.Provider{Name: name, Generator: gen})
	}
	return providers, closers, nil
}

// cachePath inserts the provider name before the extension, so vectors of
// different models never share a file.
func cachePath(base, provider string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "." + provider + ext
}

// newStore opens the configured index backend.
func newStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (index.Store, io.Closer, error) {
	switch cfg.IndexBackend {
	case config.BackendSQLite:
		db, err := database.NewDB(cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		return index.NewSQLiteStore(db.SQL, log), db, nil
	case config.BackendPostgres:
		s, err := index.NewPostgresStore(ctx, cfg.PostgresDSN, cfg.VectorDim, log)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.BackendMeilisearch:
		s := index.NewMeiliStore(index.NewMeiliClient(cfg.MeilisearchHost, cfg.MeilisearchAPIKey), cfg.MeilisearchIndex, cfg.MeilisearchEmbedder, log)
		if err := s.EnsureIndex(ctx); err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported index backend %q", cfg.IndexBackend)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
