package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatClient_GenerateContent(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"llama","choices":[{"message":{"content":"{\"ok\":true}"}}],"usage":{"prompt_tokens":11,"completion_tokens":5,"total_tokens":16}}`))
	}))
	defer srv.Close()

	client := NewChatClient(srv.URL+"/", "secret", "llama")
	resp, err := client.GenerateContent(context.Background(), "hello", GenerateOptions{Temperature: 0.8, JSON: true})
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, 11, resp.Usage.PromptTokens)
	assert.Equal(t, 5, resp.Usage.CompletionTokens)
	assert.Equal(t, "llama", resp.Usage.Model)
	assert.InDelta(t, 0.8, got.Temperature, 1e-6)
	assert.Equal(t, "json_object", got.ResponseFormat["type"])
}

func TestChatClient_Errors(t *testing.T) {
	t.Run("HTTPStatus", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := NewChatClient(srv.URL, "k", "m").GenerateContent(context.Background(), "p", GenerateOptions{})
		assert.ErrorContains(t, err, "status=429")
	})

	t.Run("EmptyChoices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		_, err := NewChatClient(srv.URL, "k", "m").GenerateContent(context.Background(), "p", GenerateOptions{})
		assert.ErrorIs(t, err, ErrNoContent)
	})
}

func TestOllamaClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			var req ollamaChatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "json", req.Format)
			assert.False(t, req.Stream)
			_, _ = w.Write([]byte(`{"model":"llama3.1","message":{"role":"assistant","content":"{}"},"prompt_eval_count":3,"eval_count":2}`))
		case "/api/embed":
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"tofu"}, req.Input)
			_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3.1", "nomic-embed-text")

	resp, err := client.GenerateContent(context.Background(), "p", GenerateOptions{JSON: true})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Content)
	assert.Equal(t, 5, resp.Usage.TotalTokens)

	vec, err := client.GenerateEmbedding(context.Background(), "tofu")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 768, req.Dimensions)
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	vec, err := NewOpenAIEmbedder(srv.URL, "k", "text-embedding-3-small", 768).GenerateEmbedding(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
}

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text))}, nil
}

func TestCachedEmbeddingGenerator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "embeddings.json")
	inner := &countingEmbedder{}

	cached, err := NewCachedEmbeddingGenerator(inner, path, nil)
	require.NoError(t, err)

	v1, err := cached.GenerateEmbedding(context.Background(), "lentil soup")
	require.NoError(t, err)
	v2, err := cached.GenerateEmbedding(context.Background(), "lentil soup")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls)
	require.NoError(t, cached.SaveCache())

	reloaded, err := NewCachedEmbeddingGenerator(&countingEmbedder{err: errors.New("offline")}, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())
	v3, err := reloaded.GenerateEmbedding(context.Background(), "lentil soup")
	require.NoError(t, err)
	assert.Equal(t, v1, v3)

	_, err = reloaded.GenerateEmbedding(context.Background(), "unseen")
	assert.ErrorContains(t, err, "offline")
}
