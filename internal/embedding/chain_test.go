package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"grounded-meal-planner/internal/llm/llmtest"
)

func TestChain_Embed(t *testing.T) {
	ctx := context.Background()
	good := []float32{0.1, 0.2, 0.3}

	t.Run("FirstHealthyProviderWins", func(t *testing.T) {
		failing := &llmtest.Embedder{Err: errors.New("quota")}
		wrongDim := &llmtest.Embedder{Vector: []float32{1, 2}}
		healthy := &llmtest.Embedder{Vector: good}
		unused := &llmtest.Embedder{Vector: good}

		chain := NewChain(3, nil,
			Provider{Name: "gemini", Generator: failing},
			Provider{Name: "openai", Generator: wrongDim},
			Provider{Name: "ollama", Generator: healthy},
			Provider{Name: "spare", Generator: unused},
		)

		assert.Equal(t, good, chain.Embed(ctx, "lentil stew"))
		assert.Equal(t, 1, failing.Calls())
		assert.Equal(t, 1, wrongDim.Calls())
		assert.Equal(t, 0, unused.Calls())
	})

	t.Run("AllFail", func(t *testing.T) {
		chain := NewChain(3, nil, Provider{Name: "gemini", Generator: &llmtest.Embedder{Err: errors.New("down")}})
		assert.Nil(t, chain.Embed(ctx, "tofu"))
	})

	t.Run("EmptyText", func(t *testing.T) {
		e := &llmtest.Embedder{Vector: good}
		assert.Nil(t, NewChain(3, nil, Provider{Name: "x", Generator: e}).Embed(ctx, "  "))
		assert.Equal(t, 0, e.Calls())
	})

	t.Run("NoProviders", func(t *testing.T) {
		assert.Nil(t, NewChain(3, nil, Provider{Name: "nil"}).Embed(ctx, "tofu"))
	})
}
