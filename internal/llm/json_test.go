package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name  string   `json:"name"`
		Items []string `json:"items"`
	}

	cases := []struct {
		name string
		raw  string
	}{
		{"Plain", `{"name":"oats","items":["a","b"]}`},
		{"Fenced", "```json\n{\"name\":\"oats\",\"items\":[\"a\",\"b\"]}\n```"},
		{"TrailingCommas", `{"name":"oats","items":["a","b",],}`},
		{"Comments", "{\n// the dish\n\"name\":\"oats\", /* list */ \"items\":[\"a\",\"b\"]\n}"},
		{"Prose", `Sure! Here is your plan: {"name":"oats","items":["a","b"]} Enjoy.`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p payload
			require.NoError(t, DecodeJSON(tc.raw, &p))
			assert.Equal(t, "oats", p.Name)
			assert.Equal(t, []string{"a", "b"}, p.Items)
		})
	}

	t.Run("KeepsSlashesInsideStrings", func(t *testing.T) {
		var p struct {
			URL string `json:"url"`
		}
		require.NoError(t, DecodeJSON(`{"url":"https://example.com/a,}"}`, &p))
		assert.Equal(t, "https://example.com/a,}", p.URL)
	})

	t.Run("Garbage", func(t *testing.T) {
		var p payload
		err := DecodeJSON("{invalid json,,}", &p)
		assert.ErrorIs(t, err, ErrUnparseable)
	})

	t.Run("Empty", func(t *testing.T) {
		var p payload
		assert.ErrorIs(t, DecodeJSON("   ", &p), ErrUnparseable)
	})
}
