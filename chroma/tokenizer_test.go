package chroma_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/differ/chroma"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizer_DetectFromPath(t *testing.T) {
	t.Parallel()

	tok := chroma.NewTokenizer()

	assert.Equal(t, "Go", tok.DetectFromPath("internal/server/handler.go"))
	assert.Equal(t, "Python", tok.DetectFromPath("scripts/run.py"))
	assert.Empty(t, tok.DetectFromPath("data.xyzunknown"))
}

func TestTokenizer_Tokenize(t *testing.T) {
	t.Parallel()

	tok := chroma.NewTokenizer()

	t.Run("tokens reassemble the source", func(t *testing.T) {
		t.Parallel()
		source := "func main() {\n\treturn\n}\n"
		tokens := tok.Tokenize("Go", source)
		require.NotEmpty(t, tokens)

		var b strings.Builder
		for _, tk := range tokens {
			b.WriteString(tk.Text)
		}
		assert.Equal(t, source, b.String())
	})

	t.Run("keywords are styled", func(t *testing.T) {
		t.Parallel()
		tokens := tok.Tokenize("Go", "func main() {}\n")
		require.NotEmpty(t, tokens)

		styled := false
		for _, tk := range tokens {
			if tk.Text == "func" && tk.Style.Foreground != "" {
				styled = true
			}
		}
		assert.True(t, styled)
	})

	t.Run("unsupported language falls back", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, tok.Tokenize("NotALanguage", "some text\n"))
	})

	t.Run("empty source yields no tokens without falling back", func(t *testing.T) {
		t.Parallel()
		tokens := tok.Tokenize("Go", "")
		assert.NotNil(t, tokens)
		assert.Empty(t, tokens)
	})
}
