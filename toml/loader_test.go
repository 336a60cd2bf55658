package toml_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/differ"
	"github.com/fwojciec/differ/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := toml.Load(filepath.Join(t.TempDir(), "nope.toml"))
		require.NoError(t, err)
		assert.Equal(t, differ.DefaultConfig(), cfg)
	})

	t.Run("file values overlay defaults", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
side_by_side = true
context_lines = 5
anchor_threshold = 0.85
reload_debounce_ms = 500
ignore = ["dist"]
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := toml.Load(path)
		require.NoError(t, err)
		assert.True(t, cfg.SideBySide)
		assert.Equal(t, 5, cfg.ContextLines)
		assert.InDelta(t, 0.85, cfg.AnchorThreshold, 1e-9)
		assert.Equal(t, 500*time.Millisecond, cfg.ReloadDebounce())
		assert.Equal(t, []string{"dist"}, cfg.Ignore)

		// Untouched keys keep their defaults.
		assert.Equal(t, differ.DefaultConfig().AnchorWindow, cfg.AnchorWindow)
		assert.True(t, cfg.ShowAnnotations)
	})

	t.Run("malformed file returns defaults with an error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("side_by_side = maybe"), 0o644))

		cfg, err := toml.Load(path)
		require.Error(t, err)
		assert.Equal(t, differ.DefaultConfig(), cfg)
	})
}
