package differ

import "time"

// Config holds user-tunable behavior. Zero values are not meaningful;
// start from DefaultConfig and override.
type Config struct {
	SideBySide      bool     `toml:"side_by_side"`
	ContextLines    int      `toml:"context_lines"`
	ShowAnnotations bool     `toml:"show_annotations"`
	Ignore          []string `toml:"ignore"`   // subpaths excluded from watching
	LogFile         string   `toml:"log_file"` // debug log destination; empty disables

	// Anchor re-resolution policy. There is no single obviously-correct
	// value for these; the defaults mirror what worked in practice.
	AnchorWindow    int     `toml:"anchor_window"`    // search ± lines around the expected line
	AnchorContext   int     `toml:"anchor_context"`   // k surrounding lines recorded per anchor
	AnchorThreshold float64 `toml:"anchor_threshold"` // minimum similarity for a non-exact match

	// ReloadDebounceMS coalesces filesystem change bursts into one reload.
	ReloadDebounceMS int `toml:"reload_debounce_ms"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		SideBySide:       false,
		ContextLines:     3,
		ShowAnnotations:  true,
		Ignore:           []string{".git", "node_modules", "target", "vendor"},
		AnchorWindow:     5,
		AnchorContext:    2,
		AnchorThreshold:  0.7,
		ReloadDebounceMS: 200,
	}
}

// ReloadDebounce returns the debounce window as a duration.
func (c Config) ReloadDebounce() time.Duration {
	return time.Duration(c.ReloadDebounceMS) * time.Millisecond
}
