package testsupport

import (
	"path/filepath"
	"testing"

	"reelforge/internal/config"
	"reelforge/internal/session"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Credentials are filled in so generation is not gated.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Credentials = config.Credentials{
		GoogleStudioKey: "test-google",
		YouTubeKey:      "test-youtube",
		OpenRouterKey:   "test-openrouter",
	}
	cfgVal.Generation.ImageWidth = 8
	cfgVal.Generation.ImageHeight = 8

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithoutCredentials clears the provider keys on the test config.
func WithoutCredentials() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Credentials = config.Credentials{}
	}
}

// WithImageCount overrides how many images each run requests.
func WithImageCount(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generation.ImageCount = n
	}
}

// WithVoices replaces the voice catalog.
func WithVoices(voices ...session.Voice) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generation.Voices = voices
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
