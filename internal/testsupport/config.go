package testsupport

import (
	"path/filepath"
	"testing"

	"imfpack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Package.Creator = "imfpack test"
	cfgVal.Package.Issuer = "imfpack test"
	cfgVal.Package.ContentOriginator = "Test Studio"

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

// WithCleanupOnFailure overrides the package cleanup policy.
func WithCleanupOnFailure(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Package.CleanupOnFailure = enabled
	}
}

// WithDigestWorkers overrides the digest worker bound.
func WithDigestWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Package.DigestWorkers = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
