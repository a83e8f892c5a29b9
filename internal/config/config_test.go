package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gotrs/pkg/trs"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Trace.PObserve != 0.2 {
		t.Errorf("Trace.PObserve = %f, want 0.2", cfg.Trace.PObserve)
	}
	if cfg.Trace.MaxSteps != 100 {
		t.Errorf("Trace.MaxSteps = %d, want 100", cfg.Trace.MaxSteps)
	}
	if cfg.Trace.MinP != 1e-6 {
		t.Errorf("Trace.MinP = %g, want 1e-6", cfg.Trace.MinP)
	}
	if cfg.Strategy() != trs.Innermost {
		t.Errorf("Strategy = %s, want innermost", cfg.Strategy())
	}
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantError bool
	}{
		{
			name:   "valid default config",
			modify: func(_ *Config) {},
		},
		{
			name:      "p_observe above one",
			modify:    func(c *Config) { c.Trace.PObserve = 1.5 },
			wantError: true,
		},
		{
			name:      "negative min_p",
			modify:    func(c *Config) { c.Trace.MinP = -0.1 },
			wantError: true,
		},
		{
			name:   "unbounded steps with a probability floor",
			modify: func(c *Config) { c.Trace.MaxSteps = 0 },
		},
		{
			name: "no trace bound at all",
			modify: func(c *Config) {
				c.Trace.MaxSteps = 0
				c.Trace.MinP = 0
			},
			wantError: true,
		},
		{
			name:      "negative max_steps",
			modify:    func(c *Config) { c.Trace.MaxSteps = -1 },
			wantError: true,
		},
		{
			name:      "zero rewrite max_steps",
			modify:    func(c *Config) { c.Rewrite.MaxSteps = 0 },
			wantError: true,
		},
		{
			name:      "unknown strategy",
			modify:    func(c *Config) { c.Rewrite.Strategy = "sideways" },
			wantError: true,
		},
		{
			name:   "strategy alias",
			modify: func(c *Config) { c.Rewrite.Strategy = "oi" },
		},
		{
			name:      "p_alternative of one",
			modify:    func(c *Config) { c.Generator.PAlternative = 1 },
			wantError: true,
		},
		{
			name:      "unknown log level",
			modify:    func(c *Config) { c.Logging.Level = "loud" },
			wantError: true,
		},
		{
			name:      "no workers",
			modify:    func(c *Config) { c.Parallel.Workers = 0 },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, Default().Trace, cfg.Trace)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "trs.yaml")
		data := []byte("trace:\n  p_observe: 0.5\n  max_steps: 7\nrewrite:\n  strategy: outermost\n")
		require.NoError(t, os.WriteFile(path, data, 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 0.5, cfg.Trace.PObserve)
		assert.Equal(t, 7, cfg.Trace.MaxSteps)
		assert.Equal(t, trs.Outermost, cfg.TraceOptions().Strategy)
		assert.Equal(t, Default().Trace.MinP, cfg.Trace.MinP)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "trs.yaml")
		require.NoError(t, os.WriteFile(path, []byte("trace:\n  p_observe: 0.5\n"), 0o600))
		t.Setenv("TRS_P_OBSERVE", "0.9")
		t.Setenv("TRS_SEED", "42")
		t.Setenv("TRS_WORKERS", "3")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 0.9, cfg.Trace.PObserve)
		assert.Equal(t, uint64(42), cfg.Generator.Seed)
		assert.Equal(t, 3, cfg.Parallel.Workers)
	})

	t.Run("zero steps lifts the trace bound only", func(t *testing.T) {
		t.Setenv("TRS_MAX_STEPS", "0")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 0, cfg.Trace.MaxSteps)
		assert.Equal(t, Default().Rewrite.MaxSteps, cfg.Rewrite.MaxSteps)

		t.Setenv("TRS_MIN_P", "0")
		_, err = Load("")
		assert.ErrorIs(t, err, ErrUnboundedTrace)
	})

	t.Run("malformed environment value", func(t *testing.T) {
		t.Setenv("TRS_MAX_STEPS", "many")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("invalid merged value", func(t *testing.T) {
		t.Setenv("TRS_MIN_P", "2")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("trace: [unclosed"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestSampler(t *testing.T) {
	cfg := Default()
	cfg.Generator.MaxDepth = 2
	cfg.Generator.PAlternative = 0.3
	s := cfg.Sampler()
	assert.Equal(t, 2, s.MaxDepth)
	assert.Equal(t, 0.3, s.PAlternative)
}
