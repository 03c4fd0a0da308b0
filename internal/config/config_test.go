package config

import (
	"runtime"
	"testing"

	"sxfit/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "SXFIT_SEED", "SXFIT_OVERSAMPLE", "SXFIT_WORKERS", "SXFIT_DB_DRIVER", "SXFIT_DB_DSN"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, uint64(42), cfg.Sampling.Seed)
	assert.Equal(t, DefaultOversampleFactor, cfg.Sampling.OversampleFactor)
	assert.Equal(t, runtime.NumCPU(), cfg.Build.Workers)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "sxfit.db", cfg.Storage.DSN)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("SXFIT_SEED", "7")
	t.Setenv("SXFIT_OVERSAMPLE", "4")
	t.Setenv("SXFIT_WORKERS", "2")
	t.Setenv("SXFIT_DB_DRIVER", "Postgres")
	t.Setenv("SXFIT_DB_DSN", "postgres://localhost/sxfit")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, uint64(7), cfg.Sampling.Seed)
	assert.Equal(t, 4.0, cfg.Sampling.OversampleFactor)
	assert.Equal(t, 2, cfg.Build.Workers)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SXFIT_SEED", "-1"},
		{"SXFIT_OVERSAMPLE", "0"},
		{"SXFIT_WORKERS", "0"},
		{"SXFIT_DB_DRIVER", "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
