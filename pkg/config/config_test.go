package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultChunkSize, cfg.Matrix.ChunkSize)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Equal(t, "best.txt", cfg.Output.TSPFile)
	assert.Equal(t, "star_distance_tsp", cfg.Output.TSPName)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Postgres.Enabled)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
matrix:
  chunkSize: 64
output:
  dir: /tmp/stars
archive:
  limit: 250
  timeout: 30s
cache:
  backend: none
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Matrix.ChunkSize)
	assert.Equal(t, "/tmp/stars", cfg.Output.Dir)
	assert.Equal(t, 250, cfg.Archive.Limit)
	assert.Equal(t, 30*time.Second, cfg.Archive.Timeout)
	assert.Equal(t, "none", cfg.Cache.Backend)
	// untouched keys keep their defaults
	assert.Equal(t, "best.txt", cfg.Output.TSPFile)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SM_MATRIX_CHUNK_SIZE", "7")
	t.Setenv("SM_KAFKA_ENABLED", "true")
	t.Setenv("SM_KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("SM_CACHE_TTL", "90m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Matrix.ChunkSize)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Minute, cfg.Cache.TTL)
}

func TestLoad_BadEnvValues(t *testing.T) {
	t.Setenv("SM_METRICS_PORT", "http")
	t.Setenv("SM_POSTGRES_ENABLED", "maybe")
	t.Setenv("SM_OUTPUT_DIR", "elsewhere")

	_, err := Load("")
	require.Error(t, err)
	assert.ErrorContains(t, err, "SM_METRICS_PORT")
	assert.ErrorContains(t, err, "SM_POSTGRES_ENABLED")
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero chunk", "matrix:\n  chunkSize: 0\n"},
		{"unknown cache", "cache:\n  backend: memcached\n"},
		{"negative limit", "archive:\n  limit: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
