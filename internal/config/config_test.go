package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimal = `
datasets:
  compatibility: testdata/compat.csv
  catalog: testdata/catalog.csv
vision:
  models_dir: /models
  classifiers:
    Casual:
      model: casual.onnx
      labels: casual_labels.json
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Recommend.Backend)
	assert.Equal(t, 10, cfg.Recommend.MaxMatches)
	assert.Zero(t, cfg.Recommend.CandidateLimit)
	assert.Equal(t, 224, cfg.Vision.Classifiers["Casual"].InputSize)
	assert.Equal(t, 10*time.Second, cfg.Vision.InferenceTimeout)
	assert.Equal(t, "https://www.thecolorapi.com", cfg.ColorName.BaseURL)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OUTFIT_SERVER_PORT", "9090")
	t.Setenv("OUTFIT_RECOMMEND_BACKEND", "postgres")
	t.Setenv("OUTFIT_CANDIDATE_LIMIT", "50")
	t.Setenv("OUTFIT_DB_HOST", "db.internal")

	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Recommend.Backend)
	assert.Equal(t, 50, cfg.Recommend.CandidateLimit)
	assert.Equal(t, "postgres://:@db.internal:5432/?sslmode=disable", cfg.Database.DSN())
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, minimal+"recommend:\n  backend: redis\n"))
	assert.ErrorContains(t, err, "recommend.backend")

	_, err = Load(writeConfig(t, "datasets:\n  compatibility: a.csv\n"))
	assert.ErrorContains(t, err, "datasets.catalog")

	_, err = Load(writeConfig(t, minimal+"    Formal:\n      model: formal.onnx\n"))
	assert.ErrorContains(t, err, "vision.classifiers.Formal")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Len(t, cfg.Vision.Classifiers, 3)
	assert.Equal(t, 7*24*time.Hour, cfg.MinIO.PresignExpiry)
}
