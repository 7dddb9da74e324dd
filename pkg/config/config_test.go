package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("ALPHA_SEM", "0.7")
	t.Setenv("TAU_LOW", "0.9")
	t.Setenv("SUPPORTED_LANGS", "en, fr ,es")
	t.Setenv("DEFAULT_LANG", "fr")

	cfg := LoadFromEnv()
	assert.InDelta(t, 0.7, cfg.AlphaSem, 1e-9)
	assert.InDelta(t, 0.9, cfg.TauLow, 1e-9)
	assert.Equal(t, []string{"en", "fr", "es"}, cfg.SupportedLangs)
	assert.Equal(t, "fr", cfg.DefaultLang)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvIgnoresUnsetVars(t *testing.T) {
	cfg := LoadFromEnv()
	assert.Equal(t, DefaultConfig().TopK, cfg.TopK)
}

func TestValidateRejectsUnknownEmbeddingsBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmbeddingsBackend = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsDefaultLangNotInSupported(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultLang = "de"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsTauLowOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TauLow = 1.5
	assert.Error(t, cfg.Validate())
}

func TestLoadFromFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "twic.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_lang: en\ntau_low: 0.6\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.DefaultLang)
	assert.InDelta(t, 0.6, cfg.TauLow, 1e-9)
	assert.Equal(t, DefaultConfig().TopK, cfg.TopK)
}

func TestArtifactPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "data"
	assert.Equal(t, "data/taxonomy.json", cfg.TaxonomyPath())
	assert.Equal(t, "data/class_embeddings_es.bin", cfg.ClassEmbeddingsPath("es"))
	assert.Equal(t, "data/class_ids_es.txt", cfg.ClassIDsPath("es"))
}
