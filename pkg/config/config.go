// Package config handles service configuration via environment variables,
// with an optional YAML file overlay for local development.
//
// Configuration is loaded from environment variables using LoadFromEnv()
// and can be validated with Validate() before use.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//
// Environment Variables:
//   - ALPHA_SEM, BETA_BM25, GAMMA_CLF: fusion weights (default 0.5/0.3/0.2)
//   - TAU_LOW: abstention threshold (default 0.4)
//   - TOP_K: internal candidate pool size per signal (default 20)
//   - MODELS_DIR, DATA_DIR: artifact directories
//   - DEFAULT_LANG, SUPPORTED_LANGS: language routing (comma-separated)
//   - EMBEDDINGS_BACKEND, EMBEDDINGS_MODEL: embedding selection
//   - TAXO_W_*, TAXO_TOP_K, TAXO_FUZZY_MIN_RATIO: taxonomy search weights
//   - GIT_SHA, BUILD_DATE: build metadata, normally injected by the build
//     pipeline rather than set by hand
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	APIName    string `yaml:"api_name"`
	APIVersion string `yaml:"api_version"`
	GitSHA     string `yaml:"-"`
	BuildDate  string `yaml:"-"`

	// Fusion weights, normalized by the fusion package itself; here they
	// only need to be finite and non-negative.
	AlphaSem float64 `yaml:"alpha_sem" validate:"gte=0"`
	BetaBM25 float64 `yaml:"beta_bm25" validate:"gte=0"`
	GammaCLF float64 `yaml:"gamma_clf" validate:"gte=0"`

	TauLow float64 `yaml:"tau_low" validate:"gte=0,lte=1"`
	TopK   int     `yaml:"top_k" validate:"gte=1"`

	ModelsDir string `yaml:"models_dir" validate:"required"`
	DataDir   string `yaml:"data_dir" validate:"required"`

	DefaultLang    string   `yaml:"default_lang" validate:"required"`
	SupportedLangs []string `yaml:"supported_langs" validate:"min=1,dive,required"`

	EmbeddingsBackend string `yaml:"embeddings_backend" validate:"oneof=placeholder st"`
	EmbeddingsModel   string `yaml:"embeddings_model" validate:"required"`

	TaxoWExact     float64 `yaml:"taxo_w_exact" validate:"gte=0"`
	TaxoWPrefix    float64 `yaml:"taxo_w_prefix" validate:"gte=0"`
	TaxoWSubstring float64 `yaml:"taxo_w_substring" validate:"gte=0"`
	TaxoWAlt       float64 `yaml:"taxo_w_alt" validate:"gte=0"`
	TaxoWHidden    float64 `yaml:"taxo_w_hidden" validate:"gte=0"`
	TaxoWPath      float64 `yaml:"taxo_w_path" validate:"gte=0"`
	TaxoWContext   float64 `yaml:"taxo_w_context" validate:"gte=0"`
	TaxoWVec       float64 `yaml:"taxo_w_vec" validate:"gte=0"`
	TaxoWFuzzy     float64 `yaml:"taxo_w_fuzzy" validate:"gte=0"`

	TaxoFuzzyMinRatio float64 `yaml:"taxo_fuzzy_min_ratio" validate:"gte=0,lte=100"`
	TaxoTopK          int     `yaml:"taxo_top_k" validate:"gte=1"`

	MaxQueryChars int `yaml:"max_query_chars" validate:"gte=1"`
}

// DefaultConfig returns the configuration the original service falls back
// to when no environment variable overrides a given setting.
func DefaultConfig() *Config {
	return &Config{
		APIName:    "twic",
		APIVersion: "0.2.1",

		AlphaSem: 0.5,
		BetaBM25: 0.3,
		GammaCLF: 0.2,

		TauLow: 0.4,
		TopK:   20,

		ModelsDir: "models",
		DataDir:   "data",

		DefaultLang:    "es",
		SupportedLangs: []string{"es", "en"},

		EmbeddingsBackend: "placeholder",
		EmbeddingsModel:   "sentence-transformers/all-MiniLM-L6-v2",

		TaxoWExact:     100,
		TaxoWPrefix:    60,
		TaxoWSubstring: 40,
		TaxoWAlt:       30,
		TaxoWHidden:    20,
		TaxoWPath:      10,
		TaxoWContext:   5,
		TaxoWVec:       0,
		TaxoWFuzzy:     0,

		TaxoFuzzyMinRatio: 70,
		TaxoTopK:          25,

		MaxQueryChars: 512,
	}
}

// LoadFromEnv returns DefaultConfig overridden by any of the recognized
// environment variables that are set.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.GitSHA = os.Getenv("GIT_SHA")
	cfg.BuildDate = os.Getenv("BUILD_DATE")

	envFloat(&cfg.AlphaSem, "ALPHA_SEM")
	envFloat(&cfg.BetaBM25, "BETA_BM25")
	envFloat(&cfg.GammaCLF, "GAMMA_CLF")
	envFloat(&cfg.TauLow, "TAU_LOW")
	envInt(&cfg.TopK, "TOP_K")

	envString(&cfg.ModelsDir, "MODELS_DIR")
	envString(&cfg.DataDir, "DATA_DIR")

	envString(&cfg.DefaultLang, "DEFAULT_LANG")
	if raw := os.Getenv("SUPPORTED_LANGS"); raw != "" {
		cfg.SupportedLangs = splitAndTrim(raw)
	}

	envString(&cfg.EmbeddingsBackend, "EMBEDDINGS_BACKEND")
	envString(&cfg.EmbeddingsModel, "EMBEDDINGS_MODEL")

	envFloat(&cfg.TaxoWExact, "TAXO_W_EXACT")
	envFloat(&cfg.TaxoWPrefix, "TAXO_W_PREFIX")
	envFloat(&cfg.TaxoWSubstring, "TAXO_W_SUBSTRING")
	envFloat(&cfg.TaxoWAlt, "TAXO_W_ALT")
	envFloat(&cfg.TaxoWHidden, "TAXO_W_HIDDEN")
	envFloat(&cfg.TaxoWPath, "TAXO_W_PATH")
	envFloat(&cfg.TaxoWContext, "TAXO_W_CONTEXT")
	envFloat(&cfg.TaxoWVec, "TAXO_W_VEC")
	envFloat(&cfg.TaxoWFuzzy, "TAXO_W_FUZZY")
	envFloat(&cfg.TaxoFuzzyMinRatio, "TAXO_FUZZY_MIN_RATIO")
	envInt(&cfg.TaxoTopK, "TAXO_TOP_K")

	envInt(&cfg.MaxQueryChars, "MAX_QUERY_CHARS")

	return cfg
}

// LoadFromFile reads a YAML overlay on top of LoadFromEnv's result. Fields
// absent from the file keep their environment or default value; fields
// present in both the file and the environment are overridden by the file
// (the file is meant for local development).
func LoadFromFile(path string) (*Config, error) {
	cfg := LoadFromEnv()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks structural constraints via struct tags and a handful of
// cross-field rules validator cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	found := false
	for _, l := range c.SupportedLangs {
		if l == c.DefaultLang {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config: default_lang %q is not in supported_langs %v", c.DefaultLang, c.SupportedLangs)
	}
	return nil
}

// TaxonomyPath returns the on-disk path of the taxonomy artifact.
func (c *Config) TaxonomyPath() string {
	return c.DataDir + "/taxonomy.json"
}

// ClassEmbeddingsPath returns the dense class-embedding matrix path for lang.
func (c *Config) ClassEmbeddingsPath(lang string) string {
	return c.DataDir + "/class_embeddings_" + lang + ".bin"
}

// ClassIDsPath returns the class id list path for lang, aligned with
// ClassEmbeddingsPath's matrix rows.
func (c *Config) ClassIDsPath(lang string) string {
	return c.DataDir + "/class_ids_" + lang + ".txt"
}

func envFloat(dst *float64, key string) {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			*dst = v
		}
	}
}

func envInt(dst *int, key string) {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			*dst = v
		}
	}
}

func envString(dst *string, key string) {
	if raw := os.Getenv(key); raw != "" {
		*dst = raw
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
