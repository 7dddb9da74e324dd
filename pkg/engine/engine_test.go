package engine

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/twic/pkg/config"
	"github.com/orneryd/twic/pkg/retrieval"
)

const engineTaxonomyJSON = `[
  {
    "id": "C1",
    "prefLabel": {"es": "Chocolates", "en": "Chocolates"},
    "altLabel": {"es": ["Bombones"], "en": ["Candy"]},
    "path": {"es": ["Alimentos", "Chocolates"], "en": ["Food", "Chocolates"]}
  },
  {
    "id": "C2",
    "prefLabel": {"es": "Galletas", "en": "Cookies"},
    "path": {"es": ["Alimentos", "Galletas"], "en": ["Food", "Cookies"]}
  }
]`

// stubEmbedder returns a fixed 2-dimensional vector per known text, and an
// arbitrary-but-deterministic vector otherwise, so dense retrieval TopK
// results are predictable in tests.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Dimension() int { return 2 }

func (s *stubEmbedder) Embed(text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func writeEngineFixtures(t *testing.T, tau float64) *Engine {
	t.Helper()
	dataDir := t.TempDir()
	modelsDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "taxonomy.json"), []byte(engineTaxonomyJSON), 0o644))

	// Classifier artifacts: vocabulary matches the normalized query tokens,
	// a ProbaMultiClass model that strongly favors C1 for "chocolate".
	vectorizer := map[string]interface{}{
		"vocabulary": map[string]int{"chocolate": 0, "galleta": 1},
		"idf":        []float64{1.0, 1.0},
	}
	model := map[string]interface{}{
		"kind":    "proba_multiclass",
		"weights": [][]float64{{5, 0}, {0, 5}},
		"bias":    []float64{0, 0},
	}
	classes := []string{"C1", "C2"}
	writeJSONFile(t, filepath.Join(modelsDir, "vectorizer.json"), vectorizer)
	writeJSONFile(t, filepath.Join(modelsDir, "model.json"), model)
	writeJSONFile(t, filepath.Join(modelsDir, "classes.json"), classes)

	// Dense retrieval: es class-embedding matrix aligned with C1, C2.
	mat := [][]float32{{1, 0}, {0, 1}}
	ids := []string{"C1", "C2"}
	require.NoError(t, retrieval.WriteArtifacts(
		filepath.Join(dataDir, "class_embeddings_es.bin"),
		filepath.Join(dataDir, "class_ids_es.txt"),
		mat, ids))

	cfg := config.DefaultConfig()
	cfg.DataDir = dataDir
	cfg.ModelsDir = modelsDir
	cfg.DefaultLang = "es"
	cfg.SupportedLangs = []string{"es", "en"}
	cfg.TauLow = tau

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"chocolate": {1, 0},
	}}

	return New(cfg, embedder)
}

func writeJSONFile(t *testing.T, path string, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

func TestClassifyRejectsEmptyQuery(t *testing.T) {
	e := writeEngineFixtures(t, 0.1)
	_, err := e.Classify("   ", "es", 5)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestClassifyProducesTopPrediction(t *testing.T) {
	e := writeEngineFixtures(t, 0.1)
	result, err := e.Classify("chocolate", "es", 5)
	require.NoError(t, err)
	require.False(t, result.Abstained)
	require.NotNil(t, result.Prediction)
	assert.Equal(t, "C1", result.Prediction.ID)
	assert.Equal(t, "Chocolates", result.Prediction.Label)
}

func TestClassifyAbstainsBelowTauLow(t *testing.T) {
	e := writeEngineFixtures(t, 0.99)
	result, err := e.Classify("chocolate", "es", 5)
	require.NoError(t, err)
	assert.True(t, result.Abstained)
	assert.Nil(t, result.Prediction)
}

func TestClassifyUnsupportedLangFallsBackToDefault(t *testing.T) {
	e := writeEngineFixtures(t, 0.1)
	result, err := e.Classify("chocolate", "de", 5)
	require.NoError(t, err)
	require.NotNil(t, result.Prediction)
}

func TestClassifyTopKZeroReturnsNoAlternativesButKeepsPrediction(t *testing.T) {
	e := writeEngineFixtures(t, 0.1)
	result, err := e.Classify("chocolate", "es", 0)
	require.NoError(t, err)
	require.NotNil(t, result.Prediction)
	assert.Equal(t, "C1", result.Prediction.ID)
	assert.Empty(t, result.Alternatives)
}

func TestClassifyNegativeTopKDefaultsToFive(t *testing.T) {
	e := writeEngineFixtures(t, 0.1)
	result, err := e.Classify("chocolate", "es", -1)
	require.NoError(t, err)
	require.NotNil(t, result.Prediction)
	assert.LessOrEqual(t, len(result.Alternatives), 5)
}

func TestReadyReflectsLoadState(t *testing.T) {
	e := writeEngineFixtures(t, 0.1)
	taxo, clf, bm := e.Ready()
	assert.False(t, taxo)
	assert.False(t, clf)
	assert.False(t, bm)

	_, err := e.Classify("chocolate", "es", 5)
	require.NoError(t, err)

	taxo, clf, bm = e.Ready()
	assert.True(t, taxo)
	assert.True(t, clf)
	assert.True(t, bm)
}

func TestReloadResetsLoadedFlags(t *testing.T) {
	e := writeEngineFixtures(t, 0.1)
	_, err := e.Classify("chocolate", "es", 5)
	require.NoError(t, err)

	result := e.Reload("")
	assert.Equal(t, 12, len(result.Files["taxonomy.json"]))
	taxo, clf, bm := e.Ready()
	assert.False(t, taxo)
	assert.False(t, clf)
	assert.False(t, bm)

	// Still works after reload: lazily rebuilds everything.
	_, err = e.Classify("chocolate", "es", 5)
	require.NoError(t, err)
}

func TestReloadReportsMissingArtifact(t *testing.T) {
	e := writeEngineFixtures(t, 0.1)
	result := e.Reload("fr")
	assert.Equal(t, "missing", result.Files["class_embeddings_fr"])
	assert.Equal(t, []string{"fr"}, result.Langs)
}

func TestTaxoConceptNotFound(t *testing.T) {
	e := writeEngineFixtures(t, 0.1)
	_, err := e.TaxoConcept("does-not-exist")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTaxoSearchAndAutocomplete(t *testing.T) {
	e := writeEngineFixtures(t, 0.1)
	hits, err := e.TaxoSearch("choc", "es", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "C1", hits[0].ID)

	ac, err := e.TaxoAutocomplete("choc", "es", 5)
	require.NoError(t, err)
	require.NotEmpty(t, ac)
}
