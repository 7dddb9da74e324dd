package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// stubEmbedder returns a fixed-dimension vector built from the text's runes
// (each rune mod 31 added into the slot picked by its byte offset), just
// enough to exercise the vector boost path deterministically without a
// real model.
type stubEmbedder struct{ dim int }

func (e stubEmbedder) Dimension() int { return e.dim }

func (e stubEmbedder) Embed(text string) ([]float32, error) {
	v := make([]float32, e.dim)
	for i, r := range text {
		v[i%e.dim] += float32(r % 31)
	}
	return v, nil
}

func TestSearchExactPrefixSubstring(t *testing.T) {
	path := writeSampleTaxonomy(t)
	store := NewStore(DefaultWeights(), nil)
	require.NoError(t, store.Load(path, nil))

	hits := store.Search("Chocolates", "es", 5)
	require.NotEmpty(t, hits)
	require.Equal(t, "C1", hits[0].ID)

	hits = store.Search("Choco", "es", 5)
	require.NotEmpty(t, hits)
	require.Equal(t, "C1", hits[0].ID)
}

func TestSearchEmptyQueryReturnsNothing(t *testing.T) {
	path := writeSampleTaxonomy(t)
	store := NewStore(DefaultWeights(), nil)
	require.NoError(t, store.Load(path, nil))

	require.Empty(t, store.Search("   ", "es", 5))
}

func TestSearchFuzzyFallbackWhenNoBaseMatch(t *testing.T) {
	path := writeSampleTaxonomy(t)
	weights := DefaultWeights()
	weights.Fuzzy = 10
	weights.FuzzyMinRatio = 70
	store := NewStore(weights, nil)
	require.NoError(t, store.Load(path, nil))

	hits := store.Search("chocoolates", "es", 3)
	require.NotEmpty(t, hits)
	found := false
	for _, h := range hits {
		if h.ID == "C1" {
			found = true
		}
	}
	require.True(t, found, "expected the chocolates concept to surface via fuzzy fallback")
}

func TestSearchFuzzyFallbackDoesNotFireWhenBaseMatchesExist(t *testing.T) {
	path := writeSampleTaxonomy(t)
	weights := DefaultWeights()
	weights.Fuzzy = 10
	weights.FuzzyMinRatio = 70
	store := NewStore(weights, nil)
	require.NoError(t, store.Load(path, nil))

	hits := store.Search("Chocolates", "es", 5)
	require.Len(t, hits, 1, "exact match should not pull in fuzzy-only candidates")
}

func TestSearchVectorBoostRequiresBaseCandidate(t *testing.T) {
	path := writeSampleTaxonomy(t)
	weights := DefaultWeights()
	weights.Vec = 50
	store := NewStore(weights, stubEmbedder{dim: 8})
	require.NoError(t, store.Load(path, nil))

	hits := store.Search("Chocolates", "es", 5)
	require.NotEmpty(t, hits)
	require.Equal(t, "C1", hits[0].ID)

	require.Empty(t, store.Search("zzzznonexistentzzzz", "es", 5))
}

func TestApplyVectorBoostFallbackMemoizesPerConceptEmbeddings(t *testing.T) {
	// Exercises the path taken when Load precomputed no matrix for a
	// language (snap.embMats[lang] empty) but a candidate already scored
	// via lexical/fuzzy matching against that language. Built directly
	// against a hand-assembled snapshot/scores map rather than through
	// Load, since Load's own matrix builder back-fills every language
	// with a fallback label and so never naturally leaves a language's
	// matrix empty.
	weights := DefaultWeights()
	weights.Vec = 50
	store := NewStore(weights, stubEmbedder{dim: 8})

	snap := &snapshot{
		langs: []string{"es"},
		concepts: map[string]*Concept{
			"C1": {ID: "C1", PrefLabel: map[string]string{"es": "Chocolates"}},
		},
		embMats: map[string][][]float32{},
	}

	scores := map[string]float64{"C1": 10}
	qEmb, err := stubEmbedder{dim: 8}.Embed("Chocolates")
	require.NoError(t, err)

	store.applyVectorBoostFallback(snap, "es", qEmb, scores)
	require.Greater(t, scores["C1"], 10.0, "expected the vector boost to add on top of the base score")

	_, cached := store.embedPrefCache.Load("C1:es")
	require.True(t, cached, "expected the fallback path to memoize C1's es prefLabel embedding")
}

func TestSearchUnknownLangFallsBackToLoadedLang(t *testing.T) {
	path := writeSampleTaxonomy(t)
	store := NewStore(DefaultWeights(), nil)
	require.NoError(t, store.Load(path, nil))

	hits := store.Search("Chocolates", "fr", 5)
	require.NotEmpty(t, hits)
}
