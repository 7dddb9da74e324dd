package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAutocompletePrefixMatch(t *testing.T) {
	path := writeSampleTaxonomy(t)
	store := NewStore(DefaultWeights(), nil)
	require.NoError(t, store.Load(path, nil))

	hits := store.Autocomplete("Choc", "es", 10)
	require.Len(t, hits, 1)
	require.Equal(t, "C1", hits[0].ConceptID)
	require.Equal(t, "pref", hits[0].Kind)
}

func TestAutocompleteMatchesAltLabels(t *testing.T) {
	path := writeSampleTaxonomy(t)
	store := NewStore(DefaultWeights(), nil)
	require.NoError(t, store.Load(path, nil))

	hits := store.Autocomplete("Bombon", "es", 10)
	require.Len(t, hits, 1)
	require.Equal(t, "C1", hits[0].ConceptID)
	require.Equal(t, "alt", hits[0].Kind)
}

func TestAutocompleteRespectsLimit(t *testing.T) {
	path := writeSampleTaxonomy(t)
	store := NewStore(DefaultWeights(), nil)
	require.NoError(t, store.Load(path, nil))

	hits := store.Autocomplete("B", "es", 1)
	require.Len(t, hits, 1)
}

func TestAutocompleteEmptyQuery(t *testing.T) {
	path := writeSampleTaxonomy(t)
	store := NewStore(DefaultWeights(), nil)
	require.NoError(t, store.Load(path, nil))

	require.Empty(t, store.Autocomplete("   ", "es", 10))
}

func TestAutocompleteNoMatchReturnsEmpty(t *testing.T) {
	path := writeSampleTaxonomy(t)
	store := NewStore(DefaultWeights(), nil)
	require.NoError(t, store.Load(path, nil))

	require.Empty(t, store.Autocomplete("zzzzz", "es", 10))
}

func TestAutocompleteIsCached(t *testing.T) {
	path := writeSampleTaxonomy(t)
	store := NewStore(DefaultWeights(), nil)
	require.NoError(t, store.Load(path, nil))

	first := store.Autocomplete("Choc", "es", 10)
	second := store.Autocomplete("Choc", "es", 10)
	require.Equal(t, first, second)
}
