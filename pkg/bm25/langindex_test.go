package bm25

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLangIndexesBuildsOncePerLang(t *testing.T) {
	calls := map[string]int{}
	li := NewLangIndexes(func(lang string) []Doc {
		calls[lang]++
		return sampleDocs()
	})

	require.False(t, li.Loaded())
	li.Get("es")
	li.Get("es")
	li.Get("en")

	assert.Equal(t, 1, calls["es"])
	assert.Equal(t, 1, calls["en"])
	assert.True(t, li.Loaded())
}

func TestLangIndexesResetSingleLang(t *testing.T) {
	calls := map[string]int{}
	li := NewLangIndexes(func(lang string) []Doc {
		calls[lang]++
		return sampleDocs()
	})

	li.Get("es")
	li.Reset("es")
	li.Get("es")
	assert.Equal(t, 2, calls["es"])
}

func TestLangIndexesResetAll(t *testing.T) {
	li := NewLangIndexes(func(lang string) []Doc { return sampleDocs() })
	li.Get("es")
	li.Get("en")
	li.Reset("")
	assert.False(t, li.Loaded())
}
