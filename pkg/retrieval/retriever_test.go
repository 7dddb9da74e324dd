package retrieval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(text string) ([]float32, error) {
	switch text {
	case "chocolates":
		return []float32{1, 0, 0}, nil
	case "bebidas":
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}
func (fakeEmbedder) Dimension() int { return 3 }

func TestLoadAndTopK(t *testing.T) {
	dir := t.TempDir()
	embPath := filepath.Join(dir, "class_embeddings.bin")
	idsPath := filepath.Join(dir, "class_ids.txt")

	mat := [][]float32{{1, 0, 0}, {0, 1, 0}, {0.5, 0.5, 0}}
	ids := []string{"C1", "C2", "C3"}
	require.NoError(t, WriteArtifacts(embPath, idsPath, mat, ids))

	r := New(fakeEmbedder{})
	require.False(t, r.Loaded())
	require.NoError(t, r.Load(embPath, idsPath))
	require.True(t, r.Loaded())
	require.Equal(t, 3, r.Len())

	q, err := r.EmbedQuery("chocolates")
	require.NoError(t, err)

	hits := r.TopK(q, 2)
	require.Len(t, hits, 2)
	assert.Equal(t, "C1", hits[0].ClassID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestLoadRejectsMismatchedLengths(t *testing.T) {
	dir := t.TempDir()
	embPath := filepath.Join(dir, "class_embeddings.bin")
	idsPath := filepath.Join(dir, "class_ids.txt")
	require.NoError(t, WriteArtifacts(embPath, idsPath, [][]float32{{1, 0}}, []string{"A"}))

	// Corrupt the ids file independently so it disagrees with the matrix.
	require.NoError(t, os.WriteFile(idsPath, []byte("A\nB\n"), 0o644))

	r := New(fakeEmbedder{})
	err := r.Load(embPath, idsPath)
	require.Error(t, err)
}

func TestTopKUnloadedReturnsNil(t *testing.T) {
	r := New(fakeEmbedder{})
	assert.Nil(t, r.TopK([]float32{1, 0, 0}, 5))
}
