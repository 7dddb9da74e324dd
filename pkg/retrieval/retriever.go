// Package retrieval implements the dense retrieval signal of the
// classification pipeline: a precomputed class-embedding matrix E (N
// classes x D dimensions) and the aligned class ids it was built from,
// compared against a query embedding by cosine similarity.
package retrieval

import (
	"sort"

	"github.com/orneryd/twic/pkg/math/vector"
)

// Embedder is the dependency Retriever uses to turn a query string into a
// vector comparable against the loaded class-embedding matrix.
type Embedder interface {
	Embed(text string) ([]float32, error)
	Dimension() int
}

// Hit is one scored class from TopK.
type Hit struct {
	ClassID string
	Score   float64
}

// Retriever owns one language's class-embedding matrix and the aligned
// class ids it was built from. It is read-only after Load.
type Retriever struct {
	embedder Embedder
	ids      []string
	mat      [][]float32
	dim      int
}

// New constructs an empty Retriever. Call Load before TopK; TopK returns
// nil against an unloaded Retriever.
func New(embedder Embedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// Loaded reports whether Load has installed a class-embedding matrix yet.
func (r *Retriever) Loaded() bool { return r.mat != nil }

// Len returns the number of classes currently loaded.
func (r *Retriever) Len() int { return len(r.ids) }

// EmbedQuery delegates to the configured Embedder.
func (r *Retriever) EmbedQuery(text string) ([]float32, error) {
	return r.embedder.Embed(text)
}

// TopK returns the k classes whose embeddings are most cosine-similar to
// queryEmbedding, sorted by descending similarity.
func (r *Retriever) TopK(queryEmbedding []float32, k int) []Hit {
	if r.mat == nil || len(r.mat) == 0 {
		return nil
	}
	sims := make([]float64, len(r.mat))
	for i, row := range r.mat {
		sims[i] = vector.CosineSimilarity(row, queryEmbedding)
	}

	order := make([]int, len(sims))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return sims[order[i]] > sims[order[j]] })

	if k > 0 && k < len(order) {
		order = order[:k]
	}
	out := make([]Hit, len(order))
	for i, idx := range order {
		out[i] = Hit{ClassID: r.ids[idx], Score: sims[idx]}
	}
	return out
}
