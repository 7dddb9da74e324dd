package taxonomy

// Embedder is the dependency the store uses to precompute label embeddings
// for the vector boost in Search. pkg/embed's backends satisfy this
// interface; the store takes it as a plain interface rather than importing
// pkg/embed directly so a caller that never enables the vector boost never
// has to construct one.
type Embedder interface {
	Embed(text string) ([]float32, error)
	Dimension() int
}
