package engine

import "errors"

// Sentinel errors for every error kind the classification and taxonomy
// operations can surface. Callers at the transport boundary map these to
// their own status codes; the engine itself never encodes HTTP semantics.
var (
	// ErrInvalidRequest covers an empty/blank query or an otherwise
	// malformed request.
	ErrInvalidRequest = errors.New("engine: invalid request")

	// ErrNotFound is returned when a requested concept id is unknown to
	// the taxonomy store.
	ErrNotFound = errors.New("engine: not found")

	// ErrNoCandidates is returned when fusion produced nothing and the
	// sem-union-bm25 fallback also yielded nothing.
	ErrNoCandidates = errors.New("engine: no candidates")

	// ErrNoCandidatesInTaxonomy is returned when every ranked id survived
	// fusion but none of them resolved in the taxonomy store, signaling
	// artifact drift between the classifier/retriever and the taxonomy.
	ErrNoCandidatesInTaxonomy = errors.New("engine: no candidates in taxonomy")

	// ErrClassifierShape wraps classifier.ErrShapeMismatch: the model's
	// score vector length could not be reconciled with the class list.
	ErrClassifierShape = errors.New("engine: classifier shape mismatch")

	// ErrArtifactMissing marks a required on-disk artifact absent at load
	// time.
	ErrArtifactMissing = errors.New("engine: artifact missing")
)
