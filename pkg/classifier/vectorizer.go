package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/orneryd/twic/pkg/normalize"
)

// vectorizerArtifact is the on-disk shape of a fitted vectorizer: a fixed
// vocabulary (term -> column index) plus a per-term IDF weight, the same
// two fields a real TF-IDF vectorizer needs regardless of which library
// fitted it.
type vectorizerArtifact struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

// Vectorizer turns free text into the fixed-length numeric feature vector
// a linearModel was trained against. It is immutable after load.
type Vectorizer struct {
	vocabulary map[string]int
	idf        []float64
}

func loadVectorizer(path string) (*Vectorizer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var art vectorizerArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("vectorizer: decode %s: %w", path, err)
	}
	if len(art.IDF) != len(art.Vocabulary) {
		return nil, fmt.Errorf("vectorizer: idf length %d does not match vocabulary size %d", len(art.IDF), len(art.Vocabulary))
	}
	return &Vectorizer{vocabulary: art.Vocabulary, idf: art.IDF}, nil
}

// Dimension returns the feature vector length Transform produces.
func (v *Vectorizer) Dimension() int { return len(v.idf) }

// Transform tokenizes text the same way BM25 does and returns a TF-IDF
// feature vector: raw term count times that term's fitted IDF weight,
// zero for any term outside the fitted vocabulary.
func (v *Vectorizer) Transform(text string) []float64 {
	out := make([]float64, len(v.idf))
	for _, tok := range normalize.Tokenize(text) {
		col, ok := v.vocabulary[tok]
		if !ok {
			continue
		}
		out[col] += v.idf[col]
	}
	return out
}
