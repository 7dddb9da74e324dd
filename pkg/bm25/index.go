// Package bm25 provides a per-language Okapi BM25 index over a concept's
// weighted text fields. It plays the same role as NornicDB's
// pkg/search.FulltextIndex (inverted index, IDF, TF saturation) but scores
// with rank_bm25's defaults (k1=1.5, b=0.75) rather than that package's
// k1=1.2, and carries no prefix-boost or stop-word filtering — every field
// value is repeated in proportion to its weight instead, so the field's
// importance is baked into term frequency rather than into the scoring
// formula.
package bm25

import (
	"math"
	"sort"

	"github.com/orneryd/twic/pkg/normalize"
)

const (
	k1 = 1.5
	b  = 0.75
)

// FieldWeights controls how many times a field's text is repeated when
// building a document's token stream: repeat = max(1, round(weight*2)).
// prefLabel dominates, path and hiddenLabel contribute moderately, and the
// free-text fields (definition/scopeNote/note/example) contribute least.
var FieldWeights = map[string]float64{
	"prefLabel":   2.0,
	"altLabel":    1.5,
	"hiddenLabel": 1.2,
	"definition":  1.0,
	"scopeNote":   0.8,
	"note":        0.6,
	"example":     0.8,
	"path":        1.2,
}

// Doc is one concept's per-field text values in a single language, ready
// to be tokenized and weighted into a BM25 document. Field keys match
// FieldWeights; an absent key is treated as empty.
type Doc struct {
	ID     string
	Fields map[string][]string
}

// Index is a BM25 index built over a fixed set of documents for one
// language. Build it once per language via Build; it does not support
// incremental updates — a reload rebuilds a fresh Index and replaces the
// old one.
type Index struct {
	ids          []string
	docLengths   []int
	termFreq     map[string][]int // term -> docIdx -> frequency, sparse via map
	docCount     int
	avgDocLength float64
}

// Pieces expands fields into the repeated token stream BM25 tokenizes,
// applying FieldWeights. Exported so callers building a Doc can check what
// Build will see.
func Pieces(fields map[string][]string) []string {
	var out []string
	for name, w := range FieldWeights {
		repeat := int(math.Round(w * 2))
		if repeat < 1 {
			repeat = 1
		}
		for _, v := range fields[name] {
			if v == "" {
				continue
			}
			for i := 0; i < repeat; i++ {
				out = append(out, v)
			}
		}
	}
	return out
}

// Build constructs an Index over docs. A document whose weighted fields
// tokenize to nothing still occupies a row — with a single empty-string
// token — so it contributes to avgDocLength but can never match a real
// query term.
func Build(docs []Doc) *Index {
	idx := &Index{
		ids:        make([]string, len(docs)),
		docLengths: make([]int, len(docs)),
		termFreq:   map[string][]int{},
		docCount:   len(docs),
	}

	var totalLen int
	for i, d := range docs {
		idx.ids[i] = d.ID

		var tokens []string
		for _, piece := range Pieces(d.Fields) {
			tokens = append(tokens, normalize.Tokenize(piece)...)
		}
		if len(tokens) == 0 {
			tokens = []string{""}
		}
		idx.docLengths[i] = len(tokens)
		totalLen += len(tokens)

		counts := map[string]int{}
		for _, t := range tokens {
			counts[t]++
		}
		for t, freq := range counts {
			col := idx.termFreq[t]
			if col == nil {
				col = make([]int, len(docs))
			}
			col[i] = freq
			idx.termFreq[t] = col
		}
	}
	if idx.docCount > 0 {
		idx.avgDocLength = float64(totalLen) / float64(idx.docCount)
	}
	return idx
}

// Len reports how many documents this Index was built over.
func (idx *Index) Len() int { return idx.docCount }

// idf computes the standard Okapi BM25 inverse document frequency with
// the +1 smoothing term that keeps it non-negative for very common terms.
func (idx *Index) idf(term string) float64 {
	col := idx.termFreq[term]
	if col == nil {
		return 0
	}
	df := 0
	for _, f := range col {
		if f > 0 {
			df++
		}
	}
	n := float64(idx.docCount)
	return math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
}

// scores computes the raw BM25 score of every document against
// queryTokens, mirroring rank_bm25's get_scores: most entries are zero
// because only documents sharing at least one query term accumulate a
// score.
func (idx *Index) scores(queryTokens []string) []float64 {
	out := make([]float64, idx.docCount)
	if idx.avgDocLength == 0 {
		return out
	}
	for _, term := range queryTokens {
		col := idx.termFreq[term]
		if col == nil {
			continue
		}
		idf := idx.idf(term)
		if idf == 0 {
			continue
		}
		for i, tf := range col {
			if tf == 0 {
				continue
			}
			docLen := float64(idx.docLengths[i])
			numerator := float64(tf) * (k1 + 1)
			denominator := float64(tf) + k1*(1-b+b*(docLen/idx.avgDocLength))
			out[i] += idf * (numerator / denominator)
		}
	}
	return out
}

// Hit is one scored document from TopK, its score normalized into [0, 1]
// by dividing by the top score when that score is positive (or by 1
// otherwise, so an all-zero result stays all-zero instead of dividing by
// zero).
type Hit struct {
	ID    string
	Score float64
}

// TopK tokenizes query and returns its k highest-scoring documents,
// normalized by dividing every score by the top result's raw score (or 1
// if that score is <= 0, so a query with no matches returns zero-score
// hits rather than NaN).
func (idx *Index) TopK(query string, k int) []Hit {
	if idx.docCount == 0 {
		return nil
	}
	tokens := normalize.Tokenize(query)
	raw := idx.scores(tokens)

	order := make([]int, len(raw))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return raw[order[i]] > raw[order[j]] })

	if k > 0 && k < len(order) {
		order = order[:k]
	}
	if len(order) == 0 {
		return nil
	}

	top := raw[order[0]]
	denom := 1.0
	if top > 0 {
		denom = top
	}

	out := make([]Hit, len(order))
	for i, docIdx := range order {
		out[i] = Hit{ID: idx.ids[docIdx], Score: raw[docIdx] / denom}
	}
	return out
}
