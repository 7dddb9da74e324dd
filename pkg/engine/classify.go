package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/orneryd/twic/pkg/fusion"
	"github.com/orneryd/twic/pkg/normalize"
)

// Alternative is one ranked candidate offered alongside the top
// prediction.
type Alternative struct {
	ID    string
	Label string
	Score float64
}

// Prediction is the top-ranked candidate, present only when the engine
// did not abstain.
type Prediction struct {
	ID    string
	Label string
	Path  []string
	Score float64
}

// ClassifyResult is the full response of a Classify call.
type ClassifyResult struct {
	Prediction   *Prediction
	Alternatives []Alternative
	Abstained    bool
	LatencyMS    float64
}

// Classify runs the full eight-step orchestration: validate, normalize
// language, ensure indices, compute the three signals, fuse them, filter
// to known concepts, and resolve the top prediction plus alternatives.
//
// topK caps the number of alternatives returned. A negative value means
// "unset" and substitutes the default of 5; topK == 0 is a distinct,
// literal request for zero alternatives (the prediction, or abstention,
// is still computed) and is passed through unchanged.
func (e *Engine) Classify(query, lang string, topK int) (*ClassifyResult, error) {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidRequest
	}
	lang = e.resolveLang(lang)

	if err := e.ensureTaxonomy(); err != nil {
		return nil, err
	}
	dense, err := e.ensureDense(lang)
	if err != nil {
		return nil, err
	}
	clf, err := e.ensureClassifier()
	if err != nil {
		return nil, err
	}
	bmIdx := e.bm25.Get(lang)

	q := normalize.Default(query)

	poolK := e.cfg.TopK
	var semPairs, bm25Pairs []fusion.Pair

	if dense.Loaded() {
		qEmb, embErr := dense.EmbedQuery(q)
		if embErr == nil {
			for _, hit := range dense.TopK(qEmb, poolK) {
				semPairs = append(semPairs, fusion.Pair{ID: hit.ClassID, Score: hit.Score})
			}
		}
	}
	for _, hit := range bmIdx.TopK(q, poolK) {
		bm25Pairs = append(bm25Pairs, fusion.Pair{ID: hit.ID, Score: hit.Score})
	}

	clsScores, clsErr := clf.Scores(q)
	if clsErr != nil {
		return nil, joinClassifierShapeErr(clsErr)
	}
	clsFloat := make([]float64, len(clsScores))
	for i, v := range clsScores {
		clsFloat[i] = float64(v)
	}

	combined := fusion.CombineTriple(semPairs, bm25Pairs, clsFloat, clf.Classes(), e.cfg.AlphaSem, e.cfg.BetaBM25, e.cfg.GammaCLF)
	if len(combined) == 0 {
		combined = fallbackUnion(semPairs, bm25Pairs)
	}
	if len(combined) == 0 {
		return nil, ErrNoCandidates
	}

	inTaxonomy := make([]fusion.Scored, 0, len(combined))
	for _, s := range combined {
		if _, ok := e.store.Concept(s.ID); ok {
			inTaxonomy = append(inTaxonomy, s)
		}
	}
	if len(inTaxonomy) == 0 {
		return nil, ErrNoCandidatesInTaxonomy
	}

	if topK < 0 {
		topK = 5
	}

	best := inTaxonomy[0]
	bestConcept, _ := e.store.Concept(best.ID)
	abstained := best.Score < e.cfg.TauLow

	result := &ClassifyResult{Abstained: abstained}
	if !abstained {
		result.Prediction = &Prediction{
			ID:    best.ID,
			Label: bestConcept.Label(lang),
			Path:  bestConcept.PathFor(lang),
			Score: best.Score,
		}
	}

	for _, s := range inTaxonomy[1:] {
		if len(result.Alternatives) >= topK {
			break
		}
		c, ok := e.store.Concept(s.ID)
		if !ok {
			continue
		}
		result.Alternatives = append(result.Alternatives, Alternative{
			ID:    s.ID,
			Label: c.Label(lang),
			Score: s.Score,
		})
	}

	result.LatencyMS = float64(time.Since(start)) / float64(time.Millisecond)
	return result, nil
}

// fallbackUnion is the sem ∪ bm25 candidate set used when fusion itself
// returns nothing — e.g. both weights happened to clamp to a
// configuration where every candidate dropped as non-finite. Scores are
// whichever signal contributed each id, preferring sem when both did.
func fallbackUnion(sem, bm25 []fusion.Pair) []fusion.Scored {
	seen := map[string]float64{}
	order := make([]string, 0, len(sem)+len(bm25))
	for _, p := range bm25 {
		if _, ok := seen[p.ID]; !ok {
			order = append(order, p.ID)
		}
		seen[p.ID] = p.Score
	}
	for _, p := range sem {
		if _, ok := seen[p.ID]; !ok {
			order = append(order, p.ID)
		}
		seen[p.ID] = p.Score
	}
	out := make([]fusion.Scored, len(order))
	for i, id := range order {
		out[i] = fusion.Scored{ID: id, Score: seen[id]}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func joinClassifierShapeErr(err error) error {
	return &classifierShapeError{cause: err}
}

type classifierShapeError struct{ cause error }

func (e *classifierShapeError) Error() string { return ErrClassifierShape.Error() + ": " + e.cause.Error() }
func (e *classifierShapeError) Unwrap() []error { return []error{ErrClassifierShape, e.cause} }
