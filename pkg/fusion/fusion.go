// Package fusion combines the three classification signals — dense
// retrieval, BM25 lexical search, and the linear classifier — into one
// ranked candidate list under normalized weights.
package fusion

import (
	"math"
	"sort"
)

// Pair is one (id, score) signal hit, the shape both dense.TopK and
// bm25.TopK results are adapted to before fusion.
type Pair struct {
	ID    string
	Score float64
}

// Scored is one fused candidate.
type Scored struct {
	ID    string
	Score float64
}

// CombineTriple fuses sem (dense retrieval hits), bm25 (lexical hits),
// and cls (a classifier score vector aligned with classes) into one
// descending-sorted candidate list.
//
// Weights are clamped to at least 1e-8 (so a zero or negative weight
// never silently zeroes out a signal) and renormalized to sum to 1. The
// candidate set is the union of every id in sem, every id in bm25, and
// every class id — a class the classifier scored but neither other
// signal surfaced still gets a chance to rank, at its weighted
// classifier-only score. Missing signals default to 0; a candidate whose
// fused score is not finite (NaN/Inf, possible if an upstream signal
// produced a non-finite value) is dropped rather than sorted
// arbitrarily.
func CombineTriple(sem, bm25 []Pair, cls []float64, classes []string, wSem, wBm25, wClf float64) []Scored {
	wSem = clampWeight(wSem)
	wBm25 = clampWeight(wBm25)
	wClf = clampWeight(wClf)
	total := wSem + wBm25 + wClf
	wSem /= total
	wBm25 /= total
	wClf /= total

	semByID := pairMap(sem)
	bm25ByID := pairMap(bm25)
	clfByID := make(map[string]float64, len(classes))
	for i, id := range classes {
		if i < len(cls) && isFinite(float64(cls[i])) {
			clfByID[id] = float64(cls[i])
		}
	}

	candidates := map[string]struct{}{}
	for id := range semByID {
		candidates[id] = struct{}{}
	}
	for id := range bm25ByID {
		candidates[id] = struct{}{}
	}
	for _, id := range classes {
		candidates[id] = struct{}{}
	}

	out := make([]Scored, 0, len(candidates))
	for id := range candidates {
		score := wSem*semByID[id] + wBm25*bm25ByID[id] + wClf*clfByID[id]
		if !isFinite(score) {
			continue
		}
		out = append(out, Scored{ID: id, Score: score})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func clampWeight(w float64) float64 {
	if w < 1e-8 {
		return 1e-8
	}
	return w
}

func pairMap(pairs []Pair) map[string]float64 {
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		if isFinite(p.Score) {
			out[p.ID] = p.Score
		}
	}
	return out
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
