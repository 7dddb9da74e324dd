package fusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineTripleWeightsSumToOne(t *testing.T) {
	sem := []Pair{{ID: "C1", Score: 1.0}}
	bm25 := []Pair{{ID: "C1", Score: 1.0}}
	cls := []float64{1.0}
	classes := []string{"C1"}

	out := CombineTriple(sem, bm25, cls, classes, 0.5, 0.3, 0.2)
	require.Len(t, out, 1)
	assert.InDelta(t, 1.0, out[0].Score, 1e-9)
}

func TestCombineTripleUniformScoresScenarioS4(t *testing.T) {
	sem := []Pair{{ID: "C1", Score: 0.5}}
	bm25 := []Pair{{ID: "C1", Score: 0.5}}
	cls := []float64{0.5}
	classes := []string{"C1"}

	out := CombineTriple(sem, bm25, cls, classes, 0.5, 0.3, 0.2)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.5, out[0].Score, 1e-9)
}

func TestCombineTripleUnionOfCandidates(t *testing.T) {
	sem := []Pair{{ID: "C1", Score: 0.9}}
	bm25 := []Pair{{ID: "C2", Score: 0.8}}
	cls := []float64{0.1, 0.2, 0.9}
	classes := []string{"C1", "C2", "C3"}

	out := CombineTriple(sem, bm25, cls, classes, 1, 1, 1)
	ids := map[string]bool{}
	for _, s := range out {
		ids[s.ID] = true
	}
	assert.True(t, ids["C1"])
	assert.True(t, ids["C2"])
	assert.True(t, ids["C3"])
	assert.Len(t, out, 3)
}

func TestCombineTripleMissingSignalsDefaultToZero(t *testing.T) {
	sem := []Pair{{ID: "C1", Score: 1.0}}
	classes := []string{"C2"}

	out := CombineTriple(sem, nil, []float64{1.0}, classes, 1, 1, 1)
	byID := map[string]float64{}
	for _, s := range out {
		byID[s.ID] = s.Score
	}
	assert.InDelta(t, 1.0/3, byID["C1"], 1e-9)
	assert.InDelta(t, 1.0/3, byID["C2"], 1e-9)
}

func TestCombineTripleSortedDescending(t *testing.T) {
	sem := []Pair{{ID: "lo", Score: 0.1}, {ID: "hi", Score: 0.9}}
	out := CombineTriple(sem, nil, nil, nil, 1, 1, 1)
	require.Len(t, out, 2)
	assert.Equal(t, "hi", out[0].ID)
	assert.Equal(t, "lo", out[1].ID)
}

func TestCombineTripleZeroAndNegativeWeightsClamped(t *testing.T) {
	sem := []Pair{{ID: "C1", Score: 1.0}}
	out := CombineTriple(sem, nil, nil, nil, 0, -5, 0)
	require.Len(t, out, 1)
	assert.Greater(t, out[0].Score, 0.0)
	assert.Less(t, out[0].Score, 1.0)
}

func TestCombineTripleDropsNonFiniteSignalScores(t *testing.T) {
	sem := []Pair{{ID: "C1", Score: math.NaN()}, {ID: "C2", Score: 0.5}}
	out := CombineTriple(sem, nil, nil, nil, 1, 1, 1)
	ids := map[string]bool{}
	for _, s := range out {
		ids[s.ID] = true
	}
	assert.False(t, ids["C1"])
	assert.True(t, ids["C2"])
}

func TestCombineTripleEmptyInputsReturnEmpty(t *testing.T) {
	out := CombineTriple(nil, nil, nil, nil, 0.5, 0.3, 0.2)
	assert.Empty(t, out)
}
