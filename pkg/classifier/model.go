package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Kind is the capability-typed classifier variant resolved once at Load
// time, per the original service's three observed shapes: a multinomial
// model exposing per-class probabilities, a binary model exposing a
// single decision margin, and a one-vs-rest model exposing a decision
// score per class. Scores always returns a vector aligned with the class
// id order regardless of which variant loaded.
type Kind string

const (
	ProbaMultiClass  Kind = "proba_multiclass"
	DecisionBinary   Kind = "decision_binary"
	DecisionMultiClass Kind = "decision_multiclass"
)

type modelArtifact struct {
	Kind    Kind        `json:"kind"`
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

// linearModel is a linear layer (weights/bias per class) plus the Kind
// that says how to turn its raw output into the scores callers see.
type linearModel struct {
	kind    Kind
	weights [][]float64
	bias    []float64
}

func loadModel(path string) (*linearModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var art modelArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("model: decode %s: %w", path, err)
	}
	if len(art.Weights) != len(art.Bias) {
		return nil, fmt.Errorf("model: %d weight rows but %d biases", len(art.Weights), len(art.Bias))
	}
	switch art.Kind {
	case ProbaMultiClass, DecisionBinary, DecisionMultiClass:
	default:
		return nil, fmt.Errorf("model: unknown kind %q", art.Kind)
	}
	return &linearModel{kind: art.Kind, weights: art.Weights, bias: art.Bias}, nil
}

// rawOutputLen is the number of rows the model's own weight matrix
// produces, before any binary expansion.
func (m *linearModel) rawOutputLen() int { return len(m.weights) }

// logits computes one linear score per output row: dot(weights[i], x) + bias[i].
func (m *linearModel) logits(x []float64) []float64 {
	out := make([]float64, len(m.weights))
	for i, row := range m.weights {
		var sum float64
		n := len(row)
		if len(x) < n {
			n = len(x)
		}
		for j := 0; j < n; j++ {
			sum += row[j] * x[j]
		}
		out[i] = sum + m.bias[i]
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func softmax(logits []float64) []float64 {
	max := logits[0]
	for _, v := range logits {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
