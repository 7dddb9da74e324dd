package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrShapeMismatch is returned by Scores when the model's raw output
// length cannot be reconciled with the class id list — neither an exact
// match nor the one allowed binary-expansion case (2 classes, 1 output).
var ErrShapeMismatch = errors.New("classifier: score vector length mismatch")

// Classifier holds an immutable vectorizer + linear model pair and the
// ordered class id list the model's output columns are aligned to.
type Classifier struct {
	vectorizer *Vectorizer
	model      *linearModel
	classes    []string
	calibrated bool
}

// Load reads a classifier artifact directory: vectorizer.json,
// classes.json, and the model — preferring model_calibrated.json over
// model.json when both are present, matching the original service's
// preference for lr_calibrated.joblib over lr.joblib.
func Load(dir string) (*Classifier, error) {
	vec, err := loadVectorizer(filepath.Join(dir, "vectorizer.json"))
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	classes, err := loadClasses(filepath.Join(dir, "classes.json"))
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	calibratedPath := filepath.Join(dir, "model_calibrated.json")
	plainPath := filepath.Join(dir, "model.json")
	modelPath := plainPath
	calibrated := false
	if _, err := os.Stat(calibratedPath); err == nil {
		modelPath = calibratedPath
		calibrated = true
	}

	model, err := loadModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	return &Classifier{vectorizer: vec, model: model, classes: classes, calibrated: calibrated}, nil
}

func loadClasses(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var classes []string
	if err := json.Unmarshal(raw, &classes); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return classes, nil
}

// Classes returns the ordered class id list Scores aligns its output to.
func (c *Classifier) Classes() []string { return append([]string(nil), c.classes...) }

// Calibrated reports whether the loaded model artifact was the
// calibrated variant.
func (c *Classifier) Calibrated() bool { return c.calibrated }

// Scores transforms text and returns a score vector aligned with
// Classes(): probabilities for a ProbaMultiClass model, a
// [1-sigma(x), sigma(x)] expansion for a DecisionBinary model's single
// margin, and the raw decision scores for DecisionMultiClass. Any other
// length mismatch between the model's raw output and the class list is
// ErrShapeMismatch — there's no way to align the two, so the caller must
// treat it as fatal.
func (c *Classifier) Scores(text string) ([]float32, error) {
	x := c.vectorizer.Transform(text)
	logits := c.model.logits(x)

	var raw []float64
	switch c.model.kind {
	case ProbaMultiClass:
		raw = softmax(logits)
	case DecisionMultiClass:
		raw = logits
	case DecisionBinary:
		if len(logits) == 1 {
			p := sigmoid(logits[0])
			raw = []float64{1 - p, p}
		} else {
			raw = logits
		}
	}

	if len(raw) != len(c.classes) {
		if c.model.kind == DecisionBinary && len(raw) == 1 && len(c.classes) == 2 {
			p := sigmoid(raw[0])
			raw = []float64{1 - p, p}
		} else {
			return nil, fmt.Errorf("%w: model produced %d scores, expected %d classes", ErrShapeMismatch, len(raw), len(c.classes))
		}
	}

	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = float32(v)
	}
	return out, nil
}
