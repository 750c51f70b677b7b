package model

import (
	"fmt"
	"math"

	"github.com/aescanero/mlsvc/pkg/ports"
)

// LinearSoftmax is a multinomial logistic regression classifier.
// It is immutable after construction.
type LinearSoftmax struct {
	nFeatures int
	classes   []int
	coef      [][]float64
	intercept []float64
}

func newLinearSoftmax(a *Artifact) (*LinearSoftmax, error) {
	if a.NumFeatures < 1 {
		return nil, fmt.Errorf("n_features must be at least 1, got %d", a.NumFeatures)
	}
	if len(a.Classes) < 2 {
		return nil, fmt.Errorf("at least 2 classes are required, got %d", len(a.Classes))
	}
	if len(a.Coefficients) != len(a.Classes) {
		return nil, fmt.Errorf("expected %d coefficient rows, got %d", len(a.Classes), len(a.Coefficients))
	}
	if len(a.Intercept) != len(a.Classes) {
		return nil, fmt.Errorf("expected %d intercepts, got %d", len(a.Classes), len(a.Intercept))
	}

	coef := make([][]float64, len(a.Coefficients))
	for k, row := range a.Coefficients {
		if len(row) != a.NumFeatures {
			return nil, fmt.Errorf("coefficient row %d has %d values, expected %d", k, len(row), a.NumFeatures)
		}
		for _, w := range row {
			if !isFinite(w) {
				return nil, fmt.Errorf("coefficient row %d contains non-finite value", k)
			}
		}
		coef[k] = append([]float64(nil), row...)
	}

	return &LinearSoftmax{
		nFeatures: a.NumFeatures,
		classes:   append([]int(nil), a.Classes...),
		coef:      coef,
		intercept: append([]float64(nil), a.Intercept...),
	}, nil
}

// NumFeatures returns the expected input dimensionality
func (m *LinearSoftmax) NumFeatures() int { return m.nFeatures }

// NumClasses returns the number of classes
func (m *LinearSoftmax) NumClasses() int { return len(m.classes) }

// Predict computes class probabilities for one sample
func (m *LinearSoftmax) Predict(features []float64) (*ports.PredictionResult, error) {
	if len(features) != m.nFeatures {
		return nil, fmt.Errorf("%w: X has %d features, but model is expecting %d features as input",
			ports.ErrInvalidInput, len(features), m.nFeatures)
	}
	for i, x := range features {
		if !isFinite(x) {
			return nil, fmt.Errorf("%w: feature %d has non-finite value %v", ports.ErrInvalidInput, i, x)
		}
	}

	logits := make([]float64, len(m.classes))
	for k, row := range m.coef {
		z := m.intercept[k]
		for j, w := range row {
			z += w * features[j]
		}
		logits[k] = z
	}

	probs, err := softmax(logits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInferenceFailure, err)
	}

	best := 0
	for k := range probs {
		if probs[k] > probs[best] {
			best = k
		}
	}

	return &ports.PredictionResult{
		PredictedClass: m.classes[best],
		Probabilities:  probs,
		Confidence:     probs[best],
	}, nil
}

func softmax(logits []float64) ([]float64, error) {
	hi := math.Inf(-1)
	for _, z := range logits {
		if math.IsNaN(z) {
			return nil, fmt.Errorf("logit is NaN")
		}
		if z > hi {
			hi = z
		}
	}
	if !isFinite(hi) {
		return nil, fmt.Errorf("logits overflow: max logit is %v", hi)
	}

	probs := make([]float64, len(logits))
	var sum float64
	for k, z := range logits {
		probs[k] = math.Exp(z - hi)
		sum += probs[k]
	}
	if sum == 0 || !isFinite(sum) {
		return nil, fmt.Errorf("probability normalizer is %v", sum)
	}
	for k := range probs {
		probs[k] /= sum
	}

	return probs, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
