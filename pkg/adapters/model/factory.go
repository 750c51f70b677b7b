package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aescanero/mlsvc/pkg/ports"
)

// FormatLinearSoftmax is a multinomial logistic regression artifact
const FormatLinearSoftmax = "linear-softmax"

// Artifact is the on-disk representation of a trained model
type Artifact struct {
	Format       string      `json:"format"`
	NumFeatures  int         `json:"n_features"`
	Classes      []int       `json:"classes"`
	Coefficients [][]float64 `json:"coefficients"`
	Intercept    []float64   `json:"intercept"`
}

// NewClassifier creates a classifier based on the artifact format
func NewClassifier(a *Artifact) (ports.Classifier, error) {
	switch a.Format {
	case FormatLinearSoftmax:
		return newLinearSoftmax(a)
	default:
		return nil, fmt.Errorf("unsupported model format: %q", a.Format)
	}
}

// LoadFile reads and decodes an artifact file
func LoadFile(path string) (ports.Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("model artifact not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}

	clf, err := NewClassifier(&a)
	if err != nil {
		return nil, fmt.Errorf("invalid model artifact: %w", err)
	}

	return clf, nil
}
