package inference

import "fmt"

// MaxFeatures bounds the size of a feature vector accepted from clients
const MaxFeatures = 4096

// Validator performs model-independent checks on a feature vector.
// Dimensionality is checked by the classifier itself.
type Validator struct {
	maxFeatures int
}

// NewValidator creates a new feature validator
func NewValidator() *Validator {
	return &Validator{maxFeatures: MaxFeatures}
}

// Validate validates a feature vector
func (v *Validator) Validate(features []float64) error {
	if len(features) == 0 {
		return fmt.Errorf("features must not be empty")
	}

	if len(features) > v.maxFeatures {
		return fmt.Errorf("too many features: %d (max %d)", len(features), v.maxFeatures)
	}

	return nil
}
