// Package inference loads pre-trained case-count models and runs them over feature
// matrices. Loaded models are immutable and safe for concurrent use.
package inference

import (
	"context"
	"fmt"

	"dengue-platform/internal/features"
)

// Predictor maps each row of a feature matrix to a predicted case count.
// featureNames names the matrix columns in order.
type Predictor interface {
	Predict(ctx context.Context, featureNames []string, matrix [][]float64) ([]float64, error)
}

// Model is one loaded model type
type Model struct {
	Type      string
	Version   string
	Features  []string
	Predictor Predictor
	Encoder   features.Encoder
}

// Info is the public description of a loaded model
type Info struct {
	ModelType      string `json:"model_type"`
	Version        string `json:"version"`
	FeatureCount   int    `json:"feature_count"`
	Grouped        bool   `json:"grouped"`
	EncodingSource string `json:"encoding_source,omitempty"`
	Backend        string `json:"backend"`
}

// Run predicts matrix and checks one prediction comes back per row
func (m *Model) Run(ctx context.Context, matrix [][]float64) ([]float64, error) {
	out, err := m.Predictor.Predict(ctx, m.Features, matrix)
	if err != nil {
		return nil, err
	}
	if len(out) != len(matrix) {
		return nil, fmt.Errorf("model returned %d predictions for %d rows", len(out), len(matrix))
	}
	return out, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
