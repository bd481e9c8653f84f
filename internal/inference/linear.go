package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Artifact is the on-disk description of a trained model
type Artifact struct {
	ModelType       string         `json:"model_type"`
	Version         string         `json:"version"`
	Features        []string       `json:"features"`
	Intercept       float64        `json:"intercept"`
	Coefficients    []float64      `json:"coefficients"`
	Impute          []float64      `json:"impute,omitempty"`
	ClipNonNegative bool           `json:"clip_non_negative"`
	Encoding        map[string]int `json:"encoding,omitempty"`
	EncodingVersion string         `json:"encoding_version,omitempty"`
}

// DecodeArtifact reads and validates an artifact document
func DecodeArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks the artifact is internally consistent
func (a *Artifact) Validate() error {
	var problems []string
	if a.ModelType == "" {
		problems = append(problems, "model_type is required")
	}
	if a.Version == "" {
		problems = append(problems, "version is required")
	}
	if len(a.Features) == 0 {
		problems = append(problems, "features are required")
	}
	if len(a.Coefficients) != len(a.Features) {
		problems = append(problems, fmt.Sprintf("%d coefficients for %d features", len(a.Coefficients), len(a.Features)))
	}
	if len(a.Impute) > 0 && len(a.Impute) != len(a.Features) {
		problems = append(problems, fmt.Sprintf("%d impute values for %d features", len(a.Impute), len(a.Features)))
	}
	if len(problems) > 0 {
		return errors.New("invalid model artifact: " + strings.Join(problems, "; "))
	}
	return nil
}

// LinearModel evaluates intercept + coefficients . row in process
type LinearModel struct {
	features     []string
	intercept    float64
	coefficients []float64
	impute       []float64
	clip         bool
}

// NewLinearModel builds a predictor from a validated artifact
func NewLinearModel(a *Artifact) *LinearModel {
	m := &LinearModel{
		features:     append([]string(nil), a.Features...),
		intercept:    a.Intercept,
		coefficients: append([]float64(nil), a.Coefficients...),
		clip:         a.ClipNonNegative,
	}
	if len(a.Impute) > 0 {
		m.impute = append([]float64(nil), a.Impute...)
	}
	return m
}

// Predict implements Predictor. Missing inputs take the artifact's impute value, or
// fail the batch when the artifact has none.
func (m *LinearModel) Predict(_ context.Context, featureNames []string, matrix [][]float64) ([]float64, error) {
	if !sameColumns(featureNames, m.features) {
		return nil, fmt.Errorf("feature layout mismatch: model expects %d columns [%s], got %d",
			len(m.features), strings.Join(m.features, ","), len(featureNames))
	}

	out := make([]float64, len(matrix))
	for i, row := range matrix {
		if len(row) != len(m.coefficients) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(m.coefficients))
		}
		y := m.intercept
		for j, x := range row {
			if math.IsNaN(x) {
				if m.impute == nil {
					return nil, fmt.Errorf("row %d: missing value for %s", i, m.features[j])
				}
				x = m.impute[j]
			}
			y += m.coefficients[j] * x
		}
		if m.clip && y < 0 {
			y = 0
		}
		out[i] = y
	}
	return out, nil
}
