package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// HTTPPredictor forwards feature matrices to a remote inference server
type HTTPPredictor struct {
	baseURL   string
	modelType string
	client    *http.Client
}

type predictRequest struct {
	ModelType string       `json:"model_type"`
	Features  []string     `json:"features"`
	Instances [][]*float64 `json:"instances"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// RemoteError is a non-2xx answer from the inference server
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("inference server returned %d: %s", e.StatusCode, e.Body)
}

// IsTransient reports whether the server failure may succeed on retry
func (e *RemoteError) IsTransient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// NewHTTPPredictor returns a client for modelType at baseURL
func NewHTTPPredictor(baseURL, modelType string, timeout time.Duration) *HTTPPredictor {
	return &HTTPPredictor{
		baseURL:   strings.TrimRight(baseURL, "/"),
		modelType: modelType,
		client:    &http.Client{Timeout: timeout},
	}
}

// Predict implements Predictor. Missing values are sent as JSON null.
func (c *HTTPPredictor) Predict(ctx context.Context, featureNames []string, matrix [][]float64) ([]float64, error) {
	instances := make([][]*float64, len(matrix))
	for i, row := range matrix {
		out := make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) {
				v := row[j]
				out[j] = &v
			}
		}
		instances[i] = out
	}

	body, err := json.Marshal(predictRequest{
		ModelType: c.modelType,
		Features:  featureNames,
		Instances: instances,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return out.Predictions, nil
}
