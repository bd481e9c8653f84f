package services

import (
	"context"
	"fmt"
	"time"

	"dengue-platform/internal/models"
	"dengue-platform/internal/repository"
	"dengue-platform/pkg/logging"
	"dengue-platform/pkg/metrics"
)

// SummaryService serves stored predictions and their per-area aggregates
type SummaryService struct {
	repo    repository.PredictionRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// Summary is the aggregate view over stored predictions
type Summary struct {
	Areas               []*models.PredictionSummary `json:"areas"`
	TotalPredictions    int                         `json:"total_predictions"`
	TotalPredictedCases float64                     `json:"total_predicted_cases"`
	FirstDate           *time.Time                  `json:"first_date,omitempty"`
	LastDate            *time.Time                  `json:"last_date,omitempty"`
}

// NewSummaryService creates a new summary service
func NewSummaryService(repo repository.PredictionRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SummaryService {
	return &SummaryService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetPredictions retrieves stored predictions with filtering
func (s *SummaryService) GetPredictions(ctx context.Context, filter repository.PredictionFilter) ([]*models.Prediction, int, error) {
	return s.repo.ListPredictions(ctx, filter)
}

// GetPrediction retrieves one stored prediction
func (s *SummaryService) GetPrediction(ctx context.Context, id int64) (*models.Prediction, error) {
	return s.repo.GetPrediction(ctx, id)
}

// Summarize aggregates stored predictions per model type and area and totals them
func (s *SummaryService) Summarize(ctx context.Context, filter repository.SummaryFilter) (*Summary, error) {
	areas, err := s.repo.SummarizePredictions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize predictions: %w", err)
	}

	summary := &Summary{Areas: areas}
	if summary.Areas == nil {
		summary.Areas = []*models.PredictionSummary{}
	}
	for _, a := range areas {
		summary.TotalPredictions += a.PredictionCount
		summary.TotalPredictedCases += a.TotalPredictedCases
		if a.FirstDate != nil && (summary.FirstDate == nil || a.FirstDate.Before(*summary.FirstDate)) {
			d := *a.FirstDate
			summary.FirstDate = &d
		}
		if a.LastDate != nil && (summary.LastDate == nil || a.LastDate.After(*summary.LastDate)) {
			d := *a.LastDate
			summary.LastDate = &d
		}
	}

	s.logger.Debug(ctx, "[SUMMARY_COMPLETE] Prediction summary calculated", logging.Fields{
		"areas":             len(areas),
		"total_predictions": summary.TotalPredictions,
	})

	return summary, nil
}

// HealthCheck reports whether the prediction store is reachable
func (s *SummaryService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
