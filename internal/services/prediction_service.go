package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"

	"dengue-platform/internal/cache"
	"dengue-platform/internal/dataset"
	"dengue-platform/internal/features"
	"dengue-platform/internal/incidence"
	"dengue-platform/internal/inference"
	"dengue-platform/internal/models"
	"dengue-platform/internal/repository"
	"dengue-platform/pkg/logging"
	"dengue-platform/pkg/metrics"
)

// ErrPersistenceDisabled is returned for persist requests when no store is configured
var ErrPersistenceDisabled = errors.New("persistence is not configured")

// ResultCache stores responses of non-persisted requests
type ResultCache interface {
	Get(ctx context.Context, key string) ([]models.PredictionResult, bool, error)
	Set(ctx context.Context, key string, results []models.PredictionResult) error
}

// EventPublisher announces stored predictions
type EventPublisher interface {
	Publish(ctx context.Context, predictions []*models.Prediction) error
}

// PredictRequest is one uploaded CSV to run through a model
type PredictRequest struct {
	ModelType string
	CSV       io.Reader
	Persist   bool
}

// PredictResponse carries the response rows plus run accounting
type PredictResponse struct {
	ModelType    string
	ModelVersion string
	Results      []models.PredictionResult
	InputRows    int
	KeptRows     int
	Persisted    int
	Cached       bool
}

// PredictionServiceConfig wires the prediction service. Repo, Cache and Publisher
// may be nil.
type PredictionServiceConfig struct {
	Registry   *inference.Registry
	Calculator *incidence.Calculator
	Repo       repository.PredictionRepository
	Cache      ResultCache
	Publisher  EventPublisher
	Clock      clockwork.Clock
	Logger     *logging.StructuredLogger
	Metrics    *metrics.Collector
}

// PredictionService runs uploads through the feature pipeline and a model
type PredictionService struct {
	registry   *inference.Registry
	calculator *incidence.Calculator
	repo       repository.PredictionRepository
	cache      ResultCache
	publisher  EventPublisher
	clock      clockwork.Clock
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewPredictionService creates a new prediction service
func NewPredictionService(cfg PredictionServiceConfig) *PredictionService {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PredictionService{
		registry:   cfg.Registry,
		calculator: cfg.Calculator,
		repo:       cfg.Repo,
		cache:      cfg.Cache,
		publisher:  cfg.Publisher,
		clock:      clock,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// Models describes the loaded models
func (s *PredictionService) Models() []inference.Info {
	return s.registry.List()
}

// Predict loads req.CSV, derives features, and predicts one case count per kept row.
// An upload whose rows are all dropped succeeds with no results.
func (s *PredictionService) Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	def, err := features.Lookup(req.ModelType)
	if err != nil {
		return nil, err
	}
	model, err := s.registry.Get(req.ModelType)
	if err != nil {
		return nil, err
	}
	if req.Persist && s.repo == nil {
		return nil, ErrPersistenceDisabled
	}

	ctx = logging.WithModelType(ctx, def.ModelType())
	log := s.logger.WithFields(logging.Fields{"model_version": model.Version})

	upload, err := io.ReadAll(req.CSV)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	resp := &PredictResponse{
		ModelType:    model.Type,
		ModelVersion: model.Version,
	}

	cacheKey := ""
	if !req.Persist && s.cache != nil {
		cacheKey = cache.Key(model.Type, model.Version, upload)
		if cached, ok := s.lookupCache(ctx, cacheKey); ok {
			resp.Results = cached
			resp.KeptRows = len(cached)
			resp.Cached = true
			return resp, nil
		}
	}

	observations, err := dataset.Load(bytes.NewReader(upload), def)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.NewTimer(s.metrics.PipelineDuration.WithLabelValues(def.ModelType()))
	run, err := features.Run(def, observations, model.Encoder)
	duration := timer.ObserveDuration()
	if err != nil {
		return nil, err
	}
	s.metrics.RecordPipelineRun(def.ModelType(), run.Policy, run.InputRows, run.KeptRows)

	log.Info(ctx, "[PIPELINE_COMPLETE] Feature pipeline completed", logging.Fields{
		"input_rows":  run.InputRows,
		"kept_rows":   run.KeptRows,
		"policy":      run.Policy,
		"duration_ms": duration.Milliseconds(),
	})

	resp.InputRows = run.InputRows
	resp.KeptRows = run.KeptRows

	if run.KeptRows == 0 {
		log.Warn(ctx, "[PIPELINE_EMPTY] No rows left after preprocessing", logging.Fields{
			"input_rows": run.InputRows,
		})
		resp.Results = []models.PredictionResult{}
		s.storeCache(ctx, cacheKey, resp.Results)
		return resp, nil
	}

	matrix, err := features.Assemble(run.Frame, model.Features)
	if err != nil {
		return nil, err
	}

	predictions, err := s.infer(ctx, log, model, matrix)
	if err != nil {
		return nil, err
	}

	resp.Results = buildResults(run.Frame, predictions)

	if req.Persist {
		n, err := s.persist(ctx, log, def, model, resp.Results)
		if err != nil {
			return nil, err
		}
		resp.Persisted = n
	} else {
		s.storeCache(ctx, cacheKey, resp.Results)
	}

	return resp, nil
}

func (s *PredictionService) infer(ctx context.Context, log *logging.ContextLogger, model *inference.Model, matrix [][]float64) ([]float64, error) {
	timer := s.metrics.NewTimer(s.metrics.InferenceDuration.WithLabelValues(model.Type))
	predictions, err := model.Run(ctx, matrix)
	duration := timer.ObserveDuration()
	if err != nil {
		s.metrics.InferenceErrors.WithLabelValues(model.Type).Inc()
		s.logger.Error(ctx, "[INFERENCE_ERROR] Model prediction failed", logging.Fields{
			"model_version": model.Version,
			"rows":          len(matrix),
		}, err)
		return nil, &models.PredictionError{ModelType: model.Type, Err: err}
	}

	log.Debug(ctx, "[INFERENCE_COMPLETE] Model prediction completed", logging.Fields{
		"rows":          len(matrix),
		"duration_ms":   duration.Milliseconds(),
	})
	return predictions, nil
}

// buildResults pairs each kept row's raw readings with its prediction
func buildResults(f *features.Frame, predictions []float64) []models.PredictionResult {
	temps, _ := f.Column(features.ColTemperatureMin)
	humidity, _ := f.Column(features.ColHumidityAvg)
	precip, _ := f.Column(features.ColPrecipitation)

	results := make([]models.PredictionResult, f.Len())
	for i := range results {
		r := models.PredictionResult{
			Date:                  models.Date(f.Dates[i]),
			TemperatureMinCelsius: models.Measurement(temps[i]),
			HumidityAvgPercentage: models.Measurement(humidity[i]),
			PrecipitationMM:       models.Measurement(precip[i]),
			PredictedCases:        predictions[i],
		}
		if f.Grouped() {
			r.SubDistrict = f.Groups[i]
		}
		results[i] = r
	}
	return results
}

// persist computes incidence rates, stores every row in one batch, and publishes the
// stored records. results gain their incidence rate in place.
func (s *PredictionService) persist(ctx context.Context, log *logging.ContextLogger, def *features.Definition, model *inference.Model, results []models.PredictionResult) (int, error) {
	now := s.clock.Now().UTC()
	records := make([]*models.Prediction, len(results))
	fallbacks := 0

	for i := range results {
		r := &results[i]
		rate, err := s.calculator.Compute(def, r.PredictedCases, r.SubDistrict)
		if err != nil {
			return 0, err
		}
		if rate.Fallback {
			fallbacks++
			s.metrics.PopulationFallbacks.WithLabelValues(r.SubDistrict).Inc()
		}
		value := rate.Value
		r.IncidenceRate = &value

		rec := &models.Prediction{
			Date:                  time.Time(r.Date),
			TemperatureMinCelsius: r.TemperatureMinCelsius.Ptr(),
			HumidityAvgPercentage: r.HumidityAvgPercentage.Ptr(),
			PrecipitationMM:       r.PrecipitationMM.Ptr(),
			PredictedCases:        r.PredictedCases,
			IncidenceRate:         &value,
			ModelType:             model.Type,
			ModelVersion:          model.Version,
			CreatedAt:             now,
		}
		if def.Grouped() {
			sub := r.SubDistrict
			rec.SubDistrict = &sub
		}
		records[i] = rec
	}

	if fallbacks > 0 {
		log.Warn(ctx, "[INCIDENCE_FALLBACK] Unknown sub-districts used population 1", logging.Fields{
			"rows": fallbacks,
		})
	}

	if err := s.repo.InsertPredictions(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to persist predictions: %w", err)
	}

	log.Info(ctx, "[PERSIST_COMPLETE] Predictions stored", logging.Fields{
		"count": len(records),
	})

	s.publish(ctx, records)
	return len(records), nil
}

// publish never fails the request; the records are already stored
func (s *PredictionService) publish(ctx context.Context, records []*models.Prediction) {
	if s.publisher == nil || len(records) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, records); err != nil {
		s.metrics.RecordEventPublish("failed", len(records))
		s.logger.Error(ctx, "[EVENT_PUBLISH_ERROR] Failed to publish prediction events", logging.Fields{
			"count": len(records),
		}, err)
		return
	}
	s.metrics.RecordEventPublish("published", len(records))
}

func (s *PredictionService) lookupCache(ctx context.Context, key string) ([]models.PredictionResult, bool) {
	results, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.metrics.RecordCacheLookup("error")
		s.logger.Warn(ctx, "[CACHE_ERROR] Cache lookup failed", logging.Fields{
			"error": err.Error(),
		})
		return nil, false
	}
	if !ok {
		s.metrics.RecordCacheLookup("miss")
		return nil, false
	}
	s.metrics.RecordCacheLookup("hit")
	return results, true
}

func (s *PredictionService) storeCache(ctx context.Context, key string, results []models.PredictionResult) {
	if key == "" || s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, results); err != nil {
		s.logger.Warn(ctx, "[CACHE_ERROR] Cache store failed", logging.Fields{
			"error": err.Error(),
		})
	}
}
