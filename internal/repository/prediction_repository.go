package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"dengue-platform/internal/models"
	"dengue-platform/pkg/database"
	"dengue-platform/pkg/logging"
	"dengue-platform/pkg/metrics"
)

// PredictionRepository provides data access for persisted predictions
type PredictionRepository interface {
	InsertPredictions(ctx context.Context, predictions []*models.Prediction) error
	GetPrediction(ctx context.Context, id int64) (*models.Prediction, error)
	ListPredictions(ctx context.Context, filter PredictionFilter) ([]*models.Prediction, int, error)
	SummarizePredictions(ctx context.Context, filter SummaryFilter) ([]*models.PredictionSummary, error)
	HealthCheck(ctx context.Context) error
}

// PredictionFilter defines filters for querying predictions
type PredictionFilter struct {
	ModelType   *string
	SubDistrict *string
	StartDate   *time.Time
	EndDate     *time.Time
	Limit       int
	Offset      int
}

// SummaryFilter defines filters for prediction summaries
type SummaryFilter struct {
	ModelType   *string
	SubDistrict *string
	StartDate   *time.Time
	EndDate     *time.Time
}

// predictionRepository implements PredictionRepository
type predictionRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) PredictionRepository {
	return &predictionRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const insertPredictionSQL = `
	INSERT INTO predictions (
		date, sub_district,
		temperature_min_celsius, humidity_avg_percentage, precipitation_mm,
		predicted_cases, incidence_rate,
		model_type, model_version, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id
`

// InsertPredictions writes all predictions in one transaction and fills in their IDs.
// Either every record is stored or none is.
func (r *predictionRepository) InsertPredictions(ctx context.Context, predictions []*models.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}

	start := time.Now()
	err := r.db.WithTx(ctx, "insert_predictions", func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, insertPredictionSQL)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, p := range predictions {
			err := stmt.QueryRowxContext(ctx,
				p.Date,
				p.SubDistrict,
				p.TemperatureMinCelsius,
				p.HumidityAvgPercentage,
				p.PrecipitationMM,
				p.PredictedCases,
				p.IncidenceRate,
				p.ModelType,
				p.ModelVersion,
				p.CreatedAt,
			).Scan(&p.ID)
			if err != nil {
				return fmt.Errorf("failed to insert prediction %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.metrics.PersistBatchSize.Observe(float64(len(predictions)))
	r.metrics.PredictionsPersisted.WithLabelValues(predictions[0].ModelType).Add(float64(len(predictions)))
	r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
		"count":       len(predictions),
		"model_type":  predictions[0].ModelType,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

// GetPrediction retrieves one prediction by ID
func (r *predictionRepository) GetPrediction(ctx context.Context, id int64) (*models.Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE id = $1
	`

	var p models.Prediction
	err := r.db.GetContext(ctx, "get_prediction", &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "prediction", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return &p, nil
}

const predictionColumns = `id, date, sub_district,
		       temperature_min_celsius, humidity_avg_percentage, precipitation_mm,
		       predicted_cases, incidence_rate, model_type, model_version, created_at`

// whereClause accumulates positional filter conditions
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func predictionWhere(modelType, subDistrict *string, startDate, endDate *time.Time) *whereClause {
	w := &whereClause{}
	if modelType != nil {
		w.add("model_type = $%d", *modelType)
	}
	if subDistrict != nil {
		w.add("sub_district = $%d", *subDistrict)
	}
	if startDate != nil {
		w.add("date >= $%d", *startDate)
	}
	if endDate != nil {
		w.add("date <= $%d", *endDate)
	}
	return w
}

// buildListQuery returns the count and page queries for filter
func buildListQuery(filter PredictionFilter) (countQuery, pageQuery string, args []interface{}) {
	w := predictionWhere(filter.ModelType, filter.SubDistrict, filter.StartDate, filter.EndDate)

	countQuery = "SELECT COUNT(*) FROM predictions" + w.String()

	n := len(w.args)
	pageQuery = "SELECT " + predictionColumns + " FROM predictions" + w.String() +
		" ORDER BY date ASC, sub_district NULLS FIRST, id" +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)

	return countQuery, pageQuery, w.args
}

// ListPredictions retrieves predictions ordered by date with the total match count
func (r *predictionRepository) ListPredictions(ctx context.Context, filter PredictionFilter) ([]*models.Prediction, int, error) {
	countQuery, pageQuery, args := buildListQuery(filter)

	var totalCount int
	if err := r.db.GetContext(ctx, "count_predictions", &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count predictions: %w", err)
	}

	pageArgs := append(append([]interface{}{}, args...), filter.Limit, filter.Offset)
	var predictions []*models.Prediction
	if err := r.db.SelectContext(ctx, "list_predictions", &predictions, pageQuery, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list predictions: %w", err)
	}

	return predictions, totalCount, nil
}

// buildSummaryQuery aggregates per model type and sub-district
func buildSummaryQuery(filter SummaryFilter) (string, []interface{}) {
	w := predictionWhere(filter.ModelType, filter.SubDistrict, filter.StartDate, filter.EndDate)

	query := `
		SELECT
			model_type,
			sub_district,
			COUNT(*) AS prediction_count,
			SUM(predicted_cases) AS total_predicted_cases,
			AVG(predicted_cases) AS avg_predicted_cases,
			AVG(incidence_rate) AS avg_incidence_rate,
			MAX(incidence_rate) AS max_incidence_rate,
			MIN(date) AS first_date,
			MAX(date) AS last_date
		FROM predictions` + w.String() + `
		GROUP BY model_type, sub_district
		ORDER BY model_type, sub_district NULLS FIRST`

	return query, w.args
}

// SummarizePredictions aggregates stored predictions per model type and area
func (r *predictionRepository) SummarizePredictions(ctx context.Context, filter SummaryFilter) ([]*models.PredictionSummary, error) {
	start := time.Now()
	defer func() {
		duration := time.Since(start)
		r.metrics.SummaryCalculationDuration.Observe(duration.Seconds())
		r.logger.Debug(ctx, "[REPO_SUMMARY] Summary calculated", logging.Fields{
			"duration_ms": duration.Milliseconds(),
		})
	}()

	query, args := buildSummaryQuery(filter)

	var summaries []*models.PredictionSummary
	if err := r.db.SelectContext(ctx, "summarize_predictions", &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to summarize predictions: %w", err)
	}

	return summaries, nil
}

// HealthCheck performs a repository health check
func (r *predictionRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
