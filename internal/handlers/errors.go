package handlers

import (
	"errors"
	"net/http"

	"dengue-platform/internal/features"
	"dengue-platform/internal/models"
	"dengue-platform/internal/repository"
	"dengue-platform/internal/services"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Code    int                    `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// apiError is the HTTP rendering of a domain error
type apiError struct {
	status    int
	errorType string
	message   string
	details   map[string]interface{}
}

// classifyError maps domain errors to a status code and body. Unrecognized errors are
// internal and their message is not exposed.
func classifyError(err error) apiError {
	var (
		missing    *models.MissingColumnError
		parse      *models.ParseError
		unknownMT  *models.UnknownModelTypeError
		category   *models.UnknownCategoryError
		schema     *models.SchemaError
		population *models.UnknownPopulationError
		prediction *models.PredictionError
		notFound   *repository.NotFoundError
		tooLarge   *http.MaxBytesError
	)

	switch {
	case errors.As(err, &missing):
		return apiError{http.StatusBadRequest, "missing_columns", err.Error(),
			map[string]interface{}{"columns": missing.Columns}}
	case errors.As(err, &parse):
		var details map[string]interface{}
		if parse.Row > 0 {
			details = map[string]interface{}{"row": parse.Row, "column": parse.Column, "value": parse.Value}
		}
		return apiError{http.StatusBadRequest, "parse_error", err.Error(), details}
	case errors.As(err, &unknownMT):
		return apiError{http.StatusBadRequest, "unknown_model_type", err.Error(),
			map[string]interface{}{"model_types": features.ModelTypes()}}
	case errors.As(err, &category):
		return apiError{http.StatusBadRequest, "unknown_category", err.Error(),
			map[string]interface{}{"column": category.Column, "values": category.Values}}
	case errors.As(err, &schema):
		return apiError{http.StatusBadRequest, "schema_mismatch", err.Error(),
			map[string]interface{}{"missing": schema.Missing}}
	case errors.As(err, &population):
		return apiError{http.StatusUnprocessableEntity, "unknown_population", err.Error(),
			map[string]interface{}{"sub_district": population.SubDistrict}}
	case errors.As(err, &prediction):
		return apiError{http.StatusInternalServerError, "prediction_failed", err.Error(), nil}
	case errors.Is(err, services.ErrPersistenceDisabled):
		return apiError{http.StatusServiceUnavailable, "persistence_disabled", err.Error(), nil}
	case errors.As(err, &notFound):
		return apiError{http.StatusNotFound, "not_found", err.Error(), nil}
	case errors.As(err, &tooLarge):
		return apiError{http.StatusRequestEntityTooLarge, "upload_too_large", err.Error(),
			map[string]interface{}{"limit_bytes": tooLarge.Limit}}
	default:
		return apiError{http.StatusInternalServerError, "internal_error", "internal server error", nil}
	}
}
