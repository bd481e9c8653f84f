package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"dengue-platform/internal/features"
	"dengue-platform/internal/models"
	"dengue-platform/internal/repository"
	"dengue-platform/internal/services"
	"dengue-platform/pkg/logging"
)

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// storedQuery is the filter shared by the list and summary endpoints
type storedQuery struct {
	modelType   *string
	subDistrict *string
	startDate   *time.Time
	endDate     *time.Time
}

// ListPredictions handles GET /api/predictions
func (h *PredictionHandler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.summaryService == nil {
		h.sendDomainError(w, r, services.ErrPersistenceDisabled)
		return
	}

	q, msg := parseStoredQuery(r)
	if msg != "" {
		h.sendError(w, r, msg, http.StatusBadRequest)
		return
	}
	page, limit := parsePagination(r)

	filter := repository.PredictionFilter{
		ModelType:   q.modelType,
		SubDistrict: q.subDistrict,
		StartDate:   q.startDate,
		EndDate:     q.endDate,
		Limit:       limit,
		Offset:      (page - 1) * limit,
	}

	predictions, total, err := h.summaryService.GetPredictions(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_LIST_PREDICTIONS_ERROR] Failed to list predictions", logging.Fields{
			"filter": filter,
		}, err)
		h.sendDomainError(w, r, err)
		return
	}
	if predictions == nil {
		predictions = []*models.Prediction{}
	}

	h.sendJSON(w, PaginatedResponse{
		Data:       predictions,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, http.StatusOK)
}

// GetPrediction handles GET /api/predictions/{id}
func (h *PredictionHandler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	if h.summaryService == nil {
		h.sendDomainError(w, r, services.ErrPersistenceDisabled)
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.sendError(w, r, "invalid prediction id", http.StatusBadRequest)
		return
	}

	prediction, err := h.summaryService.GetPrediction(r.Context(), id)
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}
	h.sendJSON(w, prediction, http.StatusOK)
}

// GetSummary handles GET /api/predictions/summary
func (h *PredictionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	if h.summaryService == nil {
		h.sendDomainError(w, r, services.ErrPersistenceDisabled)
		return
	}

	q, msg := parseStoredQuery(r)
	if msg != "" {
		h.sendError(w, r, msg, http.StatusBadRequest)
		return
	}

	summary, err := h.summaryService.Summarize(r.Context(), repository.SummaryFilter{
		ModelType:   q.modelType,
		SubDistrict: q.subDistrict,
		StartDate:   q.startDate,
		EndDate:     q.endDate,
	})
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}
	h.sendJSON(w, summary, http.StatusOK)
}

// parseStoredQuery reads the filter query parameters. A non-empty message means the
// request is invalid.
func parseStoredQuery(r *http.Request) (storedQuery, string) {
	var q storedQuery
	values := r.URL.Query()

	if mt := strings.TrimSpace(values.Get("model_type")); mt != "" {
		if _, err := features.Lookup(mt); err != nil {
			return q, err.Error()
		}
		q.modelType = &mt
	}
	if sd := strings.TrimSpace(values.Get("sub_district")); sd != "" {
		q.subDistrict = &sd
	}
	if s := values.Get("start_date"); s != "" {
		d, err := time.Parse(models.DateLayout, s)
		if err != nil {
			return q, "invalid start_date format, expected YYYY-MM-DD"
		}
		q.startDate = &d
	}
	if s := values.Get("end_date"); s != "" {
		d, err := time.Parse(models.DateLayout, s)
		if err != nil {
			return q, "invalid end_date format, expected YYYY-MM-DD"
		}
		q.endDate = &d
	}
	if q.startDate != nil && q.endDate != nil && q.endDate.Before(*q.startDate) {
		return q, "end_date is before start_date"
	}
	return q, ""
}

// parsePagination applies defaults of page 1 and 100 rows, capped at 1000
func parsePagination(r *http.Request) (page, limit int) {
	page, limit = 1, 100
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}
	return page, limit
}
