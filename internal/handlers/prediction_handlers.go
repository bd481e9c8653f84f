package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dengue-platform/internal/services"
	"dengue-platform/pkg/logging"
	"dengue-platform/pkg/metrics"
)

// Response headers describing a prediction run
const (
	ModelVersionHeader = "X-Model-Version"
	InputRowsHeader    = "X-Rows-Input"
	KeptRowsHeader     = "X-Rows-Kept"
	CacheHeader        = "X-Cache"
)

// uploadField is the multipart form field holding the CSV
const uploadField = "file"

// PredictionHandler handles prediction and stored-prediction endpoints
type PredictionHandler struct {
	predictionService *services.PredictionService
	summaryService    *services.SummaryService
	logger            *logging.StructuredLogger
	metrics           *metrics.Collector
	maxUploadBytes    int64
}

// NewPredictionHandler creates a new prediction handler. summaryService is nil when
// no prediction store is configured.
func NewPredictionHandler(
	predictionService *services.PredictionService,
	summaryService *services.SummaryService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
	maxUploadBytes int64,
) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		summaryService:    summaryService,
		logger:            logger,
		metrics:           metricsCollector,
		maxUploadBytes:    maxUploadBytes,
	}
}

// Predict handles POST /predict/{model_type}
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	modelType := mux.Vars(r)["model_type"]

	persist := false
	if v := r.URL.Query().Get("persist"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.sendError(w, r, "invalid persist flag, expected true or false", http.StatusBadRequest)
			return
		}
		persist = b
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	upload, closeUpload, err := openUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendDomainError(w, r, err)
			return
		}
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	defer closeUpload()

	resp, err := h.predictionService.Predict(ctx, services.PredictRequest{
		ModelType: modelType,
		CSV:       upload,
		Persist:   persist,
	})
	if err != nil {
		h.sendDomainError(w, r, err)
		return
	}

	w.Header().Set(ModelVersionHeader, resp.ModelVersion)
	w.Header().Set(InputRowsHeader, strconv.Itoa(resp.InputRows))
	w.Header().Set(KeptRowsHeader, strconv.Itoa(resp.KeptRows))
	if resp.Cached {
		w.Header().Set(CacheHeader, "HIT")
	} else {
		w.Header().Set(CacheHeader, "MISS")
	}

	h.logger.Info(ctx, "[API_PREDICT] Prediction request served", logging.Fields{
		"model_type": resp.ModelType,
		"input_rows": resp.InputRows,
		"kept_rows":  resp.KeptRows,
		"persisted":  resp.Persisted,
		"cached":     resp.Cached,
	})

	h.sendJSON(w, resp.Results, http.StatusOK)
}

// openUpload returns the CSV from the multipart "file" field, or the raw body for
// any other content type
func openUpload(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	file, _, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, err
		}
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, errors.New("no file part in request")
		}
		return nil, nil, errors.New("invalid multipart upload")
	}
	return file, func() { file.Close() }, nil
}

// ListModels handles GET /api/models
func (h *PredictionHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, h.predictionService.Models(), http.StatusOK)
}

// HealthCheck handles GET /health
func (h *PredictionHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"models":    len(h.predictionService.Models()),
		"database":  "disabled",
	}
	code := http.StatusOK

	if h.summaryService != nil {
		if err := h.summaryService.HealthCheck(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK] Database unreachable", logging.Fields{
				"error": err.Error(),
			})
			status["status"] = "degraded"
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, code)
}

// sendJSON sends a JSON response
func (h *PredictionHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *PredictionHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIError("bad_request", routeName(r))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// sendDomainError renders a service error with its mapped status and details
func (h *PredictionHandler) sendDomainError(w http.ResponseWriter, r *http.Request, err error) {
	ae := classifyError(err)
	h.metrics.RecordAPIError(ae.errorType, routeName(r))

	fields := logging.Fields{
		"path":       r.URL.Path,
		"status":     ae.status,
		"error_type": ae.errorType,
	}
	if ae.status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", fields, err)
	} else {
		fields["error"] = err.Error()
		h.logger.Warn(r.Context(), "[API_REJECTED] Request rejected", fields)
	}

	h.sendJSON(w, ErrorResponse{
		Error:   http.StatusText(ae.status),
		Message: ae.message,
		Code:    ae.status,
		Details: ae.details,
	}, ae.status)
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// RegisterRoutes registers all prediction API routes
func (h *PredictionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/predict/{model_type}", h.Predict).Methods("POST")
	router.HandleFunc("/api/predict/{model_type}", h.Predict).Methods("POST")
	router.HandleFunc("/api/predictions", h.ListPredictions).Methods("GET")
	router.HandleFunc("/api/predictions/summary", h.GetSummary).Methods("GET")
	router.HandleFunc("/api/predictions/{id:[0-9]+}", h.GetPrediction).Methods("GET")
	router.HandleFunc("/api/models", h.ListModels).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}

// NewRouter builds the full HTTP handler: API routes, Prometheus metrics, request
// IDs, instrumentation, and CORS
func NewRouter(h *PredictionHandler, allowedOrigins []string) http.Handler {
	router := mux.NewRouter()
	router.Use(RequestID)
	router.Use(Instrument(h.logger, h.metrics))

	h.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	return CORS(allowedOrigins)(router)
}
