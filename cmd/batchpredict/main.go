package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dengue-platform/internal/app"
	"dengue-platform/internal/config"
	"dengue-platform/internal/models"
	"dengue-platform/internal/repository"
	"dengue-platform/internal/services"
	"dengue-platform/pkg/database"
	"dengue-platform/pkg/logging"
	"dengue-platform/pkg/metrics"
)

func main() {
	modelType := flag.String("model", models.ModelTypeSleman, "Model type: sleman or kapanewon")
	input := flag.String("input", "", "CSV file, or directory of CSV files, to predict")
	persist := flag.Bool("persist", false, "Store predictions with incidence rates in PostgreSQL")
	format := flag.String("format", "table", "Output format: table or json")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "-input is required")
		os.Exit(2)
	}
	if *format != "table" && *format != "json" {
		fmt.Fprintf(os.Stderr, "Invalid format %q: expected table or json\n", *format)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger("dengue-batchpredict", cfg)
	logger.SetOutput(os.Stderr)

	ctx := context.Background()
	logger.Info(ctx, "[BATCH_START] Starting batch prediction", logging.Fields{
		"version":    app.Version,
		"model_type": *modelType,
		"input":      *input,
		"persist":    *persist,
	})

	metricsCollector := metrics.NewCollector("dengue_batchpredict")

	registry, err := app.LoadRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(ctx, "[BATCH_ERROR] Failed to load models", logging.Fields{}, err)
	}
	calculator, err := app.NewCalculator(cfg)
	if err != nil {
		logger.Fatal(ctx, "[BATCH_ERROR] Failed to load population table", logging.Fields{}, err)
	}

	serviceCfg := services.PredictionServiceConfig{
		Registry:   registry,
		Calculator: calculator,
		Logger:     logger,
		Metrics:    metricsCollector,
	}

	if *persist {
		db, err := database.NewPostgresDB(app.DatabaseConfig(cfg), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[BATCH_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()
		serviceCfg.Repo = repository.NewPredictionRepository(db, logger, metricsCollector)
	}

	files, err := collectInputs(*input)
	if err != nil {
		logger.Fatal(ctx, "[BATCH_ERROR] Failed to list input files", logging.Fields{"input": *input}, err)
	}

	svc := services.NewPredictionService(serviceCfg)
	result := predictFiles(ctx, svc, *modelType, files, *persist, os.Stdout, *format)

	printSummary(os.Stderr, result)

	logger.Info(ctx, "[BATCH_COMPLETE] Batch prediction completed", logging.Fields{
		"files":            result.TotalFiles,
		"failed_files":     len(result.Errors),
		"input_rows":       result.InputRows,
		"predictions":      result.Predictions,
		"persisted":        result.Persisted,
		"duration_seconds": result.Duration.Seconds(),
	})

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

// BatchResult accumulates counts over every processed file
type BatchResult struct {
	TotalFiles  int
	InputRows   int
	Predictions int
	Persisted   int
	Errors      []string
	Duration    time.Duration
}

// collectInputs returns path itself, or the sorted *.csv files when path is a directory
func collectInputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files, err := filepath.Glob(filepath.Join(path, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// predictFiles runs each file independently; one failing file does not stop the rest
func predictFiles(ctx context.Context, svc *services.PredictionService, modelType string, files []string, persist bool, out io.Writer, format string) *BatchResult {
	start := time.Now()
	result := &BatchResult{TotalFiles: len(files)}

	for _, file := range files {
		resp, err := predictFile(ctx, svc, modelType, file, persist)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file, err))
			continue
		}
		result.InputRows += resp.InputRows
		result.Predictions += len(resp.Results)
		result.Persisted += resp.Persisted

		if format == "json" {
			json.NewEncoder(out).Encode(resp.Results)
		} else {
			fmt.Fprintf(out, "%s (%s %s)\n", file, resp.ModelType, resp.ModelVersion)
			printTable(out, resp.Results)
		}
	}

	result.Duration = time.Since(start)
	return result
}

func predictFile(ctx context.Context, svc *services.PredictionService, modelType, file string, persist bool) (*services.PredictResponse, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return svc.Predict(ctx, services.PredictRequest{
		ModelType: modelType,
		CSV:       f,
		Persist:   persist,
	})
}

// printTable writes one aligned line per prediction. The area column appears only
// for grouped results and the incidence column only for persisted ones.
func printTable(out io.Writer, results []models.PredictionResult) {
	grouped, withRate := false, false
	for _, r := range results {
		grouped = grouped || r.SubDistrict != ""
		withRate = withRate || r.IncidenceRate != nil
	}

	header := fmt.Sprintf("%-10s", "date")
	if grouped {
		header += fmt.Sprintf("  %-12s", "sub_district")
	}
	header += fmt.Sprintf("  %8s  %8s  %8s  %10s", "temp_min", "humidity", "precip", "predicted")
	if withRate {
		header += fmt.Sprintf("  %10s", "incidence")
	}
	fmt.Fprintln(out, header)
	fmt.Fprintln(out, strings.Repeat("-", len(header)))

	for _, r := range results {
		line := time.Time(r.Date).Format(models.DateLayout)
		if grouped {
			line += fmt.Sprintf("  %-12s", r.SubDistrict)
		}
		line += fmt.Sprintf("  %8s  %8s  %8s  %10.2f",
			formatMeasurement(r.TemperatureMinCelsius),
			formatMeasurement(r.HumidityAvgPercentage),
			formatMeasurement(r.PrecipitationMM),
			r.PredictedCases)
		if withRate {
			rate := math.NaN()
			if r.IncidenceRate != nil {
				rate = *r.IncidenceRate
			}
			line += fmt.Sprintf("  %10.4f", rate)
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "%d predictions\n\n", len(results))
}

func formatMeasurement(m models.Measurement) string {
	if !m.Valid() {
		return "-"
	}
	return fmt.Sprintf("%.2f", float64(m))
}

func printSummary(out io.Writer, result *BatchResult) {
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintln(out, "BATCH PREDICTION COMPLETE")
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintf(out, "Files:        %d\n", result.TotalFiles)
	fmt.Fprintf(out, "Input Rows:   %d\n", result.InputRows)
	fmt.Fprintf(out, "Predictions:  %d\n", result.Predictions)
	fmt.Fprintf(out, "Persisted:    %d\n", result.Persisted)
	fmt.Fprintf(out, "Duration:     %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Fprintf(out, "  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Fprintf(out, "  ... and %d more errors\n", len(result.Errors)-10)
		}
	}
}
