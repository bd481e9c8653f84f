package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type object = map[string]interface{}

func queryParam(name, description string, schema object) object {
	return object{"name": name, "in": "query", "description": description, "required": false, "schema": schema}
}

func jsonContent(schema object) object {
	return object{"application/json": object{"schema": schema}}
}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

func errorResponses(codes ...int) object {
	out := object{}
	for _, c := range codes {
		out[strconv.Itoa(c)] = object{"description": http.StatusText(c), "content": jsonContent(ref("Error"))}
	}
	return out
}

func withOK(description string, schema object, errs object) object {
	errs["200"] = object{"description": description, "content": jsonContent(schema)}
	return errs
}

var (
	nullableNumber = object{"type": "number", "nullable": true}
	dateString     = object{"type": "string", "format": "date"}
	filterParams   = []object{
		queryParam("model_type", "Filter by model type (sleman or kapanewon)", object{"type": "string", "enum": []string{"sleman", "kapanewon"}}),
		queryParam("sub_district", "Filter by sub-district", object{"type": "string"}),
		queryParam("start_date", "Filter by start date (YYYY-MM-DD)", dateString),
		queryParam("end_date", "Filter by end date (YYYY-MM-DD)", dateString),
	}
)

func predictOperation() object {
	return object{
		"summary":     "Predict dengue cases",
		"description": "Run an uploaded climate CSV through the model type's feature pipeline and return one predicted case count per kept row",
		"parameters": []object{
			{"name": "model_type", "in": "path", "required": true, "schema": object{"type": "string", "enum": []string{"sleman", "kapanewon"}}},
			queryParam("persist", "Store the predictions with incidence rates", object{"type": "boolean", "default": false}),
		},
		"requestBody": object{
			"required": true,
			"content": object{
				"multipart/form-data": object{"schema": object{
					"type":       "object",
					"properties": object{"file": object{"type": "string", "format": "binary"}},
				}},
				"text/csv": object{"schema": object{"type": "string"}},
			},
		},
		"responses": withOK("Prediction rows, empty when no row survives preprocessing",
			object{"type": "array", "items": ref("PredictionResult")},
			errorResponses(400, 413, 422, 500, 503)),
	}
}

func openAPIDocument() object {
	return object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "Dengue Prediction API",
			"description": "Weekly dengue case prediction for Sleman district and its sub-districts from climate observations",
			"version":     "1.0.0",
		},
		"servers": []object{{"url": "http://localhost:8080", "description": "Local development server"}},
		"paths": object{
			"/predict/{model_type}":     object{"post": predictOperation()},
			"/api/predict/{model_type}": object{"post": predictOperation()},
			"/api/predictions": object{"get": object{
				"summary": "List stored predictions",
				"parameters": append(append([]object{}, filterParams...),
					queryParam("page", "Page number (default: 1)", object{"type": "integer", "default": 1}),
					queryParam("limit", "Records per page (default: 100, max 1000)", object{"type": "integer", "default": 100})),
				"responses": withOK("Stored predictions ordered by date", object{
					"type": "object",
					"properties": object{
						"data":        object{"type": "array", "items": ref("Prediction")},
						"total":       object{"type": "integer"},
						"page":        object{"type": "integer"},
						"limit":       object{"type": "integer"},
						"total_pages": object{"type": "integer"},
					},
				}, errorResponses(400, 503)),
			}},
			"/api/predictions/{id}": object{"get": object{
				"summary":    "Get a stored prediction",
				"parameters": []object{{"name": "id", "in": "path", "required": true, "schema": object{"type": "integer"}}},
				"responses":  withOK("Stored prediction", ref("Prediction"), errorResponses(404, 503)),
			}},
			"/api/predictions/summary": object{"get": object{
				"summary":    "Summarize stored predictions per model type and area",
				"parameters": filterParams,
				"responses":  withOK("Per-area aggregates and totals", ref("Summary"), errorResponses(400, 503)),
			}},
			"/api/models": object{"get": object{
				"summary": "List loaded models",
				"responses": withOK("Loaded models", object{"type": "array", "items": object{
					"type": "object",
					"properties": object{
						"model_type":      object{"type": "string"},
						"version":         object{"type": "string"},
						"feature_count":   object{"type": "integer"},
						"grouped":         object{"type": "boolean"},
						"encoding_source": object{"type": "string"},
						"backend":         object{"type": "string"},
					},
				}}, object{}),
			}},
			"/health": object{"get": object{
				"summary":   "Health check",
				"responses": withOK("API is healthy", object{"type": "object", "properties": object{"status": object{"type": "string"}}}, errorResponses(503)),
			}},
			"/metrics": object{"get": object{
				"summary": "Prometheus metrics",
				"responses": object{"200": object{
					"description": "Prometheus metrics in text format",
					"content":     object{"text/plain": object{"schema": object{"type": "string"}}},
				}},
			}},
		},
		"components": object{"schemas": object{
			"PredictionResult": object{
				"type": "object",
				"properties": object{
					"date":                    dateString,
					"sub_district":            object{"type": "string"},
					"temperature_min_celsius": nullableNumber,
					"humidity_avg_percentage": nullableNumber,
					"precipitation_mm":        nullableNumber,
					"predicted_cases":         object{"type": "number"},
					"incidence_rate":          object{"type": "number"},
				},
			},
			"Prediction": object{
				"type": "object",
				"properties": object{
					"id":                      object{"type": "integer"},
					"date":                    object{"type": "string", "format": "date-time"},
					"sub_district":            object{"type": "string"},
					"temperature_min_celsius": nullableNumber,
					"humidity_avg_percentage": nullableNumber,
					"precipitation_mm":        nullableNumber,
					"predicted_cases":         object{"type": "number"},
					"incidence_rate":          object{"type": "number"},
					"model_type":              object{"type": "string"},
					"model_version":           object{"type": "string"},
					"created_at":              object{"type": "string", "format": "date-time"},
				},
			},
			"Summary": object{
				"type": "object",
				"properties": object{
					"areas":                 object{"type": "array", "items": object{"type": "object"}},
					"total_predictions":     object{"type": "integer"},
					"total_predicted_cases": object{"type": "number"},
					"first_date":            object{"type": "string", "format": "date-time"},
					"last_date":             object{"type": "string", "format": "date-time"},
				},
			},
			"Error": object{
				"type": "object",
				"properties": object{
					"error":   object{"type": "string"},
					"message": object{"type": "string"},
					"code":    object{"type": "integer"},
					"details": object{"type": "object"},
				},
			},
		}},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the prediction API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openAPIDocument())
}
