package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Supported pipeline selectors
const (
	ModelTypeSleman    = "sleman"
	ModelTypeKapanewon = "kapanewon"
)

// DateLayout is the wire and storage format for observation dates
const DateLayout = "2006-01-02"

// Observation is one parsed row of an uploaded climate CSV.
// Missing numeric values are NaN.
type Observation struct {
	Date                  time.Time
	TemperatureMinCelsius float64
	HumidityAvgPercentage float64
	PrecipitationMM       float64
	Case                  float64
	SubDistrict           string
}

// Date marshals as YYYY-MM-DD
type Date time.Time

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(d).Format(DateLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = Date(t)
	return nil
}

// Measurement is a climate reading that may be missing. Missing values are NaN in
// memory and null on the wire.
type Measurement float64

// MissingMeasurement returns the missing value
func MissingMeasurement() Measurement {
	return Measurement(math.NaN())
}

// MeasurementFromPtr maps a nullable column value to a Measurement
func MeasurementFromPtr(p *float64) Measurement {
	if p == nil {
		return MissingMeasurement()
	}
	return Measurement(*p)
}

// Valid reports whether the value is present
func (m Measurement) Valid() bool {
	return !math.IsNaN(float64(m))
}

// Ptr returns nil for a missing value
func (m Measurement) Ptr() *float64 {
	if !m.Valid() {
		return nil
	}
	v := float64(m)
	return &v
}

// MarshalJSON implements json.Marshaler
func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.Valid() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(m), 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Measurement) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = MissingMeasurement()
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid measurement %s: %w", data, err)
	}
	*m = Measurement(v)
	return nil
}

// PredictionResult is one row of the prediction response
type PredictionResult struct {
	Date                  Date        `json:"date"`
	SubDistrict           string      `json:"sub_district,omitempty"`
	TemperatureMinCelsius Measurement `json:"temperature_min_celsius"`
	HumidityAvgPercentage Measurement `json:"humidity_avg_percentage"`
	PrecipitationMM       Measurement `json:"precipitation_mm"`
	PredictedCases        float64     `json:"predicted_cases"`
	IncidenceRate         *float64    `json:"incidence_rate,omitempty"`
}

// Prediction is a persisted prediction record. Missing climate readings are NULL.
type Prediction struct {
	ID                    int64     `json:"id" db:"id"`
	Date                  time.Time `json:"date" db:"date"`
	TemperatureMinCelsius *float64  `json:"temperature_min_celsius" db:"temperature_min_celsius"`
	HumidityAvgPercentage *float64  `json:"humidity_avg_percentage" db:"humidity_avg_percentage"`
	PrecipitationMM       *float64  `json:"precipitation_mm" db:"precipitation_mm"`
	PredictedCases        float64   `json:"predicted_cases" db:"predicted_cases"`
	IncidenceRate         *float64  `json:"incidence_rate,omitempty" db:"incidence_rate"`
	SubDistrict           *string   `json:"sub_district,omitempty" db:"sub_district"`
	ModelType             string    `json:"model_type" db:"model_type"`
	ModelVersion          string    `json:"model_version" db:"model_version"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
}

// ToResult converts a stored record to the response shape
func (p *Prediction) ToResult() PredictionResult {
	r := PredictionResult{
		Date:                  Date(p.Date),
		TemperatureMinCelsius: MeasurementFromPtr(p.TemperatureMinCelsius),
		HumidityAvgPercentage: MeasurementFromPtr(p.HumidityAvgPercentage),
		PrecipitationMM:       MeasurementFromPtr(p.PrecipitationMM),
		PredictedCases:        p.PredictedCases,
		IncidenceRate:         p.IncidenceRate,
	}
	if p.SubDistrict != nil {
		r.SubDistrict = *p.SubDistrict
	}
	return r
}

// PredictionSummary aggregates persisted predictions for one model type and area
type PredictionSummary struct {
	ModelType           string     `json:"model_type" db:"model_type"`
	SubDistrict         *string    `json:"sub_district,omitempty" db:"sub_district"`
	PredictionCount     int        `json:"prediction_count" db:"prediction_count"`
	TotalPredictedCases float64    `json:"total_predicted_cases" db:"total_predicted_cases"`
	AvgPredictedCases   float64    `json:"avg_predicted_cases" db:"avg_predicted_cases"`
	AvgIncidenceRate    *float64   `json:"avg_incidence_rate,omitempty" db:"avg_incidence_rate"`
	MaxIncidenceRate    *float64   `json:"max_incidence_rate,omitempty" db:"max_incidence_rate"`
	FirstDate           *time.Time `json:"first_date,omitempty" db:"first_date"`
	LastDate            *time.Time `json:"last_date,omitempty" db:"last_date"`
}
