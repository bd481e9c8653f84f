// Package dataset turns uploaded climate CSV documents into observations.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"dengue-platform/internal/features"
	"dengue-platform/internal/models"
)

// Tokens read as a missing numeric value
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"NaN":  {},
	"nan":  {},
	"null": {},
}

// Accepted date layouts, tried in order
var dateLayouts = []string{
	models.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"1/2/2006",
	"2006-1-2",
}

// utf8BOM prefixes spreadsheet "CSV UTF-8" exports
var utf8BOM = []byte("\ufeff")

// Load parses a CSV upload into observations for def.
// A header-only document yields no observations and no error.
func Load(r io.Reader, def *features.Definition) ([]models.Observation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	header, more, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	if missing := missingColumns(header, def.RequiredColumns()); len(missing) > 0 {
		return nil, &models.MissingColumnError{Columns: missing}
	}
	if !more {
		return []models.Observation{}, nil
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, &models.ParseError{Err: df.Err}
	}

	return toObservations(df, def.Grouped())
}

// readHeader returns the column names and whether any data row follows
func readHeader(data []byte) ([]string, bool, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, false, &models.ParseError{Err: errors.New("empty document")}
	}
	if err != nil {
		return nil, false, &models.ParseError{Err: err}
	}

	_, err = cr.Read()
	if errors.Is(err, io.EOF) {
		return header, false, nil
	}
	if err != nil {
		return nil, false, &models.ParseError{Err: err}
	}
	return header, true, nil
}

func missingColumns(header, required []string) []string {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = struct{}{}
	}
	var missing []string
	for _, c := range required {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

func toObservations(df dataframe.DataFrame, grouped bool) ([]models.Observation, error) {
	names := make(map[string]string)
	for _, n := range df.Names() {
		names[strings.TrimSpace(n)] = n
	}
	records := func(col string) []string {
		return df.Col(names[col]).Records()
	}

	dates := records(features.ColDate)
	temps := records(features.ColTemperatureMin)
	humidity := records(features.ColHumidityAvg)
	precip := records(features.ColPrecipitation)
	cases := records(features.ColCase)
	var groups []string
	if grouped {
		groups = records(features.ColSubDistrict)
	}

	obs := make([]models.Observation, df.Nrow())
	for i := range obs {
		row := i + 1
		o := &obs[i]

		d, err := ParseDate(dates[i])
		if err != nil {
			return nil, &models.ParseError{Row: row, Column: features.ColDate, Value: dates[i], Err: err}
		}
		o.Date = d

		fields := []struct {
			col string
			raw string
			dst *float64
		}{
			{features.ColTemperatureMin, temps[i], &o.TemperatureMinCelsius},
			{features.ColHumidityAvg, humidity[i], &o.HumidityAvgPercentage},
			{features.ColPrecipitation, precip[i], &o.PrecipitationMM},
			{features.ColCase, cases[i], &o.Case},
		}
		for _, f := range fields {
			v, err := ParseNumber(f.raw)
			if err != nil {
				return nil, &models.ParseError{Row: row, Column: f.col, Value: f.raw, Err: err}
			}
			*f.dst = v
		}

		if grouped {
			key := strings.TrimSpace(groups[i])
			if _, missing := missingTokens[key]; missing {
				return nil, &models.ParseError{Row: row, Column: features.ColSubDistrict, Value: groups[i], Err: errors.New("missing sub-district")}
			}
			o.SubDistrict = key
		}
	}
	return obs, nil
}

// ParseNumber reads a numeric cell. Missing tokens yield NaN.
func ParseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if _, ok := missingTokens[s]; ok {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	if math.IsInf(v, 0) {
		return 0, errors.New("infinite value")
	}
	return v, nil
}

// ParseDate reads a date cell in any accepted layout, normalized to midnight UTC
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, errors.New("unrecognized date")
}
