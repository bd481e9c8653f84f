package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildListQuery(t *testing.T) {
	modelType := "kapanewon"
	sub := "Depok"
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    PredictionFilter
		wantWhere string
		wantArgs  []interface{}
		wantPage  string
	}{
		{
			name:     "no filters",
			filter:   PredictionFilter{Limit: 10},
			wantPage: "LIMIT $1 OFFSET $2",
		},
		{
			name:      "model type and area",
			filter:    PredictionFilter{ModelType: &modelType, SubDistrict: &sub, Limit: 10},
			wantWhere: " WHERE model_type = $1 AND sub_district = $2",
			wantArgs:  []interface{}{"kapanewon", "Depok"},
			wantPage:  "LIMIT $3 OFFSET $4",
		},
		{
			name:      "date range",
			filter:    PredictionFilter{StartDate: &start, Limit: 10},
			wantWhere: " WHERE date >= $1",
			wantArgs:  []interface{}{start},
			wantPage:  "LIMIT $2 OFFSET $3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, page, args := buildListQuery(tt.filter)

			assert.Equal(t, "SELECT COUNT(*) FROM predictions"+tt.wantWhere, count)
			assert.Equal(t, tt.wantArgs, args)
			assert.Contains(t, page, "ORDER BY date ASC")
			assert.True(t, strings.HasSuffix(page, tt.wantPage), page)
		})
	}
}

func TestBuildSummaryQuery(t *testing.T) {
	modelType := "sleman"
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	query, args := buildSummaryQuery(SummaryFilter{ModelType: &modelType, EndDate: &end})

	assert.Contains(t, query, "WHERE model_type = $1 AND date <= $2")
	assert.Contains(t, query, "GROUP BY model_type, sub_district")
	assert.Equal(t, []interface{}{"sleman", end}, args)
}

func TestNotFoundError(t *testing.T) {
	err := &NotFoundError{Resource: "prediction", ID: "42"}
	assert.Equal(t, "prediction not found: 42", err.Error())
	assert.False(t, err.IsTransient())
}
