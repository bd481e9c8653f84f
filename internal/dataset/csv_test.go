package dataset

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dengue-platform/internal/features"
	"dengue-platform/internal/models"
)

const slemanCSV = `date,temperature_min_celsius,humidity_avg_percentage,precipitation_mm,case
2024-01-01,22.1,81.5,10.2,10
2024-01-08,22.4,80.0,NA,12
2024-01-15,21.9,,5.5,15
`

func TestLoad_Sleman(t *testing.T) {
	obs, err := Load(strings.NewReader(slemanCSV), features.Sleman())
	require.NoError(t, err)
	require.Len(t, obs, 3)

	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), obs[1].Date)
	assert.Equal(t, 22.4, obs[1].TemperatureMinCelsius)
	assert.True(t, math.IsNaN(obs[1].PrecipitationMM))
	assert.True(t, math.IsNaN(obs[2].HumidityAvgPercentage))
	assert.Equal(t, 15.0, obs[2].Case)
	assert.Empty(t, obs[0].SubDistrict)
}

func TestLoad_ByteOrderMark(t *testing.T) {
	obs, err := Load(strings.NewReader("\ufeff"+slemanCSV), features.Sleman())
	require.NoError(t, err)
	require.Len(t, obs, 3)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), obs[0].Date)
}

func TestLoad_UnpaddedDates(t *testing.T) {
	upload := "date,temperature_min_celsius,humidity_avg_percentage,precipitation_mm,case\n2024-1-5,22,80,10,3\n"
	obs, err := Load(strings.NewReader(upload), features.Sleman())
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), obs[0].Date)
}

func TestLoad_KapanewonColumnOrderIndependent(t *testing.T) {
	input := `sub_district,case,date,precipitation_mm,humidity_avg_percentage,temperature_min_celsius
Depok,3,2024-02-01,1.5,77,23
 Mlati ,4,2024/02/08,0,78,22.5
`
	obs, err := Load(strings.NewReader(input), features.Kapanewon())
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, "Depok", obs[0].SubDistrict)
	assert.Equal(t, "Mlati", obs[1].SubDistrict)
	assert.Equal(t, 23.0, obs[0].TemperatureMinCelsius)
	assert.Equal(t, time.Date(2024, 2, 8, 0, 0, 0, 0, time.UTC), obs[1].Date)
}

func TestLoad_MissingColumns(t *testing.T) {
	input := "date,temperature_min_celsius,case\n2024-01-01,22,1\n"

	_, err := Load(strings.NewReader(input), features.Kapanewon())
	var colErr *models.MissingColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, []string{
		features.ColSubDistrict,
		features.ColHumidityAvg,
		features.ColPrecipitation,
	}, colErr.Columns)
}

func TestLoad_HeaderOnly(t *testing.T) {
	input := "date,temperature_min_celsius,humidity_avg_percentage,precipitation_mm,case\n"

	obs, err := Load(strings.NewReader(input), features.Sleman())
	require.NoError(t, err)
	assert.Empty(t, obs)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantRow int
		wantCol string
	}{
		{
			name:  "empty document",
			input: "",
		},
		{
			name:    "bad date",
			input:   "date,temperature_min_celsius,humidity_avg_percentage,precipitation_mm,case\n2024-01-01,1,2,3,4\nyesterday,1,2,3,4\n",
			wantRow: 2,
			wantCol: features.ColDate,
		},
		{
			name:    "bad number",
			input:   "date,temperature_min_celsius,humidity_avg_percentage,precipitation_mm,case\n2024-01-01,warm,2,3,4\n",
			wantRow: 1,
			wantCol: features.ColTemperatureMin,
		},
		{
			name:  "ragged row",
			input: "date,temperature_min_celsius,humidity_avg_percentage,precipitation_mm,case\n2024-01-01,1,2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input), features.Sleman())
			var parseErr *models.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.wantRow, parseErr.Row)
			assert.Equal(t, tt.wantCol, parseErr.Column)
		})
	}
}

func TestLoad_MissingSubDistrict(t *testing.T) {
	input := "date,sub_district,temperature_min_celsius,humidity_avg_percentage,precipitation_mm,case\n2024-01-01,,1,2,3,4\n"

	_, err := Load(strings.NewReader(input), features.Kapanewon())
	var parseErr *models.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, features.ColSubDistrict, parseErr.Column)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-07", "2024-03-07 13:45:00", "2024-03-07T13:45:00Z", "2024/03/07", "3/7/2024", "2024-3-7"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDate("07.03.2024")
	assert.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	for _, in := range []string{"", " ", "NA", "NaN", "nan", "null"} {
		v, err := ParseNumber(in)
		require.NoError(t, err, in)
		assert.True(t, math.IsNaN(v), in)
	}

	v, err := ParseNumber(" 12.5 ")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	_, err = ParseNumber("Inf")
	assert.Error(t, err)
	_, err = ParseNumber("1,5")
	assert.Error(t, err)
}
