package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dengue-platform/internal/models"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func series(group string, cases ...float64) []models.Observation {
	obs := make([]models.Observation, len(cases))
	for i, c := range cases {
		obs[i] = models.Observation{
			Date:                  day(i),
			TemperatureMinCelsius: 22 + float64(i),
			HumidityAvgPercentage: 80 + float64(i),
			PrecipitationMM:       float64(i) * 2,
			Case:                  c,
			SubDistrict:           group,
		}
	}
	return obs
}

func assertNaN(t *testing.T, v float64, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, math.IsNaN(v), msgAndArgs...)
}

func TestSeason(t *testing.T) {
	tests := []struct {
		month int
		want  int
	}{
		{1, 1}, {2, 1}, {3, 2}, {4, 2}, {5, 2}, {6, 3},
		{7, 3}, {8, 3}, {9, 4}, {10, 4}, {11, 4}, {12, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Season(tt.month), "month %d", tt.month)
	}
}

func TestDeriveCalendar(t *testing.T) {
	obs := []models.Observation{
		{Date: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)},
	}
	f := NewFrame(obs, false)
	DeriveCalendar(f)

	months, ok := f.Column(ColMonth)
	require.True(t, ok)
	assert.Equal(t, []float64{12, 3, 7}, months)

	seasons, ok := f.Column(ColSeason)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, seasons)
}

func TestLag(t *testing.T) {
	values := []float64{10, 12, 15, 9, 14}
	parts := [][]int{{0, 1, 2, 3, 4}}

	lag1 := Lag(values, parts, 1)
	assertNaN(t, lag1[0])
	assert.Equal(t, []float64{10, 12, 15, 9}, lag1[1:])

	lag3 := Lag(values, parts, 3)
	for i := 0; i < 3; i++ {
		assertNaN(t, lag3[i], "row %d", i)
	}
	assert.Equal(t, []float64{10, 12}, lag3[3:])
}

func TestLag_Partitioned(t *testing.T) {
	// Two interleaved groups: A at rows 0,2,4 and B at rows 1,3
	values := []float64{1, 100, 2, 200, 3}
	parts := [][]int{{0, 2, 4}, {1, 3}}

	lag1 := Lag(values, parts, 1)
	assertNaN(t, lag1[0])
	assertNaN(t, lag1[1])
	assert.Equal(t, 1.0, lag1[2])
	assert.Equal(t, 100.0, lag1[3])
	assert.Equal(t, 2.0, lag1[4])
}

func TestRollingMean(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{
			name:   "complete series",
			values: []float64{10, 12, 15, 9, 14},
			want:   []float64{math.NaN(), math.NaN(), 37.0 / 3, 12, 38.0 / 3},
		},
		{
			name:   "missing value poisons its windows",
			values: []float64{1, 2, math.NaN(), 4, 5, 6},
			want:   []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), 5},
		},
		{
			name:   "shorter than window",
			values: []float64{1, 2},
			want:   []float64{math.NaN(), math.NaN()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := [][]int{make([]int, len(tt.values))}
			for i := range parts[0] {
				parts[0][i] = i
			}
			got := RollingMean(tt.values, parts, 3)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				if math.IsNaN(tt.want[i]) {
					assertNaN(t, got[i], "row %d", i)
					continue
				}
				assert.InDelta(t, tt.want[i], got[i], 1e-9, "row %d", i)
			}
		})
	}
}

func TestRollingMean_Partitioned(t *testing.T) {
	// rows 0,2,4,6 belong to one group and 1,3,5 to another
	values := []float64{10, 1, 12, 2, math.NaN(), 3, 9}
	parts := [][]int{{0, 2, 4, 6}, {1, 3, 5}}

	got := RollingMean(values, parts, 3)
	require.Len(t, got, len(values))

	for _, i := range []int{0, 1, 2, 3, 4, 6} {
		assertNaN(t, got[i], "row %d", i)
	}
	assert.InDelta(t, 2.0, got[5], 1e-9)
}

func TestRollingMean_MissingInsideWindow(t *testing.T) {
	values := []float64{10, 12, math.NaN(), 9, 14, 20, 1}
	parts := [][]int{{0, 1, 2, 3, 4, 5, 6}}

	got := RollingMean(values, parts, 3)
	for i := 0; i < 5; i++ {
		assertNaN(t, got[i], "row %d", i)
	}
	assert.InDelta(t, 43.0/3, got[5], 1e-9)
	assert.InDelta(t, 35.0/3, got[6], 1e-9)
}

func TestFrame_Partitions(t *testing.T) {
	obs := append(series("B", 1, 2), series("A", 3, 4, 5)...)
	obs = append(obs, series("B", 6)...)

	f := NewFrame(obs, true)
	assert.Equal(t, [][]int{{0, 1, 5}, {2, 3, 4}}, f.Partitions())

	single := NewFrame(obs, false)
	assert.Equal(t, [][]int{{0, 1, 2, 3, 4, 5}}, single.Partitions())
}

func TestFrame_Select(t *testing.T) {
	f := NewFrame(series("A", 1, 2, 3, 4), true)
	out := f.Select(func(i int) bool { return i%2 == 1 })

	require.Equal(t, 2, out.Len())
	cases, _ := out.Column(ColCase)
	assert.Equal(t, []float64{2, 4}, cases)
	assert.Equal(t, []time.Time{day(1), day(3)}, out.Dates)
	assert.Equal(t, []string{"A", "A"}, out.Groups)

	// Source frame is untouched
	assert.Equal(t, 4, f.Len())
}

func TestRun_SlemanFiveRowExample(t *testing.T) {
	res, err := Run(Sleman(), series("", 10, 12, 15, 9, 14), nil)
	require.NoError(t, err)

	assert.Equal(t, 5, res.InputRows)
	assert.Equal(t, 4, res.KeptRows)
	assert.Equal(t, "leading_lag", res.Policy)

	// Original row 3 is kept row 2 after dropping row 0
	f := res.Frame
	assert.Equal(t, day(3), f.Dates[2])
	assert.Equal(t, 15.0, f.Value(LagName(ColCase, 1), 2))
	assert.Equal(t, 12.0, f.Value(LagName(ColCase, 2), 2))
	assert.Equal(t, 10.0, f.Value(LagName(ColCase, 3), 2))
	assert.InDelta(t, 12.333333, f.Value(RollingName(ColCase, 3), 2), 1e-6)
}

func TestRun_StrictSingleGroupStartsAtFourthRow(t *testing.T) {
	res, err := Run(Kapanewon(), series("Depok", 10, 12, 15, 9, 14), nil)
	require.NoError(t, err)

	f := res.Frame
	require.Equal(t, 2, f.Len())
	assert.Equal(t, day(3), f.Dates[0])
	assert.Equal(t, 15.0, f.Value(LagName(ColCase, 1), 0))
	assert.Equal(t, 12.0, f.Value(LagName(ColCase, 2), 0))
	assert.Equal(t, 10.0, f.Value(LagName(ColCase, 3), 0))
	assert.InDelta(t, 12.333333, f.Value(RollingName(ColCase, 3), 0), 1e-6)
}

func TestRun_SlemanKeepsRowsWithMissingRollingValues(t *testing.T) {
	obs := series("", 10, 12, 15, 9, 14)
	obs[1].TemperatureMinCelsius = math.NaN()

	res, err := Run(Sleman(), obs, nil)
	require.NoError(t, err)

	// Original row 3 has case_lag1 but its temperature window includes row 1
	f := res.Frame
	require.Equal(t, 4, f.Len())
	assert.Equal(t, day(3), f.Dates[2])
	assert.Equal(t, 15.0, f.Value(LagName(ColCase, 1), 2))
	assertNaN(t, f.Value(RollingName(ColTemperatureMin, 3), 2))
}

func TestRun_KapanewonDropsShortGroup(t *testing.T) {
	obs := append(series("A", 1, 2, 3, 4, 5), series("B", 7, 8)...)

	res, err := Run(Kapanewon(), obs, nil)
	require.NoError(t, err)

	assert.Equal(t, "strict", res.Policy)
	assert.Equal(t, 7, res.InputRows)
	assert.Equal(t, 2, res.KeptRows)
	assert.Equal(t, []string{"A", "A"}, res.Frame.Groups)
}

func TestRun_KapanewonDropsRowWithMissingDerivedValue(t *testing.T) {
	obs := series("A", 1, 2, 3, 4, 5, 6)
	obs[4].PrecipitationMM = math.NaN()

	res, err := Run(Kapanewon(), obs, nil)
	require.NoError(t, err)

	// Row 4's own rolling window and row 5's lag1 both see the missing value
	assert.Equal(t, []time.Time{day(3)}, res.Frame.Dates)
}

func TestRun_GroupsNeverMix(t *testing.T) {
	a := series("A", 1, 2, 3, 4, 5)
	b := series("B", 50, 60, 70, 80)
	for i := range b {
		b[i].TemperatureMinCelsius += 100
	}

	forward, err := Run(Kapanewon(), append(append([]models.Observation{}, a...), b...), nil)
	require.NoError(t, err)
	reversed, err := Run(Kapanewon(), append(append([]models.Observation{}, b...), a...), nil)
	require.NoError(t, err)

	require.Equal(t, forward.KeptRows, reversed.KeptRows)

	key := func(f *Frame, i int) string { return f.Groups[i] + f.Dates[i].Format(models.DateLayout) }
	index := make(map[string]int)
	for i := 0; i < reversed.Frame.Len(); i++ {
		index[key(reversed.Frame, i)] = i
	}

	for i := 0; i < forward.Frame.Len(); i++ {
		j, ok := index[key(forward.Frame, i)]
		require.True(t, ok)
		for _, col := range Kapanewon().DerivedColumns() {
			assert.Equal(t, forward.Frame.Value(col, i), reversed.Frame.Value(col, j), "%s row %d", col, i)
		}
		assert.Equal(t, forward.Frame.Value(ColSubDistrictEncoded, i), reversed.Frame.Value(ColSubDistrictEncoded, j))
	}
}

func TestRun_PreservesInputOrder(t *testing.T) {
	obs := series("", 1, 2, 3, 4, 5, 6)
	res, err := Run(Sleman(), obs, nil)
	require.NoError(t, err)

	for i := 1; i < res.Frame.Len(); i++ {
		assert.True(t, res.Frame.Dates[i].After(res.Frame.Dates[i-1]))
	}
}

func TestRun_Idempotent(t *testing.T) {
	obs := append(series("A", 1, 2, 3, 4, 5), series("B", 9, 8, 7, 6)...)

	first, err := Run(Kapanewon(), obs, nil)
	require.NoError(t, err)
	second, err := Run(Kapanewon(), obs, nil)
	require.NoError(t, err)

	m1, err := Assemble(first.Frame, Kapanewon().Features())
	require.NoError(t, err)
	m2, err := Assemble(second.Frame, Kapanewon().Features())
	require.NoError(t, err)
	assert.Equal(t, m1, m2)
}

func TestRun_Empty(t *testing.T) {
	res, err := Run(Kapanewon(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.KeptRows)

	matrix, err := Assemble(res.Frame, Kapanewon().Features())
	require.NoError(t, err)
	assert.Empty(t, matrix)
}

func TestRun_UnknownCategory(t *testing.T) {
	obs := append(series("A", 1, 2, 3, 4), series("Z", 1, 2, 3, 4)...)
	enc := NewMappingEncoder("v1", map[string]int{"A": 0})

	_, err := Run(Kapanewon(), obs, enc)
	var catErr *models.UnknownCategoryError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, []string{"Z"}, catErr.Values)
}

func TestLabelEncoder_Deterministic(t *testing.T) {
	enc := LabelEncoder{}

	a, err := enc.Encode([]string{"Tempel", "Depok", "Tempel", "Berbah"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1, 2, 0}, a)

	b, err := enc.Encode([]string{"Berbah", "Tempel", "Depok"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 1}, b)
}

func TestMappingEncoder(t *testing.T) {
	table := map[string]int{"Depok": 3, "Mlati": 7}
	enc := NewMappingEncoder("2024.1", table)
	table["Depok"] = 99

	got, err := enc.Encode([]string{"Mlati", "Depok"})
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 3}, got)
	assert.Equal(t, "table:2024.1", enc.Source())
	assert.Equal(t, 2, enc.Len())

	_, err = enc.Encode([]string{"Depok", "Ngaglik", "Berbah", "Ngaglik"})
	var catErr *models.UnknownCategoryError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, []string{"Berbah", "Ngaglik"}, catErr.Values)
}

func TestAssemble(t *testing.T) {
	res, err := Run(Sleman(), series("", 10, 12, 15, 9, 14), nil)
	require.NoError(t, err)

	matrix, err := Assemble(res.Frame, Sleman().Features())
	require.NoError(t, err)
	require.Len(t, matrix, 4)
	require.Len(t, matrix[0], 21)

	// temperature_min_celsius leads, season closes
	assert.Equal(t, 23.0, matrix[0][0])
	assert.Equal(t, 1.0, matrix[0][20])

	_, err = Assemble(res.Frame, []string{ColCase, "rainfall_index", ColSubDistrictEncoded})
	var schemaErr *models.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"rainfall_index", ColSubDistrictEncoded}, schemaErr.Missing)
}

func TestDefinitions(t *testing.T) {
	sl := Sleman().Features()
	kp := Kapanewon().Features()

	assert.Len(t, sl, 21)
	assert.Len(t, kp, 22)
	assert.Equal(t, sl, kp[:21])
	assert.Equal(t, ColSubDistrictEncoded, kp[21])
	assert.Equal(t, []string{
		"temperature_min_celsius", "humidity_avg_percentage", "precipitation_mm",
		"case_lag1", "case_lag2", "case_lag3",
		"temperature_min_celsius_lag1", "temperature_min_celsius_lag2", "temperature_min_celsius_lag3",
		"humidity_avg_percentage_lag1", "humidity_avg_percentage_lag2", "humidity_avg_percentage_lag3",
		"precipitation_mm_lag1", "precipitation_mm_lag2", "precipitation_mm_lag3",
		"case_rolling3", "temperature_min_celsius_rolling3",
		"humidity_avg_percentage_rolling3", "precipitation_mm_rolling3",
		"month", "season",
	}, sl)

	// Callers get copies
	sl[0] = "mutated"
	assert.Equal(t, ColTemperatureMin, Sleman().Features()[0])

	assert.Len(t, Kapanewon().DerivedColumns(), 16)
	assert.Equal(t, 100000.0, Sleman().IncidenceMultiplier())
	assert.Equal(t, 10000.0, Kapanewon().IncidenceMultiplier())
}

func TestLookup(t *testing.T) {
	def, err := Lookup("kapanewon")
	require.NoError(t, err)
	assert.True(t, def.Grouped())

	_, err = Lookup("provinsi")
	var typeErr *models.UnknownModelTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "provinsi", typeErr.ModelType)
}
