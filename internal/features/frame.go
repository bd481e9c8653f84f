package features

import (
	"fmt"
	"math"
	"time"

	"dengue-platform/internal/models"
)

// Base column names as they appear in uploads and model feature lists
const (
	ColDate               = "date"
	ColCase               = "case"
	ColTemperatureMin     = "temperature_min_celsius"
	ColHumidityAvg        = "humidity_avg_percentage"
	ColPrecipitation      = "precipitation_mm"
	ColSubDistrict        = "sub_district"
	ColMonth              = "month"
	ColSeason             = "season"
	ColSubDistrictEncoded = "sub_district_encoded"
)

// LagName returns the column name of the k-step lag of base
func LagName(base string, k int) string {
	return fmt.Sprintf("%s_lag%d", base, k)
}

// RollingName returns the column name of the trailing mean of base over window rows
func RollingName(base string, window int) string {
	return fmt.Sprintf("%s_rolling%d", base, window)
}

// Frame is a column-oriented feature table. Rows are positions; Groups is nil for a
// single-series frame.
type Frame struct {
	Dates  []time.Time
	Groups []string

	columns map[string][]float64
	order   []string
}

// NewFrame loads observations into a frame holding the four numeric base columns.
// When grouped is true each row's SubDistrict becomes its group key.
func NewFrame(observations []models.Observation, grouped bool) *Frame {
	n := len(observations)
	f := &Frame{
		Dates:   make([]time.Time, n),
		columns: make(map[string][]float64),
	}
	if grouped {
		f.Groups = make([]string, n)
	}

	cases := make([]float64, n)
	temp := make([]float64, n)
	humidity := make([]float64, n)
	precip := make([]float64, n)

	for i, o := range observations {
		f.Dates[i] = o.Date
		cases[i] = o.Case
		temp[i] = o.TemperatureMinCelsius
		humidity[i] = o.HumidityAvgPercentage
		precip[i] = o.PrecipitationMM
		if grouped {
			f.Groups[i] = o.SubDistrict
		}
	}

	f.Set(ColTemperatureMin, temp)
	f.Set(ColHumidityAvg, humidity)
	f.Set(ColPrecipitation, precip)
	f.Set(ColCase, cases)
	return f
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.Dates)
}

// Grouped reports whether rows carry a group key
func (f *Frame) Grouped() bool {
	return f.Groups != nil
}

// Set adds or replaces a column. values must have one entry per row.
func (f *Frame) Set(name string, values []float64) {
	if len(values) != f.Len() {
		panic(fmt.Sprintf("features: column %s has %d values for %d rows", name, len(values), f.Len()))
	}
	if _, ok := f.columns[name]; !ok {
		f.order = append(f.order, name)
	}
	f.columns[name] = values
}

// Column returns the named column. The slice is shared with the frame.
func (f *Frame) Column(name string) ([]float64, bool) {
	c, ok := f.columns[name]
	return c, ok
}

// Has reports whether the named column exists
func (f *Frame) Has(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Value returns row i of the named column, NaN when the column is absent
func (f *Frame) Value(name string, i int) float64 {
	c, ok := f.columns[name]
	if !ok {
		return math.NaN()
	}
	return c[i]
}

// Names returns the column names in insertion order
func (f *Frame) Names() []string {
	return append([]string(nil), f.order...)
}

// Partitions returns row indexes per series. A single-series frame has one
// partition holding every row; a grouped frame has one per distinct key in order of
// first appearance. Each partition keeps the frame's row order.
func (f *Frame) Partitions() [][]int {
	if !f.Grouped() {
		all := make([]int, f.Len())
		for i := range all {
			all[i] = i
		}
		return [][]int{all}
	}

	index := make(map[string]int)
	var parts [][]int
	for i, g := range f.Groups {
		p, ok := index[g]
		if !ok {
			p = len(parts)
			index[g] = p
			parts = append(parts, nil)
		}
		parts[p] = append(parts[p], i)
	}
	return parts
}

// Select returns a new frame holding the rows for which keep returns true, densely
// re-indexed from zero in their original order.
func (f *Frame) Select(keep func(i int) bool) *Frame {
	var rows []int
	for i := 0; i < f.Len(); i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}

	out := &Frame{
		Dates:   make([]time.Time, len(rows)),
		columns: make(map[string][]float64, len(f.columns)),
		order:   f.Names(),
	}
	if f.Grouped() {
		out.Groups = make([]string, len(rows))
	}
	for j, i := range rows {
		out.Dates[j] = f.Dates[i]
		if f.Grouped() {
			out.Groups[j] = f.Groups[i]
		}
	}
	for name, src := range f.columns {
		dst := make([]float64, len(rows))
		for j, i := range rows {
			dst[j] = src[i]
		}
		out.columns[name] = dst
	}
	return out
}
