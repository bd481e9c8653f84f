package features

import "dengue-platform/internal/models"

var (
	baseColumns = []string{ColCase, ColTemperatureMin, ColHumidityAvg, ColPrecipitation}
	lagDistance = []int{1, 2, 3}
)

const rollingWindow = 3

// Definition describes one model type's pipeline. Definitions are shared read-only;
// accessors return copies of every slice.
type Definition struct {
	modelType  string
	grouped    bool
	lagBases   []string
	rollBases  []string
	lags       []int
	window     int
	policy     CompletenessPolicy
	features   []string
	required   []string
	multiplier float64
}

// ModelType returns the pipeline selector
func (d *Definition) ModelType() string { return d.modelType }

// Grouped reports whether derived columns are computed per sub-district
func (d *Definition) Grouped() bool { return d.grouped }

// Window returns the rolling window length
func (d *Definition) Window() int { return d.window }

// Lags returns the lag distances
func (d *Definition) Lags() []int { return append([]int(nil), d.lags...) }

// Policy returns the completeness filter applied after derivation
func (d *Definition) Policy() CompletenessPolicy { return d.policy }

// IncidenceMultiplier returns the per-population rate scale
func (d *Definition) IncidenceMultiplier() float64 { return d.multiplier }

// Features returns the model input columns in order
func (d *Definition) Features() []string { return append([]string(nil), d.features...) }

// RequiredColumns returns the CSV columns an upload must carry
func (d *Definition) RequiredColumns() []string { return append([]string(nil), d.required...) }

// DerivedColumns returns every lag and rolling column name the pipeline produces
func (d *Definition) DerivedColumns() []string {
	return derivedColumns(d.lagBases, d.rollBases, d.lags, d.window)
}

func derivedColumns(lagBases, rollBases []string, lags []int, window int) []string {
	var out []string
	for _, b := range lagBases {
		for _, k := range lags {
			out = append(out, LagName(b, k))
		}
	}
	for _, b := range rollBases {
		out = append(out, RollingName(b, window))
	}
	return out
}

// featureList is the fixed model input order: current climate values, lags grouped
// by base, rolling means, then calendar columns.
func featureList() []string {
	out := []string{ColTemperatureMin, ColHumidityAvg, ColPrecipitation}
	for _, b := range baseColumns {
		for _, k := range lagDistance {
			out = append(out, LagName(b, k))
		}
	}
	for _, b := range baseColumns {
		out = append(out, RollingName(b, rollingWindow))
	}
	return append(out, ColMonth, ColSeason)
}

var (
	sleman = &Definition{
		modelType:  models.ModelTypeSleman,
		lagBases:   baseColumns,
		rollBases:  baseColumns,
		lags:       lagDistance,
		window:     rollingWindow,
		policy:     LeadingLagPolicy{Column: LagName(ColCase, 1)},
		features:   featureList(),
		required:   []string{ColDate, ColTemperatureMin, ColHumidityAvg, ColPrecipitation, ColCase},
		multiplier: 100000,
	}

	kapanewon = &Definition{
		modelType:  models.ModelTypeKapanewon,
		grouped:    true,
		lagBases:   baseColumns,
		rollBases:  baseColumns,
		lags:       lagDistance,
		window:     rollingWindow,
		policy:     StrictPolicy{Columns: derivedColumns(baseColumns, baseColumns, lagDistance, rollingWindow)},
		features:   append(featureList(), ColSubDistrictEncoded),
		required:   []string{ColDate, ColSubDistrict, ColTemperatureMin, ColHumidityAvg, ColPrecipitation, ColCase},
		multiplier: 10000,
	}
)

// Sleman returns the district-wide single-series definition
func Sleman() *Definition { return sleman }

// Kapanewon returns the per-sub-district grouped definition
func Kapanewon() *Definition { return kapanewon }

// ModelTypes lists the supported selectors
func ModelTypes() []string {
	return []string{models.ModelTypeSleman, models.ModelTypeKapanewon}
}

// Lookup returns the definition for modelType
func Lookup(modelType string) (*Definition, error) {
	switch modelType {
	case models.ModelTypeSleman:
		return sleman, nil
	case models.ModelTypeKapanewon:
		return kapanewon, nil
	default:
		return nil, &models.UnknownModelTypeError{ModelType: modelType}
	}
}
