// Package features turns uploaded climate observations into the feature matrix the
// dengue case-count models were trained on.
//
// # Stages
//
//	1. calendar   month, season = ((month % 12) / 3) + 1
//	2. lag        <base>_lag1..3, value k positions earlier in the same series
//	3. rolling    <base>_rolling3, trailing mean of positions i-2..i
//	4. filter     drop incomplete rows (policy depends on the model type)
//	5. encode     sub_district -> sub_district_encoded (grouped series only)
//
// Bases are case, temperature_min_celsius, humidity_avg_percentage and
// precipitation_mm.
//
// # Series
//
// The sleman model sees one series: every row in upload order. The kapanewon model
// sees one series per sub_district; rows keep their relative upload order inside
// each series and lag/rolling windows never reach into another sub-district. No
// stage sorts by date, so uploads must already be date ordered per series.
//
// # Missing values
//
// Missing values are NaN. A lag with no predecessor is NaN, and a rolling window
// that is short or contains a NaN is NaN. All derived columns are computed before
// any row is dropped, so a surviving row still sees the rows before it even when
// those rows are filtered out.
//
// # Season
//
// The season label is a fixed arithmetic bucket, not a calendar season:
//
//	month   12  1  2 | 3  4  5 | 6  7  8 | 9 10 11
//	season   1  1  1 | 2  2  2 | 3  3  3 | 4  4  4
package features
