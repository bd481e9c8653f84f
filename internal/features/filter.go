package features

import "math"

// CompletenessPolicy decides which rows survive the feature pipeline
type CompletenessPolicy interface {
	Name() string
	Keep(f *Frame, i int) bool
}

// LeadingLagPolicy keeps a row iff one column, case_lag1 for the sleman model, is
// present. Every other derived column may still be NaN.
type LeadingLagPolicy struct {
	Column string
}

// Name implements CompletenessPolicy
func (p LeadingLagPolicy) Name() string { return "leading_lag" }

// Keep implements CompletenessPolicy
func (p LeadingLagPolicy) Keep(f *Frame, i int) bool {
	return !math.IsNaN(f.Value(p.Column, i))
}

// StrictPolicy keeps a row iff every listed column is present. The kapanewon model
// lists all of its lag and rolling columns.
type StrictPolicy struct {
	Columns []string
}

// Name implements CompletenessPolicy
func (p StrictPolicy) Name() string { return "strict" }

// Keep implements CompletenessPolicy
func (p StrictPolicy) Keep(f *Frame, i int) bool {
	for _, c := range p.Columns {
		if math.IsNaN(f.Value(c, i)) {
			return false
		}
	}
	return true
}

// ApplyFilter returns the rows policy keeps, densely re-indexed
func ApplyFilter(f *Frame, policy CompletenessPolicy) *Frame {
	return f.Select(func(i int) bool { return policy.Keep(f, i) })
}
