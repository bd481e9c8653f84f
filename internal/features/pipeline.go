package features

import (
	"fmt"

	"dengue-platform/internal/models"
)

// Result is the output of one pipeline run
type Result struct {
	Frame     *Frame
	InputRows int
	KeptRows  int
	Policy    string
}

// Dropped returns the number of rows removed by the completeness filter
func (r *Result) Dropped() int {
	return r.InputRows - r.KeptRows
}

// Run derives every feature column for observations and filters incomplete rows.
// All lag and rolling columns are computed on the full input before any row is
// dropped. enc is only consulted by grouped definitions and may be nil otherwise.
func Run(def *Definition, observations []models.Observation, enc Encoder) (*Result, error) {
	f := NewFrame(observations, def.grouped)
	DeriveCalendar(f)

	parts := f.Partitions()
	AddLags(f, def.lagBases, def.lags, parts)
	AddRollingMeans(f, def.rollBases, def.window, parts)

	kept := ApplyFilter(f, def.policy)

	if def.grouped {
		if enc == nil {
			enc = LabelEncoder{}
		}
		codes, err := enc.Encode(kept.Groups)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", ColSubDistrict, err)
		}
		kept.Set(ColSubDistrictEncoded, codes)
	}

	return &Result{
		Frame:     kept,
		InputRows: f.Len(),
		KeptRows:  kept.Len(),
		Policy:    def.policy.Name(),
	}, nil
}
