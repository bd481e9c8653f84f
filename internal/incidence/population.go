// Package incidence converts predicted case counts into population incidence rates.
package incidence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Table is the population reference for one district and its sub-districts
type Table struct {
	District           string             `json:"district"`
	DistrictPopulation float64            `json:"district_population"`
	SubDistricts       map[string]float64 `json:"sub_districts"`
}

// DefaultTable returns the built-in Sleman regency reference
func DefaultTable() *Table {
	subs := make(map[string]float64, len(slemanSubDistricts))
	for k, v := range slemanSubDistricts {
		subs[k] = v
	}
	return &Table{
		District:           "Sleman",
		DistrictPopulation: 1125804,
		SubDistricts:       subs,
	}
}

var slemanSubDistricts = map[string]float64{
	"Berbah":      56814,
	"Cangkringan": 30442,
	"Depok":       128930,
	"Gamping":     105702,
	"Godean":      71216,
	"Kalasan":     84765,
	"Minggir":     35301,
	"Mlati":       110917,
	"Moyudan":     31829,
	"Ngaglik":     118624,
	"Ngemplak":    64308,
	"Pakem":       36498,
	"Prambanan":   50021,
	"Seyegan":     49917,
	"Sleman":      66734,
	"Tempel":      52108,
	"Turi":        31678,
}

// LoadTable reads a population table from a JSON file. An empty path returns the
// built-in table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read population table: %w", err)
	}

	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse population table %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("population table %s: %w", path, err)
	}
	return &t, nil
}

// Validate checks every population is positive
func (t *Table) Validate() error {
	var bad []string
	if t.DistrictPopulation <= 0 {
		bad = append(bad, "district_population")
	}
	for name, p := range t.SubDistricts {
		if p <= 0 {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		return errors.New("non-positive population for " + strings.Join(bad, ", "))
	}
	return nil
}

// SubDistrict returns the population of name
func (t *Table) SubDistrict(name string) (float64, bool) {
	p, ok := t.SubDistricts[name]
	return p, ok
}
