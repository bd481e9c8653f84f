package features

import (
	"sort"

	"dengue-platform/internal/models"
)

// Encoder maps group keys to the numeric codes a model was trained on
type Encoder interface {
	// Source names where the codes come from, e.g. "label" or "table:2024.1".
	Source() string
	Encode(values []string) ([]float64, error)
}

// LabelEncoder assigns codes 0..n-1 to the distinct values in lexicographic order,
// so a fixed set of values always gets the same codes regardless of row order.
type LabelEncoder struct{}

// Source implements Encoder
func (LabelEncoder) Source() string { return "label" }

// Encode implements Encoder
func (LabelEncoder) Encode(values []string) ([]float64, error) {
	seen := make(map[string]struct{})
	var distinct []string
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			distinct = append(distinct, v)
		}
	}
	sort.Strings(distinct)

	codes := make(map[string]float64, len(distinct))
	for i, v := range distinct {
		codes[v] = float64(i)
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = codes[v]
	}
	return out, nil
}

// MappingEncoder uses a fixed, versioned table shipped with the model artifact
type MappingEncoder struct {
	version string
	table   map[string]int
}

// NewMappingEncoder copies table so later changes by the caller are not observed
func NewMappingEncoder(version string, table map[string]int) *MappingEncoder {
	t := make(map[string]int, len(table))
	for k, v := range table {
		t[k] = v
	}
	return &MappingEncoder{version: version, table: t}
}

// Source implements Encoder
func (m *MappingEncoder) Source() string { return "table:" + m.version }

// Len returns the number of known keys
func (m *MappingEncoder) Len() int { return len(m.table) }

// Encode implements Encoder. Keys missing from the table fail the whole batch.
func (m *MappingEncoder) Encode(values []string) ([]float64, error) {
	out := make([]float64, len(values))
	unknown := make(map[string]struct{})
	for i, v := range values {
		code, ok := m.table[v]
		if !ok {
			unknown[v] = struct{}{}
			continue
		}
		out[i] = float64(code)
	}

	if len(unknown) > 0 {
		names := make([]string, 0, len(unknown))
		for v := range unknown {
			names = append(names, v)
		}
		sort.Strings(names)
		return nil, &models.UnknownCategoryError{Column: ColSubDistrict, Values: names}
	}
	return out, nil
}
