package features

import "dengue-platform/internal/models"

// Assemble builds the row-major model input matrix from names, in order.
// Any absent column fails with a SchemaError listing every missing name.
func Assemble(f *Frame, names []string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	var missing []string
	for j, name := range names {
		c, ok := f.Column(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[j] = c
	}
	if len(missing) > 0 {
		return nil, &models.SchemaError{Missing: missing}
	}

	matrix := make([][]float64, f.Len())
	for i := range matrix {
		row := make([]float64, len(names))
		for j := range names {
			row[j] = cols[j][i]
		}
		matrix[i] = row
	}
	return matrix, nil
}
