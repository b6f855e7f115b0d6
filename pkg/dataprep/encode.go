package dataprep

import (
	"errors"
	"sort"
)

// OneHotEncoder expands categorical columns into 0/1 indicator features.
// Categories unseen during Fit encode to all zeros.
type OneHotEncoder struct {
	Columns    []string
	Categories [][]string // sorted categories per column

	index []map[string]int
	width int
}

func NewOneHotEncoder(columns ...string) *OneHotEncoder {
	return &OneHotEncoder{Columns: columns}
}

// Fit learns the category set of every column. data is rows x columns.
// Empty strings are treated as missing and get no indicator.
func (e *OneHotEncoder) Fit(data [][]string) error {
	e.Categories = make([][]string, len(e.Columns))
	e.index = make([]map[string]int, len(e.Columns))
	e.width = 0
	for j := range e.Columns {
		unique := map[string]struct{}{}
		for i, row := range data {
			if len(row) != len(e.Columns) {
				return errors.New("dataprep: row width differs from encoder columns")
			}
			if v := data[i][j]; v != "" {
				unique[v] = struct{}{}
			}
		}
		cats := make([]string, 0, len(unique))
		for v := range unique {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		e.Categories[j] = cats
		e.index[j] = make(map[string]int, len(cats))
		for k, v := range cats {
			e.index[j][v] = e.width + k
		}
		e.width += len(cats)
	}
	return nil
}

// Width is the number of output features.
func (e *OneHotEncoder) Width() int { return e.width }

// Transform encodes rows. Unknown or missing categories leave their block zero.
func (e *OneHotEncoder) Transform(data [][]string) ([][]float64, error) {
	if e.index == nil {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(data))
	for i, row := range data {
		if len(row) != len(e.Columns) {
			return nil, errors.New("dataprep: row width differs from encoder columns")
		}
		vec := make([]float64, e.width)
		for j, v := range row {
			if k, ok := e.index[j][v]; ok {
				vec[k] = 1
			}
		}
		out[i] = vec
	}
	return out, nil
}

// FeatureNames returns "<column>_<category>" for every output feature.
func (e *OneHotEncoder) FeatureNames() []string {
	names := make([]string, 0, e.width)
	for j, col := range e.Columns {
		for _, c := range e.Categories[j] {
			names = append(names, col+"_"+c)
		}
	}
	return names
}
