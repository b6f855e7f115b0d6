package dataprep

import (
	"math"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/stats"
)

// Imputation records how one column was filled.
type Imputation struct {
	Column   string `json:"column"`
	Strategy string `json:"strategy"` // "median" or "mode"
	Filled   int    `json:"filled"`
	Value    string `json:"value"`
}

// Impute returns a copy of ds with missing numeric cells replaced by the
// column median and missing categorical cells by the column mode.
// Only columns that had missing cells are reported.
func Impute(ds *data.Dataset) (*data.Dataset, []Imputation) {
	n := ds.Len()
	out := &data.Dataset{
		Schema:      ds.Schema,
		Numeric:     make([][]float64, n),
		Categorical: make([][]string, n),
		Labels:      append([]int(nil), ds.Labels...),
	}
	for i := 0; i < n; i++ {
		out.Numeric[i] = append([]float64(nil), ds.Numeric[i]...)
		out.Categorical[i] = append([]string(nil), ds.Categorical[i]...)
	}

	var report []Imputation
	for j, name := range ds.Schema.Numeric {
		col := make([]float64, n)
		for i := range col {
			col[i] = ds.Numeric[i][j]
		}
		present := stats.DropNaN(col)
		if len(present) == n {
			continue
		}
		median := stats.Median(present)
		for i := range col {
			if math.IsNaN(col[i]) {
				out.Numeric[i][j] = median
			}
		}
		report = append(report, Imputation{Column: name, Strategy: "median", Filled: n - len(present), Value: formatFloat(median)})
	}

	for j, name := range ds.Schema.Categorical {
		present := make([]string, 0, n)
		for i := 0; i < n; i++ {
			if v := ds.Categorical[i][j]; v != "" {
				present = append(present, v)
			}
		}
		if len(present) == n {
			continue
		}
		mode := stats.ModeString(present)
		for i := 0; i < n; i++ {
			if out.Categorical[i][j] == "" {
				out.Categorical[i][j] = mode
			}
		}
		report = append(report, Imputation{Column: name, Strategy: "mode", Filled: n - len(present), Value: mode})
	}
	return out, report
}

// FillTable returns a copy of t with the missing cells of each imputed
// column replaced by the imputed value. Other columns are copied verbatim.
func FillTable(t *data.Table, report []Imputation) *data.Table {
	fill := make(map[int]string, len(report))
	for _, imp := range report {
		if j := t.Index(imp.Column); j >= 0 {
			fill[j] = imp.Value
		}
	}
	out := &data.Table{Header: append([]string(nil), t.Header...), Rows: make([][]string, len(t.Rows))}
	for i, row := range t.Rows {
		cp := append([]string(nil), row...)
		for j, v := range fill {
			if j < len(cp) && data.IsMissing(cp[j]) {
				cp[j] = v
			}
		}
		out.Rows[i] = cp
	}
	return out
}
