package dataprep

import (
	"math"
	"strconv"
	"strings"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
)

// MissingCounts returns the number of missing cells per schema column.
func MissingCounts(ds *data.Dataset) map[string]int {
	counts := make(map[string]int, len(ds.Schema.Numeric)+len(ds.Schema.Categorical))
	for j, name := range ds.Schema.Numeric {
		counts[name] = 0
		for i := 0; i < ds.Len(); i++ {
			if math.IsNaN(ds.Numeric[i][j]) {
				counts[name]++
			}
		}
	}
	for j, name := range ds.Schema.Categorical {
		counts[name] = 0
		for i := 0; i < ds.Len(); i++ {
			if ds.Categorical[i][j] == "" {
				counts[name]++
			}
		}
	}
	return counts
}

// CountDuplicates counts rows that repeat an earlier row exactly.
// Columns listed in ignore (e.g. a customer id) are left out of the comparison.
func CountDuplicates(t *data.Table, ignore ...string) int {
	skip := make(map[int]bool, len(ignore))
	for _, name := range ignore {
		if j := t.Index(name); j >= 0 {
			skip[j] = true
		}
	}
	seen := make(map[string]struct{}, len(t.Rows))
	dups := 0
	var b strings.Builder
	for _, row := range t.Rows {
		b.Reset()
		for j, v := range row {
			if skip[j] {
				continue
			}
			b.WriteString(strconv.Quote(v))
			b.WriteByte(',')
		}
		key := b.String()
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
