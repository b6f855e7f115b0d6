package pipeline

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
)

func TestExplore(t *testing.T) {
	table, err := data.ReadTable(strings.NewReader(
		"CustomerID,Tenure,Complain,PreferedOrderCat,Churn\n" +
			"1,1,1,Mobile,1\n" +
			"2,,1,Mobile,1\n" +
			"3,20,0,,0\n" +
			"4,30,0,Fashion,0\n" +
			"5,30,0,Fashion,0\n"))
	require.NoError(t, err)
	schema := data.Schema{Numeric: []string{"Tenure", "Complain"}, Categorical: []string{"PreferedOrderCat"}, Label: "Churn"}
	ds, err := data.NewDataset(table, schema)
	require.NoError(t, err)

	ex := Explore(table, ds, "CustomerID")
	assert.Equal(t, 5, ex.Rows)
	assert.Equal(t, 5, ex.Columns)
	assert.Equal(t, map[string]int{"Tenure": 1, "Complain": 0, "PreferedOrderCat": 1}, ex.Missing)
	assert.Equal(t, 1, ex.Duplicates)
	assert.Equal(t, map[string]int{"0": 3, "1": 2}, ex.LabelCounts)
	assert.InDelta(t, 0.4, ex.ChurnRate, 1e-12)
	require.Len(t, ex.Correlations, 2)
	assert.Equal(t, "Complain", ex.Correlations[0].Column)
	assert.InDelta(t, 1, ex.Correlations[0].Value, 1e-12)
	assert.Less(t, ex.Correlations[1].Value, 0.0)
	assert.Equal(t, 5, ex.Describe["Tenure"].Count, "described after imputation")
	require.Len(t, ex.Imputations, 2)
	assert.Equal(t, []CategoryRate{{Value: "Fashion", ChurnRate: 0}, {Value: "Mobile", ChurnRate: 1}},
		ex.ChurnByCategory["PreferedOrderCat"])

	for _, row := range ex.Cleaned.Rows {
		for _, cell := range row {
			assert.NotEmpty(t, cell)
		}
	}
}

func TestRecencyAnalysis(t *testing.T) {
	ds := &data.Dataset{
		Schema:      data.Schema{Numeric: []string{"DaySinceLastOrder"}, Label: "Churn"},
		Numeric:     [][]float64{{2}, {40}, {70}, {100}, {math.NaN()}, {5}},
		Categorical: make([][]string, 6),
		Labels:      []int{0, 1, 1, 0, 1, 0},
	}

	r, err := RecencyAnalysis(ds, "DaySinceLastOrder", DefaultRecencyThresholds)
	require.NoError(t, err)
	assert.Equal(t, []RecencyBucket{
		{Threshold: 30, Customers: 3, Churned: 2, ChurnRate: 2.0 / 3},
		{Threshold: 45, Customers: 2, Churned: 1, ChurnRate: 0.5},
		{Threshold: 60, Customers: 2, Churned: 1, ChurnRate: 0.5},
		{Threshold: 90, Customers: 1, Churned: 0, ChurnRate: 0},
	}, r.Buckets)
	require.NotNil(t, r.MinChurned)
	require.NotNil(t, r.MaxActive)
	assert.Equal(t, 40.0, *r.MinChurned)
	assert.Equal(t, 100.0, *r.MaxActive)
	assert.True(t, r.Overlaps())
	assert.Equal(t, 2, r.ByLabel["1"].Count)

	_, err = RecencyAnalysis(ds, "Tenure", nil)
	assert.Error(t, err)
}
