package dataprep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
)

func testSchema() data.Schema {
	return data.Schema{
		Numeric:     []string{"Tenure", "CashbackAmount"},
		Categorical: []string{"PreferedOrderCat"},
		Label:       "Churn",
	}
}

func testDataset() *data.Dataset {
	nan := math.NaN()
	return &data.Dataset{
		Schema: testSchema(),
		Numeric: [][]float64{
			{1, 100},
			{nan, 200},
			{5, 300},
			{9, nan},
		},
		Categorical: [][]string{{"Mobile"}, {"Fashion"}, {""}, {"Mobile"}},
		Labels:      []int{1, 0, 0, 1},
	}
}

func TestImpute(t *testing.T) {
	ds := testDataset()

	filled, report := Impute(ds)

	assert.Equal(t, 5.0, filled.Numeric[1][0])
	assert.Equal(t, 200.0, filled.Numeric[3][1])
	assert.Equal(t, "Mobile", filled.Categorical[2][0])
	assert.Equal(t, []Imputation{
		{Column: "Tenure", Strategy: "median", Filled: 1, Value: "5"},
		{Column: "CashbackAmount", Strategy: "median", Filled: 1, Value: "200"},
		{Column: "PreferedOrderCat", Strategy: "mode", Filled: 1, Value: "Mobile"},
	}, report)

	assert.True(t, math.IsNaN(ds.Numeric[1][0]), "source dataset is left untouched")
	assert.Equal(t, "", ds.Categorical[2][0])

	for col, n := range MissingCounts(filled) {
		assert.Zero(t, n, col)
	}
}

func TestMissingCounts(t *testing.T) {
	assert.Equal(t, map[string]int{
		"Tenure":           1,
		"CashbackAmount":   1,
		"PreferedOrderCat": 1,
	}, MissingCounts(testDataset()))
}

func TestCountDuplicates(t *testing.T) {
	table := &data.Table{
		Header: []string{"CustomerID", "Tenure", "Churn"},
		Rows: [][]string{
			{"1", "4", "1"},
			{"2", "4", "1"},
			{"3", "5", "0"},
			{"3", "5", "0"},
		},
	}
	assert.Equal(t, 1, CountDuplicates(table))
	assert.Equal(t, 2, CountDuplicates(table, "CustomerID"))
}

func TestOneHotEncoderUnknownCategory(t *testing.T) {
	enc := NewOneHotEncoder("PreferedOrderCat", "MaritalStatus")
	_, err := enc.Transform([][]string{{"Mobile", "Single"}})
	require.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, enc.Fit([][]string{
		{"Mobile", "Single"},
		{"Fashion", "Married"},
		{"Mobile", "Divorced"},
	}))
	assert.Equal(t, 5, enc.Width())
	assert.Equal(t, []string{
		"PreferedOrderCat_Fashion", "PreferedOrderCat_Mobile",
		"MaritalStatus_Divorced", "MaritalStatus_Married", "MaritalStatus_Single",
	}, enc.FeatureNames())

	out, err := enc.Transform([][]string{
		{"Mobile", "Married"},
		{"Grocery", "Single"},
		{"Grocery", "Widowed"},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0, 1, 0}, out[0])
	assert.Equal(t, []float64{0, 0, 0, 0, 1}, out[1])
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, out[2])
}

func TestPreprocessor(t *testing.T) {
	ds, _ := Impute(testDataset())
	p := NewPreprocessor(testSchema())

	_, err := p.Transform(ds)
	require.ErrorIs(t, err, ErrNotFitted)

	X, err := p.FitTransform(ds)
	require.NoError(t, err)
	require.Len(t, X, 4)
	assert.Equal(t, []string{"Tenure", "CashbackAmount", "PreferedOrderCat_Fashion", "PreferedOrderCat_Mobile"}, p.FeatureNames())

	for j := 0; j < 2; j++ {
		sum := 0.0
		for i := range X {
			sum += X[i][j]
		}
		assert.InDelta(t, 0, sum, 1e-9, "column %d is centered", j)
	}
	assert.Equal(t, []float64{1, 0}, X[1][2:])
	assert.Equal(t, []float64{0, 1}, X[2][2:])

	unseen := &data.Dataset{
		Schema:      testSchema(),
		Numeric:     [][]float64{{math.NaN(), 150}},
		Categorical: [][]string{{"Grocery"}},
		Labels:      []int{0},
	}
	Xu, err := p.Transform(unseen)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, Xu[0][2:])
	assert.False(t, math.IsNaN(Xu[0][0]), "missing numeric cells fall back to the fitted median")
}

func TestFillTable(t *testing.T) {
	table := &data.Table{
		Header: []string{"CustomerID", "Tenure", "PreferedOrderCat"},
		Rows: [][]string{
			{"1", "", "Mobile"},
			{"2", "4", "NA"},
		},
	}
	out := FillTable(table, []Imputation{
		{Column: "Tenure", Strategy: "median", Filled: 1, Value: "4"},
		{Column: "PreferedOrderCat", Strategy: "mode", Filled: 1, Value: "Mobile"},
	})
	assert.Equal(t, [][]string{{"1", "4", "Mobile"}, {"2", "4", "Mobile"}}, out.Rows)
	assert.Equal(t, "", table.Rows[0][1], "source table is left untouched")
}
