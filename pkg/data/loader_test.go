package data

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `CustomerID,Tenure,WarehouseToHome,NumberOfDeviceRegistered,PreferedOrderCat,SatisfactionScore,MaritalStatus,NumberOfAddress,Complain,DaySinceLastOrder,CashbackAmount,Churn
1,15,29,4,Laptop & Accessory,3,Single,2,0,7,143.32,0
2,7,25,4,Mobile,1,Married,2,0,7,129.29,0
3,,13,3,Mobile,3,Single,2,1,,168.54,1
4,0,15,4,,5,Married,8,0,2,230.27,1
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDataset(t *testing.T) {
	path := writeFile(t, "customers.csv", sampleCSV)

	table, ds, err := LoadDataset(path, DefaultSchema())
	require.NoError(t, err)

	assert.Equal(t, 4, ds.Len())
	assert.Len(t, table.Header, 12)
	assert.Equal(t, []int{0, 0, 1, 1}, ds.Labels)

	tenure, ok := ds.NumericColumn("Tenure")
	require.True(t, ok)
	assert.Equal(t, 15.0, tenure[0])
	assert.True(t, math.IsNaN(tenure[2]))

	cat, ok := ds.CategoricalColumn("PreferedOrderCat")
	require.True(t, ok)
	assert.Equal(t, []string{"Laptop & Accessory", "Mobile", "Mobile", ""}, cat)

	rec := ds.Record(1)
	assert.Equal(t, 1, rec.Row)
	assert.Equal(t, 0, rec.Label)
	assert.Equal(t, "Married", rec.Categorical[1])
}

func TestLoadTableMissingFile(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "nope.csv"), DefaultSchema())

	var le *DataLoadError
	require.ErrorAs(t, err, &le)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLoadTableMissingColumns(t *testing.T) {
	body := strings.ReplaceAll(sampleCSV, ",Churn\n", ",Other\n")
	body = strings.Replace(body, "Tenure,", "Antiquity,", 1)
	path := writeFile(t, "customers.csv", body)

	_, err := LoadTable(path, DefaultSchema())

	var le *DataLoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Equal(t, []string{"Tenure", "Churn"}, le.Missing)
	assert.Contains(t, err.Error(), "Tenure")
	assert.Contains(t, err.Error(), "Churn")
}

func TestLoadDatasetMalformedCells(t *testing.T) {
	tests := []struct {
		name   string
		from   string
		to     string
		column string
	}{
		{name: "non numeric", from: "2,7,25", to: "2,seven,25", column: "Tenure"},
		{name: "bad label", from: "230.27,1", to: "230.27,yes", column: "Churn"},
		{name: "missing label", from: "143.32,0", to: "143.32,", column: "Churn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "customers.csv", strings.Replace(sampleCSV, tt.from, tt.to, 1))

			_, _, err := LoadDataset(path, DefaultSchema())

			var le *DataLoadError
			require.ErrorAs(t, err, &le)
			assert.ErrorIs(t, err, ErrMalformedValue)
			assert.Equal(t, tt.column, le.Column)
			assert.Equal(t, path, le.Path)
		})
	}
}

func TestLoadTableEmpty(t *testing.T) {
	path := writeFile(t, "empty.csv", "Tenure,Churn\n")
	_, err := LoadTable(path, Schema{Numeric: []string{"Tenure"}, Label: "Churn"})
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestReadTableSpanishHeadersAndSemicolons(t *testing.T) {
	body := "Antiguedad;Categoria_Preferida;Target\n4;Mobile;1\n10;Fashion;0\n"
	table, err := ReadTable(strings.NewReader("\ufeff" + body))
	require.NoError(t, err)

	assert.Equal(t, []string{"Antiguedad", "Categoria_Preferida", "Target"}, table.Header)
	assert.Equal(t, 2, table.Index("Churn"))
	assert.Equal(t, 2, table.Index("Target"))
	col, ok := table.Column("PreferedOrderCat")
	require.True(t, ok)
	assert.Equal(t, []string{"Mobile", "Fashion"}, col)
}

func TestWriteTableRoundTrip(t *testing.T) {
	in := writeFile(t, "customers.csv", sampleCSV)
	table, err := LoadTable(in, DefaultSchema())
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "nested", "scored.csv")
	require.NoError(t, WriteTable(out, table))

	back, err := LoadTable(out, DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, table.Header, back.Header)
	assert.Equal(t, table.Rows, back.Rows)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, WriteJSON(out, map[string]int{"High": 3}))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"High": 3}`, string(raw))
}

func TestReadScoredRequiresScoreColumns(t *testing.T) {
	path := writeFile(t, "scored.csv", sampleCSV)
	_, err := ReadScored(path)

	var le *DataLoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, []string{ProbabilityColumn, SegmentColumn}, le.Missing)
}
