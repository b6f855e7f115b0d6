package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/model"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/segment"
)

func scoredTable() *data.Table {
	return &data.Table{
		Header: []string{"CustomerID", "Tenure", "CashbackAmount", "Churn", data.ProbabilityColumn, data.SegmentColumn},
		Rows: [][]string{
			{"1", "2", "120", "1", "0.910000", "High"},
			{"2", "", "130", "1", "0.550000", "Medium"},
			{"3", "20", "200", "0", "0.100000", "Low"},
			{"4", "30", "", "0", "0.050000", "Low"},
		},
	}
}

func TestParseScored(t *testing.T) {
	cs, err := ParseScored(scoredTable(), "Churn")
	require.NoError(t, err)
	require.Len(t, cs, 4)
	assert.Equal(t, segment.High, cs[0].Segment)
	assert.Equal(t, 0.91, cs[0].Probability)
	assert.Equal(t, 1, cs[1].Churn)
	assert.True(t, math.IsNaN(cs[1].Tenure))
	assert.Equal(t, "3", cs[2].Row[0])
}

func TestParseScoredErrors(t *testing.T) {
	_, err := ParseScored(&data.Table{Header: []string{"CustomerID"}}, "Churn")
	var le *data.DataLoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, []string{data.ProbabilityColumn, data.SegmentColumn, "Churn"}, le.Missing)

	bad := scoredTable()
	bad.Rows[2][4] = "1.5"
	_, err = ParseScored(bad, "Churn")
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 3, le.Row)

	bad = scoredTable()
	bad.Rows[0][5] = "Extreme"
	_, err = ParseScored(bad, "Churn")
	assert.Error(t, err)
}

func TestComputeKPIs(t *testing.T) {
	cs, err := ParseScored(scoredTable(), "Churn")
	require.NoError(t, err)

	k := ComputeKPIs(cs)
	assert.Equal(t, 4, k.Total)
	assert.Equal(t, 2, k.Active)
	assert.Equal(t, 2, k.Churned)
	assert.Equal(t, 0.5, k.ChurnRate)
	assert.Equal(t, 1, k.HighRisk)
	assert.InDelta(t, 0.4025, k.MeanProbability, 1e-12)
	assert.Equal(t, []int{2, 1, 1}, []int{k.Segments[0].Count, k.Segments[1].Count, k.Segments[2].Count})
	assert.Equal(t, []ChurnGroup{
		{Churn: 0, Customers: 2, MeanTenure: 25, MeanCashback: 200},
		{Churn: 1, Customers: 2, MeanTenure: 2, MeanCashback: 125},
	}, k.ByChurn)

	empty := ComputeKPIs(nil)
	assert.Zero(t, empty.ChurnRate)
	assert.Len(t, empty.Segments, 3)
}

func TestBuildAndRender(t *testing.T) {
	cs, err := ParseScored(scoredTable(), "Churn")
	require.NoError(t, err)
	fixedNow := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	r, err := Build(cs, Options{
		RunID: "run-1",
		Profile: []segment.ProfileRow{
			{Segment: segment.Low, Count: 2, Means: map[string]float64{"Tenure": 25, data.ProbabilityColumn: 0.075}},
			{Segment: segment.Medium, Count: 1, Means: map[string]float64{"Tenure": 0, data.ProbabilityColumn: 0.55}},
			{Segment: segment.High, Count: 1, Means: map[string]float64{"Tenure": 2, data.ProbabilityColumn: 0.91}},
		},
		Importances: []model.Importance{{Feature: "Tenure", Weight: 0.6}, {Feature: "Complain", Weight: 0.4}},
		Metrics:     &model.Scores{Accuracy: 1, ROCAUC: 1},
		Now:         func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	require.Len(t, r.Charts, 4)
	assert.Equal(t, []string{"Tenure", data.ProbabilityColumn}, r.Columns)
	for _, c := range r.Charts {
		assert.True(t, bytes.HasPrefix(c.PNG, []byte("\x89PNG")), c.Name)
	}

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	html := buf.String()
	assert.Contains(t, html, "data:image/png;base64,")
	assert.Contains(t, html, "2024-05-01 12:00 UTC")
	assert.Contains(t, html, "run-1")
	assert.Contains(t, html, "<td>High</td><td>1</td><td>25.0%</td>")
	assert.Contains(t, html, segment.RecommendedAction(segment.High))
	assert.Equal(t, 4, strings.Count(html, "<figure>"))

	dir := t.TempDir()
	require.NoError(t, r.WriteFile(filepath.Join(dir, "report.html")))
	written, err := os.ReadFile(filepath.Join(dir, "report.html"))
	require.NoError(t, err)
	assert.Equal(t, html, string(written))

	require.NoError(t, r.WriteCharts(filepath.Join(dir, "charts")))
	_, err = os.Stat(filepath.Join(dir, "charts", "segment_distribution.png"))
	assert.NoError(t, err)
}

func TestBuildWithoutImportances(t *testing.T) {
	cs, err := ParseScored(scoredTable(), "Churn")
	require.NoError(t, err)

	r, err := Build(cs, Options{})
	require.NoError(t, err)
	assert.Len(t, r.Charts, 3)
	assert.Equal(t, "Churn risk segmentation", r.Title)

	_, err = Build(nil, Options{})
	assert.Error(t, err)
}
