package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/config"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/segment"
)

var header = []string{
	"CustomerID", "Tenure", "WarehouseToHome", "NumberOfDeviceRegistered", "PreferedOrderCat",
	"SatisfactionScore", "MaritalStatus", "NumberOfAddress", "Complain",
	"DaySinceLastOrder", "CashbackAmount", "Churn",
}

// customers builds n rows in which churners have short tenure, complain
// and order rarely. Every eleventh row misses its tenure.
func customers(n int) [][]string {
	cats := []string{"Mobile", "Fashion", "Grocery", "Laptop & Accessory"}
	marital := []string{"Single", "Married"}
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		churn := i%3 == 0
		tenure, complain, recency, cashback := 10+i%20, 0, 2+i%6, 150+i%50
		if churn {
			tenure, complain, recency, cashback = i%4, 1, 10+i%15, 110+i%30
		} else if i%7 == 0 {
			complain = 1
		}
		label := "0"
		if churn {
			label = "1"
		}
		tenureCell := strconv.Itoa(tenure)
		if i%11 == 5 {
			tenureCell = ""
		}
		rows = append(rows, []string{
			strconv.Itoa(50001 + i), tenureCell, strconv.Itoa(8 + i%25), strconv.Itoa(1 + i%5), cats[i%4],
			strconv.Itoa(1 + i%5), marital[i%2], strconv.Itoa(1 + i%6), strconv.Itoa(complain),
			strconv.Itoa(recency), strconv.Itoa(cashback) + ".5", label,
		})
	}
	return rows
}

func writeCSV(t *testing.T, path string, hdr []string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := csv.NewWriter(f)
	require.NoError(t, w.Write(hdr))
	require.NoError(t, w.WriteAll(rows))
}

func quietLogger() log.FieldLogger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	c := config.Default()
	c.InputPath = filepath.Join(dir, "customers.csv")
	c.OutputPath = filepath.Join(dir, "out", "segments.csv")
	c.SummaryPath = filepath.Join(dir, "out", "summary.json")
	c.Forest.Trees = 15
	return FromConfig(c, quietLogger())
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	rows := customers(90)
	writeCSV(t, cfg.InputPath, header, rows)

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, res.Scored, len(rows))
	assert.NotEmpty(t, res.RunID)

	total := 0
	for _, c := range res.Distribution {
		total += c.Count
	}
	assert.Equal(t, len(rows), total, "tiers partition the population")
	require.Len(t, res.Distribution, 3)
	assert.Equal(t, []segment.RiskSegment{segment.Low, segment.Medium, segment.High},
		[]segment.RiskSegment{res.Distribution[0].Segment, res.Distribution[1].Segment, res.Distribution[2].Segment})

	for _, s := range res.Scored {
		assert.True(t, s.Probability >= 0 && s.Probability <= 1)
		assert.Equal(t, segment.Assign(s.Probability), s.Segment)
	}
	assert.Greater(t, res.TrainingMetrics.ROCAUC, 0.9)
	assert.LessOrEqual(t, len(res.Importances), 10)
	require.Len(t, res.Profile, 3)
	assert.Contains(t, res.Profile[0].Means, data.ProbabilityColumn)
	assert.Contains(t, res.Profile[0].Means, "Tenure")

	scored, err := data.ReadScored(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, append(append([]string(nil), header...), data.ProbabilityColumn, data.SegmentColumn), scored.Header)
	for i, row := range scored.Rows {
		assert.Equal(t, rows[i], row[:len(header)], "input columns are preserved")
		assert.Equal(t, res.Scored[i].Segment.String(), row[len(header)+1])
		p, err := strconv.ParseFloat(row[len(header)], 64)
		require.NoError(t, err)
		assert.InDelta(t, res.Scored[i].Probability, p, 1e-6)
		assert.Len(t, strings.Split(row[len(header)], ".")[1], ProbabilityDecimals)
	}

	raw, err := os.ReadFile(cfg.SummaryPath)
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, res.RunID, summary["run_id"])
	assert.EqualValues(t, len(rows), summary["rows"])
}

func TestRunKeepsSpanishHeaders(t *testing.T) {
	cfg := testConfig(t)
	spanish := []string{
		"CustomerID", "Antiguedad", "Distancia_Almacen", "Numero_Dispositivos", "Categoria_Preferida",
		"Nivel_Satisfaccion", "Estado_Civil", "Numero_Direcciones", "Queja",
		"Dias_Ultima_Compra", "Monto_Cashback", "Target",
	}
	rows := customers(40)
	writeCSV(t, cfg.InputPath, spanish, rows)

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, res.Scored, len(rows))

	scored, err := data.ReadScored(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, spanish, scored.Header[:len(spanish)], "input header text is preserved")
	assert.Equal(t, []string{data.ProbabilityColumn, data.SegmentColumn}, scored.Header[len(spanish):])
	for i, row := range scored.Rows {
		assert.Equal(t, rows[i], row[:len(spanish)])
	}
	assert.Equal(t, len(spanish)-1, scored.Index("Churn"))
}

func TestRunSummaryFailureWritesNoOutput(t *testing.T) {
	cfg := testConfig(t)
	writeCSV(t, cfg.InputPath, header, customers(30))
	blocker := filepath.Join(filepath.Dir(cfg.InputPath), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.SummaryPath = filepath.Join(blocker, "summary.json")

	_, err := Run(context.Background(), cfg)
	require.Error(t, err)
	_, statErr := os.Stat(cfg.OutputPath)
	assert.ErrorIs(t, statErr, fs.ErrNotExist, "scored table is written last")
}

func TestRunDeterministic(t *testing.T) {
	cfg := testConfig(t)
	writeCSV(t, cfg.InputPath, header, customers(60))

	a, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	b, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	for i := range a.Scored {
		assert.Equal(t, a.Scored[i].Probability, b.Scored[i].Probability)
	}
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunMissingLabelColumn(t *testing.T) {
	cfg := testConfig(t)
	hdr := header[:len(header)-1]
	rows := customers(20)
	for i := range rows {
		rows[i] = rows[i][:len(hdr)]
	}
	writeCSV(t, cfg.InputPath, hdr, rows)

	_, err := Run(context.Background(), cfg)
	var le *data.DataLoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, []string{"Churn"}, le.Missing)
	assert.True(t, IsDataError(err))

	_, statErr := os.Stat(cfg.OutputPath)
	assert.ErrorIs(t, statErr, fs.ErrNotExist, "no output on load failure")
	_, statErr = os.Stat(cfg.SummaryPath)
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestRunMissingInput(t *testing.T) {
	cfg := testConfig(t)

	_, err := Run(context.Background(), cfg)
	require.True(t, IsDataError(err))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, statErr := os.Stat(cfg.OutputPath)
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestRunCanceled(t *testing.T) {
	cfg := testConfig(t)
	writeCSV(t, cfg.InputPath, header, customers(20))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(cfg.OutputPath)
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestRunUnknownProfileColumn(t *testing.T) {
	cfg := testConfig(t)
	cfg.ProfileColumns = []string{"Tenure", "Age"}

	_, err := Run(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownProfileColumn)
}

func TestScoreUnseenCategory(t *testing.T) {
	cfg := testConfig(t)
	writeCSV(t, cfg.InputPath, header, customers(45))
	_, ds, err := Load(cfg)
	require.NoError(t, err)

	m, err := Fit(ds, cfg.Forest)
	require.NoError(t, err)

	unseen := &data.Dataset{
		Schema:      ds.Schema,
		Numeric:     [][]float64{ds.Numeric[0], {math.NaN(), 12, 3, 2, 4, 1, 20, 120}},
		Categorical: [][]string{{"Toys", "Widowed"}, {"", ""}},
		Labels:      []int{0, 1},
	}
	probs, err := Score(m, unseen)
	require.NoError(t, err)
	require.Len(t, probs, 2)
	for _, p := range probs {
		assert.True(t, p >= 0 && p <= 1)
	}
}

func TestAggregateEmptySegments(t *testing.T) {
	ds := &data.Dataset{
		Schema:      data.Schema{Numeric: []string{"Tenure"}, Label: "Churn"},
		Numeric:     [][]float64{{4}, {8}},
		Categorical: [][]string{{}, {}},
		Labels:      []int{0, 0},
	}
	scored := Segment(ds, []float64{0.1, 0.2})

	agg, err := Aggregate(scored, ds, []string{"Tenure"})
	require.NoError(t, err)
	assert.Equal(t, 2, agg.Distribution[0].Count)
	assert.Zero(t, agg.Distribution[1].Count)
	assert.Zero(t, agg.Distribution[2].Count)
	require.Len(t, agg.Warnings, 2)
	var empty *segment.EmptySegmentError
	require.True(t, errors.As(agg.Warnings[0], &empty))
	assert.Equal(t, segment.Medium, empty.Segment)

	assert.Equal(t, 6.0, agg.Profile[0].Means["Tenure"])
	assert.InDelta(t, 0.15, agg.Profile[0].Means[data.ProbabilityColumn], 1e-12)
	assert.Zero(t, agg.Profile[2].Count)
}

func TestScoredTableOverwritesScoreColumns(t *testing.T) {
	table := &data.Table{
		Header: []string{"CustomerID", data.ProbabilityColumn, data.SegmentColumn},
		Rows:   [][]string{{"1", "0.900000", "High"}},
	}
	ds := &data.Dataset{Numeric: [][]float64{{}}, Categorical: [][]string{{}}, Labels: []int{0}}

	out, err := ScoredTable(table, Segment(ds, []float64{0.3}))
	require.NoError(t, err)
	assert.Equal(t, table.Header, out.Header)
	assert.Equal(t, []string{"1", "0.300000", "Low"}, out.Rows[0])
	assert.Equal(t, "0.900000", table.Rows[0][1])

	_, err = ScoredTable(table, nil)
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	cfg := testConfig(t)
	writeCSV(t, cfg.InputPath, header, customers(100))

	ev, err := Evaluate(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 100, ev.TrainRows+ev.TestRows)
	assert.Equal(t, 20, ev.TestRows)
	require.Len(t, ev.Models, 3)
	assert.Equal(t, "random_forest", ev.Models[2].Name)
	for _, m := range ev.Models {
		assert.True(t, m.Scores.ROCAUC >= 0 && m.Scores.ROCAUC <= 1, m.Name)
		cm := m.Scores.Confusion
		assert.Equal(t, ev.TestRows, cm.TN+cm.FP+cm.FN+cm.TP, m.Name)
	}
	assert.NotEmpty(t, ev.TopFeatures)

	require.NotNil(t, ev.CrossValidation)
	assert.Equal(t, 5, ev.CrossValidation.Folds)
	assert.Len(t, ev.CrossValidation.ROCAUC, 5)
	assert.Greater(t, ev.CrossValidation.Mean, 0.5)

	cfg.CVFolds = 0
	ev, err = Evaluate(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, ev.CrossValidation)
}
