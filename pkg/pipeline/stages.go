package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/config"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/dataprep"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/model"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/segment"
)

// ProbabilityDecimals is the precision of churn_probability in the output table.
const ProbabilityDecimals = 6

// Load reads the input table and projects it onto the schema.
// Every failure is a *data.DataLoadError.
func Load(cfg Config) (*data.Table, *data.Dataset, error) {
	return data.LoadDataset(cfg.InputPath, cfg.Schema)
}

// Model is a fitted preprocessor and forest.
type Model struct {
	Preprocessor *dataprep.Preprocessor
	Forest       *model.RandomForest
	Imputations  []dataprep.Imputation
}

// NewForest builds an unfitted forest from its configuration.
func NewForest(fc config.ForestConfig) *model.RandomForest {
	return model.NewRandomForest(
		model.WithNEstimators(fc.Trees),
		model.WithForestMaxDepth(fc.MaxDepth),
		model.WithForestMinSamplesSplit(fc.MinSamplesSplit),
		model.WithForestMinSamplesLeaf(fc.MinSamplesLeaf),
		model.WithForestMaxFeatures(fc.MaxFeatures),
		model.WithForestRandomState(fc.Seed),
	)
}

// Fit imputes missing cells, fits the preprocessor and trains the forest
// on every row of ds.
func Fit(ds *data.Dataset, fc config.ForestConfig) (*Model, error) {
	filled, imputations := dataprep.Impute(ds)
	pre := dataprep.NewPreprocessor(ds.Schema)
	X, err := pre.FitTransform(filled)
	if err != nil {
		return nil, err
	}
	forest := NewForest(fc)
	if err := forest.Fit(X, filled.Labels); err != nil {
		return nil, err
	}
	return &Model{Preprocessor: pre, Forest: forest, Imputations: imputations}, nil
}

// PredictProba scores ds with the fitted model.
func (m *Model) PredictProba(ds *data.Dataset) ([]float64, error) {
	X, err := m.Preprocessor.Transform(ds)
	if err != nil {
		return nil, err
	}
	return m.Forest.PredictProba(X), nil
}

// Importances returns the top forest importances by encoded feature name.
func (m *Model) Importances(top int) []model.Importance {
	return model.RankImportances(m.Preprocessor.FeatureNames(), m.Forest.FeatureImportances(), top)
}

// Score returns P(churn) for every customer in ds. Categories the model
// has not seen encode to zeros and still receive a probability.
func Score(m *Model, ds *data.Dataset) ([]float64, error) {
	probs, err := m.PredictProba(ds)
	if err != nil {
		return nil, err
	}
	for i, p := range probs {
		if math.IsNaN(p) {
			return nil, fmt.Errorf("pipeline: no probability for row %d", i+1)
		}
		probs[i] = math.Min(1, math.Max(0, p))
	}
	return probs, nil
}

// Segment pairs every customer with its probability and tier.
func Segment(ds *data.Dataset, probs []float64) []ScoredCustomer {
	out := make([]ScoredCustomer, len(probs))
	for i, p := range probs {
		out[i] = ScoredCustomer{
			CustomerRecord: ds.Record(i),
			Probability:    p,
			Segment:        segment.Assign(p),
		}
	}
	return out
}

// Aggregates are the per-tier views of a scored population.
type Aggregates struct {
	Distribution []segment.Count
	Profile      []segment.ProfileRow
	Warnings     []error
}

// Aggregate counts customers per tier and averages the profile columns
// and the churn probability per tier.
func Aggregate(scored []ScoredCustomer, ds *data.Dataset, profileColumns []string) (*Aggregates, error) {
	segs := make([]segment.RiskSegment, len(scored))
	probs := make([]float64, len(scored))
	for i, s := range scored {
		segs[i] = s.Segment
		probs[i] = s.Probability
	}
	dist, warnings := segment.Distribution(segs)

	columns := make(map[string][]float64, len(profileColumns)+1)
	for _, name := range profileColumns {
		col, ok := ds.NumericColumn(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProfileColumn, name)
		}
		columns[name] = col
	}
	columns[data.ProbabilityColumn] = probs
	profile, err := segment.Profile(segs, columns)
	if err != nil {
		return nil, err
	}
	return &Aggregates{Distribution: dist, Profile: profile, Warnings: warnings}, nil
}

// ScoredTable appends churn_probability and risk_segment to a copy of t.
// Existing columns with those names are overwritten in place.
func ScoredTable(t *data.Table, scored []ScoredCustomer) (*data.Table, error) {
	if len(t.Rows) != len(scored) {
		return nil, fmt.Errorf("pipeline: %d scored customers for %d rows", len(scored), len(t.Rows))
	}
	out := &data.Table{Header: append([]string(nil), t.Header...)}
	probIdx := out.Index(data.ProbabilityColumn)
	if probIdx < 0 {
		probIdx = len(out.Header)
		out.Header = append(out.Header, data.ProbabilityColumn)
	}
	segIdx := out.Index(data.SegmentColumn)
	if segIdx < 0 {
		segIdx = len(out.Header)
		out.Header = append(out.Header, data.SegmentColumn)
	}
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cp := make([]string, len(out.Header))
		copy(cp, row)
		cp[probIdx] = strconv.FormatFloat(scored[i].Probability, 'f', ProbabilityDecimals, 64)
		cp[segIdx] = scored[i].Segment.String()
		out.Rows[i] = cp
	}
	return out, nil
}

// Persist writes the scored table to path atomically.
func Persist(t *data.Table, scored []ScoredCustomer, path string) error {
	out, err := ScoredTable(t, scored)
	if err != nil {
		return err
	}
	return data.WriteTable(path, out)
}

// Summary is the JSON document written next to the scored table.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	Rows       int       `json:"rows"`

	Thresholds struct {
		Medium float64 `json:"medium"`
		High   float64 `json:"high"`
	} `json:"thresholds"`

	Distribution    []segment.Count       `json:"distribution"`
	Profile         []segment.ProfileRow  `json:"profile"`
	Actions         map[string]string     `json:"actions"`
	TopFeatures     []model.Importance    `json:"top_features"`
	Imputations     []dataprep.Imputation `json:"imputations,omitempty"`
	TrainingMetrics model.Scores          `json:"training_metrics"`
	Warnings        []string              `json:"warnings,omitempty"`
}

// NewSummary describes a finished run for the summary file.
func NewSummary(cfg Config, res *Result) *Summary {
	s := &Summary{
		RunID:           res.RunID,
		StartedAt:       res.StartedAt,
		FinishedAt:      res.FinishedAt,
		Input:           cfg.InputPath,
		Output:          cfg.OutputPath,
		Rows:            len(res.Scored),
		Distribution:    res.Distribution,
		Profile:         res.Profile,
		Actions:         make(map[string]string, len(segment.All)),
		TopFeatures:     res.Importances,
		Imputations:     res.Imputations,
		TrainingMetrics: res.TrainingMetrics,
	}
	s.Thresholds.Medium = segment.MediumThreshold
	s.Thresholds.High = segment.HighThreshold
	for _, seg := range segment.All {
		s.Actions[seg.String()] = segment.RecommendedAction(seg)
	}
	for _, w := range res.Warnings {
		s.Warnings = append(s.Warnings, w.Error())
	}
	return s
}

// IsDataError reports whether err came from reading the input.
func IsDataError(err error) bool {
	var le *data.DataLoadError
	return errors.As(err, &le)
}
