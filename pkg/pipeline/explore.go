package pipeline

import (
	"fmt"
	"math"
	"sort"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/dataprep"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/stats"
)

// Correlation is the Pearson correlation of one column with the label.
type Correlation struct {
	Column string  `json:"column"`
	Value  float64 `json:"value"`
}

// CategoryRate is the churn rate among customers sharing one category.
type CategoryRate struct {
	Value     string  `json:"value"`
	ChurnRate float64 `json:"churn_rate"`
}

// Exploration is a first look at the input before any modeling.
// Correlations are sorted from most positive to most negative.
type Exploration struct {
	Rows            int                       `json:"rows"`
	Columns         int                       `json:"columns"`
	Missing         map[string]int            `json:"missing"`
	Duplicates      int                       `json:"duplicates"`
	LabelCounts     map[string]int            `json:"label_counts"`
	ChurnRate       float64                   `json:"churn_rate"`
	Describe        map[string]stats.Summary  `json:"describe"`
	Correlations    []Correlation             `json:"correlations"`
	ChurnByCategory map[string][]CategoryRate `json:"churn_by_category"`
	Imputations     []dataprep.Imputation     `json:"imputations,omitempty"`

	// Cleaned is the input with missing cells imputed.
	Cleaned *data.Table `json:"-"`
}

// Explore counts missing cells and duplicates, imputes, and summarizes
// every numeric column together with its correlation to the label.
// Categorical columns get the churn rate of each category.
// Duplicates ignore the columns in idColumns.
func Explore(t *data.Table, ds *data.Dataset, idColumns ...string) *Exploration {
	filled, imputations := dataprep.Impute(ds)
	ex := &Exploration{
		Rows:            ds.Len(),
		Columns:         len(t.Header),
		Missing:         dataprep.MissingCounts(ds),
		Duplicates:      dataprep.CountDuplicates(t, idColumns...),
		LabelCounts:     map[string]int{"0": 0, "1": 0},
		Describe:        make(map[string]stats.Summary, len(ds.Schema.Numeric)),
		ChurnByCategory: make(map[string][]CategoryRate, len(ds.Schema.Categorical)),
		Imputations:     imputations,
		Cleaned:         dataprep.FillTable(t, imputations),
	}
	labels := make([]float64, ds.Len())
	for i, l := range ds.Labels {
		ex.LabelCounts[fmt.Sprint(l)]++
		labels[i] = float64(l)
	}
	if ds.Len() > 0 {
		ex.ChurnRate = float64(ex.LabelCounts["1"]) / float64(ds.Len())
	}
	for _, name := range ds.Schema.Numeric {
		col, _ := filled.NumericColumn(name)
		ex.Describe[name] = stats.Describe(col)
		ex.Correlations = append(ex.Correlations, Correlation{Column: name, Value: stats.Correlation(col, labels)})
	}
	sort.SliceStable(ex.Correlations, func(a, b int) bool {
		return ex.Correlations[a].Value > ex.Correlations[b].Value
	})
	for _, name := range ds.Schema.Categorical {
		col, _ := filled.CategoricalColumn(name)
		keys, rates := stats.GroupMean(labels, col)
		for i, k := range keys {
			ex.ChurnByCategory[name] = append(ex.ChurnByCategory[name], CategoryRate{Value: k, ChurnRate: rates[i]})
		}
	}
	return ex
}

// DefaultRecencyThresholds are the day cut-offs checked by RecencyAnalysis.
var DefaultRecencyThresholds = []float64{30, 45, 60, 90}

// RecencyBucket describes customers whose recency exceeds Threshold.
type RecencyBucket struct {
	Threshold float64 `json:"threshold"`
	Customers int     `json:"customers"`
	Churned   int     `json:"churned"`
	ChurnRate float64 `json:"churn_rate"`
}

// Recency tests whether days since the last order could define churn on
// its own. Overlap between MinChurned and MaxActive means it cannot.
type Recency struct {
	Column     string                   `json:"column"`
	Buckets    []RecencyBucket          `json:"buckets"`
	ByLabel    map[string]stats.Summary `json:"by_label"`
	MinChurned *float64                 `json:"min_churned,omitempty"`
	MaxActive  *float64                 `json:"max_active,omitempty"`
}

// Overlaps reports whether some active customer is at least as inactive
// as some churned customer.
func (r *Recency) Overlaps() bool {
	return r.MinChurned != nil && r.MaxActive != nil && *r.MaxActive >= *r.MinChurned
}

// RecencyAnalysis buckets customers by a recency column. Missing values
// are left out.
func RecencyAnalysis(ds *data.Dataset, column string, thresholds []float64) (*Recency, error) {
	col, ok := ds.NumericColumn(column)
	if !ok {
		return nil, fmt.Errorf("pipeline: %q is not a numeric column", column)
	}
	r := &Recency{Column: column, ByLabel: make(map[string]stats.Summary, 2)}
	var active, churned []float64
	for i, v := range col {
		if math.IsNaN(v) {
			continue
		}
		if ds.Labels[i] == 1 {
			churned = append(churned, v)
		} else {
			active = append(active, v)
		}
	}
	r.ByLabel["0"] = stats.Describe(active)
	r.ByLabel["1"] = stats.Describe(churned)
	if len(churned) > 0 {
		lo, _ := stats.MinMax(churned)
		r.MinChurned = &lo
	}
	if len(active) > 0 {
		_, hi := stats.MinMax(active)
		r.MaxActive = &hi
	}

	for _, th := range thresholds {
		b := RecencyBucket{Threshold: th}
		for i, v := range col {
			if math.IsNaN(v) || v <= th {
				continue
			}
			b.Customers++
			b.Churned += ds.Labels[i]
		}
		if b.Customers > 0 {
			b.ChurnRate = float64(b.Churned) / float64(b.Customers)
		}
		r.Buckets = append(r.Buckets, b)
	}
	return r, nil
}
