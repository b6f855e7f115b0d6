package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/segment"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/stats"
)

// Columns read from a scored table besides the score columns.
const (
	TenureColumn   = "Tenure"
	CashbackColumn = "CashbackAmount"
)

// Customer is one row of a scored table.
type Customer struct {
	Row         []string
	Probability float64
	Segment     segment.RiskSegment
	Churn       int
	Tenure      float64 // NaN when absent
	Cashback    float64 // NaN when absent
}

// ParseScored reads the score, segment and label columns of t. The tenure
// and cashback columns are optional.
func ParseScored(t *data.Table, label string) ([]Customer, error) {
	probIdx, segIdx, labelIdx := t.Index(data.ProbabilityColumn), t.Index(data.SegmentColumn), t.Index(label)
	var missing []string
	if probIdx < 0 {
		missing = append(missing, data.ProbabilityColumn)
	}
	if segIdx < 0 {
		missing = append(missing, data.SegmentColumn)
	}
	if labelIdx < 0 {
		missing = append(missing, label)
	}
	if len(missing) > 0 {
		return nil, &data.DataLoadError{Missing: missing, Err: data.ErrMissingColumns}
	}
	tenureIdx, cashIdx := t.Index(TenureColumn), t.Index(CashbackColumn)

	out := make([]Customer, len(t.Rows))
	for i, row := range t.Rows {
		p, err := strconv.ParseFloat(strings.TrimSpace(row[probIdx]), 64)
		if err != nil || p < 0 || p > 1 {
			return nil, &data.DataLoadError{Row: i + 1, Column: data.ProbabilityColumn,
				Err: fmt.Errorf("%w: probability %q", data.ErrMalformedValue, row[probIdx])}
		}
		seg, err := segment.Parse(row[segIdx])
		if err != nil {
			return nil, &data.DataLoadError{Row: i + 1, Column: data.SegmentColumn, Err: err}
		}
		churn, err := strconv.ParseFloat(strings.TrimSpace(row[labelIdx]), 64)
		if err != nil || (churn != 0 && churn != 1) {
			return nil, &data.DataLoadError{Row: i + 1, Column: label,
				Err: fmt.Errorf("%w: label %q is not 0 or 1", data.ErrMalformedValue, row[labelIdx])}
		}
		out[i] = Customer{
			Row:         row,
			Probability: p,
			Segment:     seg,
			Churn:       int(churn),
			Tenure:      optionalFloat(row, tenureIdx),
			Cashback:    optionalFloat(row, cashIdx),
		}
	}
	return out, nil
}

func optionalFloat(row []string, j int) float64 {
	if j < 0 || j >= len(row) || data.IsMissing(row[j]) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ChurnGroup averages tenure and cashback over customers with one label.
type ChurnGroup struct {
	Churn        int     `json:"churn"`
	Customers    int     `json:"customers"`
	MeanTenure   float64 `json:"mean_tenure"`
	MeanCashback float64 `json:"mean_cashback"`
}

// KPIs are the headline numbers of a scored population.
type KPIs struct {
	Total           int             `json:"total"`
	Active          int             `json:"active"`
	Churned         int             `json:"churned"`
	ChurnRate       float64         `json:"churn_rate"`
	HighRisk        int             `json:"high_risk"`
	MeanProbability float64         `json:"mean_probability"`
	Segments        []segment.Count `json:"segments"`
	ByChurn         []ChurnGroup    `json:"by_churn"`
}

// ComputeKPIs summarizes cs. Every tier and both labels are always present.
func ComputeKPIs(cs []Customer) KPIs {
	k := KPIs{Total: len(cs)}
	segs := make([]segment.RiskSegment, len(cs))
	probs := make([]float64, len(cs))
	tenure := [2][]float64{}
	cashback := [2][]float64{}
	for i, c := range cs {
		segs[i] = c.Segment
		probs[i] = c.Probability
		if c.Churn == 1 {
			k.Churned++
		} else {
			k.Active++
		}
		if c.Segment == segment.High {
			k.HighRisk++
		}
		tenure[c.Churn] = append(tenure[c.Churn], c.Tenure)
		cashback[c.Churn] = append(cashback[c.Churn], c.Cashback)
	}
	if k.Total > 0 {
		k.ChurnRate = float64(k.Churned) / float64(k.Total)
	}
	k.MeanProbability = stats.Mean(probs)
	k.Segments, _ = segment.Distribution(segs)
	for label := 0; label <= 1; label++ {
		k.ByChurn = append(k.ByChurn, ChurnGroup{
			Churn:        label,
			Customers:    len(tenure[label]),
			MeanTenure:   stats.Mean(stats.DropNaN(tenure[label])),
			MeanCashback: stats.Mean(stats.DropNaN(cashback[label])),
		})
	}
	return k
}
