// Package report renders a scored population as a self-contained HTML
// page: headline KPIs, tier profiles and gonum/plot charts embedded as PNG.
package report

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/plot"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/model"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/segment"
)

// Options carry the run details that are not in the scored table.
type Options struct {
	Title       string
	RunID       string
	Profile     []segment.ProfileRow
	Importances []model.Importance
	Metrics     *model.Scores
	Bins        int // histogram bins, 0 => 20
	Now         func() time.Time
}

// Action is the recommended retention action for one tier.
type Action struct {
	Segment segment.RiskSegment
	Text    string
}

// Report is a built report ready to render.
type Report struct {
	Title       string
	RunID       string
	GeneratedAt time.Time
	KPIs        KPIs
	Profile     []segment.ProfileRow
	Columns     []string // profile columns in display order
	Importances []model.Importance
	Metrics     *model.Scores
	Actions     []Action
	Charts      []Chart
}

// Build computes the KPIs and renders every chart. Charts with nothing to
// draw are skipped.
func Build(cs []Customer, opts Options) (*Report, error) {
	if len(cs) == 0 {
		return nil, errors.New("report: no customers")
	}
	if opts.Title == "" {
		opts.Title = "Churn risk segmentation"
	}
	if opts.Bins <= 0 {
		opts.Bins = 20
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	r := &Report{
		Title:       opts.Title,
		RunID:       opts.RunID,
		GeneratedAt: now().UTC(),
		KPIs:        ComputeKPIs(cs),
		Profile:     opts.Profile,
		Columns:     profileColumns(opts.Profile),
		Importances: opts.Importances,
		Metrics:     opts.Metrics,
	}
	for _, s := range segment.All {
		r.Actions = append(r.Actions, Action{Segment: s, Text: segment.RecommendedAction(s)})
	}

	type builder struct {
		name, title string
		build       func() (*plot.Plot, error)
	}
	builders := []builder{
		{"segment_distribution", "Customers by churn risk", func() (*plot.Plot, error) { return SegmentDistributionPlot(r.KPIs.Segments) }},
		{"probability_histogram", "Churn probability", func() (*plot.Plot, error) { return ProbabilityHistogramPlot(cs, opts.Bins) }},
		{"tenure_vs_probability", "Tenure vs churn probability", func() (*plot.Plot, error) { return TenureScatterPlot(cs) }},
		{"feature_importance", "Feature importance", func() (*plot.Plot, error) { return ImportancePlot(opts.Importances) }},
	}
	for _, b := range builders {
		p, err := b.build()
		if errors.Is(err, errNoData) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("report: %s chart: %w", b.name, err)
		}
		png, err := renderPNG(p)
		if err != nil {
			return nil, fmt.Errorf("report: render %s: %w", b.name, err)
		}
		r.Charts = append(r.Charts, Chart{Name: b.name, Title: b.title, PNG: png})
	}
	return r, nil
}

func profileColumns(rows []segment.ProfileRow) []string {
	if len(rows) == 0 {
		return nil
	}
	var cols []string
	for name := range rows[0].Means {
		if name != data.ProbabilityColumn {
			cols = append(cols, name)
		}
	}
	sort.Strings(cols)
	if _, ok := rows[0].Means[data.ProbabilityColumn]; ok {
		cols = append(cols, data.ProbabilityColumn)
	}
	return cols
}

// Render writes the report as one HTML document.
func (r *Report) Render(w io.Writer) error {
	return page.Execute(w, r)
}

// WriteFile renders the report to path atomically.
func (r *Report) WriteFile(path string) error {
	return data.WriteAtomic(path, r.Render)
}

// WriteCharts saves every chart as <dir>/<name>.png.
func (r *Report) WriteCharts(dir string) error {
	for _, c := range r.Charts {
		png := c.PNG
		err := data.WriteAtomic(filepath.Join(dir, c.Name+".png"), func(w io.Writer) error {
			_, err := w.Write(png)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func dataURL(png []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
}

func percent(f float64) string { return fmt.Sprintf("%.1f%%", f*100) }

func fixed(f float64) string { return fmt.Sprintf("%.3f", f) }

var page = template.Must(template.New("report").Funcs(template.FuncMap{
	"dataURL": dataURL,
	"percent": percent,
	"fixed":   fixed,
}).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;color:#222}
.kpis{display:flex;gap:1rem;flex-wrap:wrap}
.kpi{border:1px solid #ddd;border-radius:8px;padding:.8rem 1.2rem;min-width:9rem}
.kpi b{display:block;font-size:1.6rem}
table{border-collapse:collapse;margin:1rem 0}
td,th{border:1px solid #ddd;padding:.3rem .7rem;text-align:right}
th:first-child,td:first-child{text-align:left}
.charts img{max-width:48%;margin:.5rem}
.muted{color:#777}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="muted">Generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}{{if .RunID}} &middot; run {{.RunID}}{{end}}</p>

<div class="kpis">
  <div class="kpi">Customers<b>{{.KPIs.Total}}</b></div>
  <div class="kpi">Active<b>{{.KPIs.Active}}</b></div>
  <div class="kpi">Churned<b>{{.KPIs.Churned}}</b></div>
  <div class="kpi">Churn rate<b>{{percent .KPIs.ChurnRate}}</b></div>
  <div class="kpi">High risk<b>{{.KPIs.HighRisk}}</b></div>
  <div class="kpi">Mean P(churn)<b>{{fixed .KPIs.MeanProbability}}</b></div>
</div>

<h2>Segments</h2>
<table>
<tr><th>Segment</th><th>Customers</th><th>Share</th><th>Action</th></tr>
{{range $i, $c := .KPIs.Segments}}<tr><td>{{$c.Segment}}</td><td>{{$c.Count}}</td><td>{{percent $c.Share}}</td><td>{{(index $.Actions $i).Text}}</td></tr>
{{end}}</table>

{{if .Profile}}<h2>Segment profiles</h2>
<table>
<tr><th>Segment</th><th>Customers</th>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{range $row := .Profile}}<tr><td>{{$row.Segment}}</td><td>{{$row.Count}}</td>{{range $.Columns}}<td>{{fixed (index $row.Means .)}}</td>{{end}}</tr>
{{end}}</table>{{end}}

<h2>By churn status</h2>
<table>
<tr><th>Churn</th><th>Customers</th><th>Mean tenure</th><th>Mean cashback</th></tr>
{{range .KPIs.ByChurn}}<tr><td>{{.Churn}}</td><td>{{.Customers}}</td><td>{{fixed .MeanTenure}}</td><td>{{fixed .MeanCashback}}</td></tr>
{{end}}</table>

{{with .Metrics}}<h2>Training fit</h2>
<p class="muted">Measured on the customers the model was trained on.</p>
<table>
<tr><th>Accuracy</th><th>Precision</th><th>Recall</th><th>F1</th><th>ROC AUC</th></tr>
<tr><td>{{fixed .Accuracy}}</td><td>{{fixed .Precision}}</td><td>{{fixed .Recall}}</td><td>{{fixed .F1}}</td><td>{{fixed .ROCAUC}}</td></tr>
</table>{{end}}

{{if .Importances}}<h2>Top features</h2>
<table>
<tr><th>Feature</th><th>Importance</th></tr>
{{range .Importances}}<tr><td>{{.Feature}}</td><td>{{fixed .Weight}}</td></tr>
{{end}}</table>{{end}}

<div class="charts">
{{range .Charts}}<figure><img alt="{{.Title}}" src="{{dataURL .PNG}}"><figcaption>{{.Title}}</figcaption></figure>
{{end}}</div>
</body>
</html>
`))
