package report

import (
	"bytes"
	"errors"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/model"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/segment"
)

// Chart sizes.
const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 4 * vg.Inch
)

var errNoData = errors.New("report: nothing to plot")

// segmentColors follow the tier order Low, Medium, High.
var segmentColors = []color.RGBA{
	{R: 46, G: 139, B: 87, A: 255},
	{R: 230, G: 160, B: 30, A: 255},
	{R: 200, G: 40, B: 40, A: 255},
}

// Chart is a rendered PNG.
type Chart struct {
	Name  string // file stem, e.g. "segment_distribution"
	Title string
	PNG   []byte
}

// SegmentDistributionPlot draws one bar per tier in Low, Medium, High order.
func SegmentDistributionPlot(counts []segment.Count) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Customers by churn risk"
	p.Y.Label.Text = "Customers"

	names := make([]string, len(counts))
	w := vg.Points(40)
	for i, c := range counts {
		names[i] = c.Segment.String()
		vals := make(plotter.Values, len(counts))
		vals[i] = float64(c.Count)
		bars, err := plotter.NewBarChart(vals, w)
		if err != nil {
			return nil, err
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = segmentColors[int(c.Segment)%len(segmentColors)]
		p.Add(bars)
	}
	p.NominalX(names...)
	return p, nil
}

// ImportancePlot draws a horizontal bar per feature, largest on top.
func ImportancePlot(imps []model.Importance) (*plot.Plot, error) {
	if len(imps) == 0 {
		return nil, errNoData
	}
	p := plot.New()
	p.Title.Text = "Feature importance (random forest)"
	p.X.Label.Text = "Mean decrease in impurity"

	n := len(imps)
	vals := make(plotter.Values, n)
	names := make([]string, n)
	for i, imp := range imps {
		vals[n-1-i] = imp.Weight
		names[n-1-i] = imp.Feature
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(14))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = color.RGBA{R: 70, G: 110, B: 180, A: 255}
	p.Add(bars)
	p.NominalY(names...)
	return p, nil
}

// ProbabilityHistogramPlot bins churn probabilities over [0, 1].
func ProbabilityHistogramPlot(cs []Customer, bins int) (*plot.Plot, error) {
	if len(cs) == 0 {
		return nil, errNoData
	}
	vals := make(plotter.Values, len(cs))
	for i, c := range cs {
		vals[i] = c.Probability
	}
	p := plot.New()
	p.Title.Text = "Churn probability"
	p.X.Label.Text = "P(churn)"
	p.Y.Label.Text = "Customers"

	h, err := plotter.NewHist(vals, bins)
	if err != nil {
		return nil, err
	}
	h.FillColor = color.RGBA{R: 70, G: 110, B: 180, A: 255}
	p.Add(h)
	for _, th := range []float64{segment.MediumThreshold, segment.HighThreshold} {
		l, err := plotter.NewLine(plotter.XYs{{X: th, Y: 0}, {X: th, Y: float64(len(cs))}})
		if err != nil {
			return nil, err
		}
		l.Color = color.RGBA{A: 255}
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(l)
	}
	p.X.Min, p.X.Max = 0, 1
	p.Y.Max = math.Max(1, maxBin(h))
	return p, nil
}

func maxBin(h *plotter.Histogram) float64 {
	m := 0.0
	for _, b := range h.Bins {
		m = math.Max(m, b.Weight)
	}
	return m * 1.05
}

// TenureScatterPlot plots tenure against probability, one series and glyph
// shape per tier.
// Customers without a tenure are left out.
func TenureScatterPlot(cs []Customer) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Tenure vs churn probability"
	p.X.Label.Text = "Tenure (months)"
	p.Y.Label.Text = "P(churn)"
	p.Legend.Top = true

	added := false
	for _, seg := range segment.All {
		pts := make(plotter.XYs, 0)
		for _, c := range cs {
			if c.Segment == seg && !math.IsNaN(c.Tenure) {
				pts = append(pts, plotter.XY{X: c.Tenure, Y: c.Probability})
			}
		}
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		s.Color = segmentColors[int(seg)]
		s.Shape = plotutil.Shape(int(seg))
		s.Radius = vg.Points(2)
		p.Add(s)
		p.Legend.Add(seg.String(), s)
		added = true
	}
	if !added {
		return nil, errNoData
	}
	p.Y.Min, p.Y.Max = 0, 1
	return p, nil
}

// renderPNG draws p at the report chart size.
func renderPNG(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
