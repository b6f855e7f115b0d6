package dataprep

import (
	"errors"
	"math"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/data"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/stats"
)

var ErrNotFitted = errors.New("dataprep: transform before fit")

// Preprocessor turns a Dataset into a model matrix: standardized numeric
// columns followed by one-hot categorical columns.
type Preprocessor struct {
	Schema data.Schema

	scaler  *stats.StandardScaler
	encoder *OneHotEncoder
	fill    []float64 // per numeric column, used for NaN cells
}

func NewPreprocessor(schema data.Schema) *Preprocessor {
	return &Preprocessor{Schema: schema}
}

// Fit learns scaling parameters and category sets from ds.
func (p *Preprocessor) Fit(ds *data.Dataset) error {
	if ds.Len() == 0 {
		return errors.New("dataprep: empty dataset")
	}
	p.fill = make([]float64, len(p.Schema.Numeric))
	for j := range p.Schema.Numeric {
		col := make([]float64, ds.Len())
		for i := range col {
			col[i] = ds.Numeric[i][j]
		}
		p.fill[j] = stats.Median(stats.DropNaN(col))
	}

	p.scaler = stats.NewStandardScaler()
	if len(p.Schema.Numeric) > 0 {
		if err := p.scaler.Fit(p.numeric(ds)); err != nil {
			return err
		}
	}
	p.encoder = NewOneHotEncoder(p.Schema.Categorical...)
	return p.encoder.Fit(ds.Categorical)
}

// Transform encodes ds with the fitted parameters. Categories not seen
// during Fit encode to zeros.
func (p *Preprocessor) Transform(ds *data.Dataset) ([][]float64, error) {
	if p.encoder == nil {
		return nil, ErrNotFitted
	}
	var scaled [][]float64
	if len(p.Schema.Numeric) > 0 {
		var err error
		if scaled, err = p.scaler.Transform(p.numeric(ds)); err != nil {
			return nil, err
		}
	}
	onehot, err := p.encoder.Transform(ds.Categorical)
	if err != nil {
		return nil, err
	}
	X := make([][]float64, ds.Len())
	for i := range X {
		row := make([]float64, 0, len(p.Schema.Numeric)+p.encoder.Width())
		if scaled != nil {
			row = append(row, scaled[i]...)
		}
		X[i] = append(row, onehot[i]...)
	}
	return X, nil
}

func (p *Preprocessor) FitTransform(ds *data.Dataset) ([][]float64, error) {
	if err := p.Fit(ds); err != nil {
		return nil, err
	}
	return p.Transform(ds)
}

// FeatureNames names the columns produced by Transform.
func (p *Preprocessor) FeatureNames() []string {
	names := append([]string(nil), p.Schema.Numeric...)
	if p.encoder != nil {
		names = append(names, p.encoder.FeatureNames()...)
	}
	return names
}

func (p *Preprocessor) numeric(ds *data.Dataset) [][]float64 {
	X := make([][]float64, ds.Len())
	for i, src := range ds.Numeric {
		row := make([]float64, len(src))
		for j, v := range src {
			if math.IsNaN(v) {
				v = p.fill[j]
			}
			row[j] = v
		}
		X[i] = row
	}
	return X
}
