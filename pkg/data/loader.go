package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Table is a raw delimited table. Every original column is kept verbatim,
// header text included; lookups resolve header aliases.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of a column, or -1. A Spanish header and its
// canonical name refer to the same column.
func (t *Table) Index(name string) int {
	want := CanonicalName(name)
	for i, h := range t.Header {
		if CanonicalName(h) == want {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]string, bool) {
	j := t.Index(name)
	if j < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j]
	}
	return out, true
}

// CustomerRecord is one input row projected onto the schema.
type CustomerRecord struct {
	Row         int
	Numeric     []float64 // NaN marks a missing cell
	Categorical []string  // "" marks a missing cell
	Label       int
}

// Dataset is a Table projected onto a Schema.
type Dataset struct {
	Schema      Schema
	Numeric     [][]float64
	Categorical [][]string
	Labels      []int
}

func (d *Dataset) Len() int { return len(d.Labels) }

// Record returns the i-th customer.
func (d *Dataset) Record(i int) CustomerRecord {
	return CustomerRecord{
		Row:         i,
		Numeric:     d.Numeric[i],
		Categorical: d.Categorical[i],
		Label:       d.Labels[i],
	}
}

// NumericColumn returns a copy of a numeric column by name.
func (d *Dataset) NumericColumn(name string) ([]float64, bool) {
	for j, n := range d.Schema.Numeric {
		if n == name {
			out := make([]float64, d.Len())
			for i := range out {
				out[i] = d.Numeric[i][j]
			}
			return out, true
		}
	}
	return nil, false
}

// CategoricalColumn returns a copy of a categorical column by name.
func (d *Dataset) CategoricalColumn(name string) ([]string, bool) {
	for j, n := range d.Schema.Categorical {
		if n == name {
			out := make([]string, d.Len())
			for i := range out {
				out[i] = d.Categorical[i][j]
			}
			return out, true
		}
	}
	return nil, false
}

// ReadTable parses a delimited table from r. The delimiter is detected
// from the header line among ',', ';' and tab.
func ReadTable(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}
	reader := csv.NewReader(br)
	reader.Comma = detectDelimiter(string(head))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedValue, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t := &Table{Header: header}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedValue, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	if len(t.Rows) == 0 {
		return nil, ErrEmptyTable
	}
	return t, nil
}

func detectDelimiter(head string) rune {
	line, _, _ := strings.Cut(head, "\n")
	best, bestCount := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if c := strings.Count(line, string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

// LoadTable reads the table at path and checks that every column the
// schema requires is present.
func LoadTable(path string, schema Schema) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	var missing []string
	for _, c := range schema.Required() {
		if t.Index(c) < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &DataLoadError{Path: path, Missing: missing, Err: ErrMissingColumns}
	}
	return t, nil
}

// LoadDataset reads the table at path and projects it onto schema.
func LoadDataset(path string, schema Schema) (*Table, *Dataset, error) {
	t, err := LoadTable(path, schema)
	if err != nil {
		return nil, nil, err
	}
	ds, err := NewDataset(t, schema)
	if err != nil {
		var le *DataLoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, nil, err
	}
	return t, ds, nil
}

// NewDataset projects a table onto a schema. Missing numeric cells become NaN,
// missing categorical cells become "". The label must be 0 or 1 on every row.
func NewDataset(t *Table, schema Schema) (*Dataset, error) {
	numIdx, err := indices(t, schema.Numeric)
	if err != nil {
		return nil, err
	}
	catIdx, err := indices(t, schema.Categorical)
	if err != nil {
		return nil, err
	}
	labelIdx, err := indices(t, []string{schema.Label})
	if err != nil {
		return nil, err
	}

	n := len(t.Rows)
	ds := &Dataset{
		Schema:      schema,
		Numeric:     make([][]float64, n),
		Categorical: make([][]string, n),
		Labels:      make([]int, n),
	}
	for i, rec := range t.Rows {
		num := make([]float64, len(numIdx))
		for j, c := range numIdx {
			v := rec[c]
			if IsMissing(v) {
				num[j] = math.NaN()
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, &DataLoadError{Row: i + 1, Column: schema.Numeric[j], Err: fmt.Errorf("%w: %q is not numeric", ErrMalformedValue, v)}
			}
			num[j] = f
		}
		cat := make([]string, len(catIdx))
		for j, c := range catIdx {
			if v := rec[c]; !IsMissing(v) {
				cat[j] = strings.TrimSpace(v)
			}
		}
		label, err := parseLabel(rec[labelIdx[0]])
		if err != nil {
			return nil, &DataLoadError{Row: i + 1, Column: schema.Label, Err: err}
		}
		ds.Numeric[i] = num
		ds.Categorical[i] = cat
		ds.Labels[i] = label
	}
	return ds, nil
}

func indices(t *Table, names []string) ([]int, error) {
	out := make([]int, len(names))
	var missing []string
	for i, n := range names {
		out[i] = t.Index(n)
		if out[i] < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, &DataLoadError{Missing: missing, Err: ErrMissingColumns}
	}
	return out, nil
}

func parseLabel(v string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || (f != 0 && f != 1) {
		return 0, fmt.Errorf("%w: label %q is not 0 or 1", ErrMalformedValue, v)
	}
	return int(f), nil
}
