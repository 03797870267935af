package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/mchmarny/fraudboard/pkg/fraud"
)

var (
	ErrEmptyFile = errors.New("file has no data rows")
	ErrBadValue  = errors.New("invalid value")
)

// Table is a display table read verbatim from a CSV file.
type Table struct {
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false
	return cr
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("reading %s: %w", path, err)
	}
	return v, nil
}

// ReadTable reads a CSV with a header row. Columns are kept in file order and
// cells are not transformed.
func ReadTable(r io.Reader) (*Table, error) {
	recs, err := newReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrEmptyFile
	}
	return &Table{Columns: recs[0], Rows: recs[1:]}, nil
}

func LoadTable(path string) (*Table, error) {
	return readFile(path, ReadTable)
}

// ReadMatrix reads a numeric CSV with a header row naming the features. A
// leading unnamed index column, as pandas writes by default, is dropped.
// Empty cells and NaN read as missing values.
func ReadMatrix(r io.Reader) (*fraud.Matrix, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, err
	}

	skip := 0
	if isIndexColumn(header[0]) {
		skip = 1
	}

	m := &fraud.Matrix{Columns: header[skip:]}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make([]float64, 0, len(rec)-skip)
		for i, cell := range rec[skip:] {
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %s: %q", ErrBadValue, line, m.Columns[i], cell)
			}
			row = append(row, v)
		}
		m.Rows = append(m.Rows, row)
	}

	if len(m.Rows) == 0 {
		return nil, ErrEmptyFile
	}
	return m, nil
}

func LoadMatrix(path string) (*fraud.Matrix, error) {
	return readFile(path, ReadMatrix)
}

// ReadLabels reads a binary ground truth column. The header row is optional
// and when the file has several columns (index plus label) the last one is
// used.
func ReadLabels(r io.Reader) ([]int, error) {
	recs, err := newReader(r).ReadAll()
	if err != nil {
		return nil, err
	}

	labels := make([]int, 0, len(recs))
	for i, rec := range recs {
		cell := rec[len(rec)-1]
		v, err := parseLabel(cell)
		if err != nil {
			if _, perr := parseCell(cell); i == 0 && perr != nil {
				continue
			}
			return nil, fmt.Errorf("%w: line %d: %q", ErrBadValue, i+1, cell)
		}
		labels = append(labels, v)
	}

	if len(labels) == 0 {
		return nil, ErrEmptyFile
	}
	return labels, nil
}

func LoadLabels(path string) ([]int, error) {
	return readFile(path, ReadLabels)
}

func isIndexColumn(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.HasPrefix(name, "Unnamed: ")
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	switch strings.ToLower(s) {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseLabel(s string) (int, error) {
	v, err := parseCell(s)
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %q", ErrBadValue, s)
	}
	switch v {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: label %v is not 0 or 1", ErrBadValue, v)
	}
}
