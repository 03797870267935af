package data

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTable(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader("Model,Precision,Recall\nXGBOOST_Without_ISO,0.91,0.62\nXGBOOST_With_ISO, 0.55,0.88\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Model", "Precision", "Recall"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"XGBOOST_With_ISO", "0.55", "0.88"}, tbl.Rows[1])

	// header only is a valid empty table
	tbl, err = ReadTable(strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Empty(t, tbl.Rows)

	_, err = ReadTable(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ReadTable(strings.NewReader("a,b\n1\n"))
	assert.Error(t, err)
}

func TestReadMatrix(t *testing.T) {
	m, err := ReadMatrix(strings.NewReader("amount,is_night\n10.5,1\n,0\nNaN,true\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", "is_night"}, m.Columns)
	require.Len(t, m.Rows, 3)
	assert.Equal(t, []float64{10.5, 1}, m.Rows[0])
	assert.True(t, math.IsNaN(m.Rows[1][0]))
	assert.True(t, math.IsNaN(m.Rows[2][0]))
	assert.Equal(t, float64(1), m.Rows[2][1])
}

func TestReadMatrix_IndexColumn(t *testing.T) {
	for _, header := range []string{",a,b", "Unnamed: 0,a,b"} {
		m, err := ReadMatrix(strings.NewReader(header + "\n7,1,2\n"))
		require.NoError(t, err, header)
		assert.Equal(t, []string{"a", "b"}, m.Columns)
		assert.Equal(t, [][]float64{{1, 2}}, m.Rows)
	}
}

func TestReadMatrix_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		err  error
	}{
		{"empty", "", ErrEmptyFile},
		{"header only", "a,b\n", ErrEmptyFile},
		{"bad value", "a,b\n1,x\n", ErrBadValue},
		{"ragged", "a,b\n1,2,3\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMatrix(strings.NewReader(tt.csv))
			require.Error(t, err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestReadLabels(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want []int
	}{
		{"no header", "0\n1\n0\n", []int{0, 1, 0}},
		{"header", "is_fraud\n1\n0\n", []int{1, 0}},
		{"index column", ",is_fraud\n4,1\n9,0\n", []int{1, 0}},
		{"floats and bools", "1.0\n0.0\ntrue\nFalse\n", []int{1, 0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadLabels(strings.NewReader(tt.csv))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ReadLabels(strings.NewReader("is_fraud\n"))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ReadLabels(strings.NewReader("0\n2\n"))
	assert.ErrorIs(t, err, ErrBadValue)

	_, err = ReadLabels(strings.NewReader("0\nyes\n"))
	assert.ErrorIs(t, err, ErrBadValue)
}

func TestLoadFiles_Missing(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadTable(filepath.Join(dir, "x.csv"))
	assert.Error(t, err)
	_, err = LoadMatrix(filepath.Join(dir, "x.csv"))
	assert.Error(t, err)
	_, err = LoadLabels(filepath.Join(dir, "x.csv"))
	assert.Error(t, err)
}
