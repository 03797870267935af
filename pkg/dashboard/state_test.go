package dashboard

import (
	"errors"
	"testing"

	"github.com/mchmarny/fraudboard/pkg/fraud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// meanScorer returns the row mean squashed into [0,1].
type meanScorer struct {
	features []string
}

func (m meanScorer) Features() []string { return m.features }

func (m meanScorer) Probability(rows [][]float64) ([][2]float64, error) {
	out := make([][2]float64, len(rows))
	for i, r := range rows {
		p := 0.0
		for _, v := range r {
			p += v
		}
		p /= float64(len(r)) * 10
		p = min(max(p, 0), 1)
		out[i] = [2]float64{1 - p, p}
	}
	return out, nil
}

func testEngine(t *testing.T) *fraud.Engine {
	t.Helper()
	labels := []int{0, 1, 0, 1, 0}
	sets := map[fraud.ModelChoice]*fraud.Matrix{}
	scorers := map[fraud.ModelChoice]fraud.Scorer{}
	for _, c := range fraud.ModelChoices() {
		cols := fraud.Fields(c)
		m := &fraud.Matrix{Columns: cols}
		for i := range labels {
			row := make([]float64, len(cols))
			for j := range row {
				row[j] = float64(i * 2)
			}
			m.Rows = append(m.Rows, row)
		}
		sets[c] = m
		scorers[c] = meanScorer{features: cols}
	}
	e, err := fraud.NewEngine(scorers, sets, labels)
	require.NoError(t, err)
	return e
}

func TestInit(t *testing.T) {
	e := testEngine(t)
	s, err := Init(e, fraud.WithoutAnomaly, 0.5)
	require.NoError(t, err)

	assert.Equal(t, fraud.WithoutAnomaly, s.Model)
	assert.Equal(t, fraud.DefaultSelections(), s.Selections)
	assert.Len(t, s.Results, 5)
	assert.InDelta(t, 0.4, s.FraudRatio, 1e-12)
	assert.Nil(t, s.Verdict)
	assert.Equal(t, len(s.Results), s.Summary.TruePositive+s.Summary.FalsePositive+s.Summary.TrueNegative+s.Summary.FalseNegative)

	_, err = Init(e, "nope", 0.5)
	assert.ErrorIs(t, err, fraud.ErrUnknownModel)
	_, err = Init(e, fraud.WithAnomaly, 2)
	assert.ErrorIs(t, err, fraud.ErrInvalidThreshold)
}

func TestUpdate_Threshold(t *testing.T) {
	e := testEngine(t)
	s, err := Init(e, fraud.WithoutAnomaly, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Summary.Flagged())

	next, err := Update(e, s, SetThreshold{Threshold: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1, next.Threshold, 0)
	assert.Len(t, next.Results, 5)
	assert.Equal(t, 0, next.Summary.Flagged())

	// original state is not modified
	assert.Equal(t, 5, s.Summary.Flagged())

	bad, err := Update(e, next, SetThreshold{Threshold: -0.1})
	assert.ErrorIs(t, err, fraud.ErrInvalidThreshold)
	assert.Equal(t, next, bad)
}

func TestUpdate_SelectModel(t *testing.T) {
	e := testEngine(t)
	s, err := Init(e, fraud.WithoutAnomaly, 0.5)
	require.NoError(t, err)

	next, err := Update(e, s, SelectModel{Model: fraud.WithAnomaly})
	require.NoError(t, err)
	assert.Equal(t, fraud.WithAnomaly, next.Model)

	_, err = Update(e, s, SelectModel{Model: "RandomForest"})
	assert.ErrorIs(t, err, fraud.ErrUnknownModel)
}

func TestUpdate_SelectionIsCopied(t *testing.T) {
	e := testEngine(t)
	s, err := Init(e, fraud.WithoutAnomaly, 0.5)
	require.NoError(t, err)

	next, err := Update(e, s, SetSelection{Label: fraud.InputTimeSlot, Value: "Night"})
	require.NoError(t, err)
	assert.Equal(t, "Night", next.Selections[fraud.InputTimeSlot])
	assert.Equal(t, "Morning", s.Selections[fraud.InputTimeSlot])
}

func TestUpdate_Predict(t *testing.T) {
	e := testEngine(t)
	s, err := Init(e, fraud.WithAnomaly, 0.5)
	require.NoError(t, err)

	next, err := Update(e, s, Predict{})
	require.NoError(t, err)
	require.NotNil(t, next.Verdict)
	assert.True(t, next.Verdict.OK)
	assert.Equal(t, fraud.WithAnomaly, next.Verdict.Verdict.Model)
}

func TestUpdate_BadSelectionKeepsResults(t *testing.T) {
	e := testEngine(t)
	s, err := Init(e, fraud.WithoutAnomaly, 0.5)
	require.NoError(t, err)

	s, err = Update(e, s, SetSelection{Label: fraud.InputTransactionHour, Value: "abc"})
	require.NoError(t, err)
	results := s.Results
	summary := s.Summary

	next, err := Update(e, s, Predict{})
	require.NoError(t, err)
	require.NotNil(t, next.Verdict)
	assert.False(t, next.Verdict.OK)
	assert.Equal(t, fraud.ReasonInvalidNumber, next.Verdict.Reason)
	assert.NotEmpty(t, next.Verdict.Message)

	assert.Equal(t, results, next.Results)
	assert.Equal(t, summary, next.Summary)
	assert.Equal(t, s.Model, next.Model)
	assert.InDelta(t, s.Threshold, next.Threshold, 0)
}

type failingEngine struct {
	*fraud.Engine
}

var errBoom = errors.New("boom")

func (failingEngine) Rescore(fraud.ModelChoice, float64) ([]fraud.Row, error) {
	return nil, errBoom
}

func TestUpdate_RescoreFailure(t *testing.T) {
	e := testEngine(t)
	s, err := Init(e, fraud.WithoutAnomaly, 0.5)
	require.NoError(t, err)

	next, err := Update(failingEngine{e}, s, SetThreshold{Threshold: 0.7})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, s, next)
}
