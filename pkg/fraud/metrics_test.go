package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	rows := []Row{
		{Actual: 1, Predicted: 1},
		{Actual: 1, Predicted: 1},
		{Actual: 1, Predicted: 0},
		{Actual: 0, Predicted: 1},
		{Actual: 0, Predicted: 0},
		{Actual: 0, Predicted: 0},
	}
	s := Summarize(rows)
	assert.Equal(t, 2, s.TruePositive)
	assert.Equal(t, 1, s.FalsePositive)
	assert.Equal(t, 2, s.TrueNegative)
	assert.Equal(t, 1, s.FalseNegative)
	assert.Equal(t, 3, s.Flagged())
	assert.InDelta(t, 2.0/3, s.Precision, 1e-12)
	assert.InDelta(t, 2.0/3, s.Recall, 1e-12)
	assert.InDelta(t, 2.0/3, s.F1, 1e-12)
	assert.InDelta(t, 4.0/6, s.Accuracy, 1e-12)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Precision)
	assert.Zero(t, s.Recall)
	assert.Zero(t, s.F1)
	assert.Zero(t, s.Accuracy)

	// nothing flagged
	s = Summarize([]Row{{Actual: 1}, {Actual: 0}})
	assert.Zero(t, s.Precision)
	assert.Zero(t, s.F1)
	assert.InDelta(t, 0.5, s.Accuracy, 1e-12)
}
