package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two stumps on feature 0 and 1, base score 0.5 (margin 0)
const xgbDoc = `{
  "learner": {
    "feature_names": ["amount", "is_night"],
    "learner_model_param": {"base_score": "5E-1", "num_class": "0", "num_feature": "2"},
    "objective": {"name": "binary:logistic", "reg_loss_param": {"scale_pos_weight": "1"}},
    "gradient_booster": {
      "name": "gbtree",
      "model": {
        "trees": [
          {
            "left_children": [1, -1, -1],
            "right_children": [2, -1, -1],
            "split_indices": [0, 0, 0],
            "split_conditions": [100.0, -1.0, 1.0],
            "default_left": [1, 0, 0]
          },
          {
            "left_children": [1, -1, -1],
            "right_children": [2, -1, -1],
            "split_indices": [1, 0, 0],
            "split_conditions": [0.5, -0.5, 0.5],
            "default_left": [false, false, false]
          }
        ]
      }
    }
  },
  "version": [2, 0, 3]
}`

func TestParse_XGBoost(t *testing.T) {
	m, err := Parse([]byte(xgbDoc))
	require.NoError(t, err)
	assert.Equal(t, TypeXGBoost, m.Type())
	assert.Equal(t, []string{"amount", "is_night"}, m.Features())

	probs, err := m.Probability([][]float64{
		{50, 0},           // -1 + -0.5
		{150, 1},          // 1 + 0.5
		{100, 0},          // equal to split goes right: 1 - 0.5
		{math.NaN(), 1},   // missing follows default_left: -1 + 0.5
		{math.NaN(), 0.4}, // -1 - 0.5
	})
	require.NoError(t, err)
	require.Len(t, probs, 5)

	want := []float64{-1.5, 1.5, 0.5, -0.5, -1.5}
	for i, w := range want {
		assert.InDelta(t, sigmoid(w), probs[i][1], 1e-12, "row %d", i)
		assert.InDelta(t, 1, probs[i][0]+probs[i][1], 1e-12)
	}
}

func TestParse_XGBoostBracketedBaseScore(t *testing.T) {
	doc := `{"learner": {
	  "learner_model_param": {"base_score": "[2.5E-1]"},
	  "objective": {"name": "binary:logistic"},
	  "gradient_booster": {"name": "gbtree", "model": {"trees": [
	    {"left_children": [-1], "right_children": [-1], "split_indices": [0], "split_conditions": [0.0], "default_left": [0]}
	  ]}}}}`
	m, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, m.Features())

	probs, err := m.Probability([][]float64{{}})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, probs[0][1], 1e-12)
}

func TestParse_XGBoostInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"objective", `{"learner": {"objective": {"name": "multi:softprob"}}}`},
		{"booster", `{"learner": {"objective": {"name": "binary:logistic"}, "gradient_booster": {"name": "gblinear"}}}`},
		{"base score", `{"learner": {"objective": {"name": "binary:logistic"}, "learner_model_param": {"base_score": "abc"}}}`},
		{"cycle", `{"learner": {"objective": {"name": "binary:logistic"}, "gradient_booster": {"model": {"trees": [
			{"left_children": [0, -1], "right_children": [1, -1], "split_indices": [0, 0], "split_conditions": [1, 1]}]}}}}`},
		{"ragged", `{"learner": {"objective": {"name": "binary:logistic"}, "gradient_booster": {"model": {"trees": [
			{"left_children": [1, -1, -1], "right_children": [2, -1], "split_indices": [0, 0, 0], "split_conditions": [1, 1, 1]}]}}}}`},
		{"names", `{"learner": {"feature_names": ["a"], "learner_model_param": {"num_feature": "2"}, "objective": {"name": "binary:logistic"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestXGBoost_RowWidth(t *testing.T) {
	m, err := Parse([]byte(xgbDoc))
	require.NoError(t, err)
	_, err = m.Probability([][]float64{{1, 2, 3}})
	assert.ErrorIs(t, err, ErrRowWidth)
}

func TestParse_Logistic(t *testing.T) {
	m, err := Parse([]byte(`{"type": "logistic", "feature_names": ["a", "b"], "coefficients": [2, -1], "intercept": 0.5}`))
	require.NoError(t, err)
	assert.Equal(t, TypeLogistic, m.Type())
	assert.Equal(t, []string{"a", "b"}, m.Features())

	probs, err := m.Probability([][]float64{{1, 1}, {0, 0}})
	require.NoError(t, err)
	assert.InDelta(t, sigmoid(1.5), probs[0][1], 1e-12)
	assert.InDelta(t, sigmoid(0.5), probs[1][1], 1e-12)

	_, err = m.Probability([][]float64{{1}})
	assert.ErrorIs(t, err, ErrRowWidth)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"type": "svm"}`))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Parse([]byte(`{"type": "logistic"}`))
	assert.ErrorIs(t, err, ErrInvalidModel)

	_, err = Parse([]byte(`{"type": "logistic", "feature_names": ["a"], "coefficients": [1, 2]}`))
	assert.ErrorIs(t, err, ErrInvalidModel)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(xgbDoc), 0600))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, TypeXGBoost, m.Type())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
