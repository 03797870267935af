// Package model loads the serialized classifiers the dashboard scores with.
//
// Two formats are understood: the JSON document XGBoost writes with
// save_model("*.json"), recognized by its top-level "learner" object, and a
// small logistic regression document tagged with "type": "logistic".
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

const (
	TypeXGBoost  = "xgboost"
	TypeLogistic = "logistic"
)

var (
	ErrUnsupportedType      = errors.New("unsupported model type")
	ErrUnsupportedObjective = errors.New("unsupported objective")
	ErrInvalidModel         = errors.New("invalid model")
	ErrRowWidth             = errors.New("row width does not match model")
)

// Model scores batches of rows laid out like Features. Each result holds
// P(class0) and P(class1).
type Model interface {
	Probability(rows [][]float64) ([][2]float64, error)
	Features() []string
	Type() string
}

type envelope struct {
	Type    string          `json:"type"`
	Learner json.RawMessage `json:"learner"`
}

// Load reads and parses a model file.
func Load(path string) (Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file %s: %w", path, err)
	}
	m, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parsing model file %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a model document.
func Parse(b []byte) (Model, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}

	if len(env.Learner) > 0 {
		m, err := parseXGBoost(b)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	switch env.Type {
	case TypeLogistic:
		m, err := parseLogistic(b)
		if err != nil {
			return nil, err
		}
		return m, nil
	case TypeXGBoost:
		return nil, fmt.Errorf("%w: xgboost document without learner", ErrInvalidModel)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, env.Type)
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func checkWidth(rows [][]float64, width int) error {
	for i, r := range rows {
		if len(r) != width {
			return fmt.Errorf("%w: row %d has %d values, model expects %d", ErrRowWidth, i, len(r), width)
		}
	}
	return nil
}

func binary(p float64) [2]float64 {
	return [2]float64{1 - p, p}
}
