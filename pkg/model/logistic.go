package model

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Logistic is a linear model squashed through the logistic function.
type Logistic struct {
	FeatureNames []string  `json:"feature_names"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

func parseLogistic(b []byte) (*Logistic, error) {
	var m Logistic
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decoding logistic model: %w", err)
	}
	if len(m.Coefficients) == 0 {
		return nil, fmt.Errorf("%w: logistic model has no coefficients", ErrInvalidModel)
	}
	if len(m.FeatureNames) > 0 && len(m.FeatureNames) != len(m.Coefficients) {
		return nil, fmt.Errorf("%w: %d feature names for %d coefficients",
			ErrInvalidModel, len(m.FeatureNames), len(m.Coefficients))
	}
	return &m, nil
}

func (m *Logistic) Type() string { return TypeLogistic }

func (m *Logistic) Features() []string {
	return slices.Clone(m.FeatureNames)
}

func (m *Logistic) Probability(rows [][]float64) ([][2]float64, error) {
	if err := checkWidth(rows, len(m.Coefficients)); err != nil {
		return nil, err
	}
	out := make([][2]float64, len(rows))
	for i, r := range rows {
		z := m.Intercept
		for j, c := range m.Coefficients {
			z += c * r[j]
		}
		out[i] = binary(sigmoid(z))
	}
	return out, nil
}
