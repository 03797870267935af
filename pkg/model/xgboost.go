package model

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

const defaultBaseScore = 0.5

// objectives whose margin maps to a probability through the sigmoid
var logisticObjectives = []string{"binary:logistic", "reg:logistic", "binary:logitraw"}

type xgbDocument struct {
	Learner struct {
		FeatureNames []string `json:"feature_names"`
		Param        struct {
			BaseScore  string `json:"base_score"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
		Booster struct {
			Name  string `json:"name"`
			Model struct {
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
	} `json:"learner"`
}

type xgbTree struct {
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float64 `json:"split_conditions"`
	DefaultLeft     []flag    `json:"default_left"`
}

// flag accepts both the boolean and the 0/1 encoding XGBoost versions use.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "true", "1":
		*f = true
	case "false", "0":
		*f = false
	default:
		return fmt.Errorf("invalid default_left value %s", b)
	}
	return nil
}

// XGBoost is a gradient boosted tree ensemble for binary classification.
type XGBoost struct {
	featureNames []string
	numFeature   int
	baseMargin   float64
	trees        []xgbTree
}

func parseXGBoost(b []byte) (*XGBoost, error) {
	var doc xgbDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decoding xgboost model: %w", err)
	}
	l := doc.Learner

	if l.Booster.Name != "" && l.Booster.Name != "gbtree" {
		return nil, fmt.Errorf("%w: booster %q", ErrUnsupportedType, l.Booster.Name)
	}
	if !slices.Contains(logisticObjectives, l.Objective.Name) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedObjective, l.Objective.Name)
	}

	base, err := parseBaseScore(l.Param.BaseScore)
	if err != nil {
		return nil, err
	}

	m := &XGBoost{
		featureNames: l.FeatureNames,
		trees:        l.Booster.Model.Trees,
	}
	if l.Objective.Name == "binary:logitraw" {
		m.baseMargin = base
	} else {
		if base <= 0 || base >= 1 {
			return nil, fmt.Errorf("%w: base_score %v outside (0,1)", ErrInvalidModel, base)
		}
		m.baseMargin = logit(base)
	}

	if l.Param.NumFeature != "" {
		if m.numFeature, err = strconv.Atoi(l.Param.NumFeature); err != nil {
			return nil, fmt.Errorf("%w: num_feature %q", ErrInvalidModel, l.Param.NumFeature)
		}
	}
	if m.numFeature == 0 {
		m.numFeature = len(m.featureNames)
	}
	if len(m.featureNames) > 0 && len(m.featureNames) != m.numFeature {
		return nil, fmt.Errorf("%w: %d feature names, num_feature %d", ErrInvalidModel, len(m.featureNames), m.numFeature)
	}

	for i, t := range m.trees {
		if err := t.validate(m.numFeature); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", ErrInvalidModel, i, err)
		}
	}
	return m, nil
}

// parseBaseScore handles both "5E-1" and the bracketed "[5E-1]" form.
func parseBaseScore(s string) (float64, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return defaultBaseScore, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: base_score %q", ErrInvalidModel, s)
	}
	return v, nil
}

func (t xgbTree) validate(numFeature int) error {
	n := len(t.LeftChildren)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}
	if len(t.RightChildren) != n || len(t.SplitIndices) != n || len(t.SplitConditions) != n {
		return fmt.Errorf("node arrays differ in length")
	}
	if len(t.DefaultLeft) != 0 && len(t.DefaultLeft) != n {
		return fmt.Errorf("default_left has %d entries for %d nodes", len(t.DefaultLeft), n)
	}
	for i := 0; i < n; i++ {
		l, r := t.LeftChildren[i], t.RightChildren[i]
		if l == -1 {
			continue
		}
		// children always come after their parent, which bounds the walk
		if l <= i || r <= i || l >= n || r >= n {
			return fmt.Errorf("node %d has invalid children %d/%d", i, l, r)
		}
		if f := t.SplitIndices[i]; f < 0 || (numFeature > 0 && f >= numFeature) {
			return fmt.Errorf("node %d splits on feature %d", i, f)
		}
	}
	return nil
}

func (t xgbTree) leaf(row []float64) float64 {
	n := 0
	for t.LeftChildren[n] != -1 {
		v := row[t.SplitIndices[n]]
		switch {
		case math.IsNaN(v):
			if len(t.DefaultLeft) > 0 && bool(t.DefaultLeft[n]) {
				n = t.LeftChildren[n]
			} else {
				n = t.RightChildren[n]
			}
		case v < t.SplitConditions[n]:
			n = t.LeftChildren[n]
		default:
			n = t.RightChildren[n]
		}
	}
	return t.SplitConditions[n]
}

func (m *XGBoost) Type() string { return TypeXGBoost }

func (m *XGBoost) Features() []string {
	return slices.Clone(m.featureNames)
}

// Margin returns the raw ensemble output for one row.
func (m *XGBoost) Margin(row []float64) float64 {
	sum := m.baseMargin
	for _, t := range m.trees {
		sum += t.leaf(row)
	}
	return sum
}

func (m *XGBoost) Probability(rows [][]float64) ([][2]float64, error) {
	width := m.numFeature
	if width == 0 {
		width = m.maxSplitIndex() + 1
		for i, r := range rows {
			if len(r) < width {
				return nil, fmt.Errorf("%w: row %d has %d values, model needs at least %d", ErrRowWidth, i, len(r), width)
			}
		}
	} else if err := checkWidth(rows, width); err != nil {
		return nil, err
	}

	out := make([][2]float64, len(rows))
	for i, r := range rows {
		out[i] = binary(sigmoid(m.Margin(r)))
	}
	return out, nil
}

func (m *XGBoost) maxSplitIndex() int {
	idx := -1
	for _, t := range m.trees {
		for i, f := range t.SplitIndices {
			if t.LeftChildren[i] != -1 && f > idx {
				idx = f
			}
		}
	}
	return idx
}
