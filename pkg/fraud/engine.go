// Package fraud holds the scoring core of the dashboard: the feature layout
// the two models were trained on, translation of form selections into a
// feature vector, batch re-scoring of the held-out set and single-record
// inference.
package fraud

import (
	"errors"
	"fmt"
	"slices"
)

// Scorer is the capability a loaded model exposes. Rows are ordered like
// Features; each result holds P(class0) and P(class1).
type Scorer interface {
	Probability(rows [][]float64) ([][2]float64, error)
	Features() []string
}

// Matrix is a held-out feature array with its column header.
type Matrix struct {
	Columns []string
	Rows    [][]float64
}

// Row is one line of the batch results table.
type Row struct {
	Index       int     `json:"index" yaml:"index"`
	Actual      int     `json:"y_true" yaml:"y_true"`
	Probability float64 `json:"y_prob" yaml:"y_prob"`
	Predicted   int     `json:"y_pred" yaml:"y_pred"`
}

// Engine binds the immutable startup artifacts. It is safe for concurrent
// use because nothing mutates it after NewEngine.
type Engine struct {
	models map[ModelChoice]Scorer
	sets   map[ModelChoice]*Matrix
	labels []int
}

// NewEngine validates that every model choice has a model and an evaluation
// matrix laid out exactly like Fields(choice), and that every matrix is
// positionally aligned with labels.
func NewEngine(models map[ModelChoice]Scorer, sets map[ModelChoice]*Matrix, labels []int) (*Engine, error) {
	if len(labels) == 0 {
		return nil, ErrEmptyEvaluation
	}

	for _, c := range ModelChoices() {
		m, ok := models[c]
		if !ok || m == nil {
			return nil, fmt.Errorf("%w: no model loaded for %s", ErrUnknownModel, c)
		}
		want := Fields(c)
		if declared := m.Features(); len(declared) > 0 && !slices.Equal(declared, want) {
			return nil, fmt.Errorf("%w: model %s declares %v, want %v", ErrFeatureMismatch, c, declared, want)
		}

		set, ok := sets[c]
		if !ok || set == nil {
			return nil, fmt.Errorf("%w: no evaluation matrix for %s", ErrShapeMismatch, c)
		}
		if !slices.Equal(set.Columns, want) {
			return nil, fmt.Errorf("%w: evaluation matrix for %s has columns %v, want %v", ErrFeatureMismatch, c, set.Columns, want)
		}
		if len(set.Rows) != len(labels) {
			return nil, fmt.Errorf("%w: %s has %d rows, labels has %d", ErrShapeMismatch, c, len(set.Rows), len(labels))
		}
		for i, r := range set.Rows {
			if len(r) != len(want) {
				return nil, fmt.Errorf("%w: %s row %d has %d values, want %d", ErrShapeMismatch, c, i, len(r), len(want))
			}
		}
	}

	return &Engine{
		models: models,
		sets:   sets,
		labels: slices.Clone(labels),
	}, nil
}

// Labels returns a copy of the ground truth array.
func (e *Engine) Labels() []int {
	return slices.Clone(e.labels)
}

// Size is the number of records in the evaluation set.
func (e *Engine) Size() int {
	return len(e.labels)
}

// FraudRatio is the share of positive ground truth labels.
func (e *Engine) FraudRatio() float64 {
	pos := 0
	for _, l := range e.labels {
		pos += l
	}
	return float64(pos) / float64(len(e.labels))
}

// BatchFields is the column layout Rescore feeds the model for a choice.
func (e *Engine) BatchFields(c ModelChoice) []string {
	if set, ok := e.sets[c]; ok {
		return slices.Clone(set.Columns)
	}
	return nil
}

// Rescore scores the whole evaluation matrix of the chosen model and
// classifies every record against threshold.
func (e *Engine) Rescore(c ModelChoice, threshold float64) ([]Row, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, c)
	}
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	set := e.sets[c]
	probs, err := e.models[c].Probability(set.Rows)
	if err != nil {
		return nil, fmt.Errorf("scoring %s evaluation set: %w", c, err)
	}
	if len(probs) != len(e.labels) {
		return nil, fmt.Errorf("%w: model %s returned %d probabilities for %d records", ErrShapeMismatch, c, len(probs), len(e.labels))
	}

	rows := make([]Row, len(probs))
	for i, p := range probs {
		rows[i] = Row{
			Index:       i,
			Actual:      e.labels[i],
			Probability: p[1],
			Predicted:   Classify(p[1], threshold),
		}
	}
	return rows, nil
}

// Infer runs single-record inference for the form selections. It never
// returns an error: every failure becomes a failed Outcome.
func (e *Engine) Infer(selections map[string]string, c ModelChoice, threshold float64) Outcome {
	p, err := e.score(selections, c, threshold)
	if err != nil {
		return failure(err)
	}
	return success(newVerdict(c, p, threshold))
}

func (e *Engine) score(selections map[string]string, c ModelChoice, threshold float64) (p float64, err error) {
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownModel, c)
	}
	if err := ValidateThreshold(threshold); err != nil {
		return 0, err
	}

	vec, err := BuildVector(selections)
	if err != nil {
		return 0, err
	}

	row, err := vec.Project(Fields(c))
	if err != nil {
		return 0, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = &InferenceError{Reason: ReasonScoringFailed, Err: fmt.Errorf("model %s panicked: %v", c, r)}
		}
	}()

	probs, err := e.models[c].Probability([][]float64{row})
	if err != nil {
		return 0, &InferenceError{Reason: ReasonScoringFailed, Err: err}
	}
	if len(probs) != 1 {
		return 0, &InferenceError{
			Reason: ReasonScoringFailed,
			Err:    errors.Join(ErrShapeMismatch, fmt.Errorf("model %s returned %d results for 1 row", c, len(probs))),
		}
	}
	return probs[0][1], nil
}
