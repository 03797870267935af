// Package dashboard holds the state of the interactive fraud panel and the
// reducer that applies user events to it.
package dashboard

import (
	"fmt"
	"maps"

	"github.com/mchmarny/fraudboard/pkg/fraud"
)

// Engine is what the reducer needs from the loaded artifacts.
type Engine interface {
	Rescore(c fraud.ModelChoice, threshold float64) ([]fraud.Row, error)
	Infer(selections map[string]string, c fraud.ModelChoice, threshold float64) fraud.Outcome
	FraudRatio() float64
}

// State is everything the fraud panel displays.
type State struct {
	Model      fraud.ModelChoice `json:"model" yaml:"model"`
	Threshold  float64           `json:"threshold" yaml:"threshold"`
	Selections map[string]string `json:"selections" yaml:"selections"`
	Results    []fraud.Row       `json:"results" yaml:"results"`
	Summary    fraud.Summary     `json:"summary" yaml:"summary"`
	FraudRatio float64           `json:"fraud_ratio" yaml:"fraud_ratio"`
	Verdict    *fraud.Outcome    `json:"verdict,omitempty" yaml:"verdict,omitempty"`
}

// Event is a user interaction with the panel.
type Event interface {
	apply(e Engine, s State) (State, error)
}

// SelectModel switches the model and re-scores the evaluation set.
type SelectModel struct {
	Model fraud.ModelChoice
}

// SetThreshold moves the classification threshold and re-scores.
type SetThreshold struct {
	Threshold float64
}

// SetSelection changes one form input. Values are kept raw and only
// translated on Predict, so a bad value surfaces there as a failed verdict.
type SetSelection struct {
	Label string
	Value string
}

// Predict runs single-record inference on the current selections.
type Predict struct{}

// Init builds the initial state: default selections, no verdict and the
// evaluation set scored with model at threshold.
func Init(e Engine, model fraud.ModelChoice, threshold float64) (State, error) {
	if err := validate(model, threshold); err != nil {
		return State{}, err
	}
	return rescore(e, State{
		Model:      model,
		Threshold:  threshold,
		Selections: fraud.DefaultSelections(),
		FraudRatio: e.FraudRatio(),
	})
}

// Update applies ev to s and returns the new state. On error the returned
// state is s unchanged. Only invalid parameters and batch scoring failures
// are errors; a failed prediction is reported through State.Verdict.
func Update(e Engine, s State, ev Event) (State, error) {
	next := s
	next.Selections = maps.Clone(s.Selections)

	out, err := ev.apply(e, next)
	if err != nil {
		return s, err
	}
	return out, nil
}

func (ev SelectModel) apply(e Engine, s State) (State, error) {
	if err := validate(ev.Model, s.Threshold); err != nil {
		return s, err
	}
	s.Model = ev.Model
	return rescore(e, s)
}

func (ev SetThreshold) apply(e Engine, s State) (State, error) {
	if err := validate(s.Model, ev.Threshold); err != nil {
		return s, err
	}
	s.Threshold = ev.Threshold
	return rescore(e, s)
}

func (ev SetSelection) apply(_ Engine, s State) (State, error) {
	if s.Selections == nil {
		s.Selections = map[string]string{}
	}
	s.Selections[ev.Label] = ev.Value
	return s, nil
}

func (Predict) apply(e Engine, s State) (State, error) {
	out := e.Infer(s.Selections, s.Model, s.Threshold)
	s.Verdict = &out
	return s, nil
}

func validate(model fraud.ModelChoice, threshold float64) error {
	if !model.Valid() {
		return fmt.Errorf("%w: %q", fraud.ErrUnknownModel, model)
	}
	return fraud.ValidateThreshold(threshold)
}

func rescore(e Engine, s State) (State, error) {
	rows, err := e.Rescore(s.Model, s.Threshold)
	if err != nil {
		return s, fmt.Errorf("re-scoring with %s: %w", s.Model, err)
	}
	s.Results = rows
	s.Summary = fraud.Summarize(rows)
	return s, nil
}
