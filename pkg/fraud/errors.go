package fraud

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownModel     = errors.New("unknown model")
	ErrInvalidThreshold = errors.New("threshold must be between 0 and 1")
	ErrFeatureMismatch  = errors.New("feature mismatch")
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrInvalidNumber    = errors.New("invalid number")
	ErrInvalidOption    = errors.New("invalid option")
	ErrUnknownField     = errors.New("unknown field")
	ErrEmptyEvaluation  = errors.New("evaluation set is empty")
)

// Reason enumerates why a single-record inference failed.
type Reason string

const (
	ReasonInvalidOption    Reason = "invalid_option"
	ReasonInvalidNumber    Reason = "invalid_number"
	ReasonUnknownField     Reason = "unknown_field"
	ReasonUnknownModel     Reason = "unknown_model"
	ReasonInvalidThreshold Reason = "invalid_threshold"
	ReasonFeatureMismatch  Reason = "feature_mismatch"
	ReasonScoringFailed    Reason = "scoring_failed"
)

// InferenceError is the recoverable failure of a single-record inference.
type InferenceError struct {
	Reason Reason
	Field  string
	Err    error
}

func (e *InferenceError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return e.Err.Error()
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

func reasonFor(err error) Reason {
	var ie *InferenceError
	if errors.As(err, &ie) {
		return ie.Reason
	}
	switch {
	case errors.Is(err, ErrInvalidNumber):
		return ReasonInvalidNumber
	case errors.Is(err, ErrInvalidOption):
		return ReasonInvalidOption
	case errors.Is(err, ErrUnknownField):
		return ReasonUnknownField
	case errors.Is(err, ErrUnknownModel):
		return ReasonUnknownModel
	case errors.Is(err, ErrInvalidThreshold):
		return ReasonInvalidThreshold
	case errors.Is(err, ErrFeatureMismatch):
		return ReasonFeatureMismatch
	default:
		return ReasonScoringFailed
	}
}
