package fraud

import (
	"fmt"
	"math"
	"strings"
)

// ModelChoice selects one of the two pre-trained models.
type ModelChoice string

const (
	// WithoutAnomaly is the SMOTE-balanced model trained without the
	// isolation forest features.
	WithoutAnomaly ModelChoice = "XGBOOST_Without_ISO"
	// WithAnomaly is the recall focused model that also consumes the
	// isolation forest score and flag.
	WithAnomaly ModelChoice = "XGBOOST_With_ISO"

	DefaultModel     = WithoutAnomaly
	DefaultThreshold = 0.5
)

// ModelChoices lists the selectable models in display order.
func ModelChoices() []ModelChoice {
	return []ModelChoice{WithoutAnomaly, WithAnomaly}
}

// ParseModelChoice maps a selector value to a ModelChoice.
func ParseModelChoice(s string) (ModelChoice, error) {
	c := ModelChoice(strings.TrimSpace(s))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
	return c, nil
}

func (c ModelChoice) Valid() bool {
	return c == WithoutAnomaly || c == WithAnomaly
}

func (c ModelChoice) String() string {
	return string(c)
}

// Description is the narrative shown next to the model selector.
func (c ModelChoice) Description() string {
	switch c {
	case WithoutAnomaly:
		return "SMOTE-balanced high precision"
	case WithAnomaly:
		return "Isolation Forest + threshold = 0.033 (recall focused)"
	default:
		return ""
	}
}

// ValidateThreshold checks that t is a probability cutoff in [0,1].
func ValidateThreshold(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, t)
	}
	return nil
}
