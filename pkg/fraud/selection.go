package fraud

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Selector labels shown on the input form.
const (
	InputTimeOfDay        = "Time of Day (Encoded)"
	InputTimePattern      = "Time Pattern"
	InputTimeSlot         = "Time Slot"
	InputTransactionHour  = "Transaction Hour"
	InputSenderHistory    = "Sender History"
	InputWeekend          = "Weekend Transaction?"
	InputReceiverActivity = "Receiver Activity"
)

// TimeSlots are the named hour categories in ordinal order.
var TimeSlots = []string{"Morning", "Afternoon", "Evening", "Night"}

// Option is one member of a selector's closed option set.
type Option struct {
	Text  string  `json:"text" yaml:"text"`
	Value float64 `json:"value" yaml:"value"`
}

// Selector describes one input of the single-record form.
type Selector struct {
	Label   string   `json:"label" yaml:"label"`
	Feature string   `json:"feature" yaml:"feature"`
	Tooltip string   `json:"tooltip" yaml:"tooltip"`
	Default string   `json:"default" yaml:"default"`
	Options []Option `json:"options" yaml:"options"`
}

// Option resolves a raw form value against the closed option set.
func (s Selector) Option(raw string) (Option, error) {
	raw = strings.TrimSpace(raw)
	for _, o := range s.Options {
		if o.Text == raw {
			return o, nil
		}
	}
	v, err := Translate(raw)
	if err != nil {
		return Option{}, &InferenceError{Reason: ReasonInvalidNumber, Field: s.Label, Err: err}
	}
	// "0" and "0.00" name the same option as "0.0"
	for _, o := range s.Options {
		if o.Value == v {
			return o, nil
		}
	}
	return Option{}, &InferenceError{
		Reason: ReasonInvalidOption,
		Field:  s.Label,
		Err:    fmt.Errorf("%w: %q", ErrInvalidOption, raw),
	}
}

var selectors = []Selector{
	newSelector(InputTimeOfDay, FeatureHourSin, "0.0",
		"Encoded sine value of time (0 = midnight, 0.5 = noon)",
		"0.0", "0.5", "1.0"),
	newSelector(InputTimePattern, FeatureHourCos, "0.0",
		"Cosine encoding: -1 = early morning, 1 = late night",
		"-1.0", "0.0", "1.0"),
	newSelector(InputTimeSlot, FeatureHourCategory, "Morning",
		"Time category of transaction",
		TimeSlots...),
	newSelector(InputTransactionHour, FeatureTransactionHour, "10",
		"Exact hour of transaction (0 to 23)",
		hours()...),
	newSelector(InputSenderHistory, FeatureSenderTxnCount, "5",
		"Transactions sent by this user before",
		"1", "5", "10", "20", "50"),
	newSelector(InputWeekend, FeatureIsWeekend, "No",
		"Did it happen on weekend?",
		"Yes", "No"),
	newSelector(InputReceiverActivity, FeatureReceiverTxnCount, "5",
		"Past transactions received",
		"1", "5", "10", "20", "50"),
}

func newSelector(label, feature, def, tooltip string, options ...string) Selector {
	s := Selector{
		Label:   label,
		Feature: feature,
		Tooltip: tooltip,
		Default: def,
		Options: make([]Option, 0, len(options)),
	}
	for _, o := range options {
		v, err := Translate(o)
		if err != nil {
			panic(fmt.Sprintf("selector %s: option %q: %v", label, o, err))
		}
		s.Options = append(s.Options, Option{Text: o, Value: v})
	}
	return s
}

func hours() []string {
	list := make([]string, 24)
	for i := range list {
		list[i] = strconv.Itoa(i)
	}
	return list
}

// Selectors returns the form inputs in display order.
func Selectors() []Selector {
	return slices.Clone(selectors)
}

// SelectorFor looks up a selector by its form label.
func SelectorFor(label string) (Selector, bool) {
	for _, s := range selectors {
		if s.Label == label {
			return s, true
		}
	}
	return Selector{}, false
}

// DefaultSelections returns the initial value of every form input.
func DefaultSelections() map[string]string {
	m := make(map[string]string, len(selectors))
	for _, s := range selectors {
		m[s.Label] = s.Default
	}
	return m
}

// Translate converts a raw form value into a feature value: "Yes" and "No"
// first, then the time slot ordinals, then a plain float.
func Translate(raw string) (float64, error) {
	switch raw {
	case "Yes":
		return 1, nil
	case "No":
		return 0, nil
	}
	if i := slices.Index(TimeSlots, raw); i >= 0 {
		return float64(i), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	return v, nil
}

// BuildVector overlays the user selections on a copy of the default vector.
// Labels not present in selections keep their feature default.
func BuildVector(selections map[string]string) (Vector, error) {
	v := DefaultVector()
	// iterate in form order so the first failing input is deterministic
	for _, s := range selectors {
		raw, ok := selections[s.Label]
		if !ok {
			continue
		}
		o, err := s.Option(raw)
		if err != nil {
			return nil, err
		}
		v[s.Feature] = o.Value
	}
	for _, label := range slices.Sorted(maps.Keys(selections)) {
		if _, ok := SelectorFor(label); !ok {
			return nil, &InferenceError{
				Reason: ReasonUnknownField,
				Field:  label,
				Err:    ErrUnknownField,
			}
		}
	}
	return v, nil
}
