package fraud

import (
	"math"
	"strconv"
)

// Label is the human verdict of a classified record.
type Label string

const (
	LabelFraud Label = "Fraud"
	LabelLegit Label = "Legit"
)

// Classify applies the closed-at-threshold rule shared by batch and
// single-record scoring: a probability equal to the threshold is positive.
func Classify(probability, threshold float64) int {
	if probability >= threshold {
		return 1
	}
	return 0
}

// LabelOf maps a class prediction to its verdict label.
func LabelOf(prediction int) Label {
	if prediction == 1 {
		return LabelFraud
	}
	return LabelLegit
}

type palette struct {
	icon    string
	color   string
	message string
}

var palettes = map[Label]palette{
	LabelFraud: {icon: "🚨", color: "#ff0033", message: "Suspicious Transaction Detected!"},
	LabelLegit: {icon: "🟢", color: "#33cc33", message: "Transaction Looks Safe"},
}

// Verdict is the rendered outcome of a successful single-record inference.
type Verdict struct {
	Model       ModelChoice `json:"model" yaml:"model"`
	Threshold   float64     `json:"threshold" yaml:"threshold"`
	Label       Label       `json:"label" yaml:"label"`
	Icon        string      `json:"icon" yaml:"icon"`
	Color       string      `json:"color" yaml:"color"`
	Message     string      `json:"message" yaml:"message"`
	Probability float64     `json:"probability" yaml:"probability"`
	Display     string      `json:"display" yaml:"display"`
}

func newVerdict(model ModelChoice, probability, threshold float64) *Verdict {
	label := LabelOf(Classify(probability, threshold))
	p := palettes[label]
	return &Verdict{
		Model:       model,
		Threshold:   threshold,
		Label:       label,
		Icon:        p.icon,
		Color:       p.color,
		Message:     p.message,
		Probability: math.Round(probability*1000) / 1000,
		Display:     strconv.FormatFloat(probability, 'f', 3, 64),
	}
}

// Outcome is either a verdict or an enumerable failure reason.
type Outcome struct {
	OK      bool     `json:"ok" yaml:"ok"`
	Verdict *Verdict `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Reason  Reason   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
}

func success(v *Verdict) Outcome {
	return Outcome{OK: true, Verdict: v}
}

func failure(err error) Outcome {
	return Outcome{Reason: reasonFor(err), Message: err.Error()}
}
