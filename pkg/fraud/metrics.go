package fraud

// Summary is the confusion matrix of a batch result at one threshold.
type Summary struct {
	TruePositive  int     `json:"tp" yaml:"tp"`
	FalsePositive int     `json:"fp" yaml:"fp"`
	TrueNegative  int     `json:"tn" yaml:"tn"`
	FalseNegative int     `json:"fn" yaml:"fn"`
	Precision     float64 `json:"precision" yaml:"precision"`
	Recall        float64 `json:"recall" yaml:"recall"`
	F1            float64 `json:"f1" yaml:"f1"`
	Accuracy      float64 `json:"accuracy" yaml:"accuracy"`
}

// Flagged is the number of records predicted as fraud.
func (s Summary) Flagged() int {
	return s.TruePositive + s.FalsePositive
}

// Summarize counts predictions against labels. Ratios with an empty
// denominator are 0.
func Summarize(rows []Row) Summary {
	var s Summary
	for _, r := range rows {
		switch {
		case r.Predicted == 1 && r.Actual == 1:
			s.TruePositive++
		case r.Predicted == 1:
			s.FalsePositive++
		case r.Actual == 1:
			s.FalseNegative++
		default:
			s.TrueNegative++
		}
	}

	s.Precision = ratio(s.TruePositive, s.TruePositive+s.FalsePositive)
	s.Recall = ratio(s.TruePositive, s.TruePositive+s.FalseNegative)
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	s.Accuracy = ratio(s.TruePositive+s.TrueNegative, len(rows))
	return s
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
