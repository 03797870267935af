package data

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/mchmarny/fraudboard/pkg/config"
	"github.com/mchmarny/fraudboard/pkg/fraud"
	"github.com/mchmarny/fraudboard/pkg/model"
)

const (
	sampleDirMode  = 0700
	sampleFileMode = 0600

	// DefaultSampleRecords is the size of the generated evaluation set.
	DefaultSampleRecords = 500
)

// latent fraud score weights shared by the generator and the sample
// logistic model
var sampleWeights = []struct {
	feature string
	weight  float64
}{
	{fraud.FeatureIsNight, 1.5},
	{fraud.FeatureIsInternational, 1.2},
	{fraud.FeatureAmountZ, 0.8},
	{fraud.FeatureSenderTxnCount, -0.03},
}

const sampleIntercept = -2.5

// WriteSample generates a small synthetic artifact set in the layout the
// default config expects, rooted at dir. The result is deterministic for a
// given seed.
func WriteSample(dir string, records int, seed uint64) error {
	if records < 1 {
		return fmt.Errorf("sample needs at least one record, got %d", records)
	}

	cfg := config.Default()
	a := cfg.Artifacts
	path := func(p string) string { return filepath.Join(dir, p) }

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	vectors, labels := sampleRecords(rng, records)

	models := map[fraud.ModelChoice][]byte{}
	var err error
	if models[fraud.WithoutAnomaly], err = sampleLogistic(); err != nil {
		return err
	}
	if models[fraud.WithAnomaly], err = sampleXGBoost(); err != nil {
		return err
	}

	files := map[string][]byte{
		a.Models.WithoutISO: models[fraud.WithoutAnomaly],
		a.Models.WithISO:    models[fraud.WithAnomaly],
	}
	for p, b := range files {
		if err := writeBytes(path(p), b); err != nil {
			return err
		}
	}

	if err := writeMatrix(path(a.Eval.WithoutISO), fraud.Fields(fraud.WithoutAnomaly), vectors); err != nil {
		return err
	}
	if err := writeMatrix(path(a.Eval.WithISO), fraud.Fields(fraud.WithAnomaly), vectors); err != nil {
		return err
	}

	lr := [][]string{{"is_fraud"}}
	for _, l := range labels {
		lr = append(lr, []string{strconv.Itoa(l)})
	}
	if err := writeCSV(path(a.Eval.Labels), lr); err != nil {
		return err
	}

	metrics, summary, err := sampleTables(models, vectors, labels)
	if err != nil {
		return err
	}
	if err := writeCSV(path(a.Tables.Metrics), metrics); err != nil {
		return err
	}
	return writeCSV(path(a.Tables.Summary), summary)
}

func sampleRecords(rng *rand.Rand, n int) ([]fraud.Vector, []int) {
	vectors := make([]fraud.Vector, n)
	labels := make([]int, n)

	b2f := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}

	for i := range n {
		v := fraud.DefaultVector()

		amount := math.Round(rng.ExpFloat64()*400*100) / 100
		sender := float64(rng.IntN(10))
		receiver := float64(rng.IntN(10))
		hour := rng.IntN(24)
		dow := rng.IntN(7)
		same := sender == receiver

		v[fraud.FeatureTransactionType] = float64(rng.IntN(4))
		v[fraud.FeatureAmount] = amount
		v[fraud.FeatureLocationSender] = sender
		v[fraud.FeatureLocationReceiver] = receiver
		v[fraud.FeatureDeviceType] = float64(rng.IntN(3))
		v[fraud.FeatureIsInternational] = b2f(!same && rng.Float64() < 0.3)
		v[fraud.FeatureTransactionHour] = float64(hour)
		v[fraud.FeatureHour] = float64(hour)
		v[fraud.FeatureDayOfWeek] = float64(dow)
		v[fraud.FeatureDay] = float64(1 + rng.IntN(28))
		v[fraud.FeatureIsWeekend] = b2f(dow >= 5)
		v[fraud.FeatureIsNight] = b2f(hour < 6 || hour >= 22)
		v[fraud.FeatureHourSin] = math.Sin(2 * math.Pi * float64(hour) / 24)
		v[fraud.FeatureHourCos] = math.Cos(2 * math.Pi * float64(hour) / 24)
		v[fraud.FeatureLogAmount] = math.Log1p(amount)
		v[fraud.FeatureIsHighAmount] = b2f(amount > 1000)
		v[fraud.FeatureSameLocation] = b2f(same)
		v[fraud.FeatureHourCategory] = float64(hourCategory(hour))
		v[fraud.FeatureSenderTxnCount] = float64(1 + rng.IntN(50))
		v[fraud.FeatureReceiverTxnCount] = float64(1 + rng.IntN(50))

		z := (amount - 400) / 400
		v[fraud.FeatureAmountZ] = z
		v[fraud.FeatureAmountOutlier] = b2f(math.Abs(z) > 3)
		v[fraud.FeatureAnyNumericOutlier] = v[fraud.FeatureAmountOutlier]
		v[fraud.FeatureAmountCapped] = math.Min(amount, 2000)

		risk := sampleIntercept
		for _, w := range sampleWeights {
			risk += w.weight * v[w.feature]
		}
		p := 1 / (1 + math.Exp(-risk))
		if rng.Float64() < p {
			labels[i] = 1
		}

		iso := 0.6*p + 0.4*rng.Float64()
		v[fraud.FeatureIsoScore] = iso
		v[fraud.FeatureIsoFlag] = b2f(iso > 0.5)

		vectors[i] = v
	}
	return vectors, labels
}

// hourCategory buckets an hour into the ordinal of fraud.TimeSlots.
func hourCategory(hour int) int {
	switch {
	case hour >= 6 && hour < 12:
		return 0
	case hour >= 12 && hour < 18:
		return 1
	case hour >= 18 && hour < 22:
		return 2
	default:
		return 3
	}
}

func sampleLogistic() ([]byte, error) {
	fields := fraud.Fields(fraud.WithoutAnomaly)
	m := model.Logistic{
		FeatureNames: fields,
		Coefficients: make([]float64, len(fields)),
		Intercept:    sampleIntercept,
	}
	for _, w := range sampleWeights {
		m.Coefficients[slices.Index(fields, w.feature)] = w.weight
	}

	doc := struct {
		Type string `json:"type"`
		model.Logistic
	}{Type: model.TypeLogistic, Logistic: m}
	return json.MarshalIndent(doc, "", "  ")
}

// sampleXGBoost writes three stumps in the XGBoost JSON model layout.
func sampleXGBoost() ([]byte, error) {
	fields := fraud.Fields(fraud.WithAnomaly)
	stump := func(feature string, cut, left, right float64) map[string]any {
		return map[string]any{
			"left_children":    []int{1, -1, -1},
			"right_children":   []int{2, -1, -1},
			"split_indices":    []int{slices.Index(fields, feature), 0, 0},
			"split_conditions": []float64{cut, left, right},
			"default_left":     []int{0, 0, 0},
		}
	}

	doc := map[string]any{
		"learner": map[string]any{
			"feature_names": fields,
			"learner_model_param": map[string]string{
				"base_score":  "1.5E-1",
				"num_feature": strconv.Itoa(len(fields)),
			},
			"objective": map[string]string{"name": "binary:logistic"},
			"gradient_booster": map[string]any{
				"name": "gbtree",
				"model": map[string]any{
					"trees": []map[string]any{
						stump(fraud.FeatureIsoFlag, 0.5, -0.9, 1.6),
						stump(fraud.FeatureIsNight, 0.5, -0.3, 0.9),
						stump(fraud.FeatureIsInternational, 0.5, -0.2, 0.8),
					},
				},
			},
		},
		"version": []int{2, 0, 3},
	}
	return json.MarshalIndent(doc, "", "  ")
}

func sampleTables(models map[fraud.ModelChoice][]byte, vectors []fraud.Vector, labels []int) (metrics, summary [][]string, err error) {
	scorers := map[fraud.ModelChoice]fraud.Scorer{}
	sets := map[fraud.ModelChoice]*fraud.Matrix{}
	for _, c := range fraud.ModelChoices() {
		m, err := model.Parse(models[c])
		if err != nil {
			return nil, nil, fmt.Errorf("parsing sample model %s: %w", c, err)
		}
		scorers[c] = m

		fields := fraud.Fields(c)
		set := &fraud.Matrix{Columns: fields}
		for _, v := range vectors {
			row, err := v.Project(fields)
			if err != nil {
				return nil, nil, err
			}
			set.Rows = append(set.Rows, row)
		}
		sets[c] = set
	}

	engine, err := fraud.NewEngine(scorers, sets, labels)
	if err != nil {
		return nil, nil, err
	}

	metrics = [][]string{{"Model", "Precision", "Recall", "F1-Score", "Accuracy"}}
	summary = [][]string{
		{"Metric", "Value"},
		{"Total Transactions", strconv.Itoa(engine.Size())},
		{"Fraud Cases", strconv.Itoa(int(math.Round(engine.FraudRatio() * float64(engine.Size()))))},
		{"Fraud Ratio", fmt.Sprintf("%.2f%%", engine.FraudRatio()*100)},
	}
	for _, c := range fraud.ModelChoices() {
		rows, err := engine.Rescore(c, fraud.DefaultThreshold)
		if err != nil {
			return nil, nil, err
		}
		s := fraud.Summarize(rows)
		metrics = append(metrics, []string{
			string(c),
			fmt.Sprintf("%.3f", s.Precision),
			fmt.Sprintf("%.3f", s.Recall),
			fmt.Sprintf("%.3f", s.F1),
			fmt.Sprintf("%.3f", s.Accuracy),
		})
		summary = append(summary, []string{"Flagged (" + string(c) + ")", strconv.Itoa(s.Flagged())})
	}
	return metrics, summary, nil
}

func writeMatrix(path string, fields []string, vectors []fraud.Vector) error {
	recs := [][]string{fields}
	for _, v := range vectors {
		row, err := v.Project(fields)
		if err != nil {
			return err
		}
		rec := make([]string, len(row))
		for i, x := range row {
			rec[i] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		recs = append(recs, rec)
	}
	return writeCSV(path, recs)
}

func writeCSV(path string, recs [][]string) (retErr error) {
	if err := os.MkdirAll(filepath.Dir(path), sampleDirMode); err != nil {
		return fmt.Errorf("creating dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, sampleFileMode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.WriteAll(recs); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeBytes(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), sampleDirMode); err != nil {
		return fmt.Errorf("creating dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, sampleFileMode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
