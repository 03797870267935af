package dashboard

import (
	"fmt"
	"io"

	"github.com/mchmarny/fraudboard/pkg/fraud"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	scoresWidth  = 700
	scoresHeight = 300
	ratioWidth   = 320
	ratioHeight  = 250

	colorScore     = "f54291"
	colorThreshold = "0f52ba"
	colorFraud     = "f54242"
	colorLegit     = "42f54e"
)

// RenderScores draws the batch probabilities against record index as a PNG
// scatter plot with the threshold as a horizontal line.
func RenderScores(w io.Writer, s State) error {
	n := len(s.Results)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, r := range s.Results {
		xs[i] = float64(r.Index)
		ys[i] = r.Probability
	}

	// the x range needs a non-zero delta even for a single record
	xMax := float64(max(n-1, 1))

	graph := chart.Chart{
		Title:      fmt.Sprintf("Fraud Probability (%s)", s.Model),
		Width:      scoresWidth,
		Height:     scoresHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 12}},
		XAxis: chart.XAxis{
			Name:  "Index",
			Range: &chart.ContinuousRange{Min: 0, Max: xMax},
		},
		YAxis: chart.YAxis{
			Name:  "Probability",
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "Probability",
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    3,
					DotColor:    drawing.ColorFromHex(colorScore).WithAlpha(160),
				},
				XValues: xs,
				YValues: ys,
			},
			chart.ContinuousSeries{
				Name: fmt.Sprintf("Threshold %.2f", s.Threshold),
				Style: chart.Style{
					StrokeWidth:     1,
					StrokeColor:     drawing.ColorFromHex(colorThreshold),
					StrokeDashArray: []float64{5, 5},
				},
				XValues: []float64{0, xMax},
				YValues: []float64{s.Threshold, s.Threshold},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering scores chart: %w", err)
	}
	return nil
}

// RenderRatio draws the fraud versus legit share of the ground truth as a
// PNG pie chart.
func RenderRatio(w io.Writer, fraudRatio float64) error {
	all := []chart.Value{
		{Label: string(fraud.LabelFraud), Value: fraudRatio, Style: chart.Style{FillColor: drawing.ColorFromHex(colorFraud)}},
		{Label: string(fraud.LabelLegit), Value: 1 - fraudRatio, Style: chart.Style{FillColor: drawing.ColorFromHex(colorLegit)}},
	}

	// zero-sized slices cannot be drawn
	values := make([]chart.Value, 0, len(all))
	for _, v := range all {
		if v.Value > 0 {
			v.Label = fmt.Sprintf("%s %.1f%%", v.Label, v.Value*100)
			values = append(values, v)
		}
	}

	pie := chart.PieChart{
		Title:  "Fraud vs Legit Distribution",
		Width:  ratioWidth,
		Height: ratioHeight,
		Values: values,
	}
	if err := pie.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering ratio chart: %w", err)
	}
	return nil
}
