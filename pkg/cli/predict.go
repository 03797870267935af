package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mchmarny/fraudboard/pkg/fraud"
	"github.com/urfave/cli/v3"
)

const (
	setFlagName  = "set"
	rawFlagName  = "raw"
	listFlagName = "list"
)

func newSetFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    setFlagName,
		Aliases: []string{"s"},
		Usage:   `Form input as "Label=Value", repeatable (e.g. --set "Time Slot=Night")`,
	}
}

func newRawFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  rawFlagName,
		Usage: "Print the outcome using --format instead of the styled verdict",
	}
}

func newListFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  listFlagName,
		Usage: "List the form inputs and their options",
	}
}

func newPredictCmd() *cli.Command {
	return &cli.Command{
		Name:   "predict",
		Usage:  "Classify a single transaction built from form inputs",
		Action: cmdPredict,
		Flags: []cli.Flag{
			newModelFlag(),
			newThresholdFlag(),
			newSetFlag(),
			newRawFlag(),
			newListFlag(),
		},
	}
}

func cmdPredict(ctx context.Context, cmd *cli.Command) error {
	ac := getConfig(ctx)
	w := writer(cmd)

	if cmd.Bool(listFlagName) {
		return encode(w, ac.Format, fraud.Selectors())
	}

	selections, err := parseSelections(cmd.StringSlice(setFlagName))
	if err != nil {
		return err
	}

	cfg, b, err := ac.loadBundle(ctx, cmd)
	if err != nil {
		return err
	}

	out, err := predict(b.Engine, cfg.Model(), cfg.Dashboard.Threshold, selections)
	if err != nil {
		return err
	}

	if cmd.Bool(rawFlagName) {
		return encode(w, ac.Format, out)
	}
	return printOutcome(w, out)
}

// parseSelections splits "Label=Value" pairs on the first '='.
func parseSelections(pairs []string) (map[string]string, error) {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		label, value, ok := strings.Cut(p, "=")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			return nil, fmt.Errorf("invalid input %q, expected Label=Value", p)
		}
		m[label] = strings.TrimSpace(value)
	}
	return m, nil
}

var (
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff0033"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
)

func verdictStyle(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color(color)).
		Foreground(lipgloss.Color(color)).
		Padding(0, 1)
}

func printOutcome(w io.Writer, out fraud.Outcome) error {
	if !out.OK || out.Verdict == nil {
		_, err := fmt.Fprintln(w, errorStyle.Render("❌ Error:")+" "+out.Message)
		return err
	}

	v := out.Verdict
	body := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(v.Icon+" "+string(v.Label)),
		"🔢 Probability: "+v.Display,
		v.Message,
		dimStyle.Render(fmt.Sprintf("%s @ %.2f", v.Model, v.Threshold)),
	)
	_, err := fmt.Fprintln(w, verdictStyle(v.Color).Render(body))
	return err
}
