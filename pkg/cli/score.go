package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchmarny/fraudboard/pkg/dashboard"
	"github.com/mchmarny/fraudboard/pkg/fraud"
	"github.com/urfave/cli/v3"
)

const limitFlagName = "limit"

func newLimitFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:  limitFlagName,
		Usage: "Number of result rows to print, 0 prints none, -1 prints all",
		Value: 0,
	}
}

func newScoreCmd() *cli.Command {
	return &cli.Command{
		Name:   "score",
		Usage:  "Score the evaluation set and print the confusion summary",
		Action: cmdScore,
		Flags: []cli.Flag{
			newModelFlag(),
			newThresholdFlag(),
			newLimitFlag(),
		},
	}
}

type scoreResult struct {
	Model      fraud.ModelChoice `json:"model" yaml:"model"`
	Threshold  float64           `json:"threshold" yaml:"threshold"`
	Count      int               `json:"count" yaml:"count"`
	FraudRatio float64           `json:"fraud_ratio" yaml:"fraud_ratio"`
	Summary    fraud.Summary     `json:"summary" yaml:"summary"`
	Results    []fraud.Row       `json:"results,omitempty" yaml:"results,omitempty"`
}

func cmdScore(ctx context.Context, cmd *cli.Command) error {
	ac := getConfig(ctx)
	cfg, b, err := ac.loadBundle(ctx, cmd)
	if err != nil {
		return err
	}

	s, err := dashboard.Init(b.Engine, cfg.Model(), cfg.Dashboard.Threshold)
	if err != nil {
		return fmt.Errorf("scoring evaluation set: %w", err)
	}
	slog.Debug("scored", "model", s.Model, "threshold", s.Threshold, "rows", len(s.Results))

	res := scoreResult{
		Model:      s.Model,
		Threshold:  s.Threshold,
		Count:      len(s.Results),
		FraudRatio: s.FraudRatio,
		Summary:    s.Summary,
	}

	switch limit := cmd.Int(limitFlagName); {
	case limit < 0:
		res.Results = s.Results
	case limit > 0:
		res.Results = s.Results[:min(limit, len(s.Results))]
	}

	return encode(writer(cmd), ac.Format, res)
}
