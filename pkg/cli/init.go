package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchmarny/fraudboard/pkg/config"
	"github.com/mchmarny/fraudboard/pkg/data"
	"github.com/urfave/cli/v3"
)

const (
	forceFlagName   = "force"
	sampleFlagName  = "sample"
	recordsFlagName = "records"
	seedFlagName    = "seed"
)

func newForceFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  forceFlagName,
		Usage: "Overwrite an existing config file",
	}
}

func newSampleFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  sampleFlagName,
		Usage: "Also generate a synthetic artifact set next to the config",
	}
}

func newRecordsFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:  recordsFlagName,
		Usage: "Number of sample evaluation records",
		Value: data.DefaultSampleRecords,
	}
}

func newSeedFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:  seedFlagName,
		Usage: "Seed of the sample generator",
		Value: 1,
	}
}

func newInitCmd() *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Write a default config file",
		Action: cmdInit,
		Flags: []cli.Flag{
			newForceFlag(),
			newSampleFlag(),
			newRecordsFlag(),
			newSeedFlag(),
		},
	}
}

func cmdInit(ctx context.Context, cmd *cli.Command) error {
	ac := getConfig(ctx)

	cfg := config.Default()
	if err := config.Save(ac.ConfigPath, cfg, cmd.Bool(forceFlagName)); err != nil {
		return err
	}
	slog.Info("config written", "path", ac.ConfigPath)

	if !cmd.Bool(sampleFlagName) {
		return nil
	}

	// reload so artifact paths resolve against the config's directory
	saved, err := config.Load(ac.ConfigPath)
	if err != nil {
		return err
	}
	if err := data.WriteSample(saved.Dir(), cmd.Int(recordsFlagName), uint64(cmd.Int(seedFlagName))); err != nil {
		return fmt.Errorf("writing sample artifacts: %w", err)
	}
	slog.Info("sample artifacts written", "dir", saved.Resolve("saved_models"), "records", cmd.Int(recordsFlagName))
	return nil
}
