package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mchmarny/fraudboard/pkg/auth"
	"github.com/mchmarny/fraudboard/pkg/config"
	"github.com/mchmarny/fraudboard/pkg/data"
	"github.com/mchmarny/fraudboard/pkg/fraud"
	"github.com/mchmarny/fraudboard/pkg/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName = "fraudboard"
	dirMode = 0700
	homeDir = ".fraudboard"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

const (
	debugFlagName     = "debug"
	configFlagName    = "config"
	logLevelFlagName  = "log-level"
	logFormatFlagName = "log-format"
	formatFlagName    = "format"
	modelFlagName     = "model"
	thresholdFlagName = "threshold"
)

func newDebugFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    debugFlagName,
		Usage:   "Prints verbose logs (optional, default: false)",
		Sources: cli.EnvVars("FRAUDBOARD_DEBUG"),
	}
}

func newConfigFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    configFlagName,
		Aliases: []string{"c"},
		Usage:   "Path to the config file",
		Value:   config.FileName,
		Sources: cli.EnvVars("FRAUDBOARD_CONFIG"),
	}
}

func newLogLevelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    logLevelFlagName,
		Usage:   "Log level [debug, info, warn, error] (default: from config)",
		Sources: cli.EnvVars("FRAUDBOARD_LOG_LEVEL"),
	}
}

func newLogFormatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    logFormatFlagName,
		Usage:   "Log format [cli, text, json] (default: from config)",
		Sources: cli.EnvVars("FRAUDBOARD_LOG_FORMAT"),
	}
}

func newFormatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  formatFlagName,
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
}

func newModelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    modelFlagName,
		Aliases: []string{"m"},
		Usage:   fmt.Sprintf("Model to score with %v (default: from config)", fraud.ModelChoices()),
		Sources: cli.EnvVars("FRAUDBOARD_MODEL"),
	}
}

func newThresholdFlag() *cli.FloatFlag {
	return &cli.FloatFlag{
		Name:    thresholdFlagName,
		Aliases: []string{"t"},
		Usage:   "Classification threshold in [0, 1] (default: from config)",
		Sources: cli.EnvVars("FRAUDBOARD_THRESHOLD"),
	}
}

// Execute creates and runs the CLI application.
func Execute() {
	// a missing .env file is the common case
	_ = godotenv.Load()

	logging.SetDefault("info", logging.FormatCLI)

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	ConfigPath string
	Format     string
	Debug      bool
	LogLevel   string
	LogFormat  string
}

type appConfigKey struct{}

func getConfig(ctx context.Context) *appConfig {
	if c, ok := ctx.Value(appConfigKey{}).(*appConfig); ok {
		return c
	}
	return &appConfig{ConfigPath: config.FileName, Format: formatJSON}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Fraud detection dashboard for binary transaction classifiers",
		Flags: []cli.Flag{
			newConfigFlag(),
			newDebugFlag(),
			newLogLevelFlag(),
			newLogFormatFlag(),
			newFormatFlag(),
		},
		Commands: []*cli.Command{
			newServerCmd(),
			newScoreCmd(),
			newPredictCmd(),
			newInitCmd(),
			newAuthCmd(),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			ac := &appConfig{
				ConfigPath: cmd.String(configFlagName),
				Format:     formatJSON,
				Debug:      cmd.Bool(debugFlagName),
				LogLevel:   cmd.String(logLevelFlagName),
				LogFormat:  cmd.String(logFormatFlagName),
			}

			switch f := cmd.String(formatFlagName); f {
			case formatYAML, "yml":
				ac.Format = formatYAML
			case formatJSON, "":
			default:
				return ctx, fmt.Errorf("unsupported output format: %s", f)
			}

			ac.initLogging(nil)
			return context.WithValue(ctx, appConfigKey{}, ac), nil
		},
	}
}

// initLogging applies the flag values, falling back to cfg when set.
func (a *appConfig) initLogging(cfg *config.Config) {
	level, format := a.LogLevel, a.LogFormat
	if cfg != nil {
		if level == "" {
			level = cfg.Log.Level
		}
		if format == "" {
			format = cfg.Log.Format
		}
	}
	if a.Debug {
		level = "debug"
	}
	if level == "" {
		level = "info"
	}
	if format == "" {
		format = logging.FormatCLI
	}
	logging.SetDefault(level, format)
}

// loadConfig reads the config file and applies the shared model and
// threshold overrides.
func (a *appConfig) loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	a.initLogging(cfg)

	if cmd.IsSet(modelFlagName) {
		m, err := fraud.ParseModelChoice(cmd.String(modelFlagName))
		if err != nil {
			return nil, err
		}
		cfg.Dashboard.Model = string(m)
	}
	if cmd.IsSet(thresholdFlagName) {
		t := cmd.Float(thresholdFlagName)
		if err := fraud.ValidateThreshold(t); err != nil {
			return nil, err
		}
		cfg.Dashboard.Threshold = t
	}
	return cfg, nil
}

// loadBundle reads the config and every artifact it lists.
func (a *appConfig) loadBundle(ctx context.Context, cmd *cli.Command) (*config.Config, *data.Bundle, error) {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	token := auth.NewStore(getHomeDir()).Lookup()
	b, err := data.Load(ctx, cfg, token)
	if err != nil {
		return nil, nil, fmt.Errorf("loading artifacts: %w", err)
	}
	return cfg, b, nil
}

func getHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return "."
	}

	dirPath := filepath.Join(home, homeDir)
	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dirPath)
		if err := os.Mkdir(dirPath, dirMode); err != nil {
			slog.Debug("error creating dir", "path", dirPath, "error", err)
			return home
		}
	}
	return dirPath
}

func encode(w io.Writer, format string, v any) error {
	if format == formatYAML {
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
