// Package data loads the startup artifacts of the dashboard: the two models,
// their held-out feature matrices, the ground truth labels and the static
// summary tables.
package data

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mchmarny/fraudboard/pkg/config"
	"github.com/mchmarny/fraudboard/pkg/fraud"
	"github.com/mchmarny/fraudboard/pkg/model"
	"github.com/mchmarny/fraudboard/pkg/net"
	"golang.org/x/sync/errgroup"
)

const cacheDirName = "fraudboard"

// Bundle is the immutable set of artifacts the dashboard serves from.
type Bundle struct {
	Engine  *fraud.Engine
	Metrics *Table
	Summary *Table
	Models  map[fraud.ModelChoice]model.Model
}

// Loader resolves artifact locations and fetches remote ones.
type Loader struct {
	cfg    *config.Config
	client *http.Client
}

// NewLoader returns a loader for cfg. The token, when set, is sent as a
// bearer credential on remote downloads.
func NewLoader(ctx context.Context, cfg *config.Config, token string) *Loader {
	return &Loader{
		cfg:    cfg,
		client: net.ClientFor(ctx, token),
	}
}

// CacheDir is where remote artifacts are downloaded to.
func (l *Loader) CacheDir() string {
	d := l.cfg.Artifacts.CacheDir
	if d == "" {
		return filepath.Join(os.TempDir(), cacheDirName)
	}
	return l.cfg.Resolve(d)
}

// Local returns a local path for location, downloading it first if remote.
func (l *Loader) Local(ctx context.Context, location string) (string, error) {
	p := l.cfg.Resolve(location)
	if !config.IsRemote(p) {
		return p, nil
	}
	return net.Fetch(ctx, l.client, p, l.CacheDir())
}

// Load reads every artifact concurrently and validates they are consistent
// with each other. Any failure aborts the whole load.
func (l *Loader) Load(ctx context.Context) (*Bundle, error) {
	start := time.Now()
	a := l.cfg.Artifacts

	var (
		noISO, withISO       model.Model
		noISOSet, withISOSet *fraud.Matrix
		labels               []int
		b                    = &Bundle{}
	)

	g, ctx := errgroup.WithContext(ctx)
	load := func(name, location string, read func(string) error) {
		g.Go(func() error {
			p, err := l.Local(ctx, location)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", name, err)
			}
			if err := read(p); err != nil {
				return fmt.Errorf("loading %s: %w", name, err)
			}
			slog.Debug("artifact loaded", "name", name, "path", p)
			return nil
		})
	}

	load("model without anomaly flag", a.Models.WithoutISO, func(p string) (err error) {
		noISO, err = model.Load(p)
		return err
	})
	load("model with anomaly flag", a.Models.WithISO, func(p string) (err error) {
		withISO, err = model.Load(p)
		return err
	})
	load("evaluation matrix without anomaly flag", a.Eval.WithoutISO, func(p string) (err error) {
		noISOSet, err = LoadMatrix(p)
		return err
	})
	load("evaluation matrix with anomaly flag", a.Eval.WithISO, func(p string) (err error) {
		withISOSet, err = LoadMatrix(p)
		return err
	})
	load("labels", a.Eval.Labels, func(p string) (err error) {
		labels, err = LoadLabels(p)
		return err
	})
	load("metrics table", a.Tables.Metrics, func(p string) (err error) {
		b.Metrics, err = LoadTable(p)
		return err
	})
	load("summary table", a.Tables.Summary, func(p string) (err error) {
		b.Summary, err = LoadTable(p)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.Models = map[fraud.ModelChoice]model.Model{
		fraud.WithoutAnomaly: noISO,
		fraud.WithAnomaly:    withISO,
	}
	engine, err := fraud.NewEngine(
		map[fraud.ModelChoice]fraud.Scorer{
			fraud.WithoutAnomaly: noISO,
			fraud.WithAnomaly:    withISO,
		},
		map[fraud.ModelChoice]*fraud.Matrix{
			fraud.WithoutAnomaly: noISOSet,
			fraud.WithAnomaly:    withISOSet,
		},
		labels,
	)
	if err != nil {
		return nil, fmt.Errorf("validating artifacts: %w", err)
	}
	b.Engine = engine

	slog.Info("artifacts loaded",
		"records", engine.Size(),
		"fraud_ratio", fmt.Sprintf("%.4f", engine.FraudRatio()),
		"duration", time.Since(start).Round(time.Millisecond))
	return b, nil
}

// Load is a convenience wrapper around NewLoader(...).Load.
func Load(ctx context.Context, cfg *config.Config, token string) (*Bundle, error) {
	return NewLoader(ctx, cfg, token).Load(ctx)
}
