package cli

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/fraudboard/pkg/config"
	"github.com/mchmarny/fraudboard/pkg/data"
	"github.com/mchmarny/fraudboard/pkg/metrics"
	"github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20

	requestIDHeader = "X-Request-ID"
)

var (
	//go:embed assets/* templates/*
	embedFS embed.FS
)

const (
	portFlagName      = "port"
	addressFlagName   = "address"
	noBrowserFlagName = "no-browser"
)

func newPortFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:    portFlagName,
		Usage:   "Port on which the server will listen (default: from config)",
		Sources: cli.EnvVars("FRAUDBOARD_PORT"),
	}
}

func newAddressFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    addressFlagName,
		Usage:   "Address on which the server will listen (default: from config)",
		Sources: cli.EnvVars("FRAUDBOARD_ADDRESS"),
	}
}

func newNoBrowserFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    noBrowserFlagName,
		Aliases: []string{"nb"},
		Usage:   "Do not open browser automatically",
	}
}

func newServerCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start local dashboard server",
		Action:  cmdStartServer,
		Flags: []cli.Flag{
			newPortFlag(),
			newAddressFlag(),
			newNoBrowserFlag(),
			newModelFlag(),
			newThresholdFlag(),
		},
	}
}

func cmdStartServer(ctx context.Context, cmd *cli.Command) error {
	ac := getConfig(ctx)
	cfg, b, err := ac.loadBundle(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.IsSet(portFlagName) {
		cfg.Server.Port = cmd.Int(portFlagName)
	}
	if cmd.IsSet(addressFlagName) {
		cfg.Server.Address = cmd.String(addressFlagName)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	address := net.JoinHostPort(cfg.Server.Address, strconv.Itoa(cfg.Server.Port))

	rec := metrics.New()
	rec.SetEvaluation(b.Engine.Size(), b.Engine.FraudRatio())

	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(cfg, b, rec),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	url := fmt.Sprintf("http://%s", address)
	slog.Info("server started", "address", url, "model", cfg.Model(), "threshold", cfg.Dashboard.Threshold)

	if !cmd.Bool(noBrowserFlagName) {
		openBrowser(url)
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func makeRouter(cfg *config.Config, b *data.Bundle, rec *metrics.Recorder) http.Handler {
	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseFS(embedFS, "templates/*.html"))
	h := &handlers{bundle: b, defaults: cfg.Dashboard, rec: rec}

	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(embedFS)))
	mux.HandleFunc("GET /favicon.ico", faviconHandler)

	// Views
	mux.HandleFunc("GET /{$}", homeViewHandler(tmpl, cfg.Dashboard, b))

	// Data API
	mux.HandleFunc("GET /data/options", h.optionsAPIHandler)
	mux.HandleFunc("GET /data/results", h.resultsAPIHandler)
	mux.HandleFunc("POST /data/predict", h.predictAPIHandler)
	mux.HandleFunc("GET /data/tables/metrics", tableAPIHandler(b.Metrics))
	mux.HandleFunc("GET /data/tables/summary", tableAPIHandler(b.Summary))

	// Charts
	mux.HandleFunc("GET /charts/scores.png", h.scoresChartHandler)
	mux.HandleFunc("GET /charts/ratio.png", h.ratioChartHandler)

	mux.Handle("GET /metrics", rec.Handler())

	return requestIDMiddleware(rec.Middleware(mux))
}

// requestIDMiddleware tags each request with an id, reusing the caller's
// when present, and logs it at debug level.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

func openBrowser(url string) {
	var cmd string
	args := make([]string, 0, 1)

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
	case "linux":
		cmd = "xdg-open"
	default: // windows
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler"}
	}

	args = append(args, url)
	if err := exec.Command(cmd, args...).Start(); err != nil {
		slog.Error("failed to open browser", "error", err)
	}
}
