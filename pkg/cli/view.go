package cli

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/mchmarny/fraudboard/pkg/config"
	"github.com/mchmarny/fraudboard/pkg/data"
)

var templateFuncs = template.FuncMap{
	"selected": func(a, b string) bool { return a == b },
}

func faviconHandler(w http.ResponseWriter, r *http.Request) {
	file, err := embedFS.ReadFile("assets/img/favicon.svg")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err = w.Write(file); err != nil {
		slog.Error("failed to write favicon", "error", err)
	}
}

func homeViewHandler(tmpl *template.Template, d config.DashboardConfig, b *data.Bundle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := map[string]any{
			"version":    version,
			"commit":     commit,
			"build_date": date,
			"err":        r.URL.Query().Get("err"),
			"options":    options(d),
			"records":    b.Engine.Size(),
			"metrics":    b.Metrics,
			"summary":    b.Summary,
		}
		if err := tmpl.ExecuteTemplate(w, "home", v); err != nil {
			slog.Error("template render failed", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}
