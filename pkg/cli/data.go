package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mchmarny/fraudboard/pkg/config"
	"github.com/mchmarny/fraudboard/pkg/dashboard"
	"github.com/mchmarny/fraudboard/pkg/data"
	"github.com/mchmarny/fraudboard/pkg/fraud"
	"github.com/mchmarny/fraudboard/pkg/metrics"
)

const maxRequestBytes = 1 << 16

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

type handlers struct {
	bundle   *data.Bundle
	defaults config.DashboardConfig
	rec      *metrics.Recorder
}

// scoreRequest is the model and threshold pair every scoring call needs.
type scoreRequest struct {
	Model     string   `json:"model" validate:"required,oneof=XGBOOST_Without_ISO XGBOOST_With_ISO"`
	Threshold *float64 `json:"threshold" validate:"required,gte=0,lte=1"`
}

type predictRequest struct {
	Model      string            `json:"model" validate:"required,oneof=XGBOOST_Without_ISO XGBOOST_With_ISO"`
	Threshold  *float64          `json:"threshold" validate:"required,gte=0,lte=1"`
	Selections map[string]string `json:"selections"`
}

type modelOption struct {
	Name        fraud.ModelChoice `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
}

type optionsResponse struct {
	Models           []modelOption    `json:"models" yaml:"models"`
	DefaultModel     string           `json:"default_model" yaml:"default_model"`
	DefaultThreshold float64          `json:"default_threshold" yaml:"default_threshold"`
	Selectors        []fraud.Selector `json:"selectors" yaml:"selectors"`
}

type resultsResponse struct {
	Model      fraud.ModelChoice `json:"model" yaml:"model"`
	Threshold  float64           `json:"threshold" yaml:"threshold"`
	Count      int               `json:"count" yaml:"count"`
	FraudRatio float64           `json:"fraud_ratio" yaml:"fraud_ratio"`
	Summary    fraud.Summary     `json:"summary" yaml:"summary"`
	Results    []fraud.Row       `json:"results" yaml:"results"`
}

func newResultsResponse(s dashboard.State) resultsResponse {
	return resultsResponse{
		Model:      s.Model,
		Threshold:  s.Threshold,
		Count:      len(s.Results),
		FraudRatio: s.FraudRatio,
		Summary:    s.Summary,
		Results:    s.Results,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writePNG(w http.ResponseWriter, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write chart", "error", err)
	}
}

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(msgs, ", ")
}

// parseScoreQuery reads model and threshold query parameters, defaulting to
// the configured initial values.
func (h *handlers) parseScoreQuery(r *http.Request) (scoreRequest, error) {
	q := r.URL.Query()
	req := scoreRequest{Model: h.defaults.Model}
	t := h.defaults.Threshold
	req.Threshold = &t

	if v := q.Get("model"); v != "" {
		req.Model = v
	}
	if v := q.Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("threshold must be a number: %q", v)
		}
		req.Threshold = &f
	}

	if err := validate.Struct(&req); err != nil {
		return req, errors.New(validationMessage(err))
	}
	return req, nil
}

// state scores the evaluation set for req.
func (h *handlers) state(req scoreRequest) (dashboard.State, error) {
	start := time.Now()
	s, err := dashboard.Init(h.bundle.Engine, fraud.ModelChoice(req.Model), *req.Threshold)
	if err != nil {
		return s, err
	}
	h.rec.ObserveRescore(req.Model, time.Since(start))
	return s, nil
}

func (h *handlers) optionsAPIHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, options(h.defaults))
}

func options(d config.DashboardConfig) optionsResponse {
	resp := optionsResponse{
		DefaultModel:     d.Model,
		DefaultThreshold: d.Threshold,
		Selectors:        fraud.Selectors(),
	}
	for _, c := range fraud.ModelChoices() {
		resp.Models = append(resp.Models, modelOption{Name: c, Description: c.Description()})
	}
	return resp
}

func (h *handlers) resultsAPIHandler(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseScoreQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.state(req)
	if err != nil {
		slog.Error("failed to score evaluation set", "model", req.Model, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to score evaluation set")
		return
	}
	writeJSON(w, http.StatusOK, newResultsResponse(s))
}

func (h *handlers) predictAPIHandler(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	out, err := predict(h.bundle.Engine, fraud.ModelChoice(req.Model), *req.Threshold, req.Selections)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.rec.ObserveInference(req.Model, outcomeLabel(out))
	writeJSON(w, http.StatusOK, out)
}

// predict overlays selections on the default form and runs one inference.
// Labels are applied in sorted order so repeated calls see the same state.
func predict(e dashboard.Engine, model fraud.ModelChoice, threshold float64, selections map[string]string) (fraud.Outcome, error) {
	s := dashboard.State{
		Model:      model,
		Threshold:  threshold,
		Selections: fraud.DefaultSelections(),
	}

	var err error
	for _, label := range slices.Sorted(maps.Keys(selections)) {
		if s, err = dashboard.Update(e, s, dashboard.SetSelection{Label: label, Value: selections[label]}); err != nil {
			return fraud.Outcome{}, err
		}
	}
	if s, err = dashboard.Update(e, s, dashboard.Predict{}); err != nil {
		return fraud.Outcome{}, err
	}
	return *s.Verdict, nil
}

func outcomeLabel(o fraud.Outcome) string {
	if o.OK && o.Verdict != nil {
		return string(o.Verdict.Label)
	}
	return string(o.Reason)
}

func tableAPIHandler(t *data.Table) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if t == nil {
			writeError(w, http.StatusNotFound, "table not loaded")
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func (h *handlers) scoresChartHandler(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseScoreQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.state(req)
	if err != nil {
		slog.Error("failed to score evaluation set", "model", req.Model, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to score evaluation set")
		return
	}

	var buf bytes.Buffer
	if err := dashboard.RenderScores(&buf, s); err != nil {
		slog.Error("failed to render chart", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	writePNG(w, &buf)
}

func (h *handlers) ratioChartHandler(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := dashboard.RenderRatio(&buf, h.bundle.Engine.FraudRatio()); err != nil {
		slog.Error("failed to render chart", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	writePNG(w, &buf)
}
