// Package api exposes HTTP handlers for the measurement service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"example.com/bodymetrics/internal/auth"
	"example.com/bodymetrics/internal/domain"
	"example.com/bodymetrics/internal/measurement"
	"example.com/bodymetrics/internal/persistence"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service          *domain.Service
	defaultTrendDays int
}

// NewHandler builds a Handler. defaultTrendDays applies when a trends request omits period_days.
func NewHandler(service *domain.Service, defaultTrendDays int) *Handler {
	if defaultTrendDays <= 0 {
		defaultTrendDays = 30
	}
	return &Handler{service: service, defaultTrendDays: defaultTrendDays}
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", healthz)
	r.Route("/v1/measurements", func(r chi.Router) {
		r.With(auth.RequireRead()).Get("/", h.listMeasurements)
		r.With(auth.RequireWrite()).Post("/", h.createMeasurement)
		r.With(auth.RequireRead()).Get("/averages", h.averages)
		r.With(auth.RequireRead()).Get("/trends", h.trends)
		r.With(auth.RequireWrite()).Delete("/{index}", h.deleteMeasurement)
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) createMeasurement(w http.ResponseWriter, r *http.Request) {
	var req CreateMeasurementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	view, err := h.service.Append(r.Context(), req.toInput())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRecord) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toMeasurementView(*view))
}

func (h *Handler) listMeasurements(w http.ResponseWriter, r *http.Request) {
	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > maxPageSize {
				parsed = maxPageSize
			}
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	page, err := h.service.List(cursor, limit)
	if err != nil {
		if errors.Is(err, domain.ErrStaleCursor) {
			writeError(w, http.StatusConflict, "stale_cursor", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := ListMeasurementsResponse{
		Items:      make([]MeasurementView, 0, len(page.Items)),
		Total:      page.Total,
		NextCursor: persistence.EncodeCursor(page.Next),
	}
	for _, item := range page.Items {
		resp.Items = append(resp.Items, toMeasurementView(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deleteMeasurement(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "index must be an integer")
		return
	}

	if err := h.service.Remove(r.Context(), index); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "measurement not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) averages(w http.ResponseWriter, r *http.Request) {
	report, ok := h.service.Averages()
	if wantsText(r) {
		writeText(w, http.StatusOK, measurement.RenderAverages(report, ok))
		return
	}

	resp := AveragesResponse{Available: ok, Averages: make([]AverageView, 0, len(report.Averages))}
	for _, avg := range report.Averages {
		resp.Averages = append(resp.Averages, AverageView{
			Field:   string(avg.Field),
			Unit:    avg.Field.Unit(),
			Average: avg.Mean,
			Samples: avg.Samples,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) trends(w http.ResponseWriter, r *http.Request) {
	periodDays := h.defaultTrendDays
	if raw := r.URL.Query().Get("period_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "period_days must be a positive integer")
			return
		}
		periodDays = parsed
	}

	report, ok, err := h.service.Trends(periodDays)
	if err != nil {
		var tsErr *measurement.TimestampError
		if errors.As(err, &tsErr) {
			writeError(w, http.StatusUnprocessableEntity, "data_integrity", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	if wantsText(r) {
		writeText(w, http.StatusOK, measurement.RenderTrends(report, periodDays, ok))
		return
	}

	resp := TrendsResponse{
		Available:  ok,
		PeriodDays: periodDays,
		Deltas:     make([]DeltaView, 0, len(report.Deltas)),
	}
	if ok {
		resp.Cutoff = measurement.FormatDate(report.Cutoff)
		resp.Window = report.Window
		resp.Latest = report.Latest
	}
	for _, d := range report.Deltas {
		resp.Deltas = append(resp.Deltas, DeltaView{
			Field:    string(d.Field),
			Delta:    d.Delta,
			Earliest: d.Earliest,
			Current:  d.Current,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateMeasurementRequest is the payload for POST /v1/measurements.
type CreateMeasurementRequest struct {
	Timestamp string   `json:"timestamp,omitempty"`
	Weight    *float64 `json:"weight"`
	Bicep     *float64 `json:"bicep,omitempty"`
	Chest     *float64 `json:"chest,omitempty"`
	Waist     *float64 `json:"waist,omitempty"`
	Thigh     *float64 `json:"thigh,omitempty"`
	Calf      *float64 `json:"calf,omitempty"`
}

// Validate ensures request correctness.
func (r CreateMeasurementRequest) Validate() error {
	if r.Timestamp != "" {
		if _, err := measurement.ParseDate(r.Timestamp, nil); err != nil {
			return errors.New("timestamp must use the YY-MM-DD format")
		}
	}
	if r.Weight == nil {
		return errors.New("weight is required")
	}
	for f, v := range r.values() {
		if v < 0 {
			return errors.New(strings.ToLower(string(f)) + " must be >= 0")
		}
	}
	return nil
}

func (r CreateMeasurementRequest) values() map[measurement.Field]float64 {
	out := make(map[measurement.Field]float64, len(measurement.Fields))
	for f, v := range map[measurement.Field]*float64{
		measurement.Weight: r.Weight,
		measurement.Bicep:  r.Bicep,
		measurement.Chest:  r.Chest,
		measurement.Waist:  r.Waist,
		measurement.Thigh:  r.Thigh,
		measurement.Calf:   r.Calf,
	} {
		if v != nil {
			out[f] = *v
		}
	}
	return out
}

func (r CreateMeasurementRequest) toInput() domain.CaptureInput {
	return domain.CaptureInput{Timestamp: r.Timestamp, Values: r.values()}
}

// MeasurementView exposes one stored record and its position.
type MeasurementView struct {
	Index     int                 `json:"index"`
	Timestamp string              `json:"timestamp"`
	Values    map[string]*float64 `json:"values"`
}

// ListMeasurementsResponse packages list results.
type ListMeasurementsResponse struct {
	Items      []MeasurementView `json:"items"`
	Total      int               `json:"total"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// AverageView is the average of one field.
type AverageView struct {
	Field   string  `json:"field"`
	Unit    string  `json:"unit"`
	Average float64 `json:"average"`
	Samples int     `json:"samples"`
}

// AveragesResponse describes the response body for averages.
type AveragesResponse struct {
	Available bool          `json:"available"`
	Averages  []AverageView `json:"averages"`
}

// DeltaView is the change of one field over the trend window.
type DeltaView struct {
	Field    string  `json:"field"`
	Delta    float64 `json:"delta"`
	Earliest float64 `json:"earliest"`
	Current  float64 `json:"current"`
}

// TrendsResponse describes the response body for trends.
type TrendsResponse struct {
	Available  bool        `json:"available"`
	PeriodDays int         `json:"period_days"`
	Cutoff     string      `json:"cutoff,omitempty"`
	Window     int         `json:"window"`
	Latest     string      `json:"latest,omitempty"`
	Deltas     []DeltaView `json:"deltas"`
}

func toMeasurementView(view domain.RecordView) MeasurementView {
	return MeasurementView{
		Index:     view.Index,
		Timestamp: view.Record.Timestamp,
		Values:    view.Record.Values(),
	}
}

func wantsText(r *http.Request) bool {
	return r.URL.Query().Get("format") == "text"
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
