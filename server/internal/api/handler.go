package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/netpulse/netpulse/pkg/advisor"
	"github.com/netpulse/netpulse/pkg/compute"
	"github.com/netpulse/netpulse/pkg/exposition"
	"github.com/netpulse/netpulse/pkg/types"
	"github.com/netpulse/netpulse/server/internal/alerts"
	"github.com/netpulse/netpulse/server/internal/metrics"
	"github.com/netpulse/netpulse/server/internal/store"
)

const maxBodyBytes = 1 << 20

// Suggester produces suggestion text for a batch. *advisor.Client satisfies it.
type Suggester interface {
	SuggestBatch(ctx context.Context, b *types.Batch) (string, error)
	Config() advisor.Config
}

// AlertSource lists currently firing alerts. *alerts.Engine satisfies it.
type AlertSource interface {
	Active() []*alerts.Alert
	Evaluate(b *types.Batch, origin string)
}

// Deps are the collaborators of the REST API. Only Store is required.
type Deps struct {
	Store   *store.Store
	Alerts  AlertSource
	Advisor Suggester
	Metrics *metrics.Metrics

	// MaxDevices caps POST /api/v1/batches. Zero means no cap.
	MaxDevices int

	// AdvisorInsecureSkipVerify disables verification in the cert check.
	AdvisorInsecureSkipVerify bool
}

// Handler serves /api/v1/*.
type Handler struct {
	deps   Deps
	router *mux.Router
	now    func() time.Time
}

// New creates a Handler and registers all routes.
func New(deps Deps) *Handler {
	h := &Handler{deps: deps, router: mux.NewRouter(), now: time.Now}

	r := h.router.PathPrefix("/api/v1").Subrouter()
	r.Handle("/health", methods{http.MethodGet: h.health})
	r.Handle("/batches", methods{http.MethodGet: h.listBatches, http.MethodPost: h.generateBatch})
	r.Handle("/batches/latest", methods{http.MethodGet: h.latestBatch})
	r.Handle("/batches/{id}", methods{http.MethodGet: h.getBatch})
	r.Handle("/batches/{id}/score", methods{http.MethodPost: h.scoreBatch})
	r.Handle("/batches/{id}/projection", methods{http.MethodPost: h.projectBatch})
	r.Handle("/batches/{id}/suggestion", methods{http.MethodPost: h.suggest})
	r.Handle("/batches/{id}/metrics", methods{http.MethodGet: h.batchMetrics})
	r.Handle("/alerts", methods{http.MethodGet: h.alerts})
	r.Handle("/advisor", methods{http.MethodGet: h.advisorStatus})

	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	h.router.NotFoundHandler = notFound
	r.NotFoundHandler = notFound
	h.router.Use(h.instrument)

	return h
}

// methods routes one path by HTTP method. Each path is registered once, so a
// known path with an unlisted method always answers 405 with an Allow header.
type methods map[string]http.HandlerFunc

func (m methods) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if fn, ok := m[r.Method]; ok {
		fn(w, r)
		return
	}
	allow := make([]string, 0, len(m))
	for method := range m {
		allow = append(allow, method)
	}
	slices.Sort(allow)
	w.Header().Set("Allow", strings.Join(allow, ", "))
	jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// instrument labels request metrics with the matched route template so that
// batch IDs do not explode label cardinality.
func (h *Handler) instrument(next http.Handler) http.Handler {
	if h.deps.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		h.deps.Metrics.WrapHandler(route, next).ServeHTTP(w, r)
	})
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	entries := h.deps.Store.List()
	resp := HealthResponse{
		Status:         "ok",
		BatchCount:     len(entries),
		AdvisorEnabled: h.deps.Advisor != nil,
	}
	if len(entries) > 0 {
		resp.LatestBatchID = entries[0].Batch.ID
		resp.LatestReceivedAt = entries[0].ReceivedAt.UTC().Format(time.RFC3339)
	} else {
		resp.Status = "waiting"
	}
	if h.deps.Alerts != nil {
		for _, a := range h.deps.Alerts.Active() {
			if a.State == alerts.StateFiring {
				resp.AlertCount++
			}
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// listBatches returns GET /api/v1/batches.
func (h *Handler) listBatches(w http.ResponseWriter, _ *http.Request) {
	entries := h.deps.Store.List()
	out := make([]BatchSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, toSummary(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// generateBatch handles POST /api/v1/batches.
func (h *Handler) generateBatch(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.deps.MaxDevices > 0 && req.Count > h.deps.MaxDevices {
		jsonErr(w, http.StatusBadRequest, fmt.Sprintf("count %d exceeds limit %d", req.Count, h.deps.MaxDevices))
		return
	}

	weights := types.DefaultWeights()
	if req.Weights != nil {
		weights = *req.Weights
	}

	raw, err := compute.Generate(req.Count, compute.NewRand(req.Seed))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, compute.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		jsonErr(w, status, err.Error())
		return
	}
	devices, err := compute.Pipeline(raw, weights)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	b := &types.Batch{
		ID:          uuid.NewString(),
		GeneratedAt: h.now().UTC(),
		Seed:        req.Seed,
		Weights:     &weights,
		Devices:     devices,
	}
	e := h.deps.Store.Put(b, store.OriginAPI)
	if h.deps.Alerts != nil {
		h.deps.Alerts.Evaluate(b, store.OriginAPI)
	}
	h.deps.Metrics.BatchGenerated()

	slog.Info("api: batch generated", "batch_id", b.ID, "devices", len(devices))

	jsonResp(w, http.StatusCreated, NewBatchResponse(e))
}

// latestBatch returns GET /api/v1/batches/latest.
func (h *Handler) latestBatch(w http.ResponseWriter, _ *http.Request) {
	e, ok := h.deps.Store.Latest()
	if !ok {
		jsonErr(w, http.StatusNotFound, "no batches")
		return
	}
	jsonResp(w, http.StatusOK, NewBatchResponse(e))
}

// getBatch returns GET /api/v1/batches/{id}.
func (h *Handler) getBatch(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, NewBatchResponse(e))
}

// scoreBatch handles POST /api/v1/batches/{id}/score. The stored batch is
// left untouched.
func (h *Handler) scoreBatch(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req ScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Weights == nil {
		jsonErr(w, http.StatusBadRequest, "weights are required")
		return
	}

	devices, err := compute.Pipeline(e.Batch.Devices, *req.Weights)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, ScoreResponse{
		BatchID: e.Batch.ID,
		Weights: *req.Weights,
		Devices: devices,
	})
}

// projectBatch handles POST /api/v1/batches/{id}/projection. An empty body
// applies the default reduction.
func (h *Handler) projectBatch(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req ProjectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	red := compute.DefaultReduction()
	if req.Reduction != nil {
		red = *req.Reduction
	}
	if !validReduction(red) {
		jsonErr(w, http.StatusBadRequest, "reduction fractions must be within [0, 1]")
		return
	}

	jsonResp(w, http.StatusOK, ProjectionResponse{
		BatchID:   e.Batch.ID,
		Reduction: red,
		Devices:   compute.Project(e.Batch.Devices, red),
	})
}

// suggest handles POST /api/v1/batches/{id}/suggestion.
func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if h.deps.Advisor == nil {
		h.deps.Metrics.Suggestion(metrics.OutcomeUnavailable, 0)
		jsonErr(w, http.StatusServiceUnavailable, "advisor is not configured")
		return
	}

	start := h.now()
	text, err := h.deps.Advisor.SuggestBatch(r.Context(), e.Batch)
	elapsed := h.now().Sub(start)
	if err != nil {
		h.deps.Metrics.Suggestion(metrics.OutcomeError, elapsed)
		slog.Warn("api: suggestion failed", "batch_id", e.Batch.ID, "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		jsonErr(w, status, err.Error())
		return
	}
	h.deps.Metrics.Suggestion(metrics.OutcomeOK, elapsed)

	jsonResp(w, http.StatusOK, SuggestionResponse{
		BatchID:    e.Batch.ID,
		Model:      h.deps.Advisor.Config().Model,
		Suggestion: text,
	})
}

// batchMetrics returns GET /api/v1/batches/{id}/metrics in the Prometheus
// text format.
func (h *Handler) batchMetrics(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := exposition.Write(&buf, e.Batch.Devices); err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w) //nolint:errcheck
}

// alerts returns GET /api/v1/alerts.
func (h *Handler) alerts(w http.ResponseWriter, _ *http.Request) {
	if h.deps.Alerts == nil {
		jsonResp(w, http.StatusOK, []struct{}{})
		return
	}
	jsonResp(w, http.StatusOK, h.deps.Alerts.Active())
}

// advisorStatus returns GET /api/v1/advisor.
func (h *Handler) advisorStatus(w http.ResponseWriter, r *http.Request) {
	if h.deps.Advisor == nil {
		jsonResp(w, http.StatusOK, AdvisorResponse{Enabled: false})
		return
	}
	cfg := h.deps.Advisor.Config()
	jsonResp(w, http.StatusOK, AdvisorResponse{
		Enabled: true,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Cert:    advisor.CheckEndpoint(r.Context(), cfg.BaseURL, h.deps.AdvisorInsecureSkipVerify),
	})
}

// --- helpers ----------------------------------------------------------------

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*store.Entry, bool) {
	e, ok := h.deps.Store.Get(mux.Vars(r)["id"])
	if !ok {
		jsonErr(w, http.StatusNotFound, "batch not found")
	}
	return e, ok
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// unchanged.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func validReduction(r compute.Reduction) bool {
	for _, f := range []float64{r.Bandwidth, r.Latency, r.PacketLoss} {
		if f < 0 || f > 1 {
			return false
		}
	}
	return true
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

func toSummary(e *store.Entry) BatchSummary {
	s := BatchSummary{
		BatchID:     e.Batch.ID,
		Origin:      e.Origin,
		GeneratedAt: e.Batch.GeneratedAt.UTC().Format(time.RFC3339),
		ReceivedAt:  e.ReceivedAt.UTC().Format(time.RFC3339),
		DeviceCount: len(e.Batch.Devices),
	}
	if len(e.Batch.Devices) > 0 {
		top := e.Batch.Devices[0]
		s.TopDevice = top.DeviceID
		s.TopScore = top.Score()
	}
	return s
}

// NewBatchResponse builds the full JSON view of a stored batch, including
// per-device diagnostics.
func NewBatchResponse(e *store.Entry) BatchResponse {
	diags := make([]DeviceDiagnostics, 0, len(e.Batch.Devices))
	for _, d := range e.Batch.Devices {
		diags = append(diags, DeviceDiagnostics{DeviceID: d.DeviceID, Hints: computeDiagnostics(d)})
	}
	return BatchResponse{
		Batch:       e.Batch,
		Origin:      e.Origin,
		ReceivedAt:  e.ReceivedAt.UTC().Format(time.RFC3339),
		Diagnostics: diags,
	}
}
