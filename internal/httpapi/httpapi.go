// Package httpapi exposes the transaction, processor-admin, and stats
// endpoints fixed by the wire contract over the fallback engine.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/flexipay/fallback-engine/internal/circuitbreaker"
	"github.com/flexipay/fallback-engine/internal/engine"
	"github.com/flexipay/fallback-engine/internal/stats"
	"github.com/flexipay/fallback-engine/internal/transaction"
)

// Handler wires the engine, breaker registry, and stats sink into a
// routable HTTP surface.
type Handler struct {
	logger   *slog.Logger
	engine   *engine.Engine
	registry *circuitbreaker.Registry
	stats    *stats.Sink
	feeRates map[string]float64
}

// New builds a Handler over the given collaborators. feeRates maps each
// registered processor name to its fee rate, surfaced on the status
// endpoint alongside breaker state.
func New(logger *slog.Logger, eng *engine.Engine, registry *circuitbreaker.Registry, sink *stats.Sink, feeRates map[string]float64) *Handler {
	return &Handler{logger: logger, engine: eng, registry: registry, stats: sink, feeRates: feeRates}
}

// Routes returns a ServeMux with every endpoint registered.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transactions", h.postTransaction)
	mux.HandleFunc("GET /processors/status", h.getProcessorsStatus)
	mux.HandleFunc("POST /processors/{name}/reset", h.postProcessorReset)
	mux.HandleFunc("POST /processors/{name}/inject-failures", h.postProcessorInjectFailures)
	mux.HandleFunc("GET /stats", h.getStats)
	return mux
}

func (h *Handler) postTransaction(w http.ResponseWriter, r *http.Request) {
	var request transaction.Request
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed_request_body")
		return
	}

	if err := request.Validate(); err != nil {
		h.logger.Warn("rejected malformed transaction",
			slog.String("transaction_id", request.TransactionID),
			slog.String("error", err.Error()))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	response := h.engine.Process(r.Context(), request)
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) getProcessorsStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	reports := make([]statusReportDTO, 0, len(h.registry.List()))

	for _, name := range h.registry.List() {
		cb := h.registry.Get(name)
		if cb == nil {
			continue
		}
		reports = append(reports, toStatusReportDTO(name, cb.Status(now), h.feeRates[name]))
	}

	h.writeJSON(w, http.StatusOK, reports)
}

func (h *Handler) postProcessorReset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if ok := h.registry.Reset(name); !ok {
		h.writeError(w, http.StatusNotFound, "unknown_processor")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"processor": name,
		"action":    "reset",
		"state":     circuitbreaker.Closed.String(),
	})
}

func (h *Handler) postProcessorInjectFailures(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count < 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_count")
		return
	}

	now := time.Now()
	if ok := h.registry.Inject(name, now, count); !ok {
		h.writeError(w, http.StatusNotFound, "unknown_processor")
		return
	}

	cb := h.registry.Get(name)
	status := cb.Status(now)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"processor":             name,
		"injected_failures":     count,
		"state":                 status.State.String(),
		"success_rate":          status.SuccessRate,
		"total_calls_in_window": status.TotalCallsInWindow,
	})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.stats.Snapshot())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
