package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/errors"
)

// HistoryFunc lists up to limit persisted analytics windows, newest first.
type HistoryFunc func(ctx context.Context, limit int) (any, error)

// Handler serves the live aggregate and, when history is set, persisted
// snapshots.
type Handler struct {
	aggregator *Aggregator
	history    HistoryFunc
	logger     *slog.Logger
}

// NewHandler creates a handler. history may be nil.
func NewHandler(aggregator *Aggregator, history HistoryFunc) *Handler {
	return &Handler{
		aggregator: aggregator,
		history:    history,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.aggregator.Stats())
}

// Snapshots serves GET /api/v1/analytics/snapshots?limit=N (default 10, max
// 100).
func (h *Handler) Snapshots(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusServiceUnavailable, "snapshot history is disabled")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 100)
	}
	snaps, err := h.history(r.Context(), limit)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if !errors.Is(err, apperrors.ErrSnapshotNotFound) {
			h.logger.Error("listing snapshots failed", "error", err)
		}
		h.writeError(w, status, "listing snapshots failed")
		return
	}
	h.writeJSON(w, http.StatusOK, snaps)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
