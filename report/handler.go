package report

import (
	"errors"
	"log/slog"
	"net/http"
)

// Handler exposes the PDF renderer health for operators.
type Handler struct {
	client *Client
	logger *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(client *Client, logger *slog.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// ServeHTTP answers 200 when Gotenberg is reachable.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		if errors.Is(err, ErrNotConfigured) {
			http.Error(w, "pdf export disabled", http.StatusServiceUnavailable)
			return
		}
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, "pdf renderer unavailable", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
