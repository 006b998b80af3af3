// internal/api/handler.go
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bitbucket-webhook-ingest/internal/webhook"
)

// eventKeyHeader is the Bitbucket header naming the event type.
const eventKeyHeader = "X-Event-Key"

// maxBodyBytes bounds webhook payload reads; Bitbucket caps payloads well
// below this.
const maxBodyBytes = 10 << 20

// Handler is the container for API dependencies.
type Handler struct {
	gate   *webhook.Gate
	logger *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(gate *webhook.Gate, logger *slog.Logger) http.Handler {
	h := &Handler{
		gate:   gate,
		logger: logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Post("/webhooks/bitbucket/{organization_id}", h.bitbucketWebhook)

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// bitbucketWebhook bridges the HTTP request into the transport-independent
// gate and writes back its status code. Webhook responses carry no body.
func (h *Handler) bitbucketWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Error("Failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	resp := h.gate.Handle(r.Context(), webhook.Request{
		Method:         r.Method,
		EventKey:       r.Header.Get(eventKeyHeader),
		RemoteAddr:     remoteIP(r),
		Body:           body,
		OrganizationID: chi.URLParam(r, "organization_id"),
	})
	w.WriteHeader(resp.Status)
}

// remoteIP returns the caller address without a port. middleware.RealIP has
// already rewritten RemoteAddr when a forwarding header is present, in which
// case there is no port to strip.
func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
