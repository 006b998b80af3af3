// internal/webhook/gate.go
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"

	custom_errors "bitbucket-webhook-ingest/internal/errors"
	"bitbucket-webhook-ingest/internal/model"
)

// Request is the transport-independent view of an inbound webhook call.
type Request struct {
	Method         string
	EventKey       string
	RemoteAddr     string
	Body           []byte
	OrganizationID string
}

// Response carries only a status code; webhook responses have empty bodies.
type Response struct {
	Status int
}

// OrganizationFinder resolves an organization id, normally through the
// read-through cache.
type OrganizationFinder interface {
	GetOrganizationByID(ctx context.Context, id int64) (model.Organization, error)
}

// Gate validates an inbound request, selects a handler by event key, and
// translates the handler's outcome into a status code.
type Gate struct {
	orgs     OrganizationFinder
	registry *Registry
	allowed  netip.Prefix
	logger   *slog.Logger
}

func NewGate(orgs OrganizationFinder, registry *Registry, allowed netip.Prefix, logger *slog.Logger) *Gate {
	return &Gate{
		orgs:     orgs,
		registry: registry,
		allowed:  allowed,
		logger:   logger,
	}
}

// Handle runs the validation steps in order, short-circuiting on the first
// failure. The caller only ever learns a status code; everything else goes to
// the logs.
func (g *Gate) Handle(ctx context.Context, req Request) Response {
	if req.Method != http.MethodPost {
		return Response{Status: http.StatusMethodNotAllowed}
	}

	orgID, err := strconv.ParseInt(req.OrganizationID, 10, 64)
	if err != nil {
		g.logger.Error("bitbucket.webhook.invalid-organization",
			"organization_id", req.OrganizationID)
		return Response{Status: http.StatusBadRequest}
	}
	org, err := g.orgs.GetOrganizationByID(ctx, orgID)
	if err != nil {
		g.logger.Error("bitbucket.webhook.invalid-organization",
			"organization_id", orgID, "error", err)
		return Response{Status: http.StatusBadRequest}
	}

	if len(req.Body) == 0 {
		g.logger.Error("bitbucket.webhook.missing-body", "organization_id", org.ID)
		return Response{Status: http.StatusBadRequest}
	}

	if req.EventKey == "" {
		g.logger.Error("bitbucket.webhook.missing-event", "organization_id", org.ID)
		return Response{Status: http.StatusBadRequest}
	}
	handler, ok := g.registry.Lookup(req.EventKey)
	if !ok {
		// Unknown event types are acceptable; acknowledge and drop.
		return Response{Status: http.StatusNoContent}
	}

	// IP validation runs only once a known handler is identified, so events
	// the system does not act on never trip security alerts.
	if !g.allowedSource(req.RemoteAddr) {
		g.logger.Error("bitbucket.webhook.invalid-ip-range",
			"organization_id", org.ID, "remote_addr", req.RemoteAddr)
		return Response{Status: http.StatusUnauthorized}
	}

	if !json.Valid(req.Body) {
		g.logger.Error("bitbucket.webhook.invalid-json", "organization_id", org.ID)
		return Response{Status: http.StatusBadRequest}
	}

	if err := handler.Handle(ctx, org, req.Body); err != nil {
		var notFound *custom_errors.ErrRepositoryNotFound
		if errors.As(err, &notFound) {
			g.logger.Error("bitbucket.webhook.unknown-repository",
				"organization_id", org.ID, "error", err)
			return Response{Status: http.StatusNotFound}
		}
		// Handler failures are logged, never surfaced: a retry storm on a
		// permanently-broken payload helps nobody.
		g.logger.Error("bitbucket.webhook.handler-failed",
			"organization_id", org.ID, "event_key", req.EventKey, "error", err)
	}
	return Response{Status: http.StatusNoContent}
}

func (g *Gate) allowedSource(remoteAddr string) bool {
	addr, err := netip.ParseAddr(remoteAddr)
	if err != nil {
		return false
	}
	return g.allowed.Contains(addr.Unmap())
}
