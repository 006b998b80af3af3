// internal/webhook/registry.go
package webhook

import (
	"context"

	"bitbucket-webhook-ingest/internal/model"
)

// EventKeyPush is the Bitbucket event key for push notifications.
const EventKeyPush = "repo:push"

// Handler processes a single classified webhook event for an organization.
// The body is the raw request payload; each handler owns its own schema.
type Handler interface {
	Handle(ctx context.Context, org model.Organization, body []byte) error
}

// Registry is a fixed event-key to handler mapping, resolved at startup.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry wires the closed set of supported event keys. Event keys the
// provider adds later simply go unhandled.
func NewRegistry(push Handler) *Registry {
	return &Registry{
		handlers: map[string]Handler{
			EventKeyPush: push,
		},
	}
}

// Lookup returns the handler for an event key. A miss is a legitimate
// "not handled" outcome, not an error.
func (r *Registry) Lookup(eventKey string) (Handler, bool) {
	h, ok := r.handlers[eventKey]
	return h, ok
}
