// internal/webhook/gate_test.go
package webhook

import (
	"context"
	"net/http"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	custom_errors "bitbucket-webhook-ingest/internal/errors"
	"bitbucket-webhook-ingest/internal/model"
)

// MockOrgFinder is a mock of the webhook.OrganizationFinder interface.
type MockOrgFinder struct {
	mock.Mock
}

func (m *MockOrgFinder) GetOrganizationByID(ctx context.Context, id int64) (model.Organization, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Organization), args.Error(1)
}

// recordingHandler captures what the gate hands to a resolved handler.
type recordingHandler struct {
	err   error
	calls int
	org   model.Organization
	body  []byte
}

func (h *recordingHandler) Handle(_ context.Context, org model.Organization, body []byte) error {
	h.calls++
	h.org = org
	h.body = body
	return h.err
}

const (
	insideAddr  = "104.192.143.5"
	outsideAddr = "203.0.113.9"
)

func newTestGate(orgs OrganizationFinder, push Handler) *Gate {
	return NewGate(orgs, NewRegistry(push), netip.MustParsePrefix("104.192.143.0/24"), testLogger())
}

func validRequest() Request {
	return Request{
		Method:         http.MethodPost,
		EventKey:       EventKeyPush,
		RemoteAddr:     insideAddr,
		Body:           []byte(`{"push": {"changes": []}}`),
		OrganizationID: "1",
	}
}

func TestGate_Handle(t *testing.T) {
	ctx := context.Background()
	org := model.Organization{ID: 1, Name: "acme"}

	t.Run("rejects non-POST methods", func(t *testing.T) {
		orgs := new(MockOrgFinder)
		handler := &recordingHandler{}
		gate := newTestGate(orgs, handler)

		req := validRequest()
		req.Method = http.MethodGet
		resp := gate.Handle(ctx, req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.Status)
		orgs.AssertNotCalled(t, "GetOrganizationByID")
		assert.Zero(t, handler.calls)
	})

	t.Run("rejects a non-numeric organization id", func(t *testing.T) {
		orgs := new(MockOrgFinder)
		handler := &recordingHandler{}
		gate := newTestGate(orgs, handler)

		req := validRequest()
		req.OrganizationID = "acme"
		resp := gate.Handle(ctx, req)

		assert.Equal(t, http.StatusBadRequest, resp.Status)
		orgs.AssertNotCalled(t, "GetOrganizationByID")
	})

	t.Run("rejects an unknown organization", func(t *testing.T) {
		orgs := new(MockOrgFinder)
		handler := &recordingHandler{}
		gate := newTestGate(orgs, handler)

		orgs.On("GetOrganizationByID", ctx, int64(1)).
			Return(model.Organization{}, &custom_errors.ErrOrganizationNotFound{ID: 1}).Once()

		resp := gate.Handle(ctx, validRequest())

		assert.Equal(t, http.StatusBadRequest, resp.Status)
		orgs.AssertExpectations(t)
		assert.Zero(t, handler.calls)
	})

	t.Run("rejects an empty body", func(t *testing.T) {
		orgs := new(MockOrgFinder)
		handler := &recordingHandler{}
		gate := newTestGate(orgs, handler)

		orgs.On("GetOrganizationByID", ctx, int64(1)).Return(org, nil).Once()

		req := validRequest()
		req.Body = nil
		resp := gate.Handle(ctx, req)

		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.Zero(t, handler.calls)
	})

	t.Run("rejects a missing event key", func(t *testing.T) {
		orgs := new(MockOrgFinder)
		handler := &recordingHandler{}
		gate := newTestGate(orgs, handler)

		orgs.On("GetOrganizationByID", ctx, int64(1)).Return(org, nil).Once()

		req := validRequest()
		req.EventKey = ""
		resp := gate.Handle(ctx, req)

		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.Zero(t, handler.calls)
	})

	t.Run("acknowledges an unhandled event key without checking the source IP", func(t *testing.T) {
		orgs := new(MockOrgFinder)
		handler := &recordingHandler{}
		gate := newTestGate(orgs, handler)

		orgs.On("GetOrganizationByID", ctx, int64(1)).Return(org, nil).Once()

		req := validRequest()
		req.EventKey = "repo:fork"
		req.RemoteAddr = outsideAddr
		resp := gate.Handle(ctx, req)

		assert.Equal(t, http.StatusNoContent, resp.Status)
		assert.Zero(t, handler.calls)
	})

	t.Run("rejects a known event from outside the allowed range", func(t *testing.T) {
		orgs := new(MockOrgFinder)
		handler := &recordingHandler{}
		gate := newTestGate(orgs, handler)

		orgs.On("GetOrganizationByID", ctx, int64(1)).Return(org, nil).Once()

		req := validRequest()
		req.RemoteAddr = outsideAddr
		resp := gate.Handle(ctx, req)

		assert.Equal(t, http.StatusUnauthorized, resp.Status)
		assert.Zero(t, handler.calls)
	})

	t.Run("accepts an IPv4-mapped source address inside the range", func(t *testing.T) {
		orgs := new(MockOrgFinder)
		handler := &recordingHandler{}
		gate := newTestGate(orgs, handler)

		orgs.On("GetOrganizationByID", ctx, int64(1)).Return(org, nil).Once()

		req := validRequest()
		req.RemoteAddr = "::ffff:" + insideAddr
		resp := gate.Handle(ctx, req)

		assert.Equal(t, http.StatusNoContent, resp.Status)
		assert.Equal(t, 1, handler.calls)
	})

	t.Run("rejects a malformed JSON body", func(t *testing.T) {
		orgs := new(MockOrgFinder)
		handler := &recordingHandler{}
		gate := newTestGate(orgs, handler)

		orgs.On("GetOrganizationByID", ctx, int64(1)).Return(org, nil).Once()

		req := validRequest()
		req.Body = []byte(`{"push": `)
		resp := gate.Handle(ctx, req)

		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.Zero(t, handler.calls)
	})

	t.Run("invokes the handler and acknowledges", func(t *testing.T) {
		orgs := new(MockOrgFinder)
		handler := &recordingHandler{}
		gate := newTestGate(orgs, handler)

		orgs.On("GetOrganizationByID", ctx, int64(1)).Return(org, nil).Once()

		req := validRequest()
		resp := gate.Handle(ctx, req)

		assert.Equal(t, http.StatusNoContent, resp.Status)
		assert.Equal(t, 1, handler.calls)
		assert.Equal(t, org, handler.org)
		assert.Equal(t, req.Body, handler.body)
	})

	t.Run("maps an unregistered repository to 404", func(t *testing.T) {
		orgs := new(MockOrgFinder)
		handler := &recordingHandler{
			err: &custom_errors.ErrRepositoryNotFound{OrganizationID: 1, Provider: Provider, ExternalID: "{x}"},
		}
		gate := newTestGate(orgs, handler)

		orgs.On("GetOrganizationByID", ctx, int64(1)).Return(org, nil).Once()

		resp := gate.Handle(ctx, validRequest())

		assert.Equal(t, http.StatusNotFound, resp.Status)
	})

	t.Run("absorbs other handler failures as 204", func(t *testing.T) {
		orgs := new(MockOrgFinder)
		handler := &recordingHandler{err: assert.AnError}
		gate := newTestGate(orgs, handler)

		orgs.On("GetOrganizationByID", ctx, int64(1)).Return(org, nil).Once()

		resp := gate.Handle(ctx, validRequest())

		assert.Equal(t, http.StatusNoContent, resp.Status)
	})
}

func TestRegistry_Lookup(t *testing.T) {
	push := &recordingHandler{}
	registry := NewRegistry(push)

	h, ok := registry.Lookup(EventKeyPush)
	assert.True(t, ok)
	assert.Same(t, push, h)

	_, ok = registry.Lookup("repo:fork")
	assert.False(t, ok)
}
