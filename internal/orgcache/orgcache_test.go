// internal/orgcache/orgcache_test.go
package orgcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	custom_errors "bitbucket-webhook-ingest/internal/errors"
	"bitbucket-webhook-ingest/internal/model"
)

// MockLookup is a mock of the orgcache.Lookup interface.
type MockLookup struct {
	mock.Mock
}

func (m *MockLookup) GetOrganizationByID(ctx context.Context, id int64) (model.Organization, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Organization), args.Error(1)
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	org := model.Organization{ID: 1, Name: "acme"}

	t.Run("serves repeated lookups from cache within the TTL", func(t *testing.T) {
		lookup := new(MockLookup)
		cache := New(lookup, time.Minute)

		lookup.On("GetOrganizationByID", ctx, int64(1)).Return(org, nil).Once()

		for range 3 {
			got, err := cache.GetOrganizationByID(ctx, 1)
			assert.NoError(t, err)
			assert.Equal(t, org, got)
		}
		lookup.AssertExpectations(t)
	})

	t.Run("refreshes an expired entry", func(t *testing.T) {
		lookup := new(MockLookup)
		cache := New(lookup, time.Nanosecond)

		lookup.On("GetOrganizationByID", ctx, int64(1)).Return(org, nil).Twice()

		_, err := cache.GetOrganizationByID(ctx, 1)
		assert.NoError(t, err)
		time.Sleep(time.Millisecond)
		_, err = cache.GetOrganizationByID(ctx, 1)
		assert.NoError(t, err)
		lookup.AssertExpectations(t)
	})

	t.Run("does not cache not-found results", func(t *testing.T) {
		lookup := new(MockLookup)
		cache := New(lookup, time.Minute)

		notFound := &custom_errors.ErrOrganizationNotFound{ID: 2}
		lookup.On("GetOrganizationByID", ctx, int64(2)).Return(model.Organization{}, notFound).Twice()

		_, err := cache.GetOrganizationByID(ctx, 2)
		assert.ErrorIs(t, err, notFound)
		_, err = cache.GetOrganizationByID(ctx, 2)
		assert.ErrorIs(t, err, notFound)
		lookup.AssertExpectations(t)
	})
}
