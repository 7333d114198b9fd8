package availability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"appointly/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetProvider(ctx context.Context, id int64) (*domain.Provider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Provider), args.Error(1)
}

func (m *MockCatalog) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, providerID, serviceID int64, date string) ([]domain.Slot, bool, error) {
	args := m.Called(ctx, providerID, serviceID, date)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.Slot), args.Bool(1), args.Error(2)
}

func (m *MockCache) Version(ctx context.Context, providerID int64) (int64, error) {
	args := m.Called(ctx, providerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, providerID, serviceID int64, date string, version int64, slots []domain.Slot) error {
	args := m.Called(ctx, providerID, serviceID, date, version, slots)
	return args.Error(0)
}

func TestService_GetAvailability_CacheMissThenFill(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetProvider", mock.Anything, int64(1)).Return(openProvider("09:00", "10:00"), nil)
	catalog.On("GetService", mock.Anything, int64(3)).Return(service(30), nil)

	ledger := new(MockLedger)
	ledger.On("BookingsFor", mock.Anything, int64(1), monday, false).Return([]domain.Booking{}, nil)

	cache := new(MockCache)
	cache.On("Get", mock.Anything, int64(1), int64(3), monday).Return(nil, false, nil)
	cache.On("Version", mock.Anything, int64(1)).Return(int64(4), nil)
	cache.On("Set", mock.Anything, int64(1), int64(3), monday, int64(4), mock.Anything).Return(nil)

	svc := NewService(catalog, NewResolver(ledger, 30), cache)
	slots, err := svc.GetAvailability(context.Background(), 1, 3, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30"}, starts(slots))
	cache.AssertCalled(t, "Set", mock.Anything, int64(1), int64(3), monday, int64(4), slots)
}

func TestService_GetAvailability_NoWriteWithoutVersion(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetProvider", mock.Anything, int64(1)).Return(openProvider("09:00", "10:00"), nil)
	catalog.On("GetService", mock.Anything, int64(3)).Return(service(30), nil)

	ledger := new(MockLedger)
	ledger.On("BookingsFor", mock.Anything, int64(1), monday, false).Return([]domain.Booking{}, nil)

	cache := new(MockCache)
	cache.On("Get", mock.Anything, int64(1), int64(3), monday).Return(nil, false, nil)
	cache.On("Version", mock.Anything, int64(1)).Return(int64(0), errors.New("redis: i/o timeout"))

	slots, err := NewService(catalog, NewResolver(ledger, 30), cache).GetAvailability(context.Background(), 1, 3, monday)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_GetAvailability_CacheHitSkipsLedger(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetProvider", mock.Anything, int64(1)).Return(openProvider("09:00", "10:00"), nil)
	catalog.On("GetService", mock.Anything, int64(3)).Return(service(30), nil)

	cached := []domain.Slot{{Start: domain.MustTimeOfDay("09:30"), End: domain.MustTimeOfDay("10:00")}}
	cache := new(MockCache)
	cache.On("Get", mock.Anything, int64(1), int64(3), monday).Return(cached, true, nil)

	ledger := new(MockLedger)
	svc := NewService(catalog, NewResolver(ledger, 30), cache)

	slots, err := svc.GetAvailability(context.Background(), 1, 3, monday)
	require.NoError(t, err)
	assert.Equal(t, cached, slots)
	ledger.AssertNotCalled(t, "BookingsFor", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_GetAvailability_CacheErrorFallsBack(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetProvider", mock.Anything, int64(1)).Return(openProvider("09:00", "10:00"), nil)
	catalog.On("GetService", mock.Anything, int64(3)).Return(service(60), nil)

	ledger := new(MockLedger)
	ledger.On("BookingsFor", mock.Anything, int64(1), monday, false).Return([]domain.Booking{}, nil)

	cache := new(MockCache)
	cache.On("Get", mock.Anything, int64(1), int64(3), monday).Return(nil, false, errors.New("redis: connection refused"))

	slots, err := NewService(catalog, NewResolver(ledger, 30), cache).GetAvailability(context.Background(), 1, 3, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, starts(slots))
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_GetAvailability_ForeignService(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetProvider", mock.Anything, int64(1)).Return(openProvider("09:00", "10:00"), nil)
	foreign := service(30)
	foreign.ProviderID = 2
	catalog.On("GetService", mock.Anything, int64(3)).Return(foreign, nil)

	_, err := NewService(catalog, NewResolver(new(MockLedger), 30), nil).GetAvailability(context.Background(), 1, 3, monday)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_GetAvailability_NotFound(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("GetProvider", mock.Anything, int64(9)).Return(nil, fmt.Errorf("%w: provider 9", domain.ErrNotFound))

	_, err := NewService(catalog, NewResolver(new(MockLedger), 30), nil).GetAvailability(context.Background(), 9, 3, monday)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHandler_GetAvailability(t *testing.T) {
	gin.SetMode(gin.TestMode)

	catalog := new(MockCatalog)
	catalog.On("GetProvider", mock.Anything, int64(1)).Return(openProvider("09:00", "10:00"), nil)
	catalog.On("GetService", mock.Anything, int64(3)).Return(service(30), nil)
	ledger := new(MockLedger)
	ledger.On("BookingsFor", mock.Anything, int64(1), monday, false).Return([]domain.Booking{}, nil)

	r := gin.New()
	NewHandler(NewService(catalog, NewResolver(ledger, 30), nil)).RegisterRoutes(r.Group("/api/v1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/providers/1/availability?service_id=3&date="+monday, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `{"start":"09:00","end":"09:30"}`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/providers/1/availability?service_id=3&date=tomorrow", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/providers/abc/availability?service_id=3&date="+monday, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
