package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"appointly/internal/database"
	"appointly/internal/domain"
	"appointly/internal/modules/availability"
	"appointly/internal/pkg/keylock"
	"appointly/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 2026-03-02 is a Monday, 2026-03-01 a Sunday.
const (
	monday = "2026-03-02"
	sunday = "2026-03-01"
)

type fixture struct {
	db        *gorm.DB
	svc       *Service
	bookings  *repository.BookingRepository
	catalog   *repository.ProviderRepository
	resolver  *availability.Resolver
	locks     *keylock.Locker
	provider  *domain.Provider
	service   *domain.Service
	otherProv *domain.Provider
}

func newFixture(t *testing.T, lockTimeout time.Duration) *fixture {
	t.Helper()

	db, err := database.Connect("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	ctx := context.Background()
	catalog := repository.NewProviderRepository(db)
	bookings := repository.NewBookingRepository(db)

	hours := []domain.WorkingHoursEntry{
		{Weekday: int(time.Monday), IsOpen: true, Slots: []domain.Interval{
			{Start: domain.MustTimeOfDay("09:00"), End: domain.MustTimeOfDay("17:00")},
		}},
		{Weekday: int(time.Sunday), IsOpen: false},
	}
	p := &domain.Provider{Name: "Barber One", WorkingHours: hours}
	require.NoError(t, catalog.CreateProvider(ctx, p))
	other := &domain.Provider{Name: "Barber Two", WorkingHours: hours}
	require.NoError(t, catalog.CreateProvider(ctx, other))

	s := &domain.Service{ProviderID: p.ID, Name: "Haircut", DurationMinutes: 60, Price: 50, Currency: "EUR", Available: true}
	require.NoError(t, catalog.CreateService(ctx, s))

	resolver := availability.NewResolver(bookings, 30)
	locks := keylock.New(lockTimeout)

	return &fixture{
		db:        db,
		svc:       NewService(bookings, catalog, resolver, locks),
		bookings:  bookings,
		catalog:   catalog,
		resolver:  resolver,
		locks:     locks,
		provider:  p,
		service:   s,
		otherProv: other,
	}
}

func (f *fixture) request(start string) CreateBookingRequest {
	return CreateBookingRequest{
		ProviderID: f.provider.ID,
		ServiceID:  f.service.ID,
		Date:       monday,
		StartTime:  start,
	}
}

func (f *fixture) starts(t *testing.T) []string {
	t.Helper()
	slots, err := availability.NewService(f.catalog, f.resolver, nil).
		GetAvailability(context.Background(), f.provider.ID, f.service.ID, monday)
	require.NoError(t, err)
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.String())
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.AvailabilityEvent
}

func (p *recordingPublisher) Publish(e domain.AvailabilityEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, providerID int64, date string) error {
	args := m.Called(ctx, providerID, date)
	return args.Error(0)
}

func TestRequestBooking_CreatesPendingWithSnapshot(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	req := f.request("10:00")
	req.Notes = "first visit"
	b, err := f.svc.RequestBooking(ctx, 7, req)
	require.NoError(t, err)

	assert.NotZero(t, b.ID)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, "11:00", b.EndTime.String())
	assert.Equal(t, 50.0, b.TotalPrice)
	assert.Equal(t, "EUR", b.Currency)

	// a later price change does not touch existing bookings
	require.NoError(t, f.db.Exec("UPDATE services SET price = ? WHERE id = ?", 90, f.service.ID).Error)
	stored, err := f.bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, stored.TotalPrice)
	assert.Equal(t, "first visit", stored.Notes)
}

func TestRequestBooking_ConcurrentSameSlotSingleWinner(t *testing.T) {
	f := newFixture(t, 5*time.Second)

	const n = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		won  int
		lost int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(customer int64) {
			defer wg.Done()
			_, err := f.svc.RequestBooking(context.Background(), customer, f.request("14:00"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				won++
				return
			}
			if assert.ErrorIs(t, err, domain.ErrSlotUnavailable) {
				lost++
			}
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, n-1, lost)

	occupying, err := f.bookings.BookingsFor(context.Background(), f.provider.ID, monday, false)
	require.NoError(t, err)
	assert.Len(t, occupying, 1)
}

func TestRequestBooking_ConcurrentOverlappingWindows(t *testing.T) {
	f := newFixture(t, 5*time.Second)

	starts := []string{"10:00", "10:30", "10:00", "10:30"}
	errs := make([]error, len(starts))
	var wg sync.WaitGroup
	for i, s := range starts {
		wg.Add(1)
		go func(i int, start string) {
			defer wg.Done()
			_, errs[i] = f.svc.RequestBooking(context.Background(), int64(i+1), f.request(start))
		}(i, s)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	}
	assert.Equal(t, 1, ok)

	occupying, err := f.bookings.BookingsFor(context.Background(), f.provider.ID, monday, false)
	require.NoError(t, err)
	require.Len(t, occupying, 1)
}

func TestRequestBooking_Rejections(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	disabled := &domain.Service{ProviderID: f.provider.ID, Name: "Shave", DurationMinutes: 30, Price: 20, Currency: "EUR", Available: false}
	require.NoError(t, f.catalog.CreateService(ctx, disabled))

	cases := []struct {
		name     string
		customer int64
		mutate   func(r *CreateBookingRequest)
		want     error
	}{
		{"missing customer", 0, func(r *CreateBookingRequest) {}, domain.ErrValidation},
		{"bad date", 1, func(r *CreateBookingRequest) { r.Date = "2026-13-01" }, domain.ErrValidation},
		{"bad time", 1, func(r *CreateBookingRequest) { r.StartTime = "9:00" }, domain.ErrValidation},
		{"unknown provider", 1, func(r *CreateBookingRequest) { r.ProviderID = 999 }, domain.ErrNotFound},
		{"unknown service", 1, func(r *CreateBookingRequest) { r.ServiceID = 999 }, domain.ErrNotFound},
		{"service of another provider", 1, func(r *CreateBookingRequest) { r.ProviderID = f.otherProv.ID }, domain.ErrValidation},
		{"disabled service", 1, func(r *CreateBookingRequest) { r.ServiceID = disabled.ID }, domain.ErrServiceUnavailable},
		{"closed day", 1, func(r *CreateBookingRequest) { r.Date = sunday }, domain.ErrSlotUnavailable},
		{"off grid start", 1, func(r *CreateBookingRequest) { r.StartTime = "09:15" }, domain.ErrSlotUnavailable},
		{"runs past closing", 1, func(r *CreateBookingRequest) { r.StartTime = "16:30" }, domain.ErrSlotUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.request("10:00")
			tc.mutate(&req)
			_, err := f.svc.RequestBooking(ctx, tc.customer, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	occupying, err := f.bookings.BookingsFor(ctx, f.provider.ID, monday, true)
	require.NoError(t, err)
	assert.Empty(t, occupying)
}

func TestRequestBooking_BusyWhenLockHeld(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)

	unlock, err := f.locks.Lock(context.Background(), bookingKey(f.provider.ID, monday))
	require.NoError(t, err)
	defer unlock()

	_, err = f.svc.RequestBooking(context.Background(), 1, f.request("10:00"))
	assert.ErrorIs(t, err, domain.ErrBusy)

	// another day of the same provider is not blocked
	req := f.request("10:00")
	req.Date = "2026-03-09"
	_, err = f.svc.RequestBooking(context.Background(), 1, req)
	assert.NoError(t, err)
}

func TestRequestBooking_BusyWhenCallerDeadlineExpires(t *testing.T) {
	f := newFixture(t, 5*time.Second)

	unlock, err := f.locks.Lock(context.Background(), bookingKey(f.provider.ID, monday))
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = f.svc.RequestBooking(ctx, 1, f.request("10:00"))
	assert.ErrorIs(t, err, domain.ErrBusy)
}

func TestUpdateStatus_LifecycleAndAuthorization(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	b, err := f.svc.RequestBooking(ctx, 7, f.request("12:00"))
	require.NoError(t, err)

	customer := domain.Actor{UserID: 7, Role: domain.RoleCustomer}
	stranger := domain.Actor{UserID: 8, Role: domain.RoleCustomer}
	staff := domain.Actor{UserID: 100, Role: domain.RoleProvider, ProviderID: f.provider.ID}
	foreignStaff := domain.Actor{UserID: 101, Role: domain.RoleProvider, ProviderID: f.otherProv.ID}

	_, err = f.svc.UpdateStatus(ctx, customer, b.ID, UpdateStatusRequest{Status: "confirmed"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.UpdateStatus(ctx, foreignStaff, b.ID, UpdateStatusRequest{Status: "confirmed"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.UpdateStatus(ctx, stranger, b.ID, UpdateStatusRequest{Status: "cancelled"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.UpdateStatus(ctx, staff, b.ID, UpdateStatusRequest{Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	updated, err := f.svc.UpdateStatus(ctx, staff, b.ID, UpdateStatusRequest{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, updated.Status)

	_, err = f.svc.UpdateStatus(ctx, staff, b.ID, UpdateStatusRequest{Status: "pending"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	updated, err = f.svc.UpdateStatus(ctx, customer, b.ID, UpdateStatusRequest{Status: "cancelled", Reason: "cannot make it"})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, updated.Status)
	assert.Equal(t, "cannot make it", updated.CancellationReason)

	_, err = f.svc.UpdateStatus(ctx, staff, b.ID, UpdateStatusRequest{Status: "completed"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, staff, 999, UpdateStatusRequest{Status: "confirmed"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// cancellation frees the window
	assert.Contains(t, f.starts(t), "12:00")
	_, err = f.svc.RequestBooking(ctx, 8, f.request("12:00"))
	assert.NoError(t, err)
}

func TestGetBookingAndList(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	b, err := f.svc.RequestBooking(ctx, 7, f.request("09:00"))
	require.NoError(t, err)
	_, err = f.svc.RequestBooking(ctx, 7, f.request("13:00"))
	require.NoError(t, err)

	got, err := f.svc.GetBooking(ctx, domain.Actor{UserID: 7, Role: domain.RoleCustomer}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = f.svc.GetBooking(ctx, domain.Actor{UserID: 8, Role: domain.RoleCustomer}, b.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.GetBooking(ctx, domain.Actor{UserID: 1, Role: domain.RoleAdmin}, b.ID)
	assert.NoError(t, err)

	list, err := f.svc.ListMyBookings(ctx, 7, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.svc.ListMyBookings(ctx, 7, ListQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProviderAgenda(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	first, err := f.svc.RequestBooking(ctx, 7, f.request("11:00"))
	require.NoError(t, err)
	_, err = f.svc.RequestBooking(ctx, 8, f.request("09:00"))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, domain.Actor{UserID: 7, Role: domain.RoleCustomer}, first.ID, UpdateStatusRequest{Status: "cancelled"})
	require.NoError(t, err)

	staff := domain.Actor{UserID: 100, Role: domain.RoleProvider, ProviderID: f.provider.ID}
	list, err := f.svc.ProviderAgenda(ctx, staff, f.provider.ID, monday)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "09:00", list[0].StartTime.String())
	assert.Equal(t, domain.BookingCancelled, list[1].Status)

	_, err = f.svc.ProviderAgenda(ctx, staff, f.otherProv.ID, monday)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.ProviderAgenda(ctx, domain.Actor{UserID: 7, Role: domain.RoleCustomer}, f.provider.ID, monday)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.ProviderAgenda(ctx, staff, f.provider.ID, "02.03.2026")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRequestBooking_InvalidatesCacheAndPublishes(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	cache := new(MockInvalidator)
	cache.On("Invalidate", mock.Anything, f.provider.ID, monday).Return(nil)
	pub := &recordingPublisher{}
	f.svc.WithCache(cache).WithEvents(pub)

	b, err := f.svc.RequestBooking(ctx, 7, f.request("15:00"))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, domain.Actor{UserID: 7, Role: domain.RoleCustomer}, b.ID, UpdateStatusRequest{Status: "cancelled"})
	require.NoError(t, err)

	cache.AssertNumberOfCalls(t, "Invalidate", 2)
	require.Len(t, pub.events, 2)
	assert.Equal(t, domain.EventBookingCreated, pub.events[0].Type)
	assert.Equal(t, "15:00", pub.events[0].Start.String())
	assert.Equal(t, domain.EventBookingUpdated, pub.events[1].Type)
	assert.Equal(t, domain.BookingCancelled, pub.events[1].Status)

	// a failed commit neither invalidates nor publishes
	_, err = f.svc.RequestBooking(ctx, 8, f.request("09:15"))
	require.Error(t, err)
	cache.AssertNumberOfCalls(t, "Invalidate", 2)
	assert.Len(t, pub.events, 2)
}

func TestEndToEnd_BookThenAvailabilityShrinks(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	before := f.starts(t)
	require.Len(t, before, 15)
	assert.Equal(t, "09:00", before[0])
	assert.Equal(t, "16:00", before[14])

	b, err := f.svc.RequestBooking(ctx, 1, f.request("10:00"))
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, "11:00", b.EndTime.String())

	after := f.starts(t)
	assert.Len(t, after, 12)
	for _, gone := range []string{"09:30", "10:00", "10:30"} {
		assert.NotContains(t, after, gone)
	}
	assert.Contains(t, after, "09:00")
	assert.Contains(t, after, "11:00")

	_, err = f.svc.RequestBooking(ctx, 2, f.request("10:00"))
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
}
