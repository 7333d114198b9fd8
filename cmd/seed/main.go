package main

import (
	"context"
	"fmt"
	"time"

	"appointly/internal/config"
	"appointly/internal/database"
	"appointly/internal/domain"
	"appointly/internal/logger"
	"appointly/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("appointly-seed", "dev", "info")
		logger.Get().Fatal().Err(err).Msg("config")
	}
	logger.Init("appointly-seed", cfg.AppEnv, cfg.LogLevel)
	log := logger.Get()

	if config.IsProdLike(cfg.AppEnv) {
		log.Fatal().Str("env", cfg.AppEnv).Msg("refusing to seed a production database")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("DB connection failed")
	}

	log.Info().Msg("Running AutoMigrate...")
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("AutoMigrate failed")
	}

	// Cleanup old data (children first)
	log.Info().Msg("Cleaning old data...")
	for _, table := range []string{"reviews", "bookings", "services", "provider_working_hours", "providers"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatal().Err(err).Str("table", table).Msg("cleanup failed")
		}
	}

	ctx := context.Background()
	providers := repository.NewProviderRepository(db)
	bookings := repository.NewBookingRepository(db)
	reviews := repository.NewReviewRepository(db)

	// ================== PROVIDERS ==================
	log.Info().Msg("Creating providers...")

	weekdays := func(spans ...domain.Interval) []domain.WorkingHoursEntry {
		out := make([]domain.WorkingHoursEntry, 0, 7)
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			open := wd != time.Sunday && wd != time.Saturday
			entry := domain.WorkingHoursEntry{Weekday: int(wd), IsOpen: open}
			if open {
				entry.Slots = spans
			}
			out = append(out, entry)
		}
		return out
	}
	span := func(start, end string) domain.Interval {
		return domain.Interval{Start: domain.MustTimeOfDay(start), End: domain.MustTimeOfDay(end)}
	}

	clinic := &domain.Provider{Name: "Riverside Physio", WorkingHours: weekdays(span("09:00", "12:00"), span("13:00", "17:00"))}
	barber := &domain.Provider{Name: "Corner Barbers", WorkingHours: weekdays(span("10:00", "19:00"))}
	for _, p := range []*domain.Provider{clinic, barber} {
		if err := providers.CreateProvider(ctx, p); err != nil {
			log.Fatal().Err(err).Str("provider", p.Name).Msg("create provider failed")
		}
	}

	// ================== SERVICES ==================
	log.Info().Msg("Creating services...")
	services := []*domain.Service{
		{ProviderID: clinic.ID, Name: "Initial assessment", DurationMinutes: 60, Price: 80, Available: true},
		{ProviderID: clinic.ID, Name: "Follow-up", DurationMinutes: 30, Price: 45, Available: true},
		{ProviderID: barber.ID, Name: "Haircut", DurationMinutes: 30, Price: 25, Available: true},
		{ProviderID: barber.ID, Name: "Beard trim", DurationMinutes: 15, Price: 12, Available: true},
		{ProviderID: barber.ID, Name: "Hot towel shave", DurationMinutes: 45, Price: 30, Available: false},
	}
	for _, s := range services {
		if err := providers.CreateService(ctx, s); err != nil {
			log.Fatal().Err(err).Str("service", s.Name).Msg("create service failed")
		}
	}

	// ================== BOOKINGS ==================
	log.Info().Msg("Creating bookings...")

	// next Monday so the demo day is always bookable
	now := time.Now().UTC()
	monday := now.AddDate(0, 0, (int(time.Monday)-int(now.Weekday())+7)%7+7).Format(domain.DateLayout)

	type demo struct {
		customer int64
		service  *domain.Service
		start    string
		path     []domain.BookingStatus
		rating   int
	}
	demos := []demo{
		{1, services[0], "09:00", []domain.BookingStatus{domain.BookingConfirmed, domain.BookingCompleted}, 5},
		{2, services[0], "10:00", []domain.BookingStatus{domain.BookingConfirmed, domain.BookingCompleted}, 4},
		{3, services[1], "13:00", []domain.BookingStatus{domain.BookingConfirmed}, 0},
		{1, services[2], "10:00", []domain.BookingStatus{domain.BookingConfirmed, domain.BookingCompleted}, 3},
		{2, services[2], "11:00", nil, 0},
		{3, services[3], "12:00", []domain.BookingStatus{domain.BookingCancelled}, 0},
	}

	for i, d := range demos {
		start := domain.MustTimeOfDay(d.start)
		b := &domain.Booking{
			CustomerID: d.customer,
			ProviderID: d.service.ProviderID,
			ServiceID:  d.service.ID,
			Date:       monday,
			StartTime:  start,
			EndTime:    start.Add(d.service.DurationMinutes),
			Status:     domain.BookingPending,
			TotalPrice: d.service.Price,
			Currency:   d.service.Currency,
			Notes:      fmt.Sprintf("Demo booking %d", i+1),
		}
		if err := bookings.Insert(ctx, b); err != nil {
			log.Fatal().Err(err).Int("demo", i+1).Msg("create booking failed")
		}
		for _, next := range d.path {
			if _, err := bookings.UpdateStatus(ctx, b.ID, next, "", time.Now().UTC()); err != nil {
				log.Fatal().Err(err).Int64("booking_id", b.ID).Msg("booking transition failed")
			}
		}

		if d.rating == 0 {
			continue
		}
		agg, err := reviews.Create(ctx, &domain.Review{
			BookingID:  b.ID,
			CustomerID: b.CustomerID,
			ProviderID: b.ProviderID,
			ServiceID:  b.ServiceID,
			Rating:     d.rating,
			Comment:    "Demo review",
		})
		if err != nil {
			log.Fatal().Err(err).Int64("booking_id", b.ID).Msg("create review failed")
		}
		log.Info().Int64("provider_id", b.ProviderID).Float64("rating", agg.Rating).Int("review_count", agg.ReviewCount).Msg("review added")
	}

	log.Info().
		Int64("clinic_id", clinic.ID).
		Int64("barber_id", barber.ID).
		Str("demo_date", monday).
		Msg("Seed completed")
}
