package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/slotwise/booking-api/internal/config"
	"github.com/slotwise/booking-api/internal/email"
	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository/postgres"
	calendarService "github.com/slotwise/booking-api/internal/service/calendar"
	notificationService "github.com/slotwise/booking-api/internal/service/notification"
	internalworker "github.com/slotwise/booking-api/internal/worker"
	"github.com/slotwise/booking-api/pkg/auth"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/messaging"
	"github.com/slotwise/booking-api/pkg/messaging/redis"
	"github.com/slotwise/booking-api/pkg/metrics"
	"github.com/slotwise/booking-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := logger.NewLogger(&logger.Config{Level: level, Pretty: cfg.Log.Pretty})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	bookingRepo := postgres.NewBookingRepository(db)
	typeRepo := postgres.NewAppointmentTypeRepository(db)
	userRepo := postgres.NewUserRepository(db)
	calendarRepo := postgres.NewCalendarRepository(db)
	loginCodeRepo := postgres.NewLoginCodeRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	m := metrics.NewMetrics("booking_worker")

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Zerolog())
	if err != nil {
		log.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	var sender email.Sender
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, log)
	} else {
		log.Warn("SMTP not configured, dropping outgoing email")
		sender = email.NoopSender{}
	}

	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        cfg.JWT.Expiry,
		RefreshExpiry: cfg.JWT.RefreshExpiry,
	})

	notifier := notificationService.NewService(notificationRepo, sender, m, log)
	calendarSvc := calendarService.NewService(calendarRepo, bookingRepo, userRepo, calendarService.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	}, jwtSvc, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, log, m)
	reminderWorker := internalworker.NewReminderWorker(
		bookingRepo, typeRepo, notifier,
		cfg.Notifications.ReminderLead, cfg.Notifications.ScanInterval, log,
	)
	cleanupWorker := internalworker.NewLoginCodeCleanupWorker(loginCodeRepo, time.Hour, log)

	var wg sync.WaitGroup
	start := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}
	start(outboxProcessor.Start)
	start(reminderWorker.Start)
	start(cleanupWorker.Start)

	consumer := &eventConsumer{
		broker:   broker,
		notifier: notifier,
		calendar: calendarSvc,
		logger:   log,
	}
	for _, eventType := range []string{
		model.EventBookingCreated,
		model.EventBookingCancelled,
		model.EventBookingCompleted,
	} {
		et := eventType
		start(func(ctx context.Context) { consumer.consume(ctx, et) })
	}

	startHealthServer(log)

	log.Info("worker started")
	<-ctx.Done()
	log.Info("shutting down worker")
	wg.Wait()
	log.Info("worker exited")
}

// eventConsumer fans booking events out to email notifications and calendar
// sync. Failures are logged, not retried; the reminder scan and the next
// booking mutation give the calendar a chance to converge.
type eventConsumer struct {
	broker   messaging.Broker
	notifier *notificationService.Service
	calendar *calendarService.Service
	logger   *logger.Logger
}

func (c *eventConsumer) consume(ctx context.Context, eventType string) {
	msgs, err := c.broker.Subscribe(ctx, eventType)
	if err != nil {
		c.logger.Error(err, "failed to subscribe", "event_type", eventType)
		return
	}
	c.logger.Info("subscribed", "event_type", eventType)

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-msgs:
			if !ok {
				return
			}
			c.handle(ctx, eventType, raw)
		}
	}
}

func (c *eventConsumer) handle(ctx context.Context, eventType string, raw []byte) {
	if err := c.notifier.HandleBookingEvent(ctx, eventType, raw); err != nil {
		c.logger.Error(err, "failed to send notification", "event_type", eventType)
	}

	var payload model.BookingEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Error(err, "malformed event payload", "event_type", eventType)
		return
	}

	switch eventType {
	case model.EventBookingCreated:
		if err := c.calendar.PushBooking(ctx, payload.BookingID); err != nil {
			c.logger.Error(err, "failed to push booking to calendar", "booking_id", payload.BookingID.String())
		}
	case model.EventBookingCancelled:
		if err := c.calendar.RemoveBooking(ctx, payload.BookingID); err != nil {
			c.logger.Error(err, "failed to remove booking from calendar", "booking_id", payload.BookingID.String())
		}
	}
}

func startHealthServer(log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil && err != http.ErrServerClosed {
			log.Error(err, "health server failed")
		}
	}()
}
