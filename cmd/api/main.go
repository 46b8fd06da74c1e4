package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/slotwise/booking-api/internal/config"
	"github.com/slotwise/booking-api/internal/email"
	appointmenttypeHandler "github.com/slotwise/booking-api/internal/handler/appointmenttype"
	authHandler "github.com/slotwise/booking-api/internal/handler/auth"
	availabilityHandler "github.com/slotwise/booking-api/internal/handler/availability"
	billingHandler "github.com/slotwise/booking-api/internal/handler/billing"
	bookingHandler "github.com/slotwise/booking-api/internal/handler/booking"
	calendarHandler "github.com/slotwise/booking-api/internal/handler/calendar"
	healthHandler "github.com/slotwise/booking-api/internal/handler/health"
	organizationHandler "github.com/slotwise/booking-api/internal/handler/organization"
	publicHandler "github.com/slotwise/booking-api/internal/handler/public"
	userHandler "github.com/slotwise/booking-api/internal/handler/user"
	"github.com/slotwise/booking-api/internal/middleware"
	"github.com/slotwise/booking-api/internal/repository/postgres"
	"github.com/slotwise/booking-api/internal/router"
	appointmenttypeService "github.com/slotwise/booking-api/internal/service/appointmenttype"
	authService "github.com/slotwise/booking-api/internal/service/auth"
	availabilityService "github.com/slotwise/booking-api/internal/service/availability"
	billingService "github.com/slotwise/booking-api/internal/service/billing"
	bookingService "github.com/slotwise/booking-api/internal/service/booking"
	calendarService "github.com/slotwise/booking-api/internal/service/calendar"
	organizationService "github.com/slotwise/booking-api/internal/service/organization"
	userService "github.com/slotwise/booking-api/internal/service/user"
	"github.com/slotwise/booking-api/pkg/auth"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/messaging/redis"
	"github.com/slotwise/booking-api/pkg/metrics"
	"github.com/slotwise/booking-api/pkg/security"
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

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(db, cfg.Database.MigrationsDir); err != nil {
			log.Fatal(err, "failed to run migrations")
		}
	}

	orgRepo := postgres.NewOrganizationRepository(db)
	userRepo := postgres.NewUserRepository(db)
	typeRepo := postgres.NewAppointmentTypeRepository(db)
	availabilityRepo := postgres.NewAvailabilityRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	subscriptionRepo := postgres.NewSubscriptionRepository(db)
	calendarRepo := postgres.NewCalendarRepository(db)
	loginCodeRepo := postgres.NewLoginCodeRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	m := metrics.NewMetrics("booking_api")

	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        cfg.JWT.Expiry,
		RefreshExpiry: cfg.JWT.RefreshExpiry,
	})
	hasher := security.NewCodeHasher(0)

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

	availabilitySvc := availabilityService.NewService(orgRepo, userRepo, typeRepo, availabilityRepo, bookingRepo, m, log)
	bookingSvc := bookingService.NewService(bookingRepo, typeRepo, userRepo, outboxRepo, availabilitySvc, bookingService.Config{
		MaxAdvance: cfg.Booking.MaxAdvance,
		MinNotice:  cfg.Booking.MinNotice,
	}, m, log)
	authSvc := authService.NewService(userRepo, loginCodeRepo, hasher, jwtSvc, sender, log)
	orgSvc := organizationService.NewService(orgRepo, userRepo, log)
	userSvc := userService.NewService(userRepo, log)
	typeSvc := appointmenttypeService.NewService(typeRepo, orgRepo, log)
	billingSvc := billingService.NewService(orgRepo, subscriptionRepo, billingService.Config{
		APIKey:           cfg.Stripe.APIKey,
		WebhookSecret:    cfg.Stripe.WebhookSecret,
		WebhookTolerance: cfg.Stripe.WebhookTolerance,
		ProPriceID:       cfg.Stripe.ProPriceID,
	}, log)
	calendarSvc := calendarService.NewService(calendarRepo, bookingRepo, userRepo, calendarService.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	}, jwtSvc, log)

	var redisClient *goredis.Client
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
	if opts, err := goredis.ParseURL(cfg.Redis.URL); err == nil {
		redisClient = goredis.NewClient(opts)
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The worker binary drains the outbox in production; running a second
	// processor here keeps single-binary deployments working. Row locks make
	// the two safe to run together.
	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, log, m)
	go outboxProcessor.Start(ctx)

	authMW := middleware.NewAuthMiddleware(jwtSvc)

	handlers := router.Handlers{
		Health:          healthHandler.NewHandler(db, redisClient),
		Auth:            authHandler.NewHandler(authSvc),
		Organization:    organizationHandler.NewHandler(orgSvc),
		User:            userHandler.NewHandler(userSvc),
		AppointmentType: appointmenttypeHandler.NewHandler(typeSvc),
		Availability:    availabilityHandler.NewHandler(availabilitySvc),
		Booking:         bookingHandler.NewHandler(bookingSvc),
		Billing:         billingHandler.NewHandler(billingSvc, log),
		Calendar:        calendarHandler.NewHandler(calendarSvc),
		Public:          publicHandler.NewHandler(orgSvc, userSvc, typeSvc, availabilitySvc, bookingSvc),
	}

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	if len(cfg.CORS.AllowedMethods) > 0 {
		corsCfg.AllowMethods = cfg.CORS.AllowedMethods
	}
	if len(cfg.CORS.AllowedHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.CORS.AllowedHeaders
	}

	routerCfg := router.Config{
		RequestTimeout: cfg.Server.RequestTimeout,
		CORS:           corsCfg,
		MetricsPrefix:  "booking_api",
		Release:        !cfg.Log.Pretty,
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerCfg.RateBurst = cfg.RateLimit.Burst
	}
	r := router.New(authMW, handlers, log, routerCfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited")
}
