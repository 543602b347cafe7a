package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/slotbook/slotbook/libs/config"
	"github.com/slotbook/slotbook/libs/db"
	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/libs/kafkax"
	otelx "github.com/slotbook/slotbook/libs/otel"
	"github.com/slotbook/slotbook/libs/runtime"
	"github.com/slotbook/slotbook/migrations"
	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/handlers"
	"github.com/slotbook/slotbook/services/booking-service/internal/outbox"
	"github.com/slotbook/slotbook/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "3333")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	baseURL := strings.TrimRight(config.String("BASE_URL", "http://localhost:"+port), "/")
	uploadDir := config.String("UPLOAD_DIR", "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		logger.Error("upload dir create failed", "dir", uploadDir, "err", err)
		panic(err)
	}

	schedule, err := availability.ParseSchedule(config.String("SCHEDULE_SLOTS", ""))
	if err != nil {
		logger.Error("invalid SCHEDULE_SLOTS", "err", err)
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if config.Bool("MIGRATE_ON_START", true) {
		n, err := db.Migrate(ctx, pool, migrations.FS)
		if err != nil {
			logger.Error("migration failed", "err", err)
			panic(err)
		}
		if n > 0 {
			logger.Info("migrations applied", "count", n)
		}
	}

	users := storage.NewUserRepository(pool)
	appointments := storage.NewAppointmentRepository(pool)
	notifications := storage.NewNotificationRepository(pool)
	files := storage.NewFileRepository(pool)

	outboxRepo := outbox.NewRepository(pool)
	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	svc := booking.NewService(users, appointments, notifications, outboxRepo, schedule, logger)

	tokenTTL := time.Duration(config.Int("JWT_TTL_HOURS", 168)) * time.Hour
	userHandler := handlers.NewUserHandler(users, logger, baseURL)
	sessionHandler := handlers.NewSessionHandler(users, logger, jwtSecret, tokenTTL, baseURL)
	providerHandler := handlers.NewProviderHandler(users, svc, logger, baseURL)
	appointmentHandler := handlers.NewAppointmentHandler(svc, logger, baseURL)
	notificationHandler := handlers.NewNotificationHandler(svc, logger)
	fileHandler := handlers.NewFileHandler(users, files, logger, uploadDir, baseURL)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if kafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}
	mux := runtime.NewBaseMux(readyChecks...)

	requireAuth := handlers.RequireAuth(jwtSecret)
	protect := func(h http.Handler) http.Handler { return requireAuth(h) }

	mux.HandleFunc("/api/v1/users", func(w http.ResponseWriter, r *http.Request) {
		// Registration is public; profile updates need a session.
		if r.Method == http.MethodPut {
			protect(userHandler).ServeHTTP(w, r)
			return
		}
		userHandler.ServeHTTP(w, r)
	})
	mux.HandleFunc("/api/v1/sessions", sessionHandler.Create)
	mux.Handle("/api/v1/providers", protect(http.HandlerFunc(providerHandler.List)))
	mux.Handle("/api/v1/providers/slots", protect(http.HandlerFunc(providerHandler.Slots)))
	mux.Handle("/api/v1/schedule", protect(http.HandlerFunc(providerHandler.Schedule)))
	mux.Handle("/api/v1/appointments", protect(appointmentHandler))
	mux.Handle("/api/v1/appointments/cancel", protect(http.HandlerFunc(appointmentHandler.Cancel)))
	mux.Handle("/api/v1/notifications", protect(http.HandlerFunc(notificationHandler.List)))
	mux.Handle("/api/v1/notifications/read", protect(http.HandlerFunc(notificationHandler.MarkRead)))
	mux.Handle("/api/v1/files", protect(http.HandlerFunc(fileHandler.UploadAvatar)))
	mux.Handle("/files/", fileHandler.Serve())

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(config.String("CORS_ALLOWED_ORIGINS", ""), ","),
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(10 << 20),
		httpx.WithTimeout(30 * time.Second),
	}
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		limiter := httpx.NewRedisRateLimiter(rdb, config.Int("RATE_LIMIT_PER_MINUTE", 120), time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		limiter := httpx.NewRateLimiter(2, 10)
		middlewares = append(middlewares, limiter.Middleware())
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
