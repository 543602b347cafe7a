package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"github.com/slotbook/slotbook/libs/config"
	"github.com/slotbook/slotbook/libs/db"
	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/libs/kafkax"
	otelx "github.com/slotbook/slotbook/libs/otel"
	"github.com/slotbook/slotbook/libs/runtime"
	"github.com/slotbook/slotbook/migrations"
	"github.com/slotbook/slotbook/services/mailer-service/internal/consumer"
	"github.com/slotbook/slotbook/services/mailer-service/internal/email"
	"github.com/slotbook/slotbook/services/mailer-service/internal/inbox"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type cancellationPayload struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	CanceledAt    string `json:"canceled_at"`
	Provider      struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"provider"`
	User struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "mailer-service")
	port, err := config.Port("PORT", "3334")
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

	inboxRepo := inbox.NewRepository(pool)

	smtpHost := config.String("SMTP_HOST", "mailpit")
	smtpPort := config.String("SMTP_PORT", "1025")
	smtpFrom := config.String("SMTP_FROM", "no-reply@slotbook.local")
	emailSender := email.NewSMTPSender(smtpHost, smtpPort, smtpFrom)

	consumerCfg := consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "mailer-service"),
		Topic:   config.String("KAFKA_CONSUME_TOPIC", "booking.appointment.cancelled.v1"),
	}
	jobConsumer := consumer.New(logger, inboxRepo, consumerCfg, func(ctx context.Context, msg kafka.Message) error {
		var payload cancellationPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid cancellation payload", "err", err)
			return nil
		}
		if payload.AppointmentID == "" || payload.Provider.Email == "" || payload.Date == "" {
			logger.Error("missing cancellation fields", "appointment_id", payload.AppointmentID)
			return nil
		}
		date, err := time.Parse(time.RFC3339, payload.Date)
		if err != nil {
			logger.Error("invalid date", "err", err)
			return nil
		}

		subject, body := email.CancellationMessage(payload.Provider.Name, payload.User.Name, date)
		if err := emailSender.Send(payload.Provider.Email, subject, body); err != nil {
			logger.Error("email send failed", "err", err, "recipient", payload.Provider.Email)
			return err
		}

		logger.Info("cancellation email sent", "appointment_id", payload.AppointmentID, "recipient", payload.Provider.Email)
		return nil
	})
	go jobConsumer.Run(ctx)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "mailer")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
