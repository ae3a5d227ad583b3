package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"gymbook/internal/app/commands"
	bookingapp "gymbook/internal/app/handlers/booking"
	"gymbook/internal/app/middleware"
	appoutbox "gymbook/internal/app/outbox"
	"gymbook/internal/app/policies"
	"gymbook/internal/app/queries"
	domainbooking "gymbook/internal/domain/booking"
	"gymbook/internal/infra/broker/kafka"
	"gymbook/internal/infra/config"
	mongostore "gymbook/internal/infra/db/mongo"
	ginserver "gymbook/internal/infra/http/gin"
	"gymbook/internal/infra/obs"
	"gymbook/internal/infra/payments"
	"gymbook/internal/infra/storage/memory"
	"gymbook/internal/jobs"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	runner := cron.New()
	expiry := jobs.ExpiryJob{Commands: app.commandBus, Threshold: cfg.ExpiryThreshold, Logger: logger}
	if _, err := expiry.Register(runner, cfg.ExpiryCronSpec); err != nil {
		logger.Error("expiry job registration failed", "error", err)
		os.Exit(1)
	}
	runner.Start()
	defer runner.Stop()

	// The per-command flush drops back to the buffer when the broker is down;
	// the drain loop keeps retrying delivery in the background.
	drain := jobs.OutboxDrain{Box: app.outbox, Interval: cfg.OutboxPollInterval, Backoff: cfg.RetryBackoff, Logger: logger}
	go drain.Run(ctx)

	if app.consumer != nil {
		go func() {
			if err := app.consumer.Run(ctx, []string{cfg.PaymentsTopic}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("payments consumer stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers   ginserver.Handlers
	commandBus commands.Bus
	consumer   *kafka.Consumer
	outbox     appoutbox.Outbox
	ready      func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	var (
		stores  domainbooking.Stores
		idStore middleware.IdempotencyStore
		ready   = func() error { return nil }
	)
	switch cfg.StorageMode {
	case "mongo":
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, err
		}
		stores = mongostore.NewStores(client.DB)
		idStore = mongostore.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
	default:
		stores = memory.NewStores()
		idStore = memory.NewIdempotencyStore()
	}

	var gateway policies.PaymentsPort
	if cfg.GatewayURL != "" && cfg.Env != "dev" && cfg.Env != "local" {
		gateway = payments.NewGateway(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	} else {
		gateway = memory.NewPaymentsGateway()
	}

	schedule := memory.NewScheduleStore()
	hooks := bookingapp.HookSelector{
		Class:   bookingapp.ClassHooks{},
		Trainer: bookingapp.TrainerHooks{Schedule: schedule},
	}

	var sink memory.Sink
	var consumer *kafka.Consumer
	commandBus := commands.NewInMemoryBus()

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return application{}, err
		}
		topic := cfg.KafkaTopicPrefix + "booking.events.v1"
		sink = func(ctx context.Context, rec appoutbox.EventRecord) error {
			payload, err := json.Marshal(map[string]any{
				"id":          rec.ID,
				"type":        rec.Name,
				"occurred_at": rec.OccurredAt,
				"data":        json.RawMessage(rec.Payload),
			})
			if err != nil {
				return err
			}
			return producer.Publish(ctx, topic, rec.Aggregate, payload, rec.Headers)
		}
	}
	box := memory.NewOutbox(sink)
	encoder := appoutbox.JSONEventEncoder{}

	commands.RegisterHandler(commandBus, bookingapp.RequestBookingCommand{}.Key(), &bookingapp.RequestBookingHandler{
		Stores: stores, Outbox: box, Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.AcceptBookingCommand{}.Key(), &bookingapp.AcceptBookingHandler{
		Stores: stores, Hooks: hooks, Outbox: box, Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.RejectBookingCommand{}.Key(), &bookingapp.RejectBookingHandler{
		Stores: stores, Outbox: box, Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.MarkUnavailableCommand{}.Key(), &bookingapp.MarkUnavailableHandler{
		Stores: stores, Outbox: box, Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.ConfirmPaymentCommand{}.Key(), &bookingapp.ConfirmPaymentHandler{
		Stores: stores, Outbox: box, Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.SetScheduleCommand{}.Key(), &bookingapp.SetScheduleHandler{
		Stores: stores, Outbox: box, Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.DropBookingCommand{}.Key(), &bookingapp.DropBookingHandler{
		Stores: stores, Payments: gateway, Outbox: box, Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		Stores: stores, Hooks: hooks, Outbox: box, Encoder: encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.PurgeExpiredCommand{}.Key(), &bookingapp.PurgeExpiredHandler{
		Stores: stores, Outbox: box, Encoder: encoder,
	})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.OutboxFlush(box),
	)

	users := bookingapp.NewUserInfoCache(memory.NewUserDirectory(), 512)
	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.ListBookingsQuery{}.Key(), &bookingapp.ListBookingsHandler{
		Stores: stores, Users: users,
	})

	if len(cfg.KafkaBrokers) > 0 {
		var err error
		consumer, err = kafka.NewConsumer(cfg.KafkaBrokers, cfg.PaymentsGroupID, logger, kafka.PaymentsHandler{
			Commands: commandBusWithMiddleware,
			Logger:   logger,
		})
		if err != nil {
			return application{}, err
		}
	}

	return application{
		handlers: ginserver.Handlers{
			Booking: ginserver.BookingHandler{
				Commands: commandBusWithMiddleware,
				Queries:  queryBus,
			},
		},
		commandBus: commandBusWithMiddleware,
		consumer:   consumer,
		outbox:     box,
		ready:      ready,
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
