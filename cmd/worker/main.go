package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/notify-engine/internal/config"
	"github.com/jwalitptl/notify-engine/internal/gateway"
	"github.com/jwalitptl/notify-engine/internal/gateway/providers"
	"github.com/jwalitptl/notify-engine/internal/processor"
	"github.com/jwalitptl/notify-engine/internal/repository/postgres"
	"github.com/jwalitptl/notify-engine/pkg/httpclient"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/messaging"
	redisbroker "github.com/jwalitptl/notify-engine/pkg/messaging/redis"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

func main() {
	schedule := flag.String("schedule", "", "cron expression; empty runs one batch and exits")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *schedule == "" {
		*schedule = cfg.Processor.Schedule
	}

	log := newLogger(cfg.Log)

	db, err := postgres.NewDB(postgres.DatabaseConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	gatewayRepo := postgres.NewGatewayRepository(base)
	messageRepo := postgres.NewMessageRepository(base)
	settingRepo := postgres.NewSettingRepository(base)

	var broker messaging.Broker = messaging.NopBroker{}
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &log.ZL)
		if err != nil {
			log.Fatal(err, "failed to connect to redis")
		}
		defer broker.Close()
	}

	deps := gateway.Deps{
		HTTP: httpclient.New(httpclient.Config{
			ConnectTimeout: cfg.Gateway.ConnectTimeout,
			RequestTimeout: cfg.Gateway.RequestTimeout,
		}),
		DefaultCountryCode: cfg.Gateway.DefaultCountryCode,
	}

	proc := processor.New(
		gatewayRepo,
		messageRepo,
		settingRepo,
		providers.NewRegistry(),
		deps,
		broker,
		log,
		metrics.New("notify"),
		processor.Config{
			BatchSize:          cfg.Processor.BatchSize,
			MaxAttempts:        cfg.Processor.MaxAttempts,
			BackoffBase:        cfg.Processor.BackoffBase,
			SendTimeout:        cfg.Processor.SendTimeout,
			GatewayConcurrency: cfg.Processor.GatewayConcurrency,
			SendsPerSecond:     cfg.Processor.SendsPerSecond,
			QuotaDeferral:      cfg.Processor.QuotaDeferral,
		},
	)

	if *schedule == "" {
		runOnce(proc, log)
		return
	}
	runScheduled(proc, log, *schedule)
}

// runOnce executes a single batch. Per-message failures are normal
// operation and still exit zero; only an unusable queue store is fatal.
func runOnce(proc *processor.Processor, log *logger.Logger) {
	ctx, cancel := signalContext()
	defer cancel()

	if _, err := proc.Run(ctx); err != nil {
		log.Error(err, "queue run aborted")
		os.Exit(1)
	}
}

// runScheduled keeps the worker resident and fires batches on a cron
// schedule, for deployments without an external scheduler.
func runScheduled(proc *processor.Processor, log *logger.Logger, schedule string) {
	ctx, cancel := signalContext()
	defer cancel()

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := proc.Run(ctx); err != nil {
			log.Error(err, "queue run aborted")
		}
	})
	if err != nil {
		log.Fatal(err, "invalid cron schedule")
	}

	log.Info("worker started", "schedule", schedule)
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		log.Warn("timed out waiting for running batch")
	}
	log.Info("worker stopped")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newLogger(cfg config.LogConfig) *logger.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return logger.New(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Console,
	})
}
