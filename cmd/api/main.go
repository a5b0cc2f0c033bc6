package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/notify-engine/internal/config"
	"github.com/jwalitptl/notify-engine/internal/dispatch"
	"github.com/jwalitptl/notify-engine/internal/gateway"
	"github.com/jwalitptl/notify-engine/internal/gateway/providers"
	gatewayHandler "github.com/jwalitptl/notify-engine/internal/handler/gateway"
	"github.com/jwalitptl/notify-engine/internal/handler/health"
	messageHandler "github.com/jwalitptl/notify-engine/internal/handler/message"
	promHandler "github.com/jwalitptl/notify-engine/internal/handler/prometheus"
	templateHandler "github.com/jwalitptl/notify-engine/internal/handler/template"
	triggerHandler "github.com/jwalitptl/notify-engine/internal/handler/trigger"
	workflowHandler "github.com/jwalitptl/notify-engine/internal/handler/workflow"
	"github.com/jwalitptl/notify-engine/internal/middleware"
	"github.com/jwalitptl/notify-engine/internal/repository/postgres"
	"github.com/jwalitptl/notify-engine/internal/router"
	gatewayService "github.com/jwalitptl/notify-engine/internal/service/gateway"
	messageService "github.com/jwalitptl/notify-engine/internal/service/message"
	templateService "github.com/jwalitptl/notify-engine/internal/service/template"
	workflowService "github.com/jwalitptl/notify-engine/internal/service/workflow"
	"github.com/jwalitptl/notify-engine/pkg/auth"
	"github.com/jwalitptl/notify-engine/pkg/httpclient"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
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
	workflowRepo := postgres.NewWorkflowRepository(base)
	gatewayRepo := postgres.NewGatewayRepository(base)
	messageRepo := postgres.NewMessageRepository(base)
	templateRepo := postgres.NewTemplateRepository(base)

	registry := providers.NewRegistry()
	deps := gateway.Deps{
		HTTP: httpclient.New(httpclient.Config{
			ConnectTimeout: cfg.Gateway.ConnectTimeout,
			RequestTimeout: cfg.Gateway.RequestTimeout,
		}),
		DefaultCountryCode: cfg.Gateway.DefaultCountryCode,
	}

	engineMetrics := metrics.New("notify")

	templateSvc := templateService.NewService(templateRepo)
	workflowSvc := workflowService.NewService(workflowRepo, templateRepo, gatewayRepo)
	gatewaySvc := gatewayService.NewService(gatewayRepo, registry, deps)
	messageSvc := messageService.NewService(messageRepo, gatewayRepo, registry, deps)
	dispatcher := dispatch.NewService(workflowRepo, gatewayRepo, messageRepo, templateSvc, log, engineMetrics)

	tokens := auth.NewTokenService(cfg.JWT.Secret)
	authMw := middleware.NewAuthMiddleware(tokens)

	r := router.New(
		log,
		authMw,
		health.NewHandler(db),
		promHandler.New("notify"),
		workflowHandler.NewHandler(workflowSvc),
		gatewayHandler.NewHandler(gatewaySvc),
		templateHandler.NewHandler(templateSvc),
		messageHandler.NewHandler(messageSvc),
		triggerHandler.NewHandler(dispatcher),
		router.Config{
			RateLimit:   cfg.Server.RateLimit,
			RateBurst:   cfg.Server.RateBurst,
			CORS:        middleware.DefaultCORSConfig(),
			AuthEnabled: cfg.JWT.Enabled,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("starting API server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
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
