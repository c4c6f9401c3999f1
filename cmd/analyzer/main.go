package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spacesedan/pulseai/config"
	"github.com/spacesedan/pulseai/internal/clients"
	"github.com/spacesedan/pulseai/internal/clients/kafka_client"
	"github.com/spacesedan/pulseai/internal/consumers"
	"github.com/spacesedan/pulseai/internal/conversation"
	"github.com/spacesedan/pulseai/internal/db"
	"github.com/spacesedan/pulseai/internal/logging"
	"github.com/spacesedan/pulseai/internal/monitoring"
	"github.com/spacesedan/pulseai/internal/pipeline"
)

func main() {
	config.LoadEnv(config.AppEnv())
	logging.InitLogger()
	settings := config.LoadSettings()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := pipeline.Build(settings)
	if err != nil {
		slog.Error("[Main] Failed to build pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer components.Close()

	classifierHealthy := &atomic.Bool{}
	classifierHealthy.Store(true)
	if components.Health != nil {
		go monitoring.MonitorClassifierHealth(ctx, components.Health, classifierHealthy)
	}

	history := db.NewHistoryStore(clients.GetDynamoDBClient(), settings.HistoryTableName)
	deps := conversation.Deps{
		Router:      components.Router,
		Titles:      components.Titles,
		UseAITitles: settings.TitleUseAI,
		History:     history,
	}

	// Chats are only recorded when a database is configured.
	if os.Getenv("DB_HOST") != "" {
		pg := clients.GetPostgresClient(ctx, clients.PostgresDSNFromEnv())
		defer pg.Close()

		chats := db.NewChatStore(pg.DB)
		if err := chats.EnsureSchema(ctx); err != nil {
			slog.Error("[Main] Failed to prepare chat schema", slog.String("error", err.Error()))
			os.Exit(1)
		}
		deps.Chats = chats
	}
	service := conversation.NewService(deps)

	cfg := kafka_client.GetKafkaConfig()

	hostname, _ := os.Hostname()
	var producer *kafka_client.KafkaProducer
	for {
		producer, err = kafka_client.NewKafkaProducer(cfg, "pulseai-analyzer-"+hostname)
		if err == nil {
			break
		}

		slog.Warn("[Main] Kafka init failed, retrying...", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
	defer producer.Close()

	metricsServer := &http.Server{Addr: settings.MetricsAddr, Handler: monitoring.Handler()}
	go func() {
		slog.Info("[Main] Serving metrics", slog.String("addr", settings.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[Main] Metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	kafka_client.RegisterConsumer(kafka_client.KAFKA_TOPIC_ANALYSIS_REQUEST, consumers.WrapConsumer(
		consumers.StartAnalysisRequestConsumer(service, producer)).WithHealthCheck(classifierHealthy).Handler())
	kafka_client.RegisterConsumer(kafka_client.KAFKA_TOPIC_ANALYSIS_RESULTS, consumers.WrapConsumer(
		consumers.StartResultsConsumer(history)).Handler())

	if err := kafka_client.StartConsumer(ctx, cfg); err != nil {
		slog.Error("[Main] Failed to start consumer",
			slog.String("error", err.Error()),
			slog.Any("registered", kafka_client.RegisteredTopics()))
	}
}
