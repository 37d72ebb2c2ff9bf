// Package app собирает и запускает сервис заказов.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/orderflow/internal/health"
	"github.com/vladislavdragonenkov/orderflow/internal/idempotency"
	"github.com/vladislavdragonenkov/orderflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderflow/internal/service/order"
	"github.com/vladislavdragonenkov/orderflow/internal/service/outbox"
	"github.com/vladislavdragonenkov/orderflow/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/orderflow/internal/version"
)

// Run запускает сервис и блокируется до отмены ctx или фатальной ошибки.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	// Kafka опционален: без brokers события остаются в outbox/timeline.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	cache := idempotency.New(cfg.IdempotencyMaxEntries, cfg.IdempotencyTTL)

	orderService := order.NewService(order.Deps{
		Orders:        deps.Orders,
		Members:       deps.Members,
		Products:      deps.Products,
		Payments:      deps.Payments,
		Cache:         cache,
		Outbox:        deps.Outbox,
		Timeline:      deps.Timeline,
		Logger:        logger.WithField("component", "order-orchestrator"),
		KafkaProducer: kafkaProducer,
		CreateTimeout: cfg.CreateTimeout,
	})

	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)
		worker := outbox.NewWorker(deps.Outbox, publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlqPublisher),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
		)
		go worker.Run(ctx)
	}

	healthHandler := healthcheck.NewHandler(version.String())
	if deps.Store != nil {
		healthHandler.RegisterPing("postgres", deps.Store.Ping)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	apiServer := httpapi.NewServer(orderService, logger.WithField("component", "httpapi"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.ListenAndServe(ctx, cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервис")
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
