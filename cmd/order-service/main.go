package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/app"
	"github.com/vladislavdragonenkov/orderflow/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level := log.InfoLevel
	if raw := os.Getenv("ORDERFLOW_LOG_LEVEL"); raw != "" {
		if parsed, err := log.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	log.SetLevel(level)
}

func main() {
	// .env удобен при локальной разработке; в проде его нет.
	_ = godotenv.Load()
	setupLogger()

	cfg := app.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"version":      version.String(),
	}).Info("запускаем сервис заказов")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("сервис заказов остановлен")
}
