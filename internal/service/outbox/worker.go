// Package outbox содержит воркер публикации событий заказов из transactional outbox.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

const (
	defaultPollInterval   = 1 * time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond

	// maxRetryDelay ограничивает exponential backoff между попытками.
	maxRetryDelay = 30 * time.Second
)

var (
	publishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderflow_outbox_publish_attempts_total",
		Help: "Total number of outbox publish attempts grouped by result.",
	}, []string{"result"})
	pendingBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orderflow_outbox_pending_records",
		Help: "Current number of pending records in transactional outbox.",
	})
	oldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orderflow_outbox_oldest_pending_age_seconds",
		Help: "Age in seconds of the oldest pending outbox record.",
	})
)

// Options задаёт параметры воркера.
type Options struct {
	Logger         *log.Entry
	DLQPublisher   domain.OutboxPublisher
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Option настраивает Worker.
type Option func(*Options)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithDLQPublisher задаёт publisher для отправки в DLQ после исчерпания retry.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(opts *Options) {
		opts.DLQPublisher = publisher
	}
}

// WithPollInterval задаёт частоту опроса outbox.
func WithPollInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.PollInterval = interval
	}
}

// WithBatchSize задаёт размер батча из outbox.
func WithBatchSize(batchSize int) Option {
	return func(opts *Options) {
		opts.BatchSize = batchSize
	}
}

// WithMaxAttempts задаёт число попыток публикации перед failed/DLQ.
func WithMaxAttempts(maxAttempts int) Option {
	return func(opts *Options) {
		opts.MaxAttempts = maxAttempts
	}
}

// WithRetryBaseDelay задаёт базовый delay для exponential backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *Options) {
		opts.RetryBaseDelay = delay
	}
}

// Worker переносит pending-события заказов из outbox в брокер.
// События одного заказа публикуются в порядке постановки, потому что
// PullPending возвращает их отсортированными по времени, а ключом
// партиционирования служит идентификатор заказа.
type Worker struct {
	repo           domain.OutboxRepository
	publisher      domain.OutboxPublisher
	dlqPublisher   domain.OutboxPublisher
	logger         *log.Entry
	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

// NewWorker создаёт outbox worker.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	opts := Options{
		PollInterval:   defaultPollInterval,
		BatchSize:      defaultBatchSize,
		MaxAttempts:    defaultMaxAttempts,
		RetryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "outbox-worker")
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}

	return &Worker{
		repo:           repo,
		publisher:      publisher,
		dlqPublisher:   opts.DLQPublisher,
		logger:         logger,
		pollInterval:   opts.PollInterval,
		batchSize:      opts.BatchSize,
		maxAttempts:    opts.MaxAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
	}
}

// Run запускает периодический polling outbox до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один polling-цикл и возвращает число опубликованных событий.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	w.refreshBacklogMetrics()

	messages, err := w.repo.PullPending(w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending outbox messages")
		return 0
	}
	if len(messages) == 0 {
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			break
		}
		if w.deliver(ctx, msg) {
			sent++
		}
	}

	w.refreshBacklogMetrics()
	return sent
}

// deliver публикует одно сообщение с retry; при исчерпании попыток
// уводит его в DLQ и помечает failed.
func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage) bool {
	if err := w.publishWithRetry(ctx, msg); err != nil {
		w.logger.WithError(err).WithFields(log.Fields{
			"outbox_id":  msg.ID,
			"event_type": msg.EventType,
		}).Error("outbox publish failed after retries")
		publishAttempts.WithLabelValues("failed").Inc()

		if dlqErr := w.publishToDLQ(msg, err); dlqErr != nil {
			w.logger.WithError(dlqErr).WithField("outbox_id", msg.ID).Warn("failed to publish to DLQ")
			publishAttempts.WithLabelValues("dlq_failed").Inc()
		}
		if markErr := w.repo.MarkFailed(msg.ID); markErr != nil {
			w.logger.WithError(markErr).WithField("outbox_id", msg.ID).Warn("failed to mark outbox as failed")
		}
		return false
	}

	if err := w.repo.MarkSent(msg.ID); err != nil {
		w.logger.WithError(err).WithField("outbox_id", msg.ID).Warn("failed to mark outbox as sent")
	}
	return true
}

func (w *Worker) publishWithRetry(ctx context.Context, msg domain.OutboxMessage) error {
	var lastErr error

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err := w.publisher.Publish(msg)
		if err == nil {
			publishAttempts.WithLabelValues("sent").Inc()
			return nil
		}
		lastErr = err
		publishAttempts.WithLabelValues("retry_error").Inc()

		if attempt >= w.maxAttempts {
			break
		}

		delay := w.retryBackoff(attempt)
		if delay <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%w: publish failed after %d attempts: %s", domain.ErrOutboxPublish, w.maxAttempts, lastErr)
}

func (w *Worker) retryBackoff(attempt int) time.Duration {
	if w.retryBaseDelay <= 0 {
		return 0
	}

	delay := w.retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

func (w *Worker) refreshBacklogMetrics() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	pendingBacklog.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		oldestPendingAge.Set(0)
		return
	}

	age := time.Since(stats.OldestPendingAt).Seconds()
	if age < 0 {
		age = 0
	}
	oldestPendingAge.Set(age)
}

func (w *Worker) publishToDLQ(msg domain.OutboxMessage, publishErr error) error {
	if w.dlqPublisher == nil {
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"outbox_id":        msg.ID,
		"aggregate_type":   msg.AggregateType,
		"aggregate_id":     msg.AggregateID,
		"event_type":       msg.EventType,
		"payload":          json.RawMessage(msg.Payload),
		"publish_error":    publishErr.Error(),
		"attempts":         w.maxAttempts,
		"dlq_published_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal dlq payload: %w", err)
	}

	dlqMsg := domain.OutboxMessage{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
	}
	if err := w.dlqPublisher.Publish(dlqMsg); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}

	return nil
}
