package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики оркестрации заказов.
type OrderMetrics struct {
	// Счётчики исходов создания заказа
	createStarted   prometheus.Counter
	createConfirmed prometheus.Counter
	createRejected  prometheus.Counter
	paymentFailed   prometheus.Counter

	// Счётчики отмен и возвратов
	cancelled     prometheus.Counter
	refundsIssued prometheus.Counter
	refundsFailed prometheus.Counter

	// Идемпотентность
	idempotentReplays prometheus.Counter

	// Гистограммы времени выполнения
	createDuration prometheus.Histogram
	stepDuration   *prometheus.HistogramVec

	// События аудита
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для создаваемых прямо сейчас заказов
	activeCreations prometheus.Gauge
}

// NewOrderMetrics создаёт метрики в default registerer.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		createStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_create_started_total",
			Help: "Total number of order creation protocols started",
		}),
		createConfirmed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_create_confirmed_total",
			Help: "Total number of orders confirmed after successful payment",
		}),
		createRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_create_rejected_total",
			Help: "Total number of creation requests rejected before persistence",
		}),
		paymentFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_payment_failed_total",
			Help: "Total number of orders persisted in payment_failed state",
		}),
		cancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_cancelled_total",
			Help: "Total number of orders cancelled",
		}),
		refundsIssued: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_refunds_issued_total",
			Help: "Total number of compensating refunds recorded",
		}),
		refundsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_refunds_failed_total",
			Help: "Total number of best-effort refunds that did not complete",
		}),
		idempotentReplays: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_idempotent_replays_total",
			Help: "Total number of creation requests answered from the idempotency cache",
		}),
		createDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "orderflow_create_duration_seconds",
			Help:    "Duration of the order creation protocol in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orderflow_step_duration_seconds",
			Help:    "Duration of individual creation/cancellation steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeCreations: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "orderflow_active_creations",
			Help: "Number of creation protocols currently in flight",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCreateStarted отмечает запуск протокола создания.
func (m *OrderMetrics) RecordCreateStarted() {
	m.createStarted.Inc()
	m.activeCreations.Inc()
}

// RecordCreateFinished отмечает завершение протокола создания.
func (m *OrderMetrics) RecordCreateFinished(duration time.Duration) {
	m.activeCreations.Dec()
	m.createDuration.Observe(duration.Seconds())
}

// RecordCreateConfirmed увеличивает счётчик подтверждённых заказов.
func (m *OrderMetrics) RecordCreateConfirmed() {
	m.createConfirmed.Inc()
}

// RecordCreateRejected увеличивает счётчик отклонённых до персистенции запросов.
func (m *OrderMetrics) RecordCreateRejected() {
	m.createRejected.Inc()
}

// RecordPaymentFailed увеличивает счётчик заказов в payment_failed.
func (m *OrderMetrics) RecordPaymentFailed() {
	m.paymentFailed.Inc()
}

// RecordCancelled увеличивает счётчик отменённых заказов.
func (m *OrderMetrics) RecordCancelled() {
	m.cancelled.Inc()
}

// RecordRefundIssued увеличивает счётчик выполненных возвратов.
func (m *OrderMetrics) RecordRefundIssued() {
	m.refundsIssued.Inc()
}

// RecordRefundFailed увеличивает счётчик неудачных best-effort возвратов.
func (m *OrderMetrics) RecordRefundFailed() {
	m.refundsFailed.Inc()
}

// RecordIdempotentReplay увеличивает счётчик ответов из кэша идемпотентности.
func (m *OrderMetrics) RecordIdempotentReplay() {
	m.idempotentReplays.Inc()
}

// RecordStepDuration записывает время выполнения шага протокола.
func (m *OrderMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *OrderMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
