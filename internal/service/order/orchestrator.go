package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/idempotency"
	"github.com/vladislavdragonenkov/orderflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderflow/internal/metrics"
)

// DefaultCreateTimeout — бюджет времени на весь протокол создания заказа.
const DefaultCreateTimeout = 10 * time.Second

// Имена шагов для метрик/логов.
const (
	stepValidateMember = "validate_member"
	stepBuildLines     = "build_lines"
	stepPersist        = "persist"
	stepPayment        = "payment"
	stepRefund         = "refund"
)

const (
	timelineEventOrderCreated      = "OrderCreated"
	timelineEventStatusChanged     = "OrderStatusChanged"
	timelineEventOrderCancelled    = "OrderCancelled"
	timelineEventRefundRecorded    = "RefundRecorded"
	timelineEventRefundDiscrepancy = "RefundDiscrepancy"
)

// Service — оркестратор создания и отмены заказов. Координирует валидацию
// покупателя и товаров, резервирование цены, персистенцию, оплату и
// компенсации; create-запросы с Idempotency-Key проходят через single-flight
// кэш, так что протокол выполняется не более одного раза на ключ.
type Service struct {
	orders   domain.OrderRepository
	members  domain.MemberGateway
	products domain.ProductGateway
	payments domain.PaymentGateway
	cache    *idempotency.Cache
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository

	logger        *log.Entry
	metrics       *metrics.OrderMetrics
	kafkaProducer *kafka.Producer // опциональный producer для event-driven потребителей
	createTimeout time.Duration
}

// Deps — зависимости оркестратора.
type Deps struct {
	Orders   domain.OrderRepository
	Members  domain.MemberGateway
	Products domain.ProductGateway
	Payments domain.PaymentGateway
	Cache    *idempotency.Cache
	Outbox   domain.OutboxRepository
	Timeline domain.TimelineRepository

	Logger        *log.Entry
	KafkaProducer *kafka.Producer
	CreateTimeout time.Duration
}

// NewService создаёт рабочий экземпляр оркестратора.
func NewService(deps Deps) *Service {
	s := newService(deps)
	s.metrics = metrics.NewOrderMetrics()
	return s
}

// NewServiceWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewServiceWithoutMetrics(deps Deps) *Service {
	return newService(deps)
}

func newService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.New().WithField("component", "order-orchestrator")
	}
	timeout := deps.CreateTimeout
	if timeout <= 0 {
		timeout = DefaultCreateTimeout
	}
	return &Service{
		orders:        deps.Orders,
		members:       deps.Members,
		products:      deps.Products,
		payments:      deps.Payments,
		cache:         deps.Cache,
		outbox:        deps.Outbox,
		timeline:      deps.Timeline,
		logger:        logger,
		kafkaProducer: deps.KafkaProducer,
		createTimeout: timeout,
	}
}

// Create выполняет протокол создания заказа. Непустой idempotencyKey включает
// single-flight кэширование: конкурирующие дубликаты получают итог первого
// вызова, replayed=true означает ответ из кэша или разделённый результат.
func (s *Service) Create(ctx context.Context, idempotencyKey string, req CreateRequest) (domain.Order, bool, error) {
	if err := req.Validate(); err != nil {
		return domain.Order{}, false, err
	}

	if s.cache == nil || idempotencyKey == "" {
		order, err := s.createOrder(ctx, req)
		return order, false, err
	}

	order, replayed, err := s.cache.GetOrCompute(ctx, idempotencyKey, func(ctx context.Context) (domain.Order, error) {
		return s.createOrder(ctx, req)
	})
	if replayed && s.metrics != nil {
		s.metrics.RecordIdempotentReplay()
	}
	return order, replayed, err
}

// createOrder — последовательность шагов: участник → позиции → PENDING →
// оплата → CONFIRMED либо компенсирующая запись PAYMENT_FAILED.
func (s *Service) createOrder(ctx context.Context, req CreateRequest) (domain.Order, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordCreateStarted()
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordCreateFinished(time.Since(start))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.createTimeout)
	defer cancel()

	if err := s.validateMember(ctx, req.MemberID); err != nil {
		s.rejected(req.MemberID, err)
		return domain.Order{}, err
	}

	order, err := s.buildOrder(ctx, req)
	if err != nil {
		s.rejected(req.MemberID, err)
		return domain.Order{}, err
	}

	// Первая персистенция: заказ фиксируется до попытки оплаты, чтобы сбой
	// на платёжной стороне не потерял факт уже согласованной цены.
	persistStart := time.Now()
	saved, err := s.orders.Create(ctx, order)
	if err != nil {
		s.logger.WithError(err).WithField("member_id", req.MemberID).Error("failed to persist pending order")
		return domain.Order{}, fmt.Errorf("%w: persist pending order: %v", domain.ErrInternal, err)
	}
	s.recordStep(stepPersist, persistStart)

	s.emitEvent(&saved, timelineEventOrderCreated, map[string]interface{}{
		"status": string(saved.Status),
		"amount": saved.TotalAmount.String(),
	})
	s.publishOrderEvent(kafka.EventTypeOrderCreated, &saved, nil)

	return s.processPayment(ctx, saved)
}

func (s *Service) validateMember(ctx context.Context, memberID string) error {
	stepStart := time.Now()
	defer s.recordStep(stepValidateMember, stepStart)

	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return err
	}
	if member.Status != domain.MemberStatusActive {
		return fmt.Errorf("%w: member %s has status %s", domain.ErrMemberInactive, memberID, member.Status)
	}
	return nil
}

// buildOrder собирает позиции заказа, снапшотя название и цену из каталога.
func (s *Service) buildOrder(ctx context.Context, req CreateRequest) (domain.Order, error) {
	stepStart := time.Now()
	defer s.recordStep(stepBuildLines, stepStart)

	now := time.Now().UTC()
	order := domain.Order{
		MemberID:      req.MemberID,
		Status:        domain.OrderStatusPending,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, item := range req.Items {
		product, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return domain.Order{}, err
		}
		if product.Status != domain.ProductStatusAvailable {
			return domain.Order{}, fmt.Errorf("%w: product %s has status %s", domain.ErrProductUnavailable, product.ID, product.Status)
		}

		stock, err := s.products.GetStock(ctx, item.ProductID)
		if err != nil {
			return domain.Order{}, err
		}
		if stock.Available < item.Quantity {
			return domain.Order{}, fmt.Errorf("%w: product %s has %d available, requested %d",
				domain.ErrInsufficientStock, product.ID, stock.Available, item.Quantity)
		}

		order.AddItem(domain.OrderItem{
			ID:          uuid.NewString(),
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
			Subtotal:    domain.Subtotal(product.Price, item.Quantity),
			CreatedAt:   now,
		})
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, fmt.Errorf("%w: order invariants violated: %v", domain.ErrInternal, errs)
	}
	return order, nil
}

// processPayment выполняет списание и вторую персистенцию. Любой не-успех
// шлюза (включая недоступность и пустой transaction id) ведёт к компенсирующей
// записи PAYMENT_FAILED: строка заказа остаётся как аудиторский след.
func (s *Service) processPayment(ctx context.Context, saved domain.Order) (domain.Order, error) {
	payStart := time.Now()
	result, payErr := s.payments.CreatePayment(ctx, domain.PaymentRequest{
		OrderID: saved.ID,
		Amount:  saved.TotalAmount,
		Method:  saved.PaymentMethod,
	})
	s.recordStep(stepPayment, payStart)

	if payErr != nil || result.Status != domain.PaymentStatusCompleted || result.TransactionID == "" {
		reason := string(result.Status)
		if payErr != nil {
			reason = payErr.Error()
		}
		return s.failPayment(ctx, saved, reason)
	}

	confirmed, err := s.orders.Update(ctx, saved.ID, func(o *domain.Order) error {
		o.Status = domain.OrderStatusConfirmed
		o.PaymentTransactionID = result.TransactionID
		return nil
	})
	if err != nil {
		// Деньги списаны, а подтверждение не записано — состояние требует ручной сверки.
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":       saved.ID,
			"transaction_id": result.TransactionID,
		}).Error("CRITICAL: payment captured but confirm write failed, manual reconciliation required")
		return domain.Order{}, fmt.Errorf("%w: persist confirmed order %s: %v", domain.ErrInternal, saved.ID, err)
	}

	if s.metrics != nil {
		s.metrics.RecordCreateConfirmed()
	}
	s.logger.WithFields(log.Fields{
		"order_id":       confirmed.ID,
		"member_id":      confirmed.MemberID,
		"amount":         confirmed.TotalAmount.String(),
		"transaction_id": confirmed.PaymentTransactionID,
	}).Info("order confirmed")

	s.emitEvent(&confirmed, timelineEventStatusChanged, map[string]interface{}{
		"status":         string(confirmed.Status),
		"transaction_id": confirmed.PaymentTransactionID,
	})
	s.publishOrderEvent(kafka.EventTypeOrderConfirmed, &confirmed, map[string]interface{}{
		"transaction_id": confirmed.PaymentTransactionID,
	})

	return confirmed, nil
}

// failPayment фиксирует компенсирующий статус PAYMENT_FAILED. Запись ведётся
// на context.WithoutCancel: истёкший бюджет запроса не должен помешать
// сохранить результат уже состоявшейся попытки списания.
func (s *Service) failPayment(ctx context.Context, saved domain.Order, reason string) (domain.Order, error) {
	s.logger.WithFields(log.Fields{
		"order_id": saved.ID,
		"reason":   reason,
	}).Warn("payment rejected, persisting payment_failed")

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	failed, err := s.orders.Update(writeCtx, saved.ID, func(o *domain.Order) error {
		o.Status = domain.OrderStatusPaymentFailed
		return nil
	})
	if err != nil {
		// Исход попытки списания не зафиксирован — истинное состояние заказа неоднозначно.
		s.logger.WithError(err).WithField("order_id", saved.ID).
			Error("CRITICAL: compensation write failed, order state ambiguous, manual reconciliation required")
		return domain.Order{}, fmt.Errorf("%w: persist payment_failed for order %s: %v", domain.ErrInternal, saved.ID, err)
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentFailed()
	}
	s.emitEvent(&failed, timelineEventStatusChanged, map[string]interface{}{
		"status": string(failed.Status),
		"reason": reason,
	})
	s.publishOrderEvent(kafka.EventTypeOrderPaymentFailed, &failed, map[string]interface{}{
		"reason": reason,
	})

	return failed, fmt.Errorf("%w: %s", domain.ErrPaymentFailed, reason)
}

// Get возвращает заказ по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.orders.Get(ctx, id)
}

// List возвращает страницу заказов и общее количество строк.
func (s *Service) List(ctx context.Context, offset, limit int) ([]domain.Order, int, error) {
	return s.orders.List(ctx, offset, limit)
}

// Timeline возвращает события жизненного цикла заказа.
// Заказ должен существовать, иначе ErrOrderNotFound.
func (s *Service) Timeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	if _, err := s.orders.Get(ctx, orderID); err != nil {
		return nil, err
	}
	if s.timeline == nil {
		return []domain.TimelineEvent{}, nil
	}
	return s.timeline.List(orderID)
}

// Cancel переводит заказ в cancelled. Для подтверждённого и оплаченного
// заказа перед отменой выполняется не более одного компенсирующего возврата;
// неудачный возврат отмену не блокирует — это осознанная асимметрия
// относительно шага оплаты при создании.
func (s *Service) Cancel(ctx context.Context, orderID string, target domain.OrderStatus) (domain.Order, error) {
	if target != domain.OrderStatusCancelled {
		return domain.Order{}, fmt.Errorf("%w: only %s is allowed as target status, got %q",
			domain.ErrInvalidOrderStatus, domain.OrderStatusCancelled, target)
	}

	var refundTxn string
	updated, err := s.orders.Update(ctx, orderID, func(o *domain.Order) error {
		if o.Status == domain.OrderStatusCancelled {
			return fmt.Errorf("%w: order %s is already cancelled", domain.ErrInvalidOrderStatus, o.ID)
		}

		if o.Status == domain.OrderStatusConfirmed && o.PaymentTransactionID != "" {
			if o.Refunded() {
				// Возврат уже был — наличие refund transaction id и есть защита от дубля.
				s.logger.WithFields(log.Fields{
					"order_id":  o.ID,
					"refund_id": o.RefundTransactionID,
				}).Debug("refund already recorded, skipping")
			} else {
				refundTxn = s.refund(ctx, o)
			}
		}

		o.Status = domain.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordCancelled()
	}
	s.logger.WithFields(log.Fields{
		"order_id": updated.ID,
		"refunded": refundTxn != "",
	}).Info("order cancelled")

	s.emitEvent(&updated, timelineEventOrderCancelled, map[string]interface{}{
		"status": string(updated.Status),
	})
	s.publishOrderEvent(kafka.EventTypeOrderCancelled, &updated, nil)
	if refundTxn != "" {
		s.emitEvent(&updated, timelineEventRefundRecorded, map[string]interface{}{
			"refund_transaction_id": refundTxn,
			"amount":                updated.TotalAmount.String(),
		})
		s.publishOrderEvent(kafka.EventTypeRefundRecorded, &updated, map[string]interface{}{
			"refund_transaction_id": refundTxn,
		})
	}

	return updated, nil
}

// refund выполняет best-effort возврат: при успехе записывает refund
// transaction id в заказ и возвращает его, при любом не-успехе фиксирует
// расхождение и возвращает пустую строку.
func (s *Service) refund(ctx context.Context, o *domain.Order) string {
	refundStart := time.Now()
	result, err := s.payments.RefundPayment(ctx, o.PaymentTransactionID, o.TotalAmount)
	s.recordStep(stepRefund, refundStart)

	if err != nil || result.Status != domain.PaymentStatusRefunded || result.TransactionID == "" {
		reason := string(result.Status)
		if err != nil {
			reason = err.Error()
		}
		s.logger.WithFields(log.Fields{
			"order_id":       o.ID,
			"transaction_id": o.PaymentTransactionID,
			"reason":         reason,
		}).Warn("best-effort refund failed, cancelling anyway")
		if s.metrics != nil {
			s.metrics.RecordRefundFailed()
		}
		s.appendTimeline(domain.TimelineEvent{
			OrderID:  o.ID,
			Type:     timelineEventRefundDiscrepancy,
			Reason:   reason,
			Occurred: time.Now().UTC(),
		})
		return ""
	}

	o.RefundTransactionID = result.TransactionID
	if s.metrics != nil {
		s.metrics.RecordRefundIssued()
	}
	return result.TransactionID
}

func (s *Service) rejected(memberID string, err error) {
	if s.metrics != nil {
		s.metrics.RecordCreateRejected()
	}
	s.logger.WithError(err).WithField("member_id", memberID).Info("creation request rejected")
}

func (s *Service) recordStep(step string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordStepDuration(step, time.Since(start))
	}
}

func (s *Service) emitEvent(order *domain.Order, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	if s.outbox != nil {
		msg := domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     eventType,
			Payload:       data,
		}
		if _, err := s.outbox.Enqueue(msg); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Error("enqueue event failed")
		} else if s.metrics != nil {
			s.metrics.RecordOutboxEvent()
		}
	}

	var reason string
	if r, ok := payload["reason"].(string); ok {
		reason = r
	}
	s.appendTimeline(domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     eventType,
		Reason:   reason,
		Occurred: order.UpdatedAt,
	})
}

func (s *Service) appendTimeline(event domain.TimelineEvent) {
	if s.timeline == nil {
		return
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}
	if err := s.timeline.Append(event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": event.OrderID,
			"event":    event.Type,
		}).Warn("append timeline event failed")
	} else if s.metrics != nil {
		s.metrics.RecordTimelineEvent()
	}
}

// publishOrderEvent публикует событие заказа в Kafka (если producer настроен).
func (s *Service) publishOrderEvent(eventType kafka.EventType, order *domain.Order, metadata map[string]interface{}) {
	if s.kafkaProducer == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, order.ID, order.MemberID, string(order.Status), metadata)
	if err := s.kafkaProducer.PublishOrderEvent(event); err != nil {
		// Логируем и продолжаем: Kafka опциональный, заказ уже сохранён.
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   order.ID,
		}).Warn("failed to publish order event to kafka")
	}
}
