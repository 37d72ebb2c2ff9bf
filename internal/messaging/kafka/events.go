package kafka

import "time"

// EventType определяет тип события жизненного цикла заказа.
type EventType string

const (
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderConfirmed     EventType = "order.confirmed"
	EventTypeOrderPaymentFailed EventType = "order.payment_failed"
	EventTypeOrderCancelled     EventType = "order.cancelled"
	EventTypeRefundRecorded     EventType = "order.refund_recorded"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "orderflow.order.events"
	TopicDeadLetterQueue = "orderflow.dlq" // Dead Letter Queue для failed messages
)

// OrderEvent представляет событие заказа.
type OrderEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	MemberID  string                 `json:"member_id,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа.
func NewOrderEvent(eventType EventType, orderID, memberID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		MemberID:  memberID,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
