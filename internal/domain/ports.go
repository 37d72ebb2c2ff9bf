package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MemberGateway описывает взаимодействие со справочником участников.
type MemberGateway interface {
	// GetMember возвращает покупателя или ErrMemberNotFound.
	GetMember(ctx context.Context, id string) (Member, error)
}

// ProductGateway описывает взаимодействие с каталогом товаров и остатками.
type ProductGateway interface {
	// GetProduct возвращает карточку товара или ErrProductNotFound.
	GetProduct(ctx context.Context, id string) (Product, error)
	// GetStock возвращает остатки по товару.
	GetStock(ctx context.Context, id string) (ProductStock, error)
}

// PaymentGateway описывает взаимодействие с платёжным провайдером.
type PaymentGateway interface {
	// CreatePayment инициирует списание средств по заказу.
	CreatePayment(ctx context.Context, req PaymentRequest) (PaymentResult, error)
	// RefundPayment инициирует возврат по исходной транзакции (компенсация при отмене).
	RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (PaymentResult, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
