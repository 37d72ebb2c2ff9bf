// Package payment содержит заглушку платёжного шлюза.
package payment

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// failThreshold — суммы строго больше этого значения заглушка отклоняет.
var failThreshold = decimal.NewFromInt(10000)

// MockGateway — конфигурируемая заглушка PaymentGateway.
// По умолчанию списания на сумму > 10000 получают статус FAILED, остальные
// COMPLETED со сгенерированным transaction id; возвраты успешны.
type MockGateway struct {
	// PayResult/PayErr переопределяют исход CreatePayment.
	PayResult *domain.PaymentResult
	PayErr    error
	// RefundResult/RefundErr переопределяют исход RefundPayment.
	RefundResult *domain.PaymentResult
	RefundErr    error

	payCalls    atomic.Int64
	refundCalls atomic.Int64
}

// NewMockGateway возвращает заглушку с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// CreatePayment возвращает настроенный либо правило-зависимый результат и считает вызовы.
func (m *MockGateway) CreatePayment(ctx context.Context, req domain.PaymentRequest) (domain.PaymentResult, error) {
	m.payCalls.Add(1)

	if err := ctx.Err(); err != nil {
		return domain.PaymentResult{}, err
	}
	if m.PayErr != nil {
		return domain.PaymentResult{}, m.PayErr
	}
	if m.PayResult != nil {
		return *m.PayResult, nil
	}

	status := domain.PaymentStatusCompleted
	if req.Amount.GreaterThan(failThreshold) {
		status = domain.PaymentStatusFailed
	}
	return domain.PaymentResult{
		Status:        status,
		TransactionID: uuid.NewString(),
	}, nil
}

// RefundPayment возвращает настроенный либо успешный результат и считает вызовы.
func (m *MockGateway) RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (domain.PaymentResult, error) {
	m.refundCalls.Add(1)

	if err := ctx.Err(); err != nil {
		return domain.PaymentResult{}, err
	}
	if m.RefundErr != nil {
		return domain.PaymentResult{}, m.RefundErr
	}
	if m.RefundResult != nil {
		return *m.RefundResult, nil
	}

	return domain.PaymentResult{
		Status:        domain.PaymentStatusRefunded,
		TransactionID: uuid.NewString(),
	}, nil
}

// PayCalls возвращает число обращений к CreatePayment.
func (m *MockGateway) PayCalls() int64 {
	return m.payCalls.Load()
}

// RefundCalls возвращает число обращений к RefundPayment.
func (m *MockGateway) RefundCalls() int64 {
	return m.refundCalls.Load()
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
