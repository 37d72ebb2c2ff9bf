package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ сохранён, но оплата ещё не выполнялась.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — оплата подтверждена платёжным шлюзом.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusPaymentFailed — списание было и не удалось; строка сохраняется как аудиторский след.
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
	// OrderStatusCancelled — заказ отменён; терминальный статус.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPaymentFailed, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, является ли статус конечным (дальнейшие переходы запрещены).
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled
}

// amountScale — денежные суммы храним с точностью 2 знака, округление half-up.
const amountScale = 2

// RoundAmount приводит сумму к денежной точности (2 знака, half-up).
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(amountScale)
}

// Subtotal считает стоимость позиции: unitPrice * qty с округлением до 2 знаков.
func Subtotal(unitPrice decimal.Decimal, qty int32) decimal.Decimal {
	return RoundAmount(unitPrice.Mul(decimal.NewFromInt32(qty)))
}

// OrderItem представляет одну позицию заказа. Название и цена — снапшоты
// на момент оформления, из каталога они повторно не перечитываются.
type OrderItem struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int32
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
	CreatedAt   time.Time
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID            string
	MemberID      string
	Status        OrderStatus
	PaymentMethod string
	// TotalAmount — округлённая сумма округлённых subtotal позиций.
	TotalAmount decimal.Decimal
	// PaymentTransactionID заполняется после успешного списания.
	PaymentTransactionID string
	// RefundTransactionID заполняется после компенсирующего возврата;
	// его наличие — защита от повторного refund.
	RefundTransactionID string
	Items               []OrderItem
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AddItem добавляет позицию и пересчитывает итоговую сумму.
func (o *Order) AddItem(item OrderItem) {
	o.Items = append(o.Items, item)
	o.RecalculateTotal()
}

// RecalculateTotal пересчитывает итог как стабилизированную сумму subtotal позиций.
func (o *Order) RecalculateTotal() {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Subtotal)
	}
	o.TotalAmount = RoundAmount(sum)
}

// Refunded сообщает, был ли по заказу уже зафиксирован возврат.
func (o *Order) Refunded() bool {
	return o.RefundTransactionID != ""
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.MemberID == "" {
		errs = append(errs, ErrMemberRequired)
	}
	if o.PaymentMethod == "" {
		errs = append(errs, ErrPaymentMethodRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalAmount.IsNegative() {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем subtotal каждой позиции и итог с политикой округления half-up.
	sum := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if !item.Subtotal.Equal(Subtotal(item.UnitPrice, item.Quantity)) {
			errs = append(errs, ErrSubtotalMismatch)
		}
		sum = sum.Add(item.Subtotal)
	}
	if !o.TotalAmount.Equal(RoundAmount(sum)) {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
