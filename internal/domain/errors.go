package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Ошибка отсутствующего идентификатора покупателя.
	ErrMemberRequired = errors.New("member_id is required")
	// Ошибка отсутствующего способа оплаты.
	ErrPaymentMethodRequired = errors.New("payment_method is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("total_amount must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item unit price must be non-negative")
	// Ошибка несоответствия subtotal позиции политике округления.
	ErrSubtotalMismatch = errors.New("item subtotal does not match unit price * quantity")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match items sum")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrMemberNotFound — справочник участников не знает такого покупателя.
	ErrMemberNotFound = errors.New("member not found")
	// ErrMemberInactive — покупатель существует, но его статус не ACTIVE.
	ErrMemberInactive = errors.New("member is not active")
	// ErrProductNotFound — каталог не знает такого товара.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductUnavailable — товар есть в каталоге, но недоступен к продаже.
	ErrProductUnavailable = errors.New("product is not available")
	// ErrInsufficientStock — доступный остаток меньше запрошенного количества.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidOrderStatus — запрошенный переход статуса запрещён.
	ErrInvalidOrderStatus = errors.New("invalid order status transition")
	// ErrPaymentFailed — платёжный шлюз отклонил списание; заказ остаётся со статусом payment_failed.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrConcurrentModification — конфликт одновременного изменения заказа.
	ErrConcurrentModification = errors.New("concurrent order modification")
	// ErrServiceUnavailable — внешний сервис недоступен после исчерпания retry на стороне шлюза.
	ErrServiceUnavailable = errors.New("external service unavailable")
	// ErrInternal — неклассифицированная ошибка; состояние заказа может требовать ручной сверки.
	ErrInternal = errors.New("internal error")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// FieldError описывает нарушение валидации конкретного поля запроса.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError агрегирует пофилдовые нарушения входного запроса.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError собирает ошибку валидации из списка нарушений.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// IsValidation проверяет, является ли ошибка ошибкой валидации входа.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
