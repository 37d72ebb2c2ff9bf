package order

import (
	"fmt"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// MaxItemsPerOrder ограничивает размер одного заказа.
const MaxItemsPerOrder = 50

// ItemRequest — запрошенная позиция: товар и количество.
type ItemRequest struct {
	ProductID string
	Quantity  int32
}

// CreateRequest — входной запрос на создание заказа.
type CreateRequest struct {
	MemberID      string
	Items         []ItemRequest
	PaymentMethod string
}

// Validate проверяет форму запроса до обращения к внешним сервисам.
func (r CreateRequest) Validate() error {
	var fields []domain.FieldError

	if r.MemberID == "" {
		fields = append(fields, domain.FieldError{Field: "member_id", Message: "must not be empty"})
	}
	if r.PaymentMethod == "" {
		fields = append(fields, domain.FieldError{Field: "payment_method", Message: "must not be empty"})
	}
	if len(r.Items) == 0 {
		fields = append(fields, domain.FieldError{Field: "items", Message: "must contain at least one item"})
	}
	if len(r.Items) > MaxItemsPerOrder {
		fields = append(fields, domain.FieldError{
			Field:   "items",
			Message: fmt.Sprintf("must contain at most %d items", MaxItemsPerOrder),
		})
	}
	for i, item := range r.Items {
		if item.ProductID == "" {
			fields = append(fields, domain.FieldError{
				Field:   fmt.Sprintf("items[%d].product_id", i),
				Message: "must not be empty",
			})
		}
		if item.Quantity <= 0 {
			fields = append(fields, domain.FieldError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "must be greater than zero",
			})
		}
	}

	if len(fields) > 0 {
		return domain.NewValidationError(fields...)
	}
	return nil
}
