package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/service/order"
)

// createOrderRequest — тело POST /api/orders.
type createOrderRequest struct {
	MemberID      string             `json:"member_id"`
	PaymentMethod string             `json:"payment_method"`
	Items         []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

func (r createOrderRequest) toServiceRequest() order.CreateRequest {
	items := make([]order.ItemRequest, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, order.ItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return order.CreateRequest{
		MemberID:      r.MemberID,
		PaymentMethod: r.PaymentMethod,
		Items:         items,
	}
}

// updateOrderStatusRequest — тело PUT /api/orders/{id}.
type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID                   string              `json:"id"`
	MemberID             string              `json:"member_id"`
	Status               string              `json:"status"`
	PaymentMethod        string              `json:"payment_method"`
	TotalAmount          decimal.Decimal     `json:"total_amount"`
	PaymentTransactionID string              `json:"payment_transaction_id,omitempty"`
	RefundTransactionID  string              `json:"refund_transaction_id,omitempty"`
	Items                []orderItemResponse `json:"items"`
	Version              int64               `json:"version"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

type orderItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Size   int             `json:"size"`
}

type timelineEventResponse struct {
	OrderID  string    `json:"order_id"`
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}
	return orderResponse{
		ID:                   o.ID,
		MemberID:             o.MemberID,
		Status:               string(o.Status),
		PaymentMethod:        o.PaymentMethod,
		TotalAmount:          o.TotalAmount,
		PaymentTransactionID: o.PaymentTransactionID,
		RefundTransactionID:  o.RefundTransactionID,
		Items:                items,
		Version:              o.Version,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

func toTimelineResponse(events []domain.TimelineEvent) []timelineEventResponse {
	result := make([]timelineEventResponse, 0, len(events))
	for _, event := range events {
		result = append(result, timelineEventResponse{
			OrderID:  event.OrderID,
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	return result
}
