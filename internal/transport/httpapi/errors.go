package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// errorResponse — единый конверт ошибки API.
type errorResponse struct {
	Code        string               `json:"code"`
	Message     string               `json:"message"`
	Timestamp   time.Time            `json:"timestamp"`
	FieldErrors []fieldErrorResponse `json:"field_errors,omitempty"`
}

type fieldErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorMapping struct {
	status int
	code   string
}

// Порядок важен: более специфичные ошибки идут первыми.
var errorMappings = []struct {
	err     error
	mapping errorMapping
}{
	{domain.ErrOrderNotFound, errorMapping{http.StatusNotFound, "ORDER_NOT_FOUND"}},
	{domain.ErrMemberNotFound, errorMapping{http.StatusNotFound, "MEMBER_NOT_FOUND"}},
	{domain.ErrProductNotFound, errorMapping{http.StatusNotFound, "PRODUCT_NOT_FOUND"}},
	{domain.ErrMemberInactive, errorMapping{http.StatusBadRequest, "MEMBER_INACTIVE"}},
	{domain.ErrProductUnavailable, errorMapping{http.StatusBadRequest, "PRODUCT_UNAVAILABLE"}},
	{domain.ErrInsufficientStock, errorMapping{http.StatusBadRequest, "INSUFFICIENT_STOCK"}},
	{domain.ErrInvalidOrderStatus, errorMapping{http.StatusBadRequest, "INVALID_ORDER_STATUS"}},
	{domain.ErrPaymentFailed, errorMapping{http.StatusUnprocessableEntity, "PAYMENT_FAILED"}},
	{domain.ErrConcurrentModification, errorMapping{http.StatusConflict, "CONCURRENT_MODIFICATION"}},
	{domain.ErrServiceUnavailable, errorMapping{http.StatusServiceUnavailable, "EXTERNAL_SERVICE_UNAVAILABLE"}},
}

// mapError переводит доменную ошибку в HTTP статус и машинный код.
func mapError(err error) errorMapping {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return errorMapping{http.StatusBadRequest, "VALIDATION_ERROR"}
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.mapping
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errorMapping{http.StatusServiceUnavailable, "EXTERNAL_SERVICE_UNAVAILABLE"}
	}

	return errorMapping{http.StatusInternalServerError, "INTERNAL_ERROR"}
}

func toErrorResponse(err error) (int, errorResponse) {
	m := mapError(err)
	resp := errorResponse{
		Code:      m.code,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Message = "validation failed"
		resp.FieldErrors = make([]fieldErrorResponse, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			resp.FieldErrors = append(resp.FieldErrors, fieldErrorResponse{
				Field:   f.Field,
				Message: f.Message,
			})
		}
	}

	if m.status == http.StatusInternalServerError {
		// Детали внутренних ошибок наружу не отдаём.
		resp.Message = "internal error"
	}

	return m.status, resp
}
