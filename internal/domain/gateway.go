package domain

import "github.com/shopspring/decimal"

// MemberStatus — статус покупателя в справочнике участников.
type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "ACTIVE"
	MemberStatusInactive  MemberStatus = "INACTIVE"
	MemberStatusSuspended MemberStatus = "SUSPENDED"
)

// Member — ответ справочника участников.
type Member struct {
	ID     string
	Name   string
	Email  string
	Status MemberStatus
	Grade  string
}

// ProductStatus — статус товара в каталоге.
type ProductStatus string

const (
	ProductStatusAvailable    ProductStatus = "AVAILABLE"
	ProductStatusOutOfStock   ProductStatus = "OUT_OF_STOCK"
	ProductStatusDiscontinued ProductStatus = "DISCONTINUED"
)

// Product — ответ каталога по товару.
type Product struct {
	ID     string
	Name   string
	Price  decimal.Decimal
	Status ProductStatus
}

// ProductStock — текущее состояние остатков по товару.
type ProductStock struct {
	ProductID string
	Quantity  int32
	Reserved  int32
	Available int32
}

// PaymentStatus — статус операции платёжного шлюза.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// PaymentRequest — запрос на списание по заказу.
type PaymentRequest struct {
	OrderID string
	Amount  decimal.Decimal
	Method  string
}

// PaymentResult — результат операции списания или возврата.
type PaymentResult struct {
	Status        PaymentStatus
	TransactionID string
}
