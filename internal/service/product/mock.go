// Package product содержит заглушку каталога товаров и остатков.
package product

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// Магические идентификаторы, управляющие поведением заглушки.
const (
	IDNotFound     = "not-found"
	IDDiscontinued = "discontinued"
	IDOutOfStock   = "out-of-stock"
)

// Значения по умолчанию для сгенерированных товаров.
var (
	defaultPrice = decimal.RequireFromString("99.99")
)

const defaultStock int32 = 100

// MockGateway — конфигурируемая заглушка ProductGateway.
// Правила по умолчанию: id "not-found" → ErrProductNotFound, "discontinued" →
// статус DISCONTINUED, "out-of-stock" → нулевой доступный остаток; остальные
// товары доступны по цене 99.99 с остатком 100.
type MockGateway struct {
	// Err, если задан, возвращается из обоих методов.
	Err error
	// Products и Stocks переопределяют ответы по конкретным id.
	Products map[string]domain.Product
	Stocks   map[string]domain.ProductStock

	productCalls atomic.Int64
	stockCalls   atomic.Int64
}

// NewMockGateway возвращает заглушку с поведением по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// GetProduct возвращает карточку товара по правилам заглушки.
func (m *MockGateway) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	m.productCalls.Add(1)

	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	if m.Err != nil {
		return domain.Product{}, m.Err
	}
	if product, ok := m.Products[id]; ok {
		return product, nil
	}
	if id == IDNotFound {
		return domain.Product{}, fmt.Errorf("%w: id %s", domain.ErrProductNotFound, id)
	}

	status := domain.ProductStatusAvailable
	if id == IDDiscontinued {
		status = domain.ProductStatusDiscontinued
	}
	return domain.Product{
		ID:     id,
		Name:   "Mock Product " + id,
		Price:  defaultPrice,
		Status: status,
	}, nil
}

// GetStock возвращает остатки по товару по правилам заглушки.
func (m *MockGateway) GetStock(ctx context.Context, id string) (domain.ProductStock, error) {
	m.stockCalls.Add(1)

	if err := ctx.Err(); err != nil {
		return domain.ProductStock{}, err
	}
	if m.Err != nil {
		return domain.ProductStock{}, m.Err
	}
	if stock, ok := m.Stocks[id]; ok {
		return stock, nil
	}

	available := defaultStock
	if id == IDOutOfStock {
		available = 0
	}
	return domain.ProductStock{
		ProductID: id,
		Quantity:  defaultStock,
		Reserved:  0,
		Available: available,
	}, nil
}

// ProductCalls возвращает число обращений к GetProduct.
func (m *MockGateway) ProductCalls() int64 {
	return m.productCalls.Load()
}

// StockCalls возвращает число обращений к GetStock.
func (m *MockGateway) StockCalls() int64 {
	return m.stockCalls.Load()
}

var _ domain.ProductGateway = (*MockGateway)(nil)
