package product

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

func TestMockGateway_ProductRules(t *testing.T) {
	t.Parallel()
	gw := NewMockGateway()

	available, err := gw.GetProduct(context.Background(), "product-1")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if available.Status != domain.ProductStatusAvailable {
		t.Fatalf("status = %s, want available", available.Status)
	}
	if !available.Price.Equal(decimal.RequireFromString("99.99")) {
		t.Fatalf("price = %s, want 99.99", available.Price)
	}

	discontinued, err := gw.GetProduct(context.Background(), IDDiscontinued)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if discontinued.Status != domain.ProductStatusDiscontinued {
		t.Fatalf("status = %s, want discontinued", discontinued.Status)
	}

	if _, err := gw.GetProduct(context.Background(), IDNotFound); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	if gw.ProductCalls() != 3 {
		t.Fatalf("product calls = %d, want 3", gw.ProductCalls())
	}
}

func TestMockGateway_StockRules(t *testing.T) {
	t.Parallel()
	gw := NewMockGateway()

	stock, err := gw.GetStock(context.Background(), "product-1")
	if err != nil {
		t.Fatalf("get stock failed: %v", err)
	}
	if stock.Available != 100 {
		t.Fatalf("available = %d, want 100", stock.Available)
	}

	empty, err := gw.GetStock(context.Background(), IDOutOfStock)
	if err != nil {
		t.Fatalf("get stock failed: %v", err)
	}
	if empty.Available != 0 {
		t.Fatalf("available = %d, want 0", empty.Available)
	}

	gw.Stocks = map[string]domain.ProductStock{
		"scarce": {ProductID: "scarce", Quantity: 10, Reserved: 8, Available: 2},
	}
	scarce, err := gw.GetStock(context.Background(), "scarce")
	if err != nil {
		t.Fatalf("get stock failed: %v", err)
	}
	if scarce.Available != 2 {
		t.Fatalf("override available = %d, want 2", scarce.Available)
	}
}

func TestMockGateway_ConfiguredError(t *testing.T) {
	t.Parallel()

	boom := errors.New("catalog down")
	gw := NewMockGateway()
	gw.Err = boom

	if _, err := gw.GetProduct(context.Background(), "product-1"); !errors.Is(err, boom) {
		t.Fatalf("expected configured error, got %v", err)
	}
	if _, err := gw.GetStock(context.Background(), "product-1"); !errors.Is(err, boom) {
		t.Fatalf("expected configured error, got %v", err)
	}
}
