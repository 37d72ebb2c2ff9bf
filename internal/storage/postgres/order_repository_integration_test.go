package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

func integrationOrder() domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	price := decimal.RequireFromString("99.99")
	order := domain.Order{
		MemberID:      "member-1",
		Status:        domain.OrderStatusPending,
		PaymentMethod: "CARD",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	order.AddItem(domain.OrderItem{
		ID:          "11111111-1111-1111-1111-111111111111",
		ProductID:   "product-1",
		ProductName: "Integration Product",
		Quantity:    2,
		UnitPrice:   price,
		Subtotal:    domain.Subtotal(price, 2),
		CreatedAt:   now,
	})
	return order
}

func TestOrderRepository_PostgresCreateGetUpdate(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	created, err := repo.Create(ctx, integrationOrder())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, int64(1), created.Version)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "member-1", got.MemberID)
	require.Len(t, got.Items, 1)
	require.True(t, got.TotalAmount.Equal(decimal.RequireFromString("199.98")),
		"total mismatch: %s", got.TotalAmount)

	updated, err := repo.Update(ctx, created.ID, func(o *domain.Order) error {
		o.Status = domain.OrderStatusConfirmed
		o.PaymentTransactionID = "txn-1"
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusConfirmed, updated.Status)
	require.Equal(t, int64(2), updated.Version)

	// Ошибка из mutate откатывает транзакцию.
	boom := errors.New("boom")
	_, err = repo.Update(ctx, created.ID, func(o *domain.Order) error {
		o.Status = domain.OrderStatusCancelled
		return boom
	})
	require.ErrorIs(t, err, boom)

	fresh, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusConfirmed, fresh.Status)
	require.Equal(t, int64(2), fresh.Version)

	_, err = repo.Get(ctx, "22222222-2222-2222-2222-222222222222")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_PostgresList(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		order := integrationOrder()
		order.CreatedAt = base.Add(time.Duration(i) * time.Second)
		order.UpdatedAt = order.CreatedAt
		_, err := repo.Create(ctx, order)
		require.NoError(t, err)
	}

	page, total, err := repo.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page, 2)
	require.True(t, page[0].CreatedAt.After(page[1].CreatedAt), "orders must be newest first")

	rest, total, err := repo.List(ctx, 4, 10)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, rest, 1)
}

func TestOutboxRepository_PostgresLifecycle(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	first, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "OrderCreated",
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "OrderStatusChanged",
		Payload:       []byte(`{"status":"confirmed"}`),
	})
	require.NoError(t, err)

	pending, err := repo.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first.ID, pending[0].ID)
	require.Equal(t, second.ID, pending[1].ID)

	stats, err := repo.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.PendingCount)
	require.False(t, stats.OldestPendingAt.IsZero())

	require.NoError(t, repo.MarkSent(first.ID))
	require.NoError(t, repo.MarkFailed(second.ID))

	pending, err = repo.PullPending(10)
	require.NoError(t, err)
	require.Empty(t, pending)

	err = repo.MarkSent("33333333-3333-3333-3333-333333333333")
	require.ErrorIs(t, err, domain.ErrOutboxPublish)
}

func TestTimelineRepository_PostgresAppendAndList(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	orders := NewOrderRepository(store)
	repo := NewTimelineRepository(store)

	created, err := orders.Create(context.Background(), integrationOrder())
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Append(domain.TimelineEvent{
		OrderID:  created.ID,
		Type:     "OrderStatusChanged",
		Reason:   "payment completed",
		Occurred: base.Add(time.Second),
	}))
	require.NoError(t, repo.Append(domain.TimelineEvent{
		OrderID:  created.ID,
		Type:     "OrderCreated",
		Occurred: base,
	}))

	events, err := repo.List(created.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "OrderCreated", events[0].Type)
	require.Equal(t, "OrderStatusChanged", events[1].Type)
	require.Equal(t, "payment completed", events[1].Reason)
}
