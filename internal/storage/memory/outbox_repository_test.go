package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

func TestOutboxRepository_EnqueueAndPull(t *testing.T) {
	t.Parallel()
	repo := NewOutboxRepository()

	first, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "OrderCreated",
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("enqueue must assign id")
	}

	time.Sleep(time.Millisecond)
	second, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "OrderStatusChanged",
		Payload:       []byte(`{"status":"confirmed"}`),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	// Порядок постановки сохраняется.
	if pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Fatalf("unexpected order: %s, %s", pending[0].ID, pending[1].ID)
	}

	limited, err := repo.PullPending(1)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != first.ID {
		t.Fatalf("limit must return oldest first, got %v", limited)
	}
}

func TestOutboxRepository_MarkSentAndFailed(t *testing.T) {
	t.Parallel()
	repo := NewOutboxRepository()

	msg, _ := repo.Enqueue(domain.OutboxMessage{EventType: "OrderCreated", Payload: []byte(`{}`)})

	if err := repo.MarkSent(msg.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	pending, _ := repo.PullPending(10)
	if len(pending) != 0 {
		t.Fatalf("sent message must leave pending set, got %d", len(pending))
	}

	other, _ := repo.Enqueue(domain.OutboxMessage{EventType: "OrderCreated", Payload: []byte(`{}`)})
	if err := repo.MarkFailed(other.ID); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}
	pending, _ = repo.PullPending(10)
	if len(pending) != 0 {
		t.Fatalf("failed message must leave pending set, got %d", len(pending))
	}

	if err := repo.MarkSent("missing"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish for unknown id, got %v", err)
	}
}

func TestOutboxRepository_Stats(t *testing.T) {
	t.Parallel()
	repo := NewOutboxRepository()

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("empty outbox stats = %+v", stats)
	}

	first, _ := repo.Enqueue(domain.OutboxMessage{EventType: "OrderCreated", Payload: []byte(`{}`)})
	time.Sleep(time.Millisecond)
	_, _ = repo.Enqueue(domain.OutboxMessage{EventType: "OrderStatusChanged", Payload: []byte(`{}`)})

	stats, err = repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 2 {
		t.Fatalf("pending count = %d, want 2", stats.PendingCount)
	}
	if stats.OldestPendingAt.IsZero() {
		t.Fatal("oldest pending timestamp must be set")
	}

	_ = repo.MarkSent(first.ID)
	stats, _ = repo.Stats()
	if stats.PendingCount != 1 {
		t.Fatalf("pending count after sent = %d, want 1", stats.PendingCount)
	}
}

func TestTimelineRepository_AppendAndList(t *testing.T) {
	t.Parallel()
	repo := NewTimelineRepository()

	base := time.Now().UTC()
	events := []domain.TimelineEvent{
		{OrderID: "order-1", Type: "OrderStatusChanged", Occurred: base.Add(time.Second)},
		{OrderID: "order-1", Type: "OrderCreated", Occurred: base},
		{OrderID: "order-2", Type: "OrderCreated", Occurred: base},
	}
	for _, event := range events {
		if err := repo.Append(event); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	list, err := repo.List("order-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("events = %d, want 2", len(list))
	}
	// Хронологический порядок независимо от порядка вставки.
	if list[0].Type != "OrderCreated" || list[1].Type != "OrderStatusChanged" {
		t.Fatalf("unexpected order: %s, %s", list[0].Type, list[1].Type)
	}

	missing, err := repo.List("missing")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("missing order must have empty timeline, got %d", len(missing))
	}
}
