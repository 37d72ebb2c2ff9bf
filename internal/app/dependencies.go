package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/service/member"
	"github.com/vladislavdragonenkov/orderflow/internal/service/payment"
	"github.com/vladislavdragonenkov/orderflow/internal/service/product"
	"github.com/vladislavdragonenkov/orderflow/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderflow/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Orders   domain.OrderRepository
	Outbox   domain.OutboxRepository
	Timeline domain.TimelineRepository
	Members  domain.MemberGateway
	Products domain.ProductGateway
	Payments domain.PaymentGateway
	Logger   *log.Entry

	// Store не nil только при работе поверх PostgreSQL.
	Store *postgres.Store
}

// NewDependencies собирает зависимости приложения. Непустой dsn переключает
// хранилище на PostgreSQL с применением миграций.
// NOTE: Шлюзы участников, каталога и платежей здесь mock-реализации;
// в production их заменяют клиенты реальных сервисов.
func NewDependencies(ctx context.Context, dsn string, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Members:  member.NewMockGateway(),
		Products: product.NewMockGateway(),
		Payments: payment.NewMockGateway(),
		Logger:   logger,
	}

	if dsn == "" {
		deps.Orders = memory.NewOrderRepository()
		deps.Outbox = memory.NewOutboxRepository()
		deps.Timeline = memory.NewTimelineRepository()
		logger.Info("using in-memory storage")
		return deps, nil
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	deps.Store = store
	deps.Orders = postgres.NewOrderRepository(store)
	deps.Outbox = postgres.NewOutboxRepository(store)
	deps.Timeline = postgres.NewTimelineRepository(store)
	logger.Info("using postgres storage")

	return deps, nil
}

// Close освобождает ресурсы зависимостей.
func (d *Dependencies) Close() {
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
