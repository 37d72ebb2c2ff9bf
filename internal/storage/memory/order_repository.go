package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository для
// разработки и тестов. Update держит пессимистическую блокировку строки на
// время read-modify-write, как её Postgres-аналог через SELECT ... FOR UPDATE.
type orderRepositoryInMemory struct {
	mu       sync.RWMutex
	items    map[string]domain.Order
	rowLocks map[string]*sync.Mutex
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:    make(map[string]domain.Order),
		rowLocks: make(map[string]*sync.Mutex),
	}
}

// Create сохраняет новый заказ, присваивая идентификатор.
func (r *orderRepositoryInMemory) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	order.ID = uuid.NewString()
	order.Version = 1

	r.mu.Lock()
	defer r.mu.Unlock()

	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = cloneOrder(order)
	return cloneOrder(order), nil
}

// Get возвращает заказ или ErrOrderNotFound.
func (r *orderRepositoryInMemory) Get(ctx context.Context, id string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// List возвращает страницу заказов (новые первыми) и общее количество.
func (r *orderRepositoryInMemory) List(ctx context.Context, offset, limit int) ([]domain.Order, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	all := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		all = append(all, cloneOrder(order))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []domain.Order{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

// Update изменяет заказ под эксклюзивной блокировкой строки. Ошибка из mutate
// откатывает изменение и возвращается как есть.
func (r *orderRepositoryInMemory) Update(ctx context.Context, id string, mutate func(*domain.Order) error) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}

	rowLock := r.rowLock(id)
	rowLock.Lock()
	defer rowLock.Unlock()

	r.mu.RLock()
	current, ok := r.items[id]
	r.mu.RUnlock()
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	work := cloneOrder(current)
	if err := mutate(&work); err != nil {
		return domain.Order{}, err
	}
	work.Version = current.Version + 1
	work.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	r.items[id] = cloneOrder(work)
	r.mu.Unlock()

	return work, nil
}

func (r *orderRepositoryInMemory) rowLock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.rowLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.rowLocks[id] = lock
	}
	return lock
}

func cloneOrder(src domain.Order) domain.Order {
	dst := src
	dst.Items = append([]domain.OrderItem(nil), src.Items...)
	return dst
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
