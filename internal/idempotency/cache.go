// Package idempotency реализует ограниченный кэш результатов создания заказа
// по клиентскому Idempotency-Key: TTL + вытеснение по размеру, и single-flight
// исполнение, гарантирующее не более одного запуска протокола на ключ.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

const (
	// DefaultTTL — срок жизни записи в кэше.
	DefaultTTL = 10 * time.Minute
	// DefaultMaxEntries — максимальное число записей до вытеснения.
	DefaultMaxEntries = 1000
)

// Outcome — зафиксированный итог обработки запроса: либо заказ, либо фолт.
// Конкурирующие вызовы с одним ключом получают один и тот же Outcome.
type Outcome struct {
	Order domain.Order
	Err   error
}

// Cache — потокобезопасный кэш идемпотентности.
type Cache struct {
	entries *expirable.LRU[string, Outcome]
	group   singleflight.Group
}

// New создаёт кэш с заданными ограничениями; неположительные значения
// заменяются умолчаниями.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: expirable.NewLRU[string, Outcome](maxEntries, nil, ttl),
	}
}

// GetOrCompute возвращает закэшированный итог по ключу либо выполняет compute.
//
// Пустой ключ отключает кэширование: compute выполняется безусловно.
// При непустом ключе compute выполняется не более одного раза даже под
// конкурентными вызовами: опоздавшие блокируются на singleflight и получают
// итог первого вызова. Второе возвращаемое значение — replayed: true, если
// итог взят из кэша или разделён с параллельным вызовом.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (domain.Order, error)) (domain.Order, bool, error) {
	if key == "" {
		order, err := compute(ctx)
		return order, false, err
	}

	if out, ok := c.entries.Get(key); ok {
		return out.Order, true, out.Err
	}

	v, _, shared := c.group.Do(key, func() (interface{}, error) {
		// Повторная проверка: запись могла появиться, пока мы ждали слот.
		if out, ok := c.entries.Get(key); ok {
			return out, nil
		}

		order, err := compute(ctx)
		out := Outcome{Order: order, Err: err}
		// Отмену/таймаут не кэшируем: ключ должен освободиться для retry.
		if cacheable(err) {
			c.entries.Add(key, out)
		}
		return out, nil
	})

	out := v.(Outcome)
	return out.Order, shared, out.Err
}

// Get возвращает закэшированный итог без вычисления.
func (c *Cache) Get(key string) (Outcome, bool) {
	if key == "" {
		return Outcome{}, false
	}
	return c.entries.Get(key)
}

// Store кладёт итог в кэш в обход single-flight. Атомарность между Get и
// Store не гарантируется — для защиты от гонок используйте GetOrCompute.
func (c *Cache) Store(key string, out Outcome) {
	if key == "" {
		return
	}
	c.entries.Add(key, out)
}

// Len возвращает текущее число записей.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func cacheable(err error) bool {
	return !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled)
}
