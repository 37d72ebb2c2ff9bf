package domain

import "context"

// OrderRepository — порт хранилища заказов.
//
// Update выполняет read-modify-write под эксклюзивной блокировкой строки:
// mutate вызывается ровно один раз с актуальной версией заказа, и пока он
// не вернул управление, конкурирующие Update по тому же id ждут. Ошибка из
// mutate откатывает запись и возвращается вызывающему как есть.
type OrderRepository interface {
	// Create сохраняет новый заказ и присваивает ему идентификатор.
	Create(ctx context.Context, order Order) (Order, error)
	// Get возвращает заказ или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// List возвращает страницу заказов (новые первыми) и общее количество.
	List(ctx context.Context, offset, limit int) ([]Order, int, error)
	// Update изменяет заказ под блокировкой строки.
	Update(ctx context.Context, id string, mutate func(*Order) error) (Order, error)
}
