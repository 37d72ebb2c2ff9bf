package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create сохраняет заказ с позициями в одной транзакции и присваивает идентификатор.
func (r *orderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order.ID = uuid.NewString()
	order.Version = 1

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, member_id, status, payment_method, total_amount,
			payment_txn_id, refund_txn_id, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		order.ID, order.MemberID, string(order.Status), order.PaymentMethod, order.TotalAmount,
		order.PaymentTransactionID, order.RefundTransactionID, order.Version,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Order{}, domain.ErrConcurrentModification
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	if err = insertItemsTx(ctx, tx, order.ID, order.Items); err != nil {
		return domain.Order{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit create order: %w", err)
	}

	return order, nil
}

// Get возвращает заказ с позициями или ErrOrderNotFound.
func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	// Колонка id имеет тип UUID: некорректный идентификатор не может
	// указывать на существующий заказ.
	if uuid.Validate(id) != nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrderRow(r.db.QueryRowContext(ctx, `
		SELECT id, member_id, status, payment_method, total_amount,
		       payment_txn_id, refund_txn_id, version, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

// List возвращает страницу заказов (новые первыми) и общее количество.
func (r *orderRepository) List(ctx context.Context, offset, limit int) ([]domain.Order, int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, member_id, status, payment_method, total_amount,
		       payment_txn_id, refund_txn_id, version, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC, id DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, 0, err
		}
		orders[i].Items = items
	}

	return orders, total, nil
}

// Update изменяет заказ под блокировкой строки SELECT ... FOR UPDATE.
// Ошибка из mutate откатывает транзакцию и возвращается как есть.
func (r *orderRepository) Update(ctx context.Context, id string, mutate func(*domain.Order) error) (domain.Order, error) {
	if uuid.Validate(id) != nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var order domain.Order
	order, err = scanOrderRow(tx.QueryRowContext(ctx, `
		SELECT id, member_id, status, payment_method, total_amount,
		       payment_txn_id, refund_txn_id, version, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrOrderNotFound
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("select order for update: %w", err)
	}

	var items []domain.OrderItem
	items, err = loadItemsTx(ctx, tx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	if err = mutate(&order); err != nil {
		return domain.Order{}, err
	}
	order.Version++
	order.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    total_amount = $3,
		    payment_txn_id = $4,
		    refund_txn_id = $5,
		    version = $6,
		    updated_at = $7
		WHERE id = $1
	`,
		order.ID, string(order.Status), order.TotalAmount,
		order.PaymentTransactionID, order.RefundTransactionID,
		order.Version, order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit update order: %w", err)
	}

	return order, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrderRow(row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	if err := row.Scan(
		&order.ID, &order.MemberID, &status, &order.PaymentMethod, &order.TotalAmount,
		&order.PaymentTransactionID, &order.RefundTransactionID, &order.Version,
		&order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func insertItemsTx(ctx context.Context, tx *sql.Tx, orderID string, items []domain.OrderItem) error {
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, product_name, quantity, unit_price, subtotal, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			item.ID, orderID, item.ProductID, item.ProductName,
			item.Quantity, item.UnitPrice, item.Subtotal, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, itemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	return collectItems(rows)
}

func loadItemsTx(ctx context.Context, tx *sql.Tx, orderID string) ([]domain.OrderItem, error) {
	rows, err := tx.QueryContext(ctx, itemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	return collectItems(rows)
}

const itemsQuery = `
	SELECT id, product_id, product_name, quantity, unit_price, subtotal, created_at
	FROM order_items
	WHERE order_id = $1
	ORDER BY created_at ASC, id ASC
`

func collectItems(rows *sql.Rows) ([]domain.OrderItem, error) {
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.Subtotal, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
