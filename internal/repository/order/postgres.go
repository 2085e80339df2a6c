package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"order-fulfillment/internal/db"
	"order-fulfillment/internal/domain"
	cartrepo "order-fulfillment/internal/repository/cart"
)

const orderColumns = `id, order_number, user_id, cart_id, status, subtotal, tax, shipping_cost, total_amount,
       currency, payment_id, notes, created_at, updated_at`

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Checkout(ctx context.Context, in CheckoutInput) (*domain.Order, error) {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) (*domain.Order, error) {
		c, err := cartrepo.Load(ctx, tx, in.CartID, true)
		if err != nil {
			return nil, err
		}
		o, err := in.Build(c)
		if err != nil {
			return nil, err
		}

		if err := insertOrder(ctx, tx, o, in.NextNumber); err != nil {
			return nil, err
		}
		if err := insertItems(ctx, tx, o); err != nil {
			return nil, err
		}
		if err := cartrepo.SetStatus(ctx, tx, c.ID, domain.CartStatusCheckout); err != nil {
			return nil, fmt.Errorf("advance cart %d: %w", c.ID, err)
		}
		return o, nil
	})
}

func insertOrder(ctx context.Context, tx pgx.Tx, o *domain.Order, nextNumber func() string) error {
	const q = `
INSERT INTO orders (order_number, user_id, cart_id, status, subtotal, tax, shipping_cost, total_amount, currency, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (order_number) DO NOTHING
RETURNING id, created_at, updated_at
`
	for attempt := 1; attempt <= MaxNumberAttempts; attempt++ {
		err := tx.QueryRow(ctx, q,
			o.OrderNumber,
			o.UserID,
			o.CartID,
			o.Status,
			o.Subtotal,
			o.Tax,
			o.ShippingCost,
			o.TotalAmount,
			o.Currency,
			o.Notes,
		).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("insert order: %w", err)
		}
		if nextNumber == nil {
			break
		}
		o.OrderNumber = nextNumber()
	}
	return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, ErrNumberExhausted)
}

func insertItems(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	const q = `
INSERT INTO order_items (order_id, product_id, product_name, product_description, unit_price, quantity, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`
	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(q, o.ID, item.ProductID, item.ProductName, item.ProductDescription, item.UnitPrice, item.Quantity, item.Subtotal)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range o.Items {
		if err := br.QueryRow().Scan(&o.Items[i].ID); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert order item %d: %w", o.Items[i].ProductID, err)
		}
		o.Items[i].OrderID = o.ID
	}
	return br.Close()
}

func (r *postgresRepo) Update(ctx context.Context, orderID int64, fn func(o *domain.Order) (Change, error)) (*domain.Order, Change, error) {
	var change Change
	o, err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) (*domain.Order, error) {
		o, err := fetchOrder(ctx, tx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID)
		if err != nil {
			return nil, err
		}
		change, err = fn(o)
		if err != nil {
			return nil, err
		}
		if !change.Changed {
			return o, nil
		}

		err = tx.QueryRow(ctx, `
UPDATE orders
SET status = $2, payment_id = $3, notes = $4, updated_at = now()
WHERE id = $1
RETURNING updated_at
`, o.ID, o.Status, o.PaymentID, o.Notes).Scan(&o.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("update order %d: %w", o.ID, err)
		}

		if change.CartStatus != "" && o.CartID != nil {
			err := cartrepo.SetStatus(ctx, tx, *o.CartID, change.CartStatus)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("advance cart %d: %w", *o.CartID, err)
			}
		}
		return o, nil
	})
	if err != nil {
		return nil, Change{}, err
	}
	return o, change, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return fetchOrder(ctx, r.pool, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *postgresRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return fetchOrder(ctx, r.pool, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
}

func (r *postgresRepo) FindForCart(ctx context.Context, cartID, userID int64) (*domain.Order, error) {
	const q = `SELECT ` + orderColumns + `
FROM orders
WHERE cart_id = $1 AND user_id = $2
ORDER BY (status = 'PENDING') DESC, created_at DESC
LIMIT 1`
	return fetchOrder(ctx, r.pool, q, cartID, userID)
}

func (r *postgresRepo) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	const q = `SELECT ` + orderColumns + `
FROM orders
WHERE payment_id = $1
ORDER BY created_at DESC
LIMIT 1`
	return fetchOrder(ctx, r.pool, q, paymentID)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	const q = `SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		o, err := scanOrder(row)
		if err != nil {
			return domain.Order{}, err
		}
		return *o, nil
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*domain.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}
	items, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		o := byID[item.OrderID]
		o.Items = append(o.Items, item)
	}
	return orders, nil
}

func fetchOrder(ctx context.Context, q db.Querier, query string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	items, err := loadItems(ctx, q, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.CartID,
		&o.Status,
		&o.Subtotal,
		&o.Tax,
		&o.ShippingCost,
		&o.TotalAmount,
		&o.Currency,
		&o.PaymentID,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Items = []domain.OrderItem{}
	return &o, nil
}

func loadItems(ctx context.Context, q db.Querier, orderIDs []int64) ([]domain.OrderItem, error) {
	const query = `
SELECT id, order_id, product_id, product_name, product_description, unit_price, quantity, subtotal
FROM order_items
WHERE order_id = ANY($1)
ORDER BY order_id, id
`
	rows, err := q.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ProductID,
			&it.ProductName,
			&it.ProductDescription,
			&it.UnitPrice,
			&it.Quantity,
			&it.Subtotal,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
