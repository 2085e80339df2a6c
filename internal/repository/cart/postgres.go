package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"order-fulfillment/internal/db"
	"order-fulfillment/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, userID int64) (*domain.Cart, bool, error) {
	const q = `
INSERT INTO carts (user_id, status)
VALUES ($1, 'ACTIVE')
ON CONFLICT (user_id) WHERE status = 'ACTIVE' DO NOTHING
RETURNING id
`
	var id int64
	err := r.pool.QueryRow(ctx, q, userID).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		existing, err := r.GetActiveByUser(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	case err != nil:
		return nil, false, err
	}
	created, err := Load(ctx, r.pool, id, false)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Cart, error) {
	return Load(ctx, r.pool, id, false)
}

func (r *postgresRepo) GetActiveByUser(ctx context.Context, userID int64) (*domain.Cart, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1 AND status = 'ACTIVE'`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return Load(ctx, r.pool, id, false)
}

func (r *postgresRepo) AddItem(ctx context.Context, cartID, productID int64, quantity int) (AddResult, error) {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) (AddResult, error) {
		if err := touch(ctx, tx, cartID); err != nil {
			return AddResult{}, err
		}
		const q = `
INSERT INTO cart_items (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id) DO UPDATE
SET quantity = cart_items.quantity + EXCLUDED.quantity
WHERE cart_items.quantity::bigint + EXCLUDED.quantity <= $4
RETURNING quantity, (xmax = 0) AS inserted
`
		var res AddResult
		err := tx.QueryRow(ctx, q, cartID, productID, quantity, domain.MaxItemQuantity).Scan(&res.Quantity, &res.Inserted)
		if errors.Is(err, pgx.ErrNoRows) {
			return AddResult{}, fmt.Errorf("%w: quantity of product %d would exceed %d", domain.ErrInvalidInput, productID, domain.MaxItemQuantity)
		}
		if err != nil {
			return AddResult{}, err
		}
		return res, nil
	})
}

func (r *postgresRepo) SetItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error {
	_, err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) (struct{}, error) {
		if err := touch(ctx, tx, cartID); err != nil {
			return struct{}{}, err
		}
		cmd, err := tx.Exec(ctx, `
UPDATE cart_items
SET quantity = $3
WHERE cart_id = $1 AND product_id = $2
`, cartID, productID, quantity)
		if err != nil {
			return struct{}{}, err
		}
		if cmd.RowsAffected() == 0 {
			return struct{}{}, fmt.Errorf("%w: product %d is not in cart %d", domain.ErrNotFound, productID, cartID)
		}
		return struct{}{}, nil
	})
	return err
}

func (r *postgresRepo) RemoveItem(ctx context.Context, cartID, productID int64) error {
	_, err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) (struct{}, error) {
		if err := touch(ctx, tx, cartID); err != nil {
			return struct{}{}, err
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
		if err != nil {
			return struct{}{}, err
		}
		if cmd.RowsAffected() == 0 {
			return struct{}{}, fmt.Errorf("%w: product %d is not in cart %d", domain.ErrNotFound, productID, cartID)
		}
		return struct{}{}, nil
	})
	return err
}

func (r *postgresRepo) ClearItems(ctx context.Context, cartID int64) (int64, error) {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) (int64, error) {
		if err := touch(ctx, tx, cartID); err != nil {
			return 0, err
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
		if err != nil {
			return 0, err
		}
		return cmd.RowsAffected(), nil
	})
}

func (r *postgresRepo) Delete(ctx context.Context, cartID int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) SetStatus(ctx context.Context, cartID int64, status domain.CartStatus) error {
	return SetStatus(ctx, r.pool, cartID, status)
}

func (r *postgresRepo) AbandonIdle(ctx context.Context, before time.Time) ([]domain.Cart, error) {
	const q = `
UPDATE carts
SET status = 'ABANDONED', updated_at = now()
WHERE status = 'ACTIVE' AND updated_at < $1
RETURNING id, user_id, status, created_at, updated_at
`
	rows, err := r.pool.Query(ctx, q, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var carts []domain.Cart
	for rows.Next() {
		var c domain.Cart
		if err := rows.Scan(&c.ID, &c.UserID, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		carts = append(carts, c)
	}
	return carts, rows.Err()
}

// SetStatus overwrites the cart status without checking the transition.
// It runs on q so callers can include it in their own transaction.
func SetStatus(ctx context.Context, q db.Querier, cartID int64, status domain.CartStatus) error {
	cmd, err := q.Exec(ctx, `UPDATE carts SET status = $2, updated_at = now() WHERE id = $1`, cartID, status)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: user already has an active cart", domain.ErrAlreadyExists)
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Load reads a cart and its items joined with the current catalog rows.
// With forUpdate the cart row stays locked until q's transaction ends.
func Load(ctx context.Context, q db.Querier, cartID int64, forUpdate bool) (*domain.Cart, error) {
	cartQuery := `
SELECT id, user_id, status, created_at, updated_at
FROM carts
WHERE id = $1
`
	if forUpdate {
		cartQuery += "FOR UPDATE\n"
	}
	var c domain.Cart
	err := q.QueryRow(ctx, cartQuery, cartID).Scan(&c.ID, &c.UserID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const itemsQuery = `
SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.added_at,
       p.id, p.sku, p.name, p.description, p.price, p.available, p.created_at, p.updated_at
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.added_at ASC, ci.id ASC
`
	rows, err := q.Query(ctx, itemsQuery, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c.Items = []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		p := &item.Product
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.AddedAt,
			&p.ID,
			&p.SKU,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.Available,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &c, nil
}

// touch bumps updated_at and locks the cart row for the rest of the
// transaction. Items may only change while the cart is ACTIVE.
func touch(ctx context.Context, q db.Querier, cartID int64) error {
	var status domain.CartStatus
	err := q.QueryRow(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1 RETURNING status`, cartID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if status != domain.CartStatusActive {
		return fmt.Errorf("%w: cart %d is %s", domain.ErrInvalidState, cartID, status)
	}
	return nil
}
