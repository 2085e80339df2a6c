package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"order-fulfillment/internal/db"
)

type userSeed struct {
	Email    string
	Password string
}

type productSeed struct {
	SKU         string
	Name        string
	Description string
	Price       string
	Available   bool
}

var (
	users = []userSeed{
		{Email: "alice@example.com", Password: "alice-demo-pass"},
		{Email: "bob@example.com", Password: "bob-demo-pass"},
	}

	// Prices straddle the free-shipping threshold so both branches can be tried by hand.
	products = []productSeed{
		{SKU: "SKU-DEMO-TSHIRT", Name: "Demo T-Shirt", Description: "Soft cotton tee for demo purposes", Price: "10.00", Available: true},
		{SKU: "SKU-DEMO-HOODIE", Name: "Demo Hoodie", Description: "Heavyweight zip hoodie", Price: "35.00", Available: true},
		{SKU: "SKU-DEMO-MUG", Name: "Demo Mug", Description: "Ceramic mug with demo logo", Price: "12.99", Available: true},
		{SKU: "SKU-DEMO-POSTER", Name: "Demo Poster", Description: "Out of print", Price: "7.50", Available: false},
	}
)

// Apply inserts demo users and catalog products. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, u := range users {
		id, err := ensureUser(ctx, pool, u)
		if err != nil {
			return fmt.Errorf("ensure user %s: %w", u.Email, err)
		}
		logger.Info("seeded user", zap.String("email", u.Email), zap.Int64("id", id))
	}

	for _, p := range products {
		if err := upsertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}
	logger.Info("seeded products", zap.Int("count", len(products)))
	return nil
}

// ensureUser keeps the existing password hash when the user is already present.
func ensureUser(ctx context.Context, q db.Querier, u userSeed) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	const stmt = `
INSERT INTO users (email, password_hash)
VALUES ($1, $2)
ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
RETURNING id
`
	var id int64
	if err := q.QueryRow(ctx, stmt, u.Email, string(hash)).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func upsertProduct(ctx context.Context, q db.Querier, p productSeed) error {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return err
	}
	const stmt = `
INSERT INTO products (sku, name, description, price, available)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (sku) DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    available = EXCLUDED.available,
    updated_at = now()
`
	_, err = q.Exec(ctx, stmt, p.SKU, p.Name, p.Description, price, p.Available)
	return err
}
