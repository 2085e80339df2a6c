// Package pgtest provides a migrated Postgres for repository tests. It uses
// TEST_DB_DSN when set and otherwise starts a throwaway container.
package pgtest

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"order-fulfillment/internal/migrate"
)

const image = "postgres:17.6-alpine3.22"

// New returns a pool on a freshly migrated database with all tables empty.
// The test is skipped under -short.
func New(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres-backed test in -short mode")
	}
	ctx := t.Context()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		var err error
		dsn, err = startContainer(ctx, t)
		if err != nil {
			t.Fatalf("start postgres: %v", err)
		}
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Apply(ctx, pool, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	Reset(t, pool)
	return pool
}

// Reset truncates every table and restarts identities.
func Reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	const q = `TRUNCATE order_items, orders, cart_items, carts, products, users RESTART IDENTITY CASCADE`
	if _, err := pool.Exec(context.Background(), q); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

// InsertUser creates a user row and returns its id.
func InsertUser(t *testing.T, pool *pgxpool.Pool, email string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (email, password_hash) VALUES ($1, 'x') RETURNING id`, email).Scan(&id)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

// InsertProduct creates a product row priced at price and returns its id.
func InsertProduct(t *testing.T, pool *pgxpool.Pool, sku, name, price string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO products (sku, name, description, price) VALUES ($1, $2, $2 || ' description', $3::numeric) RETURNING id`,
		sku, name, price).Scan(&id)
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return id
}

func startContainer(ctx context.Context, t *testing.T) (string, error) {
	container, err := postgres.Run(ctx, image,
		postgres.WithDatabase("orders_test"),
		postgres.WithUsername("orders"),
		postgres.WithPassword("orders"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return "", fmt.Errorf("postgres.Run: %w", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", fmt.Errorf("container.ConnectionString: %w", err)
	}
	return connStr, nil
}
