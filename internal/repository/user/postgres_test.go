package user

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/testutil/pgtest"
)

func TestPostgres_CreateAndLookup(t *testing.T) {
	pool := pgtest.New(t)
	ctx := t.Context()
	repo := NewPostgres(pool, nil)

	email := gofakeit.Email()
	created, err := repo.Create(ctx, domain.User{Email: email, PasswordHash: "hash"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, domain.User{Email: email, PasswordHash: "other"})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	byEmail, err := repo.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	ok, err := repo.Exists(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, created.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.GetByID(ctx, created.ID+100)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
