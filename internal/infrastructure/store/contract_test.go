package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/slick-storefront/internal/domain/cart"
	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/domain/user"
)

// Shared behaviour every backend's repositories must show. Each backend test
// file runs these against its own adapter.

func testCartRepository(t *testing.T, repo cart.Repository) {
	ctx := context.Background()
	owner := "owner-" + uuid.NewString()
	other := "owner-" + uuid.NewString()
	a := cart.Line{ProductID: "HP9426", Size: "40", Color: "Core Black", Quantity: 2}
	b := cart.Line{ProductID: "IE8593", Size: "32", Color: "Cloud White", Quantity: 1}

	t.Run("empty cart", func(t *testing.T) {
		lines, err := repo.ListLines(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, lines)

		_, found, err := repo.GetLine(ctx, owner, a.Key())
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("save keeps insertion order and overwrites quantity", func(t *testing.T) {
		require.NoError(t, repo.SaveLine(ctx, owner, a))
		require.NoError(t, repo.SaveLine(ctx, owner, b))
		a.Quantity = 7
		require.NoError(t, repo.SaveLine(ctx, owner, a))

		lines, err := repo.ListLines(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, []cart.Line{a, b}, lines)

		got, found, err := repo.GetLine(ctx, owner, a.Key())
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 7, got.Quantity)
	})

	t.Run("owners are isolated", func(t *testing.T) {
		lines, err := repo.ListLines(ctx, other)
		require.NoError(t, err)
		assert.Empty(t, lines)

		require.NoError(t, repo.DeleteLines(ctx, other))
		lines, err = repo.ListLines(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, lines, 2)
	})

	t.Run("delete line is idempotent", func(t *testing.T) {
		require.NoError(t, repo.DeleteLine(ctx, owner, b.Key()))
		require.NoError(t, repo.DeleteLine(ctx, owner, b.Key()))

		lines, err := repo.ListLines(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, []cart.Line{a}, lines)
	})

	t.Run("delete lines empties the cart", func(t *testing.T) {
		require.NoError(t, repo.SaveLine(ctx, owner, b))
		require.NoError(t, repo.DeleteLines(ctx, owner))

		lines, err := repo.ListLines(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, lines)
	})
}

func newContractOrder(owner string, createdAt time.Time) *order.Order {
	return &order.Order{
		ID:      uuid.NewString(),
		OwnerID: owner,
		Contact: order.Contact{
			Email:     "an@example.com",
			FirstName: "An",
			LastName:  "Nguyễn",
			Address:   "12 Lê Lợi",
			City:      "Hồ Chí Minh",
			ZipCode:   "700000",
			Phone:     "0901234567",
		},
		Subtotal:      3998000,
		ShippingFee:   199000,
		Total:         4197000,
		PaymentMethod: order.PaymentCOD,
		Status:        order.StatusPending,
		CreatedAt:     createdAt.UTC().Truncate(time.Millisecond),
		Items: []order.Item{
			{ProductID: "HP9426", Size: "40", Color: "Core Black", Quantity: 2, UnitPrice: 1999000},
		},
	}
}

func testOrderRepository(t *testing.T, repo order.Repository) {
	ctx := context.Background()
	owner := "owner-" + uuid.NewString()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	older := newContractOrder(owner, base)
	newer := newContractOrder(owner, base.Add(time.Hour))
	newer.Items = append(newer.Items, order.Item{ProductID: "IE8593", Size: "32", Color: "Cloud White", Quantity: 1, UnitPrice: 1299000})
	newer.Subtotal = 3998000 + 1299000
	newer.Total = newer.Subtotal + newer.ShippingFee
	foreign := newContractOrder("owner-"+uuid.NewString(), base)

	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, foreign))

	t.Run("empty order rejected", func(t *testing.T) {
		empty := newContractOrder(owner, base)
		empty.Items = nil
		assert.ErrorIs(t, repo.Create(ctx, empty), order.ErrEmptyOrder)
	})

	t.Run("list newest first with items", func(t *testing.T) {
		orders, err := repo.ListByOwner(ctx, owner)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, newer.ID, orders[0].ID)
		assert.Equal(t, older.ID, orders[1].ID)
		assert.Equal(t, newer.Items, orders[0].Items)
		assert.Equal(t, older.Contact, orders[1].Contact)
		assert.Equal(t, orders[0].Subtotal+orders[0].ShippingFee, orders[0].Total)
	})

	t.Run("get", func(t *testing.T) {
		got, err := repo.Get(ctx, owner, older.ID)
		require.NoError(t, err)
		assert.Equal(t, older.ID, got.ID)
		assert.Equal(t, order.StatusPending, got.Status)
		assert.Equal(t, order.PaymentCOD, got.PaymentMethod)
		assert.True(t, older.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, older.Items, got.Items)
	})

	t.Run("other owners cannot read", func(t *testing.T) {
		_, err := repo.Get(ctx, owner, foreign.ID)
		assert.ErrorIs(t, err, order.ErrOrderNotFound)

		_, err = repo.Get(ctx, owner, "missing")
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})

	t.Run("no orders", func(t *testing.T) {
		orders, err := repo.ListByOwner(ctx, "owner-"+uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func testUserRepository(t *testing.T, repo user.Repository) {
	ctx := context.Background()
	email := uuid.NewString() + "@example.com"
	u := &user.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "An",
		PasswordHash: "$2a$04$hash",
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}

	require.NoError(t, repo.CreateUser(ctx, u))

	byEmail, err := repo.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, u.PasswordHash, byEmail.PasswordHash)

	byID, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, email, byID.Email)
	assert.Equal(t, "An", byID.Name)

	dup := *u
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, repo.CreateUser(ctx, &dup), user.ErrEmailTaken)

	_, err = repo.GetUserByEmail(ctx, "nobody-"+email)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	_, err = repo.GetUserByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}
