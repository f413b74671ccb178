package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetAndClear(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, ok := s.Current()
	assert.False(t, ok)

	s.Set(ctx, Identity{ID: "user-1", Email: "a@example.com"})
	id, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "user-1", id.ID)

	s.Clear(ctx)
	_, ok = s.Current()
	assert.False(t, ok)
}

func TestStore_SubscribeNotifiesInOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var seen []string
	s.Subscribe(func(_ context.Context, id *Identity) {
		if id == nil {
			seen = append(seen, "first:logout")
			return
		}
		seen = append(seen, "first:"+id.ID)
	})
	s.Subscribe(func(_ context.Context, id *Identity) {
		if id == nil {
			seen = append(seen, "second:logout")
			return
		}
		seen = append(seen, "second:"+id.ID)
	})

	s.Set(ctx, Identity{ID: "u1"})
	s.Clear(ctx)

	assert.Equal(t, []string{"first:u1", "second:u1", "first:logout", "second:logout"}, seen)
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	calls := 0
	unsubscribe := s.Subscribe(func(context.Context, *Identity) { calls++ })

	s.Set(ctx, Identity{ID: "u1"})
	unsubscribe()
	unsubscribe()
	s.Set(ctx, Identity{ID: "u2"})

	assert.Equal(t, 1, calls)
}

func TestStore_ListenerCannotMutateIdentity(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	s.Subscribe(func(_ context.Context, id *Identity) {
		if id != nil {
			id.ID = "tampered"
		}
	})
	s.Set(ctx, Identity{ID: "u1"})

	id, _ := s.Current()
	assert.Equal(t, "u1", id.ID)
}
