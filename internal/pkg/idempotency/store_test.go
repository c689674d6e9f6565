package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore_SetGet(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Set(ctx, "key-1", "booking-abc"))

	v, ok, err := s.Get(ctx, "key-1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "booking-abc", v)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()

	assert.NoError(t, s.Set(ctx, "key-1", "booking-abc"))
	time.Sleep(20 * time.Millisecond)

	_, ok, err := s.Get(ctx, "key-1")
	assert.NoError(t, err)
	assert.False(t, ok)
}
