package otp

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CRUD(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	e := Entry{Code: "123456", IssuedAt: time.Unix(100, 0)}
	require.NoError(t, s.Put(ctx, "k", e))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, e, *got)

	require.NoError(t, s.Delete(ctx, "k"))
	assert.Zero(t, s.len())
}

func TestMemoryStore_Sweep(t *testing.T) {
	s := NewMemoryStore(30 * time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "old", Entry{IssuedAt: now.Add(-31 * time.Minute)}))
	require.NoError(t, s.Put(ctx, "fresh", Entry{IssuedAt: now.Add(-5 * time.Minute)}))

	assert.Equal(t, 1, s.Sweep())
	_, err := s.Get(ctx, "fresh")
	assert.NoError(t, err)
	_, err = s.Get(ctx, "old")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryStore_RunSweeperStopsOnCancel(t *testing.T) {
	s := NewMemoryStore(time.Nanosecond)
	require.NoError(t, s.Put(context.Background(), "k", Entry{IssuedAt: time.Now().Add(-time.Hour)}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return s.len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
