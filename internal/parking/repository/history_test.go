package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopHistoryRepository(t *testing.T) {
	repo := NewNopHistoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Archive(ctx, nil))

	_, err := repo.FindByVehicle(ctx, "KA01", 10, 0)
	assert.ErrorIs(t, err, ErrHistoryDisabled)

	_, err = repo.CountByVehicle(ctx, "KA01")
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestWithTimeout_KeepsShorterDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ctx, cancel2 := withTimeout(parent, time.Hour)
	defer cancel2()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
}

func TestWithTimeout_AddsDeadline(t *testing.T) {
	ctx, cancel := withTimeout(context.Background(), time.Second)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)
}
