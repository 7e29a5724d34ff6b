package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"smartpark/internal/parking/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchOf(vehicles ...string) effectBatch {
	b := effectBatch{ctx: context.Background()}
	for _, v := range vehicles {
		b.effects = append(b.effects, effect{event: events.BookingEvent{VehicleNumber: v}})
	}
	return b
}

func TestEffectQueue_AppliesInOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	q := newEffectQueue(10, func(_ context.Context, e effect) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.event.VehicleNumber)
	})

	require.True(t, q.push(batchOf("A", "B")))
	require.True(t, q.push(batchOf("C")))
	q.wait()

	mu.Lock()
	assert.Equal(t, []string{"A", "B", "C"}, seen)
	mu.Unlock()
	require.NoError(t, q.close(context.Background()))
}

func TestEffectQueue_RefusesWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := newEffectQueue(1, func(context.Context, effect) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})

	require.True(t, q.push(batchOf("A")))
	<-started
	require.True(t, q.push(batchOf("B")), "one batch may wait while another runs")
	assert.False(t, q.push(batchOf("C")))

	close(release)
	require.NoError(t, q.close(context.Background()))
	assert.False(t, q.push(batchOf("D")), "closed queue accepts nothing")
}

func TestEffectQueue_CloseHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	q := newEffectQueue(1, func(context.Context, effect) { <-release })
	require.True(t, q.push(batchOf("A")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.close(ctx), context.DeadlineExceeded)
}
