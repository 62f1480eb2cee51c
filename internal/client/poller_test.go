package client_test

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncboard/internal/client"
	"syncboard/internal/patch"
)

func discardLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestApplyAdvancesCursor(t *testing.T) {
	rec := client.NewReconciler(1)
	p := client.NewPoller(rec, nil, time.Minute, discardLog())

	p.Apply([]patch.Patch{
		{Name: patch.KindColumn, Action: patch.ActionPut, Fields: map[string]any{"id": int64(10), "last_modified": int64(100)}},
		{Name: patch.KindCard, Action: patch.ActionCreate, Fields: map[string]any{"id": int64(40), "last_modified": int64(250)}},
	})
	assert.Equal(t, int64(250), p.Cursor())

	// Older patches never move the cursor backwards.
	p.Apply([]patch.Patch{
		{Name: patch.KindCard, Action: patch.ActionPut, Fields: map[string]any{"id": int64(40), "last_modified": int64(120)}},
	})
	assert.Equal(t, int64(250), p.Cursor())

	// Deletes carry no timestamp; the cursor stays put.
	p.Apply([]patch.Patch{
		{Name: patch.KindCard, Action: patch.ActionDelete, Fields: map[string]any{"id": int64(40)}},
	})
	assert.Equal(t, int64(250), p.Cursor())
}

func TestPollerFetchesImmediately(t *testing.T) {
	rec := client.NewReconciler(1)

	var calls atomic.Int64
	fetch := func(ctx context.Context, cursor int64) ([]patch.Patch, error) {
		if calls.Add(1) == 1 {
			return []patch.Patch{
				{Name: patch.KindBoard, Action: patch.ActionPut, Fields: map[string]any{
					"id": int64(1), "sequence": "10", "last_modified": int64(42),
				}},
			}, nil
		}
		return nil, nil
	}

	p := client.NewPoller(rec, fetch, time.Hour, discardLog())
	p.Start(context.Background())
	defer p.Stop()

	// The hour-long interval never elapses in this test, so the snapshot can
	// only have come from the immediate first tick.
	require.Eventually(t, func() bool {
		return p.Cursor() == 42
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{10}, rec.ColumnOrder())
}

func TestPollerPollsOnInterval(t *testing.T) {
	rec := client.NewReconciler(1)

	var calls atomic.Int64
	fetch := func(ctx context.Context, cursor int64) ([]patch.Patch, error) {
		calls.Add(1)
		return nil, nil
	}

	p := client.NewPoller(rec, fetch, 5*time.Millisecond, discardLog())
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestStopDiscardsInFlightResponse(t *testing.T) {
	rec := client.NewReconciler(1)

	started := make(chan struct{})
	fetch := func(ctx context.Context, cursor int64) ([]patch.Patch, error) {
		close(started)
		<-ctx.Done()
		// The response arrives after cancellation and must be dropped.
		return []patch.Patch{
			{Name: patch.KindBoard, Action: patch.ActionPut, Fields: map[string]any{
				"id": int64(1), "sequence": "10", "last_modified": int64(42),
			}},
		}, nil
	}

	p := client.NewPoller(rec, fetch, time.Hour, discardLog())
	p.Start(context.Background())
	<-started
	p.Stop()

	assert.Equal(t, int64(0), p.Cursor())
	assert.Empty(t, rec.ColumnOrder())
}

func TestStartIsIdempotentAndStopIsSafe(t *testing.T) {
	rec := client.NewReconciler(1)
	fetch := func(ctx context.Context, cursor int64) ([]patch.Patch, error) {
		return nil, nil
	}

	p := client.NewPoller(rec, fetch, time.Hour, discardLog())

	// Stop before Start is a no-op.
	p.Stop()

	p.Start(context.Background())
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}
