package client

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"syncboard/internal/patch"
)

// FetchFunc fetches the patches newer than cursor for the tracked board.
type FetchFunc func(ctx context.Context, cursor int64) ([]patch.Patch, error)

// Poller drives periodic catch-up for one board view. It is owned by the
// view's lifecycle: Start when the view appears, Stop when it goes away.
// A user-initiated mutation bypasses the timer by handing its returned patch
// list straight to Apply; both paths advance the same cursor and go through
// the same reconciler.
type Poller struct {
	rec      *Reconciler
	fetch    FetchFunc
	interval time.Duration
	log      *logrus.Logger

	mu     sync.Mutex
	cursor int64
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(rec *Reconciler, fetch FetchFunc, interval time.Duration, log *logrus.Logger) *Poller {
	return &Poller{rec: rec, fetch: fetch, interval: interval, log: log}
}

// Start launches the polling loop. The first fetch happens immediately so a
// fresh view does not wait one interval for its snapshot.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
}

// Stop cancels the loop and waits for it to exit. The effect of an in-flight
// fetch is discarded; the network call itself is not interrupted beyond
// context cancellation.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Cursor returns the last timestamp fully observed by this view.
func (p *Poller) Cursor() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Apply reconciles a patch list and advances the cursor to the newest
// last_modified it carries. Mutation responses enter here.
func (p *Poller) Apply(patches []patch.Patch) {
	p.rec.ApplyPatches(patches)
	newest := int64(0)
	for _, pt := range patches {
		if ts, ok := asInt64(pt.Fields["last_modified"]); ok && ts > newest {
			newest = ts
		}
	}
	p.mu.Lock()
	if newest > p.cursor {
		p.cursor = newest
	}
	p.mu.Unlock()
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	p.tick(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	patches, err := p.fetch(ctx, p.Cursor())
	if err != nil {
		if ctx.Err() == nil && p.log != nil {
			p.log.WithError(err).Warn("poll fetch failed")
		}
		return
	}
	// The view may have been stopped while the fetch was in flight; its
	// response must not land after Stop.
	if ctx.Err() != nil {
		return
	}
	p.Apply(patches)
}
