// Package poll implements the feed synchronization loop shared by the
// now-playing and recently-played feeds.
//
// A [Synchronizer] runs one foreground fetch when it gets a token, then
// background ticks on a fixed cadence. Only foreground fetches show a
// loading state; a failed background tick keeps the previous items visible
// and surfaces the error alongside them. Responses are applied in completion
// order with a per-instance sequence guard, so a slow response can never
// overwrite a newer one.
package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// FetchFunc retrieves one page of feed items with the given bearer token.
type FetchFunc[T any] func(ctx context.Context, token string) ([]T, error)

// Snapshot is the consumer-facing view of a feed.
//
// Loading is true only during the first fetch after a token arrives or
// during an explicit Refetch. Err keeps the message of the most recent
// failed attempt; Items survive failed attempts unchanged.
type Snapshot[T any] struct {
	Items     []T
	Loading   bool
	Err       string
	FetchedAt time.Time
}

// Options configures a [Synchronizer].
type Options struct {
	// Name labels the feed in error messages and logs.
	Name string
	// Interval is the background poll cadence.
	Interval time.Duration
	// Limit truncates each successful response; zero means unlimited.
	Limit  int
	Logger *log.Logger
}

// Synchronizer polls one feed and maintains its [Snapshot].
type Synchronizer[T any] struct {
	fetch    FetchFunc[T]
	name     string
	interval time.Duration
	limit    int
	logger   *log.Logger

	// newTicker is swapped out by tests to drive ticks manually.
	newTicker func(d time.Duration) (<-chan time.Time, func())

	mu      sync.Mutex
	snap    Snapshot[T]
	token   string
	gen     uint64 // bumped by Start/Stop; stale generations discard
	seq     uint64 // per-fetch issue counter
	applied uint64 // highest seq reflected in snap
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSynchronizer creates a stopped synchronizer for the given fetch function.
func NewSynchronizer[T any](fetch FetchFunc[T], opts Options) *Synchronizer[T] {
	name := opts.Name
	if name == "" {
		name = "feed"
	}

	return &Synchronizer[T]{
		fetch:    fetch,
		name:     name,
		interval: opts.Interval,
		limit:    opts.Limit,
		logger:   opts.Logger,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Start begins synchronizing with the given token.
//
// With an empty token the synchronizer goes idle: snapshot emptied, no
// schedule. Otherwise one foreground fetch runs, then background ticks at
// the configured interval until Stop or a token change. Calling Start again
// replaces any previous schedule.
func (s *Synchronizer[T]) Start(ctx context.Context, token string) {
	s.Stop()

	s.mu.Lock()
	s.gen++
	s.token = token

	if token == "" {
		s.snap = Snapshot[T]{}
		s.mu.Unlock()
		return
	}

	gen := s.gen
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(runCtx, gen, token)
}

// Stop cancels future ticks. An in-flight request is not aborted; its
// response is discarded when it lands because its generation is stale.
func (s *Synchronizer[T]) Stop() {
	s.mu.Lock()
	s.gen++
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Refetch forces a foreground fetch with the current token. No-op while
// idle. Safe to call concurrently with a background tick: whichever response
// completes last wins per the sequence guard.
func (s *Synchronizer[T]) Refetch(ctx context.Context) {
	s.mu.Lock()
	gen, token := s.gen, s.token
	s.mu.Unlock()

	if token == "" {
		return
	}
	s.run(ctx, gen, token, true)
}

// Snapshot returns a copy of the current feed view.
func (s *Synchronizer[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *Synchronizer[T]) loop(ctx context.Context, gen uint64, token string) {
	defer s.wg.Done()

	s.run(ctx, gen, token, true)

	ticks, stop := s.newTicker(s.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			s.run(ctx, gen, token, false)
		}
	}
}

// run performs one fetch attempt and applies the result under the
// generation/sequence guard.
func (s *Synchronizer[T]) run(ctx context.Context, gen uint64, token string, foreground bool) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	if foreground {
		s.snap.Loading = true
	}
	s.snap.Err = ""
	s.mu.Unlock()

	items, err := s.fetch(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if foreground && gen == s.gen {
		s.snap.Loading = false
	}

	// A response from a stopped schedule or one that lost the race to a
	// later fetch is dropped silently.
	if gen != s.gen || seq <= s.applied {
		return
	}
	s.applied = seq

	if err != nil {
		s.snap.Err = fmt.Sprintf("unable to load %s", s.name)
		if s.logger != nil {
			s.logger.Warnf("%s fetch failed: %v", s.name, err)
		}
		return
	}

	if s.limit > 0 && len(items) > s.limit {
		items = items[:s.limit]
	}
	s.snap.Items = items
	s.snap.FetchedAt = time.Now()
}
