// Package query keeps the last fetched value per key in memory and
// refetches when a key is invalidated. It is a read-through cache;
// the remote store stays the source of truth.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// ErrUnknownKey is returned for keys that were never registered.
var ErrUnknownKey = errors.New("unknown query key")

// Status is the observable state of one cache entry.
type Status int

const (
	StatusLoading Status = iota // no data yet, first fetch in flight
	StatusError                 // last fetch failed, no valid data
	StatusSuccess               // data available
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// State is a snapshot of one entry.
type State[T any] struct {
	Status    Status
	Data      T
	Err       error
	Fetching  bool // a flight is running, possibly a background refetch
	UpdatedAt time.Time
}

// Fetcher loads the value for a key.
type Fetcher[T any] func(ctx context.Context) (T, error)

type flight[T any] struct {
	done chan struct{}
	val  T
	err  error
}

type entry[T any] struct {
	fetch   Fetcher[T]
	state   State[T]
	started bool
	stale   bool
	flight  *flight[T]
	next    *flight[T] // queued behind flight after an invalidation
	subs    map[int]chan State[T]
	nextSub int
}

// Cache holds one entry per registered key.
type Cache[T any] struct {
	ctx    context.Context
	logger *log.Logger

	mu      sync.Mutex
	entries map[string]*entry[T]
}

// Option tunes a Cache.
type Option func(*options)

type options struct {
	logger *log.Logger
}

// WithLogger sets where fetch failures are reported.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New returns an empty cache. Fetches run with ctx, so cancelling it
// stops background refetches.
func New[T any](ctx context.Context, opts ...Option) *Cache[T] {
	o := options{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		ctx:     ctx,
		logger:  o.logger,
		entries: map[string]*entry[T]{},
	}
}

// Register binds key to fetch. Registering a key again replaces its
// fetcher and keeps the cached state.
func (c *Cache[T]) Register(key string, fetch Fetcher[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.fetch = fetch
		return
	}
	c.entries[key] = &entry[T]{fetch: fetch, subs: map[int]chan State[T]{}}
}

// Get returns the current state of key without fetching.
func (c *Cache[T]) Get(key string) (State[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return State[T]{}, false
	}
	return e.state, true
}

// Fetch returns the cached value if there is one, and otherwise waits for
// a fetch. Callers that arrive while a fetch is in flight share it, unless
// the key was invalidated after that fetch started; they then wait for the
// refetch queued behind it.
func (c *Cache[T]) Fetch(ctx context.Context, key string) (T, error) {
	var zero T
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return zero, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if e.state.Status == StatusSuccess && !e.stale && e.flight == nil {
		v := e.state.Data
		c.mu.Unlock()
		return v, nil
	}
	var f *flight[T]
	if e.stale && e.flight != nil {
		f = c.queueLocked(e)
	} else {
		f = c.startLocked(key, e)
	}
	c.mu.Unlock()

	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Invalidate marks key stale and schedules a refetch. It never blocks.
// If a fetch is already running, one more runs after it so the result
// reflects every write that finished before this call.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.stale = true
	if e.flight == nil {
		c.startLocked(key, e)
	}
}

// Subscribe returns a channel carrying the latest state of key, starting
// with the current one. Only the newest state is kept for slow readers.
// The first subscriber triggers the initial fetch. Call cancel to stop.
func (c *Cache[T]) Subscribe(key string) (<-chan State[T], func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan State[T], 1)
	e, ok := c.entries[key]
	if !ok {
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	if e.started {
		ch <- e.state
	} else {
		c.startLocked(key, e)
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}
}

// queueLocked returns the flight that will run once the current one ends.
func (c *Cache[T]) queueLocked(e *entry[T]) *flight[T] {
	if e.next == nil {
		e.next = &flight[T]{done: make(chan struct{})}
	}
	return e.next
}

// startLocked returns the running flight for e, starting one if needed.
// A queued flight is promoted rather than replaced.
func (c *Cache[T]) startLocked(key string, e *entry[T]) *flight[T] {
	if e.flight != nil {
		return e.flight
	}
	f := e.next
	if f == nil {
		f = &flight[T]{done: make(chan struct{})}
	}
	e.next = nil
	e.flight = f
	e.started = true
	e.stale = false
	e.state.Fetching = true
	c.notifyLocked(e)
	go c.run(key, e, f)
	return f
}

func (c *Cache[T]) run(key string, e *entry[T], f *flight[T]) {
	c.mu.Lock()
	fetch := e.fetch
	c.mu.Unlock()

	v, err := fetch(c.ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	f.val, f.err = v, err
	close(f.done)
	e.flight = nil

	if err != nil {
		if c.ctx.Err() == nil {
			c.logger.Error("fetch failed", "key", key, "err", err)
		}
		e.state = State[T]{Status: StatusError, Err: err}
	} else {
		e.state = State[T]{Status: StatusSuccess, Data: v, UpdatedAt: time.Now()}
	}

	if e.stale && c.ctx.Err() == nil {
		c.startLocked(key, e)
		return
	}
	if q := e.next; q != nil {
		e.next = nil
		q.err = c.ctx.Err()
		close(q.done)
	}
	c.notifyLocked(e)
}

// notifyLocked replaces whatever is buffered in each subscriber channel
// with the current state.
func (c *Cache[T]) notifyLocked(e *entry[T]) {
	s := e.state
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
