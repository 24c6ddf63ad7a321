// Package mutation wraps a single asynchronous write as a small state
// machine: idle, pending, then success or error.
package mutation

import (
	"context"
	"sync"
)

// Status is where a Mutation is in its lifecycle.
type Status int

const (
	Idle Status = iota
	Pending
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Error:
		return "error"
	}
	return "unknown"
}

// Func performs the write.
type Func[A, R any] func(ctx context.Context, args A) (R, error)

// Options holds the settle callbacks. Both are optional.
type Options[A, R any] struct {
	OnSuccess func(result R, args A)
	OnError   func(err error, args A)
}

// Result is the outcome of one invocation, handed back to Settle.
type Result[A, R any] struct {
	Args  A
	Value R
	Err   error
	seq   uint64
}

// Mutation tracks one write operation. Invocations are not guarded
// against overlap; callers should disable their trigger while Pending.
type Mutation[A, R any] struct {
	fn   Func[A, R]
	opts Options[A, R]

	mu     sync.Mutex
	status Status
	data   R
	err    error
	seq    uint64
}

// New returns an idle mutation around fn.
func New[A, R any](fn Func[A, R], opts Options[A, R]) *Mutation[A, R] {
	return &Mutation[A, R]{fn: fn, opts: opts}
}

// Begin moves to Pending and returns the work for args. Run the work
// anywhere and pass what it returns to Settle.
func (m *Mutation[A, R]) Begin(args A) func(ctx context.Context) Result[A, R] {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.status = Pending
	m.err = nil
	m.mu.Unlock()

	return func(ctx context.Context) Result[A, R] {
		v, err := m.fn(ctx, args)
		return Result[A, R]{Args: args, Value: v, Err: err, seq: seq}
	}
}

// Settle records res and fires the matching callback. A result from an
// older invocation still fires its callback but leaves the state of the
// newer one alone.
func (m *Mutation[A, R]) Settle(res Result[A, R]) {
	m.mu.Lock()
	if res.seq == m.seq {
		if res.Err != nil {
			m.status, m.err = Error, res.Err
		} else {
			m.status, m.data = Success, res.Value
		}
	}
	m.mu.Unlock()

	if res.Err != nil {
		if m.opts.OnError != nil {
			m.opts.OnError(res.Err, res.Args)
		}
		return
	}
	if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(res.Value, res.Args)
	}
}

// Mutate runs Begin, the work and Settle on the calling goroutine.
func (m *Mutation[A, R]) Mutate(ctx context.Context, args A) (R, error) {
	res := m.Begin(args)(ctx)
	m.Settle(res)
	return res.Value, res.Err
}

// Status returns the current state.
func (m *Mutation[A, R]) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsPending reports whether the latest invocation has not settled yet.
func (m *Mutation[A, R]) IsPending() bool { return m.Status() == Pending }

// Data returns the value of the last successful settle.
func (m *Mutation[A, R]) Data() R {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Err returns the error of the latest invocation, if it failed.
func (m *Mutation[A, R]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Reset returns to Idle. Work already started still settles normally.
func (m *Mutation[A, R]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.status = Idle
	m.err = nil
}
