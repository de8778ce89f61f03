package sheets

// limited.go bounds how hard the bot leans on its backing store.
//
// Spreadsheet APIs enforce per-user quotas, so concurrent chat events share
// a small pool of call slots. A call that cannot get a slot within maxWait
// fails with core.ErrBusy. Each admitted call also gets its own deadline.

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/partbot/internal/core"
	"github.com/JonMunkholm/partbot/internal/logging"
)

// DefaultMaxConcurrent is the default limit for parallel store calls.
const DefaultMaxConcurrent = 4

// DefaultMaxWait is how long to wait for a slot before rejecting.
const DefaultMaxWait = 10 * time.Second

// Limiter is a counting semaphore for store calls.
type Limiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewLimiter allows at most maxConcurrent simultaneous calls.
// Callers that cannot acquire a slot within maxWait receive core.ErrBusy.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	return &Limiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot.
// The caller MUST call Release() when the call completes (use defer).
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.TryAcquire() {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Caller cancellation wins over our own wait timeout
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return core.ErrBusy
	}
}

// TryAcquire takes a slot without blocking.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of calls in flight.
func (l *Limiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *Limiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no call is in flight or ctx is done.
// Used on shutdown so a pending append is not cut off.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for the health endpoint.
func (l *Limiter) Status() LimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return LimiterStatus{
		Active:        active,
		Available:     l.Available(),
		MaxConcurrent: cap(l.semaphore),
	}
}

// Limited wraps a Store with a Limiter and a per-call timeout.
type Limited struct {
	next    Store
	limiter *Limiter
	timeout time.Duration
}

// NewLimited wraps next. A zero timeout leaves calls bounded only by the
// caller's context.
func NewLimited(next Store, limiter *Limiter, timeout time.Duration) *Limited {
	return &Limited{next: next, limiter: limiter, timeout: timeout}
}

// Limiter exposes the underlying limiter for status reporting and drain.
func (s *Limited) Limiter() *Limiter { return s.limiter }

func (s *Limited) HeaderAndRows(ctx context.Context, sheet string) ([]string, [][]string, error) {
	ctx, done, err := s.enter(ctx, "read", sheet)
	if err != nil {
		return nil, nil, err
	}
	defer done()
	return s.next.HeaderAndRows(ctx, sheet)
}

func (s *Limited) AppendRow(ctx context.Context, sheet string, values []any) error {
	ctx, done, err := s.enter(ctx, "append", sheet)
	if err != nil {
		return err
	}
	defer done()
	return s.next.AppendRow(ctx, sheet, values)
}

func (s *Limited) enter(ctx context.Context, op, sheet string) (context.Context, func(), error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		logging.WithFields(ctx, "op", op, "sheet", sheet).Warn("store call rejected",
			"error", err, "active", s.limiter.ActiveCount())
		return nil, nil, core.NewAccessError(op, sheet, err)
	}

	cancel := context.CancelFunc(func() {})
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {
		cancel()
		s.limiter.Release()
	}, nil
}

// Close waits briefly for in-flight calls, then closes the backend.
func (s *Limited) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultMaxWait)
	defer cancel()
	_ = s.limiter.WaitForDrain(ctx)
	return s.next.Close()
}
