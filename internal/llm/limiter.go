package llm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Veraticus/bucketeer/internal/model"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the number of completion calls allowed in flight.
const DefaultConcurrency = 30

// Limiter is a counting semaphore with FIFO admission that bounds the number
// of in-flight completion calls. Waiters are admitted in arrival order.
type Limiter struct {
	sem      *semaphore.Weighted
	limit    int64
	inFlight atomic.Int64
	waiting  atomic.Int64
	peak     atomic.Int64
}

// NewLimiter creates a limiter admitting at most limit concurrent calls.
func NewLimiter(limit int) *Limiter {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Limiter{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
	}
}

var (
	sharedLimiter     *Limiter
	sharedLimiterOnce sync.Once
)

// SharedLimiter returns the process-wide limiter. The first call fixes its
// limit; later calls return the same instance regardless of limit.
func SharedLimiter(limit int) *Limiter {
	sharedLimiterOnce.Do(func() {
		sharedLimiter = NewLimiter(limit)
	})
	return sharedLimiter
}

// Do runs fn while holding one slot. A waiter gives up only when ctx is done;
// once admitted, fn runs to completion.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	l.waiting.Add(1)
	err := l.sem.Acquire(ctx, 1)
	l.waiting.Add(-1)
	if err != nil {
		return fmt.Errorf("rate limiter canceled: %w", err)
	}
	defer l.sem.Release(1)

	current := l.inFlight.Add(1)
	defer l.inFlight.Add(-1)
	for {
		peak := l.peak.Load()
		if current <= peak || l.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	return fn()
}

// Limit returns the maximum number of concurrent calls.
func (l *Limiter) Limit() int {
	return int(l.limit)
}

// InFlight returns the number of calls currently holding a slot.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

// Waiting returns the number of callers queued for a slot.
func (l *Limiter) Waiting() int {
	return int(l.waiting.Load())
}

// Peak returns the highest number of simultaneous calls observed.
func (l *Limiter) Peak() int {
	return int(l.peak.Load())
}

// limitedClient gates every call of the wrapped client through a Limiter.
type limitedClient struct {
	client  Client
	limiter *Limiter
}

// WithLimiter wraps client so that each Complete call consumes one limiter slot.
func WithLimiter(client Client, limiter *Limiter) Client {
	return &limitedClient{client: client, limiter: limiter}
}

// Complete implements Client.
func (c *limitedClient) Complete(ctx context.Context, conversation model.Conversation, maxTokens int) (string, error) {
	var text string
	err := c.limiter.Do(ctx, func() error {
		var callErr error
		text, callErr = c.client.Complete(ctx, conversation, maxTokens)
		return callErr
	})
	return text, err
}
