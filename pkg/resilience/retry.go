package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff configures Retry. Zero fields take the defaults of three
// attempts starting at 100ms and capped at 5s.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = 3
	}
	if b.Initial <= 0 {
		b.Initial = 100 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 5 * time.Second
	}
	return b
}

// delay doubles per attempt with up to 10% jitter either way.
func (b Backoff) delay(attempt int) time.Duration {
	d := b.Max
	if attempt < 32 {
		d = b.Initial << (attempt - 1)
	}
	if d <= 0 || d > b.Max {
		d = b.Max
	}
	jitter := time.Duration((rand.Float64()*0.2 - 0.1) * float64(d))
	return d + jitter
}

// Retry calls fn until it succeeds, the attempts run out or ctx is done.
func Retry(ctx context.Context, op string, b Backoff, fn func(ctx context.Context) error) error {
	b = b.withDefaults()
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == b.Attempts {
			return fmt.Errorf("%s failed after %d attempts: %w", op, attempt, err)
		}
		wait := b.delay(attempt)
		slog.Default().Warn("retrying", "operation", op, "attempt", attempt, "next_delay", wait, "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("%s aborted: %w", op, ctx.Err())
		}
	}
}
