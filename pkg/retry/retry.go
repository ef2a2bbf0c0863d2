package retry

import (
	"context"
	"time"
)

// Policy bounds retries of an operation. Backoff is linear:
// BaseDelay * attempt between tries.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
}

func (p Policy) orDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// Do runs fn up to p.Attempts times, sleeping BaseDelay*attempt between
// tries. A non-retryable error aborts immediately. The last error is
// returned after the bound is exhausted.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(context.Context) error) error {
	p = p.orDefaults()

	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !retryable(err) || attempt == p.Attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.BaseDelay * time.Duration(attempt)):
		}
	}
	return err
}
