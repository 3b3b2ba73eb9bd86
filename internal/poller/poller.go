// Package poller re-checks a payment's status on a bounded schedule when
// the terminal state is not yet known. It is a cooperative loop driven by
// whoever owns the redirect-return flow, not a background daemon: Watch
// blocks its caller and stops on cancellation, a terminal status, or
// attempt exhaustion.
package poller

import (
	"context"
	"time"

	"membership-app/internal/domain/payments"
)

// VerifyFunc performs one status verification round trip and returns the
// local payment status.
type VerifyFunc func(ctx context.Context, reference string) (string, error)

type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

type Poller struct {
	cfg    Config
	verify VerifyFunc
}

func New(cfg Config, verify VerifyFunc) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 12
	}
	return &Poller{cfg: cfg, verify: verify}
}

// Watch verifies immediately, then at fixed intervals until the payment is
// terminal, the attempt budget runs out, or ctx is cancelled. Exhausting
// the budget is a silent stop: the last known status is returned with a
// nil error, leaving the payment for the webhook or a manual re-check.
// Verification errors are treated as transient and consume an attempt.
func (p *Poller) Watch(ctx context.Context, reference string) (string, error) {
	last := payments.StatusPending

	status, err := p.verify(ctx, reference)
	if err == nil {
		if payments.IsTerminal(status) {
			return status, nil
		}
		last = status
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for attempt := 1; attempt < p.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}

		status, err := p.verify(ctx, reference)
		if err != nil {
			continue
		}
		if payments.IsTerminal(status) {
			return status, nil
		}
		last = status
	}

	return last, nil
}
