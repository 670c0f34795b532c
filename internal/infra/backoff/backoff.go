// Package backoff provides the bounded retry primitives shared by media
// resolution and outbound delivery.
package backoff

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// ErrExhausted is returned by Poll when the bound is reached without success
var ErrExhausted = errors.New("retry bound exhausted")

var errNotReady = errors.New("not ready")

// Schedule returns the delay before the next pass, given the number of
// passes already made (starting at 1).
type Schedule func(pass uint) time.Duration

// Policy bounds a Poll.
// MaxAttempts of 0 derives the attempt count from Schedule and MaxWait.
type Policy struct {
	Schedule    Schedule
	MaxWait     time.Duration
	MaxAttempts uint
	OnRetry     func(pass uint)
}

// ImageSchedule is the backoff used while waiting for media files:
// 300ms for the first three passes, 500ms up to pass eight, then
// growing by 300ms per pass up to 1.5s.
func ImageSchedule(pass uint) time.Duration {
	switch {
	case pass <= 3:
		return 300 * time.Millisecond
	case pass <= 8:
		return 500 * time.Millisecond
	default:
		d := 300*time.Millisecond + time.Duration(pass-8)*300*time.Millisecond
		if d > 1500*time.Millisecond {
			d = 1500 * time.Millisecond
		}
		return d
	}
}

// DefaultImagePolicy returns the policy used by the image resolver
func DefaultImagePolicy() Policy {
	return Policy{Schedule: ImageSchedule, MaxWait: 10 * time.Second}
}

// Poll calls probe until it reports true, the policy bound is reached, or ctx is done.
// A probe error stops polling and is returned as is.
func Poll(ctx context.Context, p Policy, probe func(ctx context.Context) (bool, error)) error {
	if p.Schedule == nil {
		p.Schedule = ImageSchedule
	}

	pollCtx := ctx
	if p.MaxWait > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, p.MaxWait)
		defer cancel()
	}

	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = attemptsWithin(p.Schedule, p.MaxWait)
	}

	var passes uint
	err := retry.Do(
		func() error {
			passes++
			ok, err := probe(pollCtx)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if !ok {
				return errNotReady
			}
			return nil
		},
		retry.Attempts(attempts),
		retry.Context(pollCtx),
		retry.DelayType(func(_ uint, _ error, _ *retry.Config) time.Duration {
			return p.Schedule(passes)
		}),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(_ uint, _ error) {
			if p.OnRetry != nil {
				p.OnRetry(passes)
			}
		}),
	)
	if err == nil {
		return nil
	}

	// The caller's own cancellation wins over the bound.
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, errNotReady) || errors.Is(err, context.DeadlineExceeded) || pollCtx.Err() != nil {
		return ErrExhausted
	}
	return err
}

// attemptsWithin counts the passes that fit in maxWait under schedule
func attemptsWithin(schedule Schedule, maxWait time.Duration) uint {
	if maxWait <= 0 {
		return 1
	}
	var total time.Duration
	var n uint = 1
	for total < maxWait && n < 1000 {
		total += schedule(n)
		n++
	}
	return n
}

// Do runs fn with the retry settings used for outbound delivery.
// Errors wrapped with retry.Unrecoverable stop immediately.
func Do(ctx context.Context, logger *slog.Logger, op string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.MaxJitter(250*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if logger != nil {
				logger.Warn("Retrying operation", "op", op, "attempt", n+1, "error", err)
			}
		}),
	)
}

// errSessionEnded keeps Reconnect going after a session closes cleanly
var errSessionEnded = errors.New("session ended")

// Reconnect runs session repeatedly with exponential backoff between runs,
// until ctx is done. session should block for the lifetime of one connection.
func Reconnect(ctx context.Context, logger *slog.Logger, op string, session func(ctx context.Context) error) error {
	err := retry.Do(
		func() error {
			if err := session(ctx); err != nil {
				return err
			}
			return errSessionEnded
		},
		retry.Attempts(0),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if logger != nil && ctx.Err() == nil {
				logger.Warn("Reconnecting", "op", op, "attempt", n+1, "error", err)
			}
		}),
	)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Unrecoverable marks err so that Do stops retrying
func Unrecoverable(err error) error {
	return retry.Unrecoverable(err)
}
