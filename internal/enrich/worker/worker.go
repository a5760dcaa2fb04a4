// Package worker wraps a single oracle call with pacing, a request deadline and
// failure absorption. Calls are issued one at a time by the caller; nothing
// here fans out.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/shpitdev/researcher-enrichment/internal/enrich"
)

type Options struct {
	// RequestTimeout bounds one oracle call. <=0 uses the default.
	RequestTimeout time.Duration

	// RateLimitRPS caps oracle calls per second on top of the fixed delay
	// between entities. Set to <=0 to disable.
	RateLimitRPS float64
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 60 * time.Second
	}
	return o
}

// Invoker is an enrich.Oracle that guards another one.
type Invoker struct {
	next    enrich.Oracle
	limiter *rate.Limiter
	timeout time.Duration
}

func New(next enrich.Oracle, opts Options) *Invoker {
	opts = opts.withDefaults()
	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}
	return &Invoker{
		next:    next,
		limiter: limiter,
		timeout: opts.RequestTimeout,
	}
}

// Classify never panics and never returns a Go error: every problem is a
// Failure outcome. A cancelled parent context yields FailureCanceled so callers
// can tell shutdown apart from an oracle fault.
func (iv *Invoker) Classify(ctx context.Context, name string, affiliations []string) (out enrich.Outcome) {
	if err := ctx.Err(); err != nil {
		return enrich.Fail(enrich.FailureCanceled, err.Error())
	}
	if iv.limiter != nil {
		if err := iv.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return enrich.Fail(enrich.FailureCanceled, err.Error())
			}
			return enrich.FailWith(err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, iv.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			out = enrich.Fail(enrich.FailureTransport, fmt.Sprintf("oracle panic: %v", r))
		}
	}()

	out = iv.next.Classify(reqCtx, name, affiliations)
	if out.OK() {
		return out
	}
	switch {
	case ctx.Err() != nil:
		out.Failure.Kind = enrich.FailureCanceled
	case errors.Is(reqCtx.Err(), context.DeadlineExceeded):
		out.Failure.Kind = enrich.FailureTimeout
	case out.Failure.Kind == enrich.FailureCanceled:
		// Only the caller's context can stop a run; an oracle reporting its
		// own cancellation is a transport fault.
		out.Failure.Kind = enrich.FailureTransport
	}
	return out
}

// Pace blocks for d, returning early with ctx's error if it ends first.
func Pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}
