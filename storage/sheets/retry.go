package sheets

import (
	"context"
	"math/rand"
	"time"

	"github.com/kymaza/darasa/core"
)

type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	JitterFactor float64 // delay multiplier drawn from [1-f, 1+f]
}

// retrier re-runs a single remote operation on quota rejections with
// exponentially growing, jittered delays.
type retrier struct {
	conf RetryConfig
	log  core.Logger

	sleepFunc func(ctx context.Context, d time.Duration) error // mockable
	randFunc  func() float64                                   // mockable
}

func newRetrier(conf RetryConfig, log core.Logger) *retrier {
	return &retrier{
		conf:      conf,
		log:       log,
		sleepFunc: sleepCtx,
		randFunc:  rand.Float64,
	}
}

// run invokes op up to MaxRetries+1 times. Only quota rejections are
// retried; any other error propagates unchanged from the attempt that
// raised it, so no retry ever masks a non-transient failure.
func (r *retrier) run(ctx context.Context, opName string, op func() error) error {
	delay := r.conf.InitialDelay
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !IsQuotaErr(err) || attempt >= r.conf.MaxRetries {
			return err
		}

		r.log.Warn("remote quota rejection; backing off",
			map[string]interface{}{"op": opName, "attempt": attempt + 1, "delay": delay.String()})
		if serr := r.sleepFunc(ctx, delay); serr != nil {
			return serr
		}

		jitter := 1 - r.conf.JitterFactor + 2*r.conf.JitterFactor*r.randFunc()
		delay = time.Duration(float64(delay) * 2 * jitter)
		if delay > r.conf.MaxDelay {
			delay = r.conf.MaxDelay
		}
	}
}

// sleepCtx waits cooperatively, honoring context cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
