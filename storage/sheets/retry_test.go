package sheets

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func newTestRetrier(conf RetryConfig) (*retrier, *[]time.Duration) {
	slept := new([]time.Duration)
	r := newRetrier(conf, testLogger())
	r.sleepFunc = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	r.randFunc = func() float64 { return 0.5 } // jitter multiplier 1.0
	return r, slept
}

func TestRetrierQuotaErrors(t *testing.T) {
	quotaErr := errors.New("googleapi: Error 429: Quota exceeded for quota group 'ReadGroup'")
	terminalErr := errors.New("googleapi: Error 400: Unable to parse range")

	tests := []struct {
		name         string
		maxRetries   int
		errs         []error // per attempt; nil means success
		wantErr      error
		wantAttempts int
	}{
		{
			name:         "first attempt succeeds",
			maxRetries:   3,
			errs:         []error{nil},
			wantAttempts: 1,
		},
		{
			name:         "quota error then success",
			maxRetries:   3,
			errs:         []error{quotaErr, nil},
			wantAttempts: 2,
		},
		{
			name:         "quota errors exhaust retries",
			maxRetries:   2,
			errs:         []error{quotaErr, quotaErr, quotaErr},
			wantErr:      quotaErr,
			wantAttempts: 3, // maxRetries + 1
		},
		{
			name:         "terminal error is never retried",
			maxRetries:   5,
			errs:         []error{terminalErr},
			wantErr:      terminalErr,
			wantAttempts: 1,
		},
		{
			name:         "zero retries means a single attempt",
			maxRetries:   0,
			errs:         []error{quotaErr},
			wantErr:      quotaErr,
			wantAttempts: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRetrier(RetryConfig{
				MaxRetries:   tt.maxRetries,
				InitialDelay: time.Second,
				MaxDelay:     time.Minute,
			})

			attempts := 0
			err := r.run(context.Background(), "test.op", func() error {
				err := tt.errs[attempts]
				attempts++
				return err
			})
			if errors.Cause(err) != tt.wantErr {
				t.Errorf("run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("run() attempts = %v, want %v", attempts, tt.wantAttempts)
			}
		})
	}
}

func TestRetrierBackoffDelays(t *testing.T) {
	quotaErr := errors.New("Rate limit exceeded")
	r, slept := newTestRetrier(RetryConfig{
		MaxRetries:   4,
		InitialDelay: time.Second,
		MaxDelay:     5 * time.Second,
		JitterFactor: 0, // deterministic doubling
	})

	_ = r.run(context.Background(), "test.op", func() error { return quotaErr })

	// 1s, 2s, 4s, then capped at 5s
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("run() slept %v times, want %v", len(*slept), len(want))
	}
	for i, d := range *slept {
		if d != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, d, want[i])
		}
	}
}

func TestRetrierJitterBounds(t *testing.T) {
	quotaErr := errors.New("User rate limit exceeded")

	tests := []struct {
		name string
		rand float64
		want time.Duration // second delay, after one 1s backoff
	}{
		{name: "low jitter", rand: 0, want: 1600 * time.Millisecond},  // 1s * 2 * 0.8
		{name: "high jitter", rand: 1, want: 2400 * time.Millisecond}, // 1s * 2 * 1.2
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, slept := newTestRetrier(RetryConfig{
				MaxRetries:   2,
				InitialDelay: time.Second,
				MaxDelay:     time.Minute,
				JitterFactor: 0.2,
			})
			r.randFunc = func() float64 { return tt.rand }

			_ = r.run(context.Background(), "test.op", func() error { return quotaErr })

			if len(*slept) != 2 {
				t.Fatalf("run() slept %v times, want 2", len(*slept))
			}
			if (*slept)[1] != tt.want {
				t.Errorf("second delay = %v, want %v", (*slept)[1], tt.want)
			}
		})
	}
}

func TestRetrierContextCancelled(t *testing.T) {
	quotaErr := errors.New("Quota exceeded")
	r := newRetrier(RetryConfig{MaxRetries: 3, InitialDelay: time.Minute}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.run(ctx, "test.op", func() error { return quotaErr })
	if errors.Cause(err) != context.Canceled {
		t.Errorf("run() error = %v, want context.Canceled", err)
	}
}
