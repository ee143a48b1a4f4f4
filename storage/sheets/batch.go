package sheets

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/kymaza/darasa/core"
)

const defaultBatchSize = 20

// batchScheduler writes pending operations in bounded-size groups, one
// remote batch call per group, paced to stay under the write quota.
type batchScheduler struct {
	client  RemoteClient
	retry   *retrier
	size    int
	limiter *rate.Limiter
	log     core.Logger
}

func newBatchScheduler(client RemoteClient, retry *retrier, size int, interval time.Duration, log core.Logger) *batchScheduler {
	if size <= 0 {
		size = defaultBatchSize
	}
	// one token up front, then one per interval: the first group goes out
	// immediately and later groups are spaced
	return &batchScheduler{
		client:  client,
		retry:   retry,
		size:    size,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		log:     log,
	}
}

// execute issues ceil(len(ops)/size) remote batch calls, each through the
// retrier. Operations within a group are not individually retried; the
// group's remote call is the retry unit. A group that fails after
// exhausting retries aborts the remaining groups: the returned
// PartialBatchError reports what is known written versus presumed pending
// and the caller is expected to re-diff and retry the remainder.
func (s *batchScheduler) execute(ctx context.Context, ops []BatchOp) error {
	for start := 0; start < len(ops); start += s.size {
		end := start + s.size
		if end > len(ops) {
			end = len(ops)
		}
		group := ops[start:end]

		if err := s.limiter.Wait(ctx); err != nil {
			return &PartialBatchError{Committed: start, Pending: len(ops) - start, Err: err}
		}
		err := s.retry.run(ctx, "values.batchUpdate", func() error {
			return s.client.BatchUpdate(ctx, group)
		})
		if err != nil {
			s.log.Error("batch group failed",
				map[string]interface{}{"committed": start, "pending": len(ops) - start}, err)
			return &PartialBatchError{Committed: start, Pending: len(ops) - start, Err: err}
		}
	}
	return nil
}
