package sheets

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func makeOps(n int) []BatchOp {
	ops := make([]BatchOp, 0, n)
	for i := 0; i < n; i++ {
		ops = append(ops, BatchOp{
			Range: fmt.Sprintf("attendance!A%d:E%d", i+firstDataRow, i+firstDataRow),
			Rows:  [][]interface{}{{fmt.Sprintf("AT%d", i+1), "L1", fmt.Sprintf("S%d", i+1), "present", ""}},
		})
	}
	return ops
}

func newTestScheduler(client RemoteClient, size int) *batchScheduler {
	retry := newRetrier(RetryConfig{MaxRetries: 1}, testLogger())
	retry.sleepFunc = func(context.Context, time.Duration) error { return nil }
	return newBatchScheduler(client, retry, size, 0, testLogger())
}

func TestBatchSchedulerGrouping(t *testing.T) {
	tests := []struct {
		name      string
		ops       int
		size      int
		wantCalls int
	}{
		{name: "no ops", ops: 0, size: 3, wantCalls: 0},
		{name: "under one group", ops: 2, size: 3, wantCalls: 1},
		{name: "exact groups", ops: 6, size: 3, wantCalls: 2},
		{name: "remainder group", ops: 7, size: 3, wantCalls: 3},
		{name: "single op groups", ops: 3, size: 1, wantCalls: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient()
			client.data["attendance"] = make([][]interface{}, tt.ops)
			s := newTestScheduler(client, tt.size)

			if err := s.execute(context.Background(), makeOps(tt.ops)); err != nil {
				t.Fatalf("execute() error = %v", err)
			}
			if len(client.batchCalls) != tt.wantCalls {
				t.Fatalf("execute() remote calls = %v, want %v", len(client.batchCalls), tt.wantCalls)
			}

			// every op covered exactly once, in order
			seen := 0
			for _, call := range client.batchCalls {
				if len(call) > tt.size {
					t.Errorf("group size = %v, want <= %v", len(call), tt.size)
				}
				seen += len(call)
			}
			if seen != tt.ops {
				t.Errorf("execute() covered %v ops, want %v", seen, tt.ops)
			}
		})
	}
}

// failingAfterClient lets a number of batch calls through and then fails
// every later one.
type failingAfterClient struct {
	*fakeClient
	allow int
	err   error
}

func (c *failingAfterClient) BatchUpdate(ctx context.Context, ops []BatchOp) error {
	if c.allow > 0 {
		c.allow--
		return c.fakeClient.BatchUpdate(ctx, ops)
	}
	return c.err
}

func TestBatchSchedulerPartialFailure(t *testing.T) {
	origErr := errors.New("write rejected")
	client := &failingAfterClient{fakeClient: newFakeClient(), allow: 1, err: origErr}
	client.data["attendance"] = make([][]interface{}, 5)
	s := newTestScheduler(client, 2)

	// group 1 (2 ops) commits; group 2 fails terminally, group 3 never runs
	err := s.execute(context.Background(), makeOps(5))
	if err == nil {
		t.Fatal("execute() error = nil, want PartialBatchError")
	}

	pbe, ok := AsPartialBatch(err)
	if !ok {
		t.Fatalf("execute() error = %v, want PartialBatchError", err)
	}
	if pbe.Committed != 2 || pbe.Pending != 3 {
		t.Errorf("PartialBatchError = committed %v pending %v, want 2/3", pbe.Committed, pbe.Pending)
	}
	if errors.Cause(pbe.Err) != origErr {
		t.Errorf("PartialBatchError.Err = %v, want %v", pbe.Err, origErr)
	}
	if got := client.data["attendance"][0][0]; got != "AT1" {
		t.Errorf("first group not committed; row 0 = %v", got)
	}
}

func TestBatchSchedulerRetriesQuotaWithinGroup(t *testing.T) {
	client := newFakeClient()
	client.data["attendance"] = make([][]interface{}, 2)
	client.failNext(1, errors.New("Quota exceeded for write requests"))
	s := newTestScheduler(client, 5)

	if err := s.execute(context.Background(), makeOps(2)); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	// first call rejected on quota, second attempt of the same group lands
	if len(client.batchCalls) != 2 {
		t.Errorf("execute() remote calls = %v, want 2", len(client.batchCalls))
	}
}
