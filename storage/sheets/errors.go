package sheets

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
)

var (
	// ErrRemoteUnavailable means the remote store client is not
	// authenticated/initialized. Never retried.
	ErrRemoteUnavailable = errors.New("remote store is not available")

	// ErrStaleSnapshot means the targeted row no longer holds the record
	// it held when the snapshot was taken (concurrent external edit).
	ErrStaleSnapshot = errors.New("row position is stale; refresh and retry")

	// errNoSuchRow is trapped by the typed repositories and mapped to
	// their domain's not-found sentinel.
	errNoSuchRow = errors.New("no row for id")
)

// quotaSignatures are the remote error message substrings treated as
// transient rate-limit rejections.
var quotaSignatures = []string{
	"Quota exceeded",
	"Rate limit exceeded",
	"User rate limit exceeded",
}

// IsQuotaErr reports whether err is a transient rate-limit/quota
// rejection. Any other remote error is terminal.
func IsQuotaErr(err error) bool {
	if err == nil {
		return false
	}
	if gerr, ok := errors.Cause(err).(*googleapi.Error); ok && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	for _, sig := range quotaSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// PartialBatchError reports a batch write that failed after earlier
// groups already committed. Nothing is rolled back; the caller must
// re-diff and retry the remainder.
type PartialBatchError struct {
	Committed int // operations known to have been written
	Pending   int // operations presumed still pending
	Err       error
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("batch write aborted: %d operations committed, %d pending: %v", e.Committed, e.Pending, e.Err)
}

// Cause satisfies pkg/errors' causer so classification sees through it.
func (e *PartialBatchError) Cause() error { return e.Err }

// AsPartialBatch walks the cause chain looking for a PartialBatchError;
// errors.Cause skips straight to the root so callers that care about the
// batch report need this instead.
func AsPartialBatch(err error) (*PartialBatchError, bool) {
	for err != nil {
		if pbe, ok := err.(*PartialBatchError); ok {
			return pbe, true
		}
		causer, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = causer.Cause()
	}
	return nil, false
}
