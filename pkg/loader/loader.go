package loader

import (
	"context"
	"errors"
	"fmt"
)

// Loader feeds one snapshot into a server-side database named
// {tenant}-{timestamp}. Load blocks until the data is committed. It is
// not required to be idempotent: when a load fails after partially
// creating a database, the retry is expected to detect and clear the
// prior state before feeding again.
type Loader interface {
	Load(ctx context.Context, tenant string, timestamp int64, dataPath string) error
}

// PermanentError marks a load failure that no retry can fix, such as a
// structurally malformed snapshot. The worker abandons the task
// immediately instead of burning its retry budget.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as non-retryable
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries the non-retryable marker
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
