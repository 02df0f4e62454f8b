package federation

import (
	"errors"
	"fmt"
)

// ErrRemoteFileMissing is returned by Move when the remote file id no longer
// resolves; the caller's local binding is likely stale and needs reconciling.
var ErrRemoteFileMissing = errors.New("remote file no longer exists")

// IdentityMismatchError aborts a link when the external account belongs to
// someone other than the application account.
type IdentityMismatchError struct {
	Expected string
	Actual   string
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("external account identity %q does not match application account %q", e.Actual, e.Expected)
}

// QuotaError aborts a link when the external account has less free space
// than the fixed minimum. AvailableBytes lets the UI tell the user how much
// room they actually have.
type QuotaError struct {
	AvailableBytes int64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("external account has only %d bytes free, below the required minimum", e.AvailableBytes)
}

// RemoteWriteError wraps an upload or reparent call rejected by the
// provider. Nothing local was committed; the whole operation is safe to
// retry.
type RemoteWriteError struct {
	Err error
}

func (e *RemoteWriteError) Error() string { return fmt.Sprintf("remote write failed: %v", e.Err) }
func (e *RemoteWriteError) Unwrap() error { return e.Err }
