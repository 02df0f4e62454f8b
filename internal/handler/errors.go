package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/moonshakerlabs/taxdrive/internal/federation"
	"github.com/moonshakerlabs/taxdrive/internal/link"
	"github.com/moonshakerlabs/taxdrive/internal/oplock"
)

// federationErrorResponse maps federation failures onto the HTTP surface.
// Identity mismatch and insufficient quota carry enough detail for the UI to
// explain the problem; everything else is surfaced generically with a retry
// affordance.
func federationErrorResponse(err error) events.APIGatewayProxyResponse {
	var mismatch *federation.IdentityMismatchError
	if errors.As(err, &mismatch) {
		return errorResponse(http.StatusConflict, "identity_mismatch", map[string]interface{}{
			"expected": mismatch.Expected,
			"actual":   mismatch.Actual,
		})
	}
	var quota *federation.QuotaError
	if errors.As(err, &quota) {
		return errorResponse(http.StatusConflict, "insufficient_quota", map[string]interface{}{
			"available_bytes": quota.AvailableBytes,
		})
	}
	var write *federation.RemoteWriteError
	if errors.As(err, &write) {
		return errorResponse(http.StatusBadGateway, "remote_write_failed", nil)
	}

	switch {
	case errors.Is(err, oplock.ErrLocked):
		return errorResponse(http.StatusConflict, "operation_in_progress", nil)
	case errors.Is(err, link.ErrNotLinked):
		return errorResponse(http.StatusPreconditionFailed, "not_linked", nil)
	case errors.Is(err, link.ErrRelinkRequired):
		return errorResponse(http.StatusUnauthorized, "relink_required", nil)
	case errors.Is(err, federation.ErrRemoteFileMissing):
		return errorResponse(http.StatusNotFound, "remote_file_missing", nil)
	default:
		fmt.Printf("federation error: %v\n", err)
		return errorResponse(http.StatusBadGateway, "remote_operation_failed", nil)
	}
}
