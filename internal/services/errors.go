package services

import (
	"errors"
	"net/http"

	"github.com/aws/smithy-go"

	"github.com/Lllllllleong/documentmetadataflow/internal/automation"
	"github.com/Lllllllleong/documentmetadataflow/internal/metadata"
	"github.com/Lllllllleong/documentmetadataflow/internal/poll"
)

// ErrInvalidRequest marks a request the caller has to fix.
var ErrInvalidRequest = errors.New("invalid request")

// StatusCode maps a Process error to the HTTP status the handlers reply with.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, metadata.ErrNotFound), errors.Is(err, automation.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, poll.ErrTimedOut):
		return http.StatusGatewayTimeout
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return awsStatusCode(apiErr)
	}
	return http.StatusInternalServerError
}

// awsStatusCode maps an AWS API error code to an HTTP status.
func awsStatusCode(apiErr smithy.APIError) int {
	switch apiErr.ErrorCode() {
	case "ThrottlingException", "ServiceQuotaExceededException", "ProvisionedThroughputExceededException":
		return http.StatusTooManyRequests
	case "AccessDeniedException":
		return http.StatusForbidden
	case "ValidationException":
		return http.StatusBadRequest
	case "ConflictException", "ResourceInUseException":
		return http.StatusConflict
	}
	if apiErr.ErrorFault() == smithy.FaultClient {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
