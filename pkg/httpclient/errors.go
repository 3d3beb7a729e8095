package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
)

// maxErrorBody caps how much of a downstream error body is read, and
// maxErrorSnippet how much of an unstructured one ends up in the error
// message. Misconfigured gateways answer with whole HTML pages.
const (
	maxErrorBody    = 1 << 20
	maxErrorSnippet = 512
)

// DownstreamErrorResponse mirrors the httputil.ErrorResponse envelope so
// structured error bodies from downstream HTTP calls can be parsed.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an appropriate AppError. If the response body matches the standard
// ErrorResponse format, the code and message are preserved. Otherwise a generic
// error is returned with the status code and a snippet of the raw body.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil && downstream.Error != nil {
		return mapDownstreamError(resp.StatusCode, downstream.Error.Code, downstream.Error.Message, serviceName)
	}

	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, bodySnippet(bodyBytes))
}

func bodySnippet(body []byte) string {
	if len(body) <= maxErrorSnippet {
		return string(body)
	}
	return string(body[:maxErrorSnippet]) + "..."
}

// mapDownstreamError translates a downstream service's HTTP status code and
// error code into an AppError that preserves the error semantics. Transient
// statuses (502/503/504) wrap ErrServiceUnavail so callers can classify them
// as retryable with errors.Is.
func mapDownstreamError(status int, code, message, serviceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)

	switch status {
	case http.StatusNotFound:
		// Not apperrors.NotFound: its resource/id message template reads
		// wrong for a downstream's own wording.
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: qualifiedMsg,
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case http.StatusBadRequest:
		return apperrors.InvalidInput(qualifiedMsg)
	case http.StatusConflict:
		return apperrors.Conflict(qualifiedMsg)
	case http.StatusUnauthorized:
		return apperrors.Unauthorized(qualifiedMsg)
	case http.StatusForbidden:
		return apperrors.Forbidden(qualifiedMsg)
	case http.StatusUnprocessableEntity:
		return apperrors.Validation(qualifiedMsg)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  status,
			Err:     apperrors.ErrServiceUnavail,
		}
	}

	if status >= 500 {
		return apperrors.Internal(fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message))
	}

	return &apperrors.AppError{
		Code:    code,
		Message: qualifiedMsg,
		Status:  status,
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
// Client errors (e.g., validation) should not be retried since the request
// itself was invalid.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
