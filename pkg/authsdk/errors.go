package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the dashboard API.
type APIError struct {
	StatusCode int

	// Message is the "error" field of the body.
	Message string

	// Description is the optional "error_description" field.
	Description string

	// Details holds per-field validation messages, if any.
	Details map[string]string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Message, e.Description)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is, or wraps, an APIError with the given
// status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// newAPIError reads the standard error body, falling back to the status
// text when the body is not one.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Message: http.StatusText(status)}

	var errResp ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		apiErr.Message = errResp.Error
		apiErr.Description = errResp.ErrorDescription
		apiErr.Details = errResp.Details
	}
	return apiErr
}
