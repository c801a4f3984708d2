package gemini

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrAuthentication ErrorType = "authentication_error"
	ErrPermission     ErrorType = "permission_error"
	ErrNotFound       ErrorType = "not_found_error"
	ErrRateLimit      ErrorType = "rate_limit_error"
	ErrAPI            ErrorType = "api_error"
	ErrOverloaded     ErrorType = "overloaded_error"
)

// Error represents an API error from Gemini.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gemini: %s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("gemini: %s: %s", e.Type, e.Message)
}

// IsRetryable returns true if the error is retryable.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrRateLimit, ErrOverloaded, ErrAPI:
		return true
	default:
		return false
	}
}

// apiErrorBody is the error envelope returned by the Gemini API.
type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// parseError maps an HTTP error response to an *Error.
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr apiErrorBody
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return &Error{
			Type:    ErrAPI,
			Message: fmt.Sprintf("unexpected response (status %d): %s", resp.StatusCode, string(body)),
		}
	}

	var errType ErrorType
	switch apiErr.Error.Status {
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION":
		errType = ErrInvalidRequest
	case "UNAUTHENTICATED":
		errType = ErrAuthentication
	case "PERMISSION_DENIED":
		errType = ErrPermission
	case "NOT_FOUND":
		errType = ErrNotFound
	case "RESOURCE_EXHAUSTED":
		errType = ErrRateLimit
	case "UNAVAILABLE":
		errType = ErrOverloaded
	default:
		errType = ErrAPI
	}

	// Fall back to the HTTP status code when the body carried no
	// recognizable status string.
	if errType == ErrAPI {
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			errType = ErrRateLimit
		case http.StatusServiceUnavailable:
			errType = ErrOverloaded
		case http.StatusUnauthorized:
			errType = ErrAuthentication
		case http.StatusForbidden:
			errType = ErrPermission
		}
	}

	return &Error{
		Type:    errType,
		Message: apiErr.Error.Message,
		Code:    apiErr.Error.Status,
	}
}
