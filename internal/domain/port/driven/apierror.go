package driven

import (
	"fmt"
	"net/http"
)

// APIError is the typed failure carried by any backend response with a
// status outside 2xx. Message prefers a server-supplied "detail" field;
// Body holds the parsed response body when it was parseable JSON.
type APIError struct {
	Status  int
	Message string
	Body    map[string]any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

// NewAPIError builds an APIError with the default message for status when
// message is empty.
func NewAPIError(status int, message string, body map[string]any) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{Status: status, Message: message, Body: body}
}
