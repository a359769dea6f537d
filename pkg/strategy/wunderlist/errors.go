package wunderlist

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrParseProfile is returned when the profile endpoint answers with a body
// that is not a JSON object
var ErrParseProfile = errors.New("failed to parse user profile")

// APIError is an error reported by the Wunderlist API in its error envelope:
//
//	{"error": {"message": "...", "type": "...", "translation_key": "..."}}
//
// See https://developer.wunderlist.com/documentation/concepts/formats
type APIError struct {
	Message        string
	Type           string
	TranslationKey string
	StatusCode     int
}

// NewAPIError creates an APIError. The status code is always 500.
func NewAPIError(message, errType, translationKey string) *APIError {
	return &APIError{
		Message:        message,
		Type:           errType,
		TranslationKey: translationKey,
		StatusCode:     http.StatusInternalServerError,
	}
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return "wunderlist: " + e.Message
	}
	return fmt.Sprintf("wunderlist: %s: %s", e.Type, e.Message)
}

// Status returns the HTTP status associated with the error
func (e *APIError) Status() int {
	return e.StatusCode
}

// InternalOAuthError wraps a failure of the underlying OAuth2 client that did
// not come with a recognizable provider error.
type InternalOAuthError struct {
	Message string
	Err     error
}

func (e *InternalOAuthError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *InternalOAuthError) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status associated with the error
func (e *InternalOAuthError) Status() int {
	return http.StatusInternalServerError
}

// apiErrorFromBody extracts the provider error envelope from a response body.
// It returns nil when the body is not JSON or carries no error object.
func apiErrorFromBody(body []byte) *APIError {
	if len(body) == 0 {
		return nil
	}

	doc, err := decodeDocument(body)
	if err != nil {
		return nil
	}

	envelope, ok := doc["error"].(map[string]any)
	if !ok {
		return nil
	}

	return NewAPIError(
		stringValue(envelope["message"]),
		stringValue(envelope["type"]),
		stringValue(envelope["translation_key"]),
	)
}
