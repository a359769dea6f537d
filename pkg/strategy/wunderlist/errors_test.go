package wunderlist

import (
	"errors"
	"net/http"
	"testing"

	"github.com/ideamans/wunderlistauth/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIError(t *testing.T) {
	err := NewAPIError("invalid token", "unauthorized", "api_error_unauthorized")

	assert.Equal(t, "invalid token", err.Message)
	assert.Equal(t, "unauthorized", err.Type)
	assert.Equal(t, "api_error_unauthorized", err.TranslationKey)
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.Equal(t, http.StatusInternalServerError, err.Status())
	assert.Equal(t, "wunderlist: unauthorized: invalid token", err.Error())

	var statusErr strategy.StatusError = err
	assert.Equal(t, 500, statusErr.Status())
}

func TestAPIError_ErrorWithoutType(t *testing.T) {
	err := NewAPIError("boom", "", "")
	assert.Equal(t, "wunderlist: boom", err.Error())
}

func TestInternalOAuthError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &InternalOAuthError{Message: "failed to fetch user profile", Err: cause}

	assert.Equal(t, "failed to fetch user profile: connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, http.StatusInternalServerError, err.Status())

	bare := &InternalOAuthError{Message: "failed to fetch user profile"}
	assert.Equal(t, "failed to fetch user profile", bare.Error())
}

func TestAPIErrorFromBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *APIError
	}{
		{
			name: "error envelope",
			body: `{"error":{"message":"m","type":"t","translation_key":"k"}}`,
			want: NewAPIError("m", "t", "k"),
		},
		{
			name: "partial envelope",
			body: `{"error":{"type":"not_found"}}`,
			want: NewAPIError("", "not_found", ""),
		},
		{name: "empty body", body: ""},
		{name: "not json", body: "<html>Bad Gateway</html>"},
		{name: "error is a string", body: `{"error":"invalid_token"}`},
		{name: "error is null", body: `{"error":null}`},
		{name: "no error field", body: `{"id":"42"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := apiErrorFromBody([]byte(tt.body))
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}
