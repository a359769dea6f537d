package wunderlist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// Requester performs an HTTP call authorized by an access token.
// A non-nil error with a response body should be a *RequestError so the
// strategy can inspect the provider's error envelope.
type Requester interface {
	Request(ctx context.Context, method, url string, header http.Header, body []byte, accessToken string) ([]byte, *http.Response, error)
}

// RequestError is returned for responses outside the 2xx range
type RequestError struct {
	StatusCode int
	Data       []byte // Response body
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// oauth2Requester issues requests through an oauth2.Config client, which adds
// the bearer token to every request.
type oauth2Requester struct {
	config     *oauth2.Config
	httpClient *http.Client
}

func (r *oauth2Requester) Request(ctx context.Context, method, url string, header http.Header, body []byte, accessToken string) ([]byte, *http.Response, error) {
	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}
	client := r.config.Client(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request: %w", err)
	}
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp, &RequestError{StatusCode: resp.StatusCode, Data: data}
	}

	return data, resp, nil
}
