// Package wunderlist authenticates users by delegating to Wunderlist using
// the OAuth 2.0 protocol.
//
// The authorization code flow itself is handled by golang.org/x/oauth2. This
// package supplies the Wunderlist endpoints, fetches the user profile with the
// headers the Wunderlist API expects, and normalizes the result.
package wunderlist

import (
	"context"
	"errors"
	"net/http"

	"github.com/ideamans/wunderlistauth/pkg/strategy"
	"golang.org/x/oauth2"
)

const (
	// Name is the name the strategy is registered under
	Name = "wunderlist"

	DefaultAuthorizationURL = "https://www.wunderlist.com/oauth/authorize"
	DefaultTokenURL         = "https://www.wunderlist.com/oauth/access_token"
	DefaultUserProfileURL   = "http://a.wunderlist.com/api/v1/user"

	// HeaderClientID and HeaderAccessToken authorize calls to the Wunderlist API
	HeaderClientID    = "X-Client-ID"
	HeaderAccessToken = "X-Access-Token"
)

var (
	// ErrClientIDRequired is returned by New when Options.ClientID is empty
	ErrClientIDRequired = errors.New("wunderlist: client ID is required")

	// ErrVerifyRequired is returned by New when no verify callback is given
	ErrVerifyRequired = errors.New("wunderlist: verify callback is required")
)

// Options configures the strategy
type Options struct {
	ClientID         string
	ClientSecret     string
	CallbackURL      string   // URL Wunderlist redirects to after authorization
	AuthorizationURL string   // Defaults to DefaultAuthorizationURL
	TokenURL         string   // Defaults to DefaultTokenURL
	UserProfileURL   string   // Defaults to DefaultUserProfileURL
	Scopes           []string // Wunderlist does not define scopes; sent only when set
}

// VerifyFunc resolves the application user for a Wunderlist profile.
// Returning a nil user with a nil error rejects the login.
type VerifyFunc func(ctx context.Context, accessToken string, profile *Profile) (any, error)

// Option customizes a Strategy
type Option func(*Strategy)

// WithRequester replaces the OAuth2 client used for profile requests
func WithRequester(r Requester) Option {
	return func(s *Strategy) {
		s.requester = r
	}
}

// WithHTTPClient sets the HTTP client used for the token exchange and for the
// default profile requester
func WithHTTPClient(c *http.Client) Option {
	return func(s *Strategy) {
		s.httpClient = c
	}
}

// Strategy is the Wunderlist authentication strategy. It is immutable after
// New and safe for concurrent use.
type Strategy struct {
	config         *oauth2.Config
	userProfileURL string
	verify         VerifyFunc
	requester      Requester
	httpClient     *http.Client
}

var _ strategy.Strategy = (*Strategy)(nil)

// New creates a Wunderlist strategy
func New(opts Options, verify VerifyFunc, options ...Option) (*Strategy, error) {
	if opts.ClientID == "" {
		return nil, ErrClientIDRequired
	}
	if verify == nil {
		return nil, ErrVerifyRequired
	}

	authURL := opts.AuthorizationURL
	if authURL == "" {
		authURL = DefaultAuthorizationURL
	}
	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	userProfileURL := opts.UserProfileURL
	if userProfileURL == "" {
		userProfileURL = DefaultUserProfileURL
	}

	var scopes []string
	if len(opts.Scopes) > 0 {
		scopes = append(scopes, opts.Scopes...)
	}

	s := &Strategy{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.CallbackURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userProfileURL: userProfileURL,
		verify:         verify,
	}

	for _, opt := range options {
		opt(s)
	}

	if s.requester == nil {
		s.requester = &oauth2Requester{config: s.config, httpClient: s.httpClient}
	}

	return s, nil
}

// Name returns the strategy name
func (s *Strategy) Name() string {
	return Name
}

// Config returns a copy of the OAuth2 config
func (s *Strategy) Config() *oauth2.Config {
	cfg := *s.config
	cfg.Scopes = append([]string(nil), s.config.Scopes...)
	return &cfg
}

// UserProfileURL returns the profile endpoint in use
func (s *Strategy) UserProfileURL() string {
	return s.userProfileURL
}

// AuthCodeURL returns the Wunderlist authorization URL for state
func (s *Strategy) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return s.config.AuthCodeURL(state, opts...)
}

// Exchange exchanges an authorization code for an access token
func (s *Strategy) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, &InternalOAuthError{Message: "failed to obtain access token", Err: err}
	}
	return token, nil
}

// UserProfile retrieves the user profile from Wunderlist.
//
// Errors are one of:
//   - *APIError when Wunderlist answered with its error envelope
//   - *InternalOAuthError when the request failed for any other reason
//   - ErrParseProfile when a successful response is not a JSON object
func (s *Strategy) UserProfile(ctx context.Context, accessToken string) (*Profile, error) {
	header := http.Header{}
	header.Set(HeaderClientID, s.config.ClientID)
	header.Set(HeaderAccessToken, accessToken)

	body, _, err := s.requester.Request(ctx, http.MethodGet, s.userProfileURL, header, nil, accessToken)
	if err != nil {
		// A malformed error body is treated as no body at all
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			if apiErr := apiErrorFromBody(reqErr.Data); apiErr != nil {
				return nil, apiErr
			}
		}
		return nil, &InternalOAuthError{Message: "failed to fetch user profile", Err: err}
	}

	doc, err := decodeDocument(body)
	if err != nil {
		return nil, ErrParseProfile
	}

	profile, err := ParseProfile(doc)
	if err != nil {
		return nil, ErrParseProfile
	}

	profile.Provider = Name
	profile.Raw = string(body)
	profile.Parsed = doc

	return profile, nil
}

// Authenticate exchanges code for a token, fetches the profile and passes it
// to the verify callback.
func (s *Strategy) Authenticate(ctx context.Context, code string) (*strategy.Result, error) {
	token, err := s.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	profile, err := s.UserProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.verify(ctx, token.AccessToken, profile)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, strategy.ErrNotAuthenticated
	}

	return &strategy.Result{
		User:    user,
		Profile: profile,
		Token:   token,
	}, nil
}
