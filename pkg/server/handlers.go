package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/ideamans/wunderlistauth/pkg/accounts"
	"github.com/ideamans/wunderlistauth/pkg/kvs"
	"github.com/ideamans/wunderlistauth/pkg/strategy"
	"github.com/ideamans/wunderlistauth/pkg/strategy/wunderlist"
)

func stateKey(state string) string {
	return "state:" + state
}

// clientIP returns the remote address without its port. Forwarded headers
// are ignored because they can be set by the client.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// errorResponse is the JSON body of every failed request
type errorResponse struct {
	Error          string `json:"error"`
	Type           string `json:"type,omitempty"`
	TranslationKey string `json:"translation_key,omitempty"`
}

// callbackResponse is returned after a successful login
type callbackResponse struct {
	Account any `json:"account"`
	Profile any `json:"profile"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.draining.Load() {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogin stores a fresh state and redirects to the provider
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("strategy")
	strat, err := s.registry.Get(name)
	if err != nil {
		s.writeError(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	if s.limiter != nil && !s.limiter.Allow(r.Context(), clientIP(r)) {
		s.logger.Warn("Login rate limit exceeded", "strategy", name, "client", clientIP(r))
		s.writeError(w, http.StatusTooManyRequests, errorResponse{Error: "too many login attempts"})
		return
	}

	state, err := strategy.GenerateState()
	if err != nil {
		s.logger.Error("Failed to generate state", "error", err)
		s.writeError(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	if err := s.states.Set(r.Context(), stateKey(state), []byte(name), s.stateTTL); err != nil {
		s.logger.Error("Failed to save state", "error", err)
		s.writeError(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	s.logger.Debug("Redirecting to provider", "strategy", name)
	http.Redirect(w, r, strat.AuthCodeURL(state), http.StatusFound)
}

// handleCallback completes the authorization code flow
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("strategy")
	strat, err := s.registry.Get(name)
	if err != nil {
		s.writeError(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	query := r.URL.Query()

	// The state is consumed before anything else so it cannot be replayed,
	// even when the provider reports an error.
	state := query.Get("state")
	if state == "" {
		s.writeError(w, http.StatusBadRequest, errorResponse{Error: "missing state"})
		return
	}
	owner, err := s.states.Take(r.Context(), stateKey(state))
	if err != nil {
		if errors.Is(err, kvs.ErrNotFound) {
			s.logger.Warn("Unknown or expired state", "strategy", name)
			s.writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid or expired state"})
			return
		}
		s.logger.Error("Failed to load state", "error", err)
		s.writeError(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if string(owner) != name {
		s.logger.Warn("State issued for another strategy", "strategy", name, "issued_for", string(owner))
		s.writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid or expired state"})
		return
	}

	if providerErr := query.Get("error"); providerErr != "" {
		s.logger.Info("Authorization denied by provider", "strategy", name, "error", providerErr)
		s.writeError(w, http.StatusUnauthorized, errorResponse{
			Error: "authorization denied",
			Type:  providerErr,
		})
		return
	}

	code := query.Get("code")
	if code == "" {
		s.writeError(w, http.StatusBadRequest, errorResponse{Error: "missing code"})
		return
	}

	result, err := strat.Authenticate(r.Context(), code)
	if err != nil {
		s.writeAuthError(w, name, err)
		return
	}

	if account, ok := result.User.(*accounts.Account); ok {
		s.logger.Info("Login completed", "strategy", name, "account", account.ID)
	} else {
		s.logger.Info("Login completed", "strategy", name)
	}

	s.writeJSON(w, http.StatusOK, callbackResponse{
		Account: result.User,
		Profile: result.Profile,
	})
}

// writeAuthError maps Authenticate failures to responses:
// provider API errors 502, rejected logins 401, everything else 500.
func (s *Server) writeAuthError(w http.ResponseWriter, name string, err error) {
	var apiErr *wunderlist.APIError
	switch {
	case errors.As(err, &apiErr):
		s.logger.Warn("Provider API error", "strategy", name, "type", apiErr.Type, "error", apiErr.Message)
		s.writeError(w, http.StatusBadGateway, errorResponse{
			Error:          apiErr.Message,
			Type:           apiErr.Type,
			TranslationKey: apiErr.TranslationKey,
		})
	case errors.Is(err, strategy.ErrNotAuthenticated):
		s.logger.Info("Login rejected", "strategy", name)
		s.writeError(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("Authentication failed", "strategy", name, "error", err)
		s.writeError(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			s.writeError(w, http.StatusNotFound, errorResponse{Error: "account not found"})
			return
		}
		s.logger.Error("Failed to load account", "error", err)
		s.writeError(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	s.writeJSON(w, http.StatusOK, account)
}

func (s *Server) writeError(w http.ResponseWriter, status int, body errorResponse) {
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
