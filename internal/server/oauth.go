package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/shared"
)

// stateTTL bounds how long a login may take before its state is rejected.
const stateTTL = 10 * time.Minute

// Authorizer is the part of services.TokenManager used by the OAuth flow.
type Authorizer interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) error
}

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	err error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles the Spotify authorization code flow.
// Implements the Handler interface for registration with a Router.
//
// Each state token is accepted exactly once and expires after ten minutes.
type OAuthHandler struct {
	auth       Authorizer
	logger     *log.Logger
	now        func() time.Time
	mu         sync.Mutex
	states     map[string]time.Time
	resultChan chan OAuthResult
}

// NewOAuthHandler creates a new OAuth handler that exchanges codes through auth.
func NewOAuthHandler(auth Authorizer, logger *log.Logger) *OAuthHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &OAuthHandler{
		auth:       auth,
		logger:     logger,
		now:        time.Now,
		states:     make(map[string]time.Time),
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/auth/login", "/callback"}
}

// Begin registers a fresh state token and returns the Spotify authorization URL for it.
func (h *OAuthHandler) Begin() (string, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	h.mu.Lock()
	now := h.now()
	for s, issued := range h.states {
		if now.Sub(issued) > stateTTL {
			delete(h.states, s)
		}
	}
	h.states[state] = now
	h.mu.Unlock()

	return h.auth.AuthURL(state), nil
}

// ServeHTTP redirects /auth/login to Spotify and completes the flow on /callback.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/auth/login":
		url, err := h.Begin()
		if err != nil {
			h.logger.Error("could not start authorization", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	case "/callback":
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	if !h.consumeState(r.URL.Query().Get("state")) {
		h.logger.Warn("oauth callback with unknown state")
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		err := fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, errParam, errDesc)
		h.logger.Error("spotify authorization denied", "error", errParam)
		h.Send(OAuthResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	if err := h.auth.Exchange(r.Context(), code); err != nil {
		h.logger.Error("token exchange failed", "error", err)
		h.Send(OAuthResult{err: err})
		http.Error(w, "Token exchange failed", http.StatusBadGateway)
		return
	}

	h.logger.Info("spotify account linked")
	h.Send(OAuthResult{})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

// consumeState reports whether state was issued and unexpired, and forgets it.
func (h *OAuthHandler) consumeState(state string) bool {
	if state == "" {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	issued, ok := h.states[state]
	delete(h.states, state)
	return ok && h.now().Sub(issued) <= stateTTL
}

// Send publishes a flow result without blocking; results nobody waits for are dropped.
func (h *OAuthHandler) Send(result OAuthResult) {
	select {
	case h.resultChan <- result:
	default:
	}
}

// Result returns the channel receiving completed flows.
//
// The CLI auth command waits on it; the long-running server ignores it.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

const successPage = `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Spotify linked</h1>
        <p>moodmix can now create playlists. You can close this window.</p>
    </div>
</body>
</html>
`
