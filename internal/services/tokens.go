package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const (
	tokenRefreshLeeway = time.Minute
	spotifyHTTPTimeout = 15 * time.Second

	// unauthorizedMarker appears in zmb3 errors for 401 responses with an empty body.
	unauthorizedMarker = "HTTP 401:"
)

// spotifyScopes are the permissions needed to search and write private or public playlists.
var spotifyScopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
}

// TokenOption customises TokenManager construction.
type TokenOption func(*TokenManager)

// WithTokenStore injects the persistence layer for the credential triple.
func WithTokenStore(store TokenStore) TokenOption {
	return func(m *TokenManager) {
		m.store = store
	}
}

// WithEndpoint overrides the Spotify accounts endpoints (used in tests).
func WithEndpoint(endpoint oauth2.Endpoint) TokenOption {
	return func(m *TokenManager) {
		m.config.Endpoint = endpoint
	}
}

// WithTokenHTTPClient overrides the HTTP client used for token exchange and refresh.
func WithTokenHTTPClient(client *http.Client) TokenOption {
	return func(m *TokenManager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithRefreshLeeway refreshes tokens this long before they expire.
func WithRefreshLeeway(d time.Duration) TokenOption {
	return func(m *TokenManager) {
		m.leeway = d
	}
}

// WithTokenLogger sets the logger used for refresh events.
func WithTokenLogger(logger *log.Logger) TokenOption {
	return func(m *TokenManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides time.Now (used in tests).
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

// TokenManager owns the Spotify credential triple.
//
// Every caller obtains credentials through [TokenManager.Token]; refreshes happen under mu so
// concurrent callers near expiry trigger a single refresh.
type TokenManager struct {
	config     *oauth2.Config
	store      TokenStore
	httpClient *http.Client
	logger     *log.Logger
	leeway     time.Duration
	now        func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenManager builds a TokenManager for the configured Spotify application.
func NewTokenManager(cfg shared.SpotifyConfig, opts ...TokenOption) (*TokenManager, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	m := &TokenManager{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       spotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		httpClient: &http.Client{Timeout: spotifyHTTPTimeout},
		logger:     shared.NewLogger(nil),
		leeway:     tokenRefreshLeeway,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Load reads a previously linked token from the store.
func (m *TokenManager) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	token, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load spotify token: %w", err)
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

// Linked reports whether an account has been authorized.
func (m *TokenManager) Linked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != nil && (m.token.AccessToken != "" || m.token.RefreshToken != "")
}

// AuthURL returns the Spotify consent page for state.
func (m *TokenManager) AuthURL(state string) string {
	return m.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and persists it.
func (m *TokenManager) Exchange(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	token, err := m.config.Exchange(m.clientContext(ctx), code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_client" {
			return fmt.Errorf("%w: spotify rejected the client id or secret", shared.ErrInvalidCredentials)
		}
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return m.persistLocked(ctx, token)
}

// Token returns a currently valid access token, refreshing it first when needed.
//
// It implements [oauth2.TokenSource].
func (m *TokenManager) Token() (*oauth2.Token, error) {
	return m.TokenContext(context.Background())
}

// TokenContext is [TokenManager.Token] with a caller-supplied context for the refresh request.
func (m *TokenManager) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil {
		return nil, shared.ErrReauthRequired
	}
	if m.validLocked() {
		copied := *m.token
		return &copied, nil
	}
	return m.refreshLocked(ctx)
}

// Invalidate marks accessToken as unusable so the next call to Token refreshes.
//
// It is a no-op when the current token has already been replaced.
func (m *TokenManager) Invalidate(accessToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != nil && m.token.AccessToken == accessToken {
		m.token.Expiry = m.now().Add(-time.Second)
	}
}

// Client returns an HTTP client that authorizes every request through the manager.
func (m *TokenManager) Client() *http.Client {
	base := m.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport: &oauth2.Transport{Source: m, Base: base},
		Timeout:   m.httpClient.Timeout,
	}
}

// Do runs call and, when Spotify rejects the access token, refreshes and retries exactly once.
func (m *TokenManager) Do(ctx context.Context, call func(ctx context.Context) error) error {
	token, err := m.TokenContext(ctx)
	if err != nil {
		return err
	}

	err = call(ctx)
	if !isUnauthorized(err) {
		return err
	}

	m.logger.Warn("spotify rejected access token, refreshing", "error", err)
	m.Invalidate(token.AccessToken)
	if _, err := m.TokenContext(ctx); err != nil {
		return err
	}

	if err := call(ctx); err != nil {
		if isUnauthorized(err) {
			return fmt.Errorf("%w: %v", shared.ErrReauthRequired, err)
		}
		return err
	}
	return nil
}

func (m *TokenManager) validLocked() bool {
	if m.token.AccessToken == "" {
		return false
	}
	if m.token.Expiry.IsZero() {
		return true
	}
	return m.now().Add(m.leeway).Before(m.token.Expiry)
}

func (m *TokenManager) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	if m.token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %v", shared.ErrReauthRequired, shared.ErrNoRefreshToken)
	}

	src := m.config.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: m.token.RefreshToken})
	refreshed, err := src.Token()
	if err != nil {
		m.logger.Error("spotify token refresh failed", "error", err)
		return nil, fmt.Errorf("%w: %v: %v", shared.ErrReauthRequired, shared.ErrRefreshFailed, err)
	}

	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = m.token.RefreshToken
	}
	m.token = refreshed
	m.logger.Debug("spotify token refreshed", "expires_at", refreshed.Expiry)

	if err := m.persistLocked(ctx, refreshed); err != nil {
		m.logger.Warn("failed to persist refreshed token", "error", err)
	}

	copied := *refreshed
	return &copied, nil
}

func (m *TokenManager) persistLocked(ctx context.Context, token *oauth2.Token) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Save(ctx, token); err != nil {
		return fmt.Errorf("failed to save spotify token: %w", err)
	}
	return nil
}

func (m *TokenManager) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// isUnauthorized reports whether err is Spotify rejecting the bearer token.
func isUnauthorized(err error) bool {
	if err == nil {
		return false
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return true
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return retrieveErr.Response.StatusCode == http.StatusUnauthorized
	}

	// Responses without a JSON error body only carry the status in the message.
	return strings.Contains(err.Error(), unauthorizedMarker)
}
