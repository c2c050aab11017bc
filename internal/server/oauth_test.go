package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthorizer struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (f *fakeAuthorizer) AuthURL(state string) string {
	return "https://accounts.spotify.com/authorize?client_id=test&state=" + url.QueryEscape(state)
}

func (f *fakeAuthorizer) Exchange(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	return f.err
}

func newOAuthServer(auth Authorizer) (*OAuthHandler, http.Handler) {
	logger := log.New(io.Discard)
	oauth := NewOAuthHandler(auth, logger)
	return oauth, New("127.0.0.1:0", nil, oauth, logger, 5*time.Second).Handler()
}

// login follows /auth/login and returns the state embedded in the redirect.
func login(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusFound, rr.Code)

	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.spotify.com", loc.Host)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func callback(h http.Handler, query string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/callback?"+query, nil))
	return rr
}

func TestOAuthHandler(t *testing.T) {
	t.Run("login issues a fresh state each time", func(t *testing.T) {
		_, h := newOAuthServer(&fakeAuthorizer{})

		first := login(t, h)
		second := login(t, h)

		assert.NotEqual(t, first, second)
	})

	t.Run("successful callback", func(t *testing.T) {
		auth := &fakeAuthorizer{}
		oauth, h := newOAuthServer(auth)
		state := login(t, h)

		rr := callback(h, "code=abc&state="+state)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Spotify linked")
		assert.Equal(t, []string{"abc"}, auth.codes)

		select {
		case result := <-oauth.Result():
			assert.NoError(t, result.Error())
		default:
			t.Fatal("expected a result")
		}
	})

	t.Run("state is single use", func(t *testing.T) {
		auth := &fakeAuthorizer{}
		_, h := newOAuthServer(auth)
		state := login(t, h)

		require.Equal(t, http.StatusOK, callback(h, "code=abc&state="+state).Code)
		rr := callback(h, "code=abc&state="+state)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Len(t, auth.codes, 1)
	})

	t.Run("unknown or missing state", func(t *testing.T) {
		auth := &fakeAuthorizer{}
		_, h := newOAuthServer(auth)
		login(t, h)

		for _, query := range []string{"code=abc&state=forged", "code=abc"} {
			rr := callback(h, query)
			assert.Equal(t, http.StatusBadRequest, rr.Code, query)
			assert.Contains(t, rr.Body.String(), "Invalid state parameter")
		}
		assert.Empty(t, auth.codes)
	})

	t.Run("expired state", func(t *testing.T) {
		auth := &fakeAuthorizer{}
		oauth, h := newOAuthServer(auth)
		now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
		oauth.now = func() time.Time { return now }
		state := login(t, h)

		now = now.Add(stateTTL + time.Second)
		rr := callback(h, "code=abc&state="+state)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, auth.codes)
	})

	t.Run("denied by user", func(t *testing.T) {
		auth := &fakeAuthorizer{}
		oauth, h := newOAuthServer(auth)
		state := login(t, h)

		rr := callback(h, "error=access_denied&state="+state)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, auth.codes)
		result := <-oauth.Result()
		assert.ErrorIs(t, result.Error(), shared.ErrAuthFailed)
		assert.Contains(t, result.Error().Error(), "access_denied")
	})

	t.Run("exchange failure", func(t *testing.T) {
		auth := &fakeAuthorizer{err: errors.New("invalid_grant")}
		oauth, h := newOAuthServer(auth)
		state := login(t, h)

		rr := callback(h, "code=abc&state="+state)

		assert.Equal(t, http.StatusBadGateway, rr.Code)
		result := <-oauth.Result()
		assert.EqualError(t, result.Error(), "invalid_grant")
	})

	t.Run("only GET", func(t *testing.T) {
		_, h := newOAuthServer(&fakeAuthorizer{})

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})

	t.Run("send never blocks", func(t *testing.T) {
		oauth := NewOAuthHandler(&fakeAuthorizer{}, log.New(io.Discard))

		oauth.Send(OAuthResult{})
		oauth.Send(OAuthResult{err: errors.New("dropped")})

		result := <-oauth.Result()
		assert.NoError(t, result.Error())
	})
}
