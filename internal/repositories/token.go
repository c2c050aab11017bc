package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// DefaultAccount is the row id used for the single linked Spotify account.
const DefaultAccount = "spotify"

// TokenRepository stores the Spotify credential triple.
//
// It implements services.TokenStore for one account row.
type TokenRepository struct {
	db      *sql.DB
	account string
	now     func() time.Time
}

// NewTokenRepository creates a TokenRepository for [DefaultAccount].
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db, account: DefaultAccount, now: time.Now}
}

// Load returns the stored token, or nil when no account has been linked.
func (r *TokenRepository) Load(ctx context.Context) (*oauth2.Token, error) {
	query := `
		SELECT access_token, refresh_token, token_type, expires_at
		FROM spotify_tokens
		WHERE id = ?
	`

	var (
		access    string
		refresh   string
		tokenType string
		expiresAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, r.account).Scan(&access, &refresh, &tokenType, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	token := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: tokenType}
	if expiresAt.Valid {
		token.Expiry = expiresAt.Time
	}
	return token, nil
}

// Save upserts token.
func (r *TokenRepository) Save(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("refusing to save empty token")
	}

	var expiresAt sql.NullTime
	if !token.Expiry.IsZero() {
		expiresAt = sql.NullTime{Time: token.Expiry.UTC(), Valid: true}
	}

	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	now := r.now().UTC()
	query := `
		INSERT INTO spotify_tokens (id, access_token, refresh_token, token_type, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, r.account, token.AccessToken, token.RefreshToken, tokenType, expiresAt, now, now); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Delete unlinks the account.
func (r *TokenRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM spotify_tokens WHERE id = ?", r.account); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
