package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/moodmix/internal/server"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
)

const authTimeout = 5 * time.Minute

// AuthLogin runs the authorization code flow: it serves the callback on the configured
// redirect URI, opens the consent page and waits for the exchange to finish.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.openTokens(ctx); err != nil {
		return err
	}

	redirect, err := url.Parse(r.config.Credentials.Spotify.RedirectURI)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("%w: credentials.spotify.redirect_uri must be an absolute URL", shared.ErrInvalidConfig)
	}
	if redirect.Path != "/callback" {
		r.logger.Warn("redirect_uri path should be /callback", "redirect_uri", redirect.String())
	}

	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	oauth := server.NewOAuthHandler(r.tokens, r.child("oauth"))
	srv := server.New(redirect.Host, nil, oauth, r.child("http"), 0)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	authURL, err := oauth.Begin()
	if err != nil {
		return err
	}

	r.writePlain("Opening your browser to link Spotify...\n")
	r.writePlain("If it does not open, visit:\n\n  %s\n\n", authURL)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("could not open browser", "error", err)
	}

	select {
	case result := <-oauth.Result():
		cancel()
		<-errCh
		if err := result.Error(); err != nil {
			return err
		}
		return r.writePlain("✓ Spotify account linked\n")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("callback server: %w", err)
		}
		return fmt.Errorf("%w: callback server stopped", shared.ErrAuthFailed)
	case <-ctx.Done():
		<-errCh
		return fmt.Errorf("%w: no authorization received within %s", shared.ErrTimeout, authTimeout)
	}
}

// AuthStatus reports whether a Spotify account is linked.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.openTokens(ctx); err != nil {
		return err
	}

	if r.tokens.Linked() {
		return r.writePlain("Spotify: ✓ linked\n")
	}
	return r.writePlain("Spotify: ✗ not linked (run `moodmix auth`)\n")
}

// AuthLogout deletes the stored Spotify credentials.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStorage(); err != nil {
		return err
	}

	if err := r.tokenRepo.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete spotify credentials: %w", err)
	}
	r.logger.Info("spotify credentials removed")
	return r.writePlain("✓ Spotify account unlinked\n")
}
