package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/moodmix/internal/server"
	"github.com/urfave/cli/v3"
)

// requestTimeout covers a full chat turn: one model call plus resolution and playlist creation.
const requestTimeout = 2 * time.Minute

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.Build(ctx); err != nil {
		return err
	}

	addr := r.config.Server.Addr()
	if port := cmd.Int("port"); port > 0 {
		addr = fmt.Sprintf("%s:%d", r.config.Server.Host, port)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := r.child("http")
	api := server.NewAPI(r.engine, r.credentials, r.history, logger)

	var oauth *server.OAuthHandler
	if r.tokens != nil {
		oauth = server.NewOAuthHandler(r.tokens, r.child("oauth"))
	}

	go r.sweepSessions(ctx, time.Minute)

	if r.credentials != nil && !r.credentials.Linked() {
		r.logger.Warn("no spotify account linked, visit /auth/login", "addr", addr)
	}
	return server.New(addr, api, oauth, logger, requestTimeout).Run(ctx)
}
