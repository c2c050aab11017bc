package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/tasks"
	"github.com/desertthunder/moodmix/internal/ui"
	"github.com/urfave/cli/v3"
)

// Chat starts a mood conversation, in the TUI when attached to a terminal and line by line otherwise.
func (r *Runner) Chat(ctx context.Context, cmd *cli.Command) error {
	useTUI := !cmd.Bool("plain") && r.interactive()
	if useTUI {
		// Logs would tear the TUI; send them to a file instead.
		logPath := filepath.Join(os.TempDir(), "moodmix-tui.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		defer f.Close()
		r.logger.SetOutput(f)
	}

	if err := r.Build(ctx); err != nil {
		return err
	}
	if err := r.requireLinked(); err != nil {
		return err
	}

	userKey := cmd.String("user")
	if userKey == "" {
		userKey = shared.GenerateID()
	}

	if useTUI {
		p := tea.NewProgram(ui.NewModel(ctx, r.engine, userKey), tea.WithAltScreen(), tea.WithContext(ctx))
		final, err := p.Run()
		if err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}
		if m, ok := final.(*ui.Model); ok && m.Result() != nil {
			return r.writePlain("%s\n", m.Result().URL)
		}
		return nil
	}

	return r.chatLines(ctx, userKey)
}

// chatLines is the line-mode conversation: one input line per turn until EOF.
func (r *Runner) chatLines(ctx context.Context, userKey string) error {
	scanner := bufio.NewScanner(r.input)

	r.writePlain("moodmix> Hi! How are you feeling today?\n")
	for {
		r.writePlain("you> ")
		if !scanner.Scan() {
			r.writePlain("\n")
			return scanner.Err()
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		resp, err := r.chatTurn(ctx, userKey, text)
		if errors.Is(err, shared.ErrReauthRequired) || ctx.Err() != nil {
			return err
		}
		if err != nil {
			r.logger.Error("chat turn failed", "error", err)
			r.writePlain("moodmix> Sorry, something went wrong. Please try again.\n")
			continue
		}

		if resp.Status == tasks.StatusContinue {
			r.writePlain("moodmix> %s\n", resp.Reply)
			continue
		}

		data, err := formatter.ExportToText(resp.Playlist)
		if err != nil {
			return err
		}
		if err := r.writeBytes(data); err != nil {
			return err
		}
		if resp.Playlist.Success {
			return nil
		}
		r.writePlain("moodmix> Let's try again. How are you feeling?\n")
	}
}

// chatTurn runs one turn, printing progress updates while a playlist is assembled.
func (r *Runner) chatTurn(ctx context.Context, userKey, text string) (*tasks.ChatResponse, error) {
	progress := make(chan tasks.ProgressUpdate, 32)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.writePlain("  %s\n", update.Message)
		}
	}()

	resp, err := r.engine.Chat(ctx, userKey, text, progress)
	close(progress)
	wg.Wait()
	return resp, err
}
