package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh/spinner"
	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/server"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistCreate assembles a playlist from --mood and the given suggestions.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	mood := strings.TrimSpace(cmd.String("mood"))
	tracks := append([]string{}, cmd.StringSlice("track")...)
	tracks = append(tracks, cmd.Args().Slice()...)
	if mood == "" || len(tracks) == 0 {
		return fmt.Errorf("%w: --mood and at least one track are required", shared.ErrMissingArgument)
	}
	if len(tracks) > models.PayloadTrackCount {
		return fmt.Errorf("%w: at most %d tracks, got %d", shared.ErrInvalidInput, models.PayloadTrackCount, len(tracks))
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if err := r.Build(ctx); err != nil {
		return err
	}
	if err := r.requireLinked(); err != nil {
		return err
	}

	var result *models.PlaylistResult
	create := func(ctx context.Context) error {
		var err error
		result, err = r.engine.CreatePlaylist(ctx, mood, tracks, nil)
		return err
	}

	if r.interactive() {
		err = spinner.New().Title(fmt.Sprintf("Building a %q playlist...", mood)).Context(ctx).ActionWithErr(create).Run()
	} else {
		err = create(ctx)
	}
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(result, path, format); err != nil {
			return err
		}
		r.writePlain("✓ Saved to %s\n", path)
	} else {
		data, err := formatter.Render(result, format)
		if err != nil {
			return err
		}
		if err := r.writeBytes(data); err != nil {
			return err
		}
	}

	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrInsufficientMatches, result.Message)
	}
	return nil
}

// Resolve maps each argument to a Spotify track and prints the matches.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	raws := cmd.Args().Slice()
	if len(raws) == 0 {
		return fmt.Errorf("%w: at least one \"Title - Artist\" string", shared.ErrMissingArgument)
	}

	if err := r.Build(ctx); err != nil {
		return err
	}
	if err := r.requireLinked(); err != nil {
		return err
	}

	var found []models.ResolvedTrack
	var missed []string
	for _, raw := range raws {
		if uri, ok := r.engine.Resolve(ctx, raw); ok {
			found = append(found, models.ResolvedTrack{Raw: raw, URI: uri})
		} else {
			missed = append(missed, raw)
		}
	}

	if len(found) > 0 {
		r.writePlain("%s\n", formatter.TracksTable(found))
	}
	for _, raw := range missed {
		r.writePlain("✗ %s\n", raw)
	}
	if err := r.writePlain("Resolved %d/%d\n", len(found), len(raws)); err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("%w: none of %d suggestions matched", shared.ErrTrackNotFound, len(raws))
	}
	return nil
}

// History lists created playlists, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	if limit < 1 {
		return fmt.Errorf("%w: --limit must be positive", shared.ErrInvalidFlag)
	}

	if err := r.openHistory(); err != nil {
		return err
	}

	records, err := r.history.List(limit, cmd.String("mood"))
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	switch strings.ToLower(cmd.String("format")) {
	case "json":
		return r.writeJSON(server.HistoryEntries(records), true)
	case "csv":
		data, err := formatter.HistoryToCSV(records)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	case "table", "":
		if len(records) == 0 {
			return r.writePlain("No playlists yet. Run 'moodmix chat' to make one.\n")
		}
		return r.writePlain("%s\n", formatter.HistoryTable(records))
	default:
		return fmt.Errorf("%w: unknown format %q (want table, csv or json)", shared.ErrInvalidFlag, cmd.String("format"))
	}
}

// HistoryShow prints one history entry.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	record, err := r.findHistory(cmd)
	if err != nil {
		return err
	}

	switch strings.ToLower(cmd.String("format")) {
	case "json":
		return r.writeJSON(server.NewHistoryEntry(record), true)
	case "table", "":
		return r.writePlain("%s\n", formatter.HistoryTable([]*models.PlaylistRecord{record}))
	default:
		return fmt.Errorf("%w: unknown format %q (want table or json)", shared.ErrInvalidFlag, cmd.String("format"))
	}
}

// HistoryDelete removes one entry from the history. The Spotify playlist itself is left alone.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	record, err := r.findHistory(cmd)
	if err != nil {
		return err
	}

	if err := r.history.Delete(record.ID()); err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	return r.writePlain("✓ Removed #%d %s from history\n", record.Sequence(), record.Name())
}

func (r *Runner) findHistory(cmd *cli.Command) (*models.PlaylistRecord, error) {
	id := strings.TrimSpace(cmd.Args().First())
	if id == "" {
		return nil, fmt.Errorf("%w: history ID or Spotify playlist id", shared.ErrMissingArgument)
	}
	if err := r.openHistory(); err != nil {
		return nil, err
	}
	return r.history.Find(id)
}

func (r *Runner) openHistory() error {
	if r.history != nil {
		return nil
	}
	return r.openStorage()
}
