// package tasks turns mood conversations into playlists.
//
// The core abstraction is MoodEngine, which drives a conversation until a payload appears and then
// assembles the playlist. Assembly emits progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/moodmix/internal/dialogue"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// Chat response statuses.
const (
	StatusContinue        = "continue"
	StatusPlaylistCreated = "playlist_created"
)

// ChatResponse is the outcome of one chat turn.
//
// Reply and Turn are set while the conversation continues; Playlist once a payload was assembled.
type ChatResponse struct {
	Status   string                 `json:"status"`
	Reply    string                 `json:"reply,omitempty"`
	Turn     int                    `json:"turn,omitempty"`
	Playlist *models.PlaylistResult `json:"playlist,omitempty"`
}

// MoodEngine defines the operations exposed to the HTTP server and the CLI.
type MoodEngine interface {
	// Chat forwards message for userKey and assembles a playlist once the conversation yields one.
	Chat(ctx context.Context, userKey, message string, progress chan<- ProgressUpdate) (*ChatResponse, error)

	// CreatePlaylist assembles a playlist from an explicit mood and track list.
	CreatePlaylist(ctx context.Context, mood string, tracks []string, progress chan<- ProgressUpdate) (*models.PlaylistResult, error)

	// Resolve maps one raw "Title - Artist" string to a catalog URI.
	Resolve(ctx context.Context, raw string) (string, bool)
}

// PlaylistEngine implements MoodEngine on top of a dialogue engine, a resolver and an assembler.
type PlaylistEngine struct {
	dialogue  *dialogue.Engine
	resolver  TrackResolver
	assembler *Assembler
}

// NewPlaylistEngine creates a new PlaylistEngine with the provided components.
func NewPlaylistEngine(d *dialogue.Engine, resolver TrackResolver, assembler *Assembler) *PlaylistEngine {
	return &PlaylistEngine{dialogue: d, resolver: resolver, assembler: assembler}
}

// Chat runs one dialogue turn.
func (e *PlaylistEngine) Chat(ctx context.Context, userKey, message string, progress chan<- ProgressUpdate) (*ChatResponse, error) {
	if e.dialogue == nil {
		return nil, fmt.Errorf("%w: dialogue engine not initialized", shared.ErrServiceUnavailable)
	}

	outcome, err := e.dialogue.Handle(ctx, userKey, message)
	if err != nil {
		return nil, err
	}

	if outcome.Payload == nil {
		return &ChatResponse{Status: StatusContinue, Reply: outcome.Reply, Turn: outcome.Turn}, nil
	}

	tracks := outcome.Payload.Tracks
	if e.assembler != nil && len(tracks) > e.assembler.MaxTracks() {
		tracks = tracks[:e.assembler.MaxTracks()]
	}

	result, err := e.CreatePlaylist(ctx, outcome.Payload.Mood, tracks, progress)
	if err != nil {
		return nil, err
	}
	return &ChatResponse{Status: StatusPlaylistCreated, Turn: outcome.Turn, Playlist: result}, nil
}

// CreatePlaylist assembles a playlist directly.
func (e *PlaylistEngine) CreatePlaylist(ctx context.Context, mood string, tracks []string, progress chan<- ProgressUpdate) (*models.PlaylistResult, error) {
	if e.assembler == nil {
		return nil, fmt.Errorf("%w: assembler not initialized", shared.ErrServiceUnavailable)
	}
	return e.assembler.Assemble(ctx, mood, tracks, progress)
}

// Resolve exposes the resolver.
func (e *PlaylistEngine) Resolve(ctx context.Context, raw string) (string, bool) {
	if e.resolver == nil {
		return "", false
	}
	return e.resolver.Resolve(ctx, raw)
}
