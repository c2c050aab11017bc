// package services defines the collaborators moodmix talks to over HTTP
//
// Spotify (catalog + playlists) and an OpenAI-compatible chat model
package services

import (
	"context"

	"github.com/desertthunder/moodmix/internal/models"
	"golang.org/x/oauth2"
)

// Catalog searches a music catalog and writes playlists to it.
type Catalog interface {
	// Search returns at most opts.Limit track candidates for a free-text or field-scoped query.
	Search(ctx context.Context, query string, opts SearchOptions) ([]models.Candidate, error)

	// CreatePlaylist creates an empty playlist owned by the linked account.
	CreatePlaylist(ctx context.Context, name string, opts PlaylistOptions) (*CreatedPlaylist, error)

	// AddTracks appends uris to the playlist in order.
	AddTracks(ctx context.Context, playlistID string, uris []string) error
}

// SearchOptions bounds a catalog search.
type SearchOptions struct {
	Limit  int
	Market string
}

// PlaylistOptions controls playlist visibility and description.
type PlaylistOptions struct {
	Public      bool
	Description string
}

// CreatedPlaylist identifies a playlist returned by the catalog.
type CreatedPlaylist struct {
	ID   string
	URL  string
	Name string
}

// Chatter opens multi-turn conversations with a generative-text model.
type Chatter interface {
	StartSession(system string) ChatSession
}

// ChatSession is one transcript with the model.
type ChatSession interface {
	// SendTurn appends text as a user turn and returns the model reply.
	// A failed turn leaves the transcript unchanged.
	SendTurn(ctx context.Context, text string) (string, error)
}

// TokenStore persists the Spotify credential triple between runs.
//
// Load returns (nil, nil) when no account has been linked yet.
type TokenStore interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, token *oauth2.Token) error
}
