// Spotify implementation of [Catalog]
//
// Built on github.com/zmb3/spotify/v2; authorization comes from a [TokenManager].
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/zmb3/spotify/v2"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
	maxTracksPerAdd    = 100
)

// CatalogOption customises SpotifyCatalog construction.
type CatalogOption func(*catalogOptions)

type catalogOptions struct {
	baseURL string
	logger  *log.Logger
}

// WithAPIBaseURL points the catalog at a different Web API root (used in tests).
func WithAPIBaseURL(baseURL string) CatalogOption {
	return func(o *catalogOptions) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		o.baseURL = baseURL
	}
}

// WithCatalogLogger sets the logger used for catalog calls.
func WithCatalogLogger(logger *log.Logger) CatalogOption {
	return func(o *catalogOptions) {
		o.logger = logger
	}
}

// SpotifyCatalog implements [Catalog] for the Spotify Web API.
type SpotifyCatalog struct {
	client *spotify.Client
	tokens *TokenManager
	logger *log.Logger

	userMu sync.Mutex
	userID string
}

// NewSpotifyCatalog creates a catalog whose requests are authorized by tokens.
func NewSpotifyCatalog(tokens *TokenManager, opts ...CatalogOption) *SpotifyCatalog {
	o := catalogOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = shared.NewLogger(nil)
	}

	var clientOpts []spotify.ClientOption
	if o.baseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(o.baseURL))
	}

	return &SpotifyCatalog{
		client: spotify.New(tokens.Client(), clientOpts...),
		tokens: tokens,
		logger: o.logger,
	}
}

// Search runs a track search and converts the hits to [models.Candidate] in catalog order.
func (s *SpotifyCatalog) Search(ctx context.Context, query string, opts SearchOptions) ([]models.Candidate, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	requestOpts := []spotify.RequestOption{spotify.Limit(limit)}
	if opts.Market != "" {
		requestOpts = append(requestOpts, spotify.Market(opts.Market))
	}

	var result *spotify.SearchResult
	err := s.tokens.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.client.Search(ctx, query, spotify.SearchTypeTrack, requestOpts...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %w", shared.ErrAPIRequest, query, err)
	}

	if result == nil || result.Tracks == nil {
		return nil, nil
	}

	candidates := make([]models.Candidate, 0, len(result.Tracks.Tracks))
	for _, track := range result.Tracks.Tracks {
		artists := make([]string, 0, len(track.Artists))
		for _, artist := range track.Artists {
			artists = append(artists, artist.Name)
		}
		candidates = append(candidates, models.Candidate{
			URI:        string(track.URI),
			ID:         string(track.ID),
			Name:       track.Name,
			Artists:    artists,
			Popularity: int(track.Popularity),
		})
	}
	return candidates, nil
}

// CreatePlaylist creates a playlist for the linked account.
func (s *SpotifyCatalog) CreatePlaylist(ctx context.Context, name string, opts PlaylistOptions) (*CreatedPlaylist, error) {
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var playlist *spotify.FullPlaylist
	err = s.tokens.Do(ctx, func(ctx context.Context) error {
		var err error
		playlist, err = s.client.CreatePlaylistForUser(ctx, userID, name, opts.Description, opts.Public, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create playlist: %w", shared.ErrAPIRequest, err)
	}

	created := &CreatedPlaylist{
		ID:   string(playlist.ID),
		Name: playlist.Name,
		URL:  playlist.ExternalURLs["spotify"],
	}
	if created.URL == "" {
		created.URL = "https://open.spotify.com/playlist/" + created.ID
	}
	return created, nil
}

// AddTracks appends uris to playlistID, batching at the API's per-request limit.
func (s *SpotifyCatalog) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	ids := make([]spotify.ID, 0, len(uris))
	for _, uri := range uris {
		ids = append(ids, trackID(uri))
	}

	for start := 0; start < len(ids); start += maxTracksPerAdd {
		end := min(start+maxTracksPerAdd, len(ids))
		batch := ids[start:end]

		err := s.tokens.Do(ctx, func(ctx context.Context) error {
			_, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: add tracks: %w", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

// currentUserID looks up and caches the linked account's user id.
func (s *SpotifyCatalog) currentUserID(ctx context.Context) (string, error) {
	s.userMu.Lock()
	defer s.userMu.Unlock()

	if s.userID != "" {
		return s.userID, nil
	}

	var user *spotify.PrivateUser
	err := s.tokens.Do(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.client.CurrentUser(ctx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: current user: %w", shared.ErrAPIRequest, err)
	}

	s.userID = user.ID
	s.logger.Debug("resolved spotify user", "user_id", user.ID)
	return s.userID, nil
}

// trackID extracts the bare id from a "spotify:track:<id>" URI.
func trackID(uri string) spotify.ID {
	if i := strings.LastIndex(uri, ":"); i >= 0 {
		return spotify.ID(uri[i+1:])
	}
	return spotify.ID(uri)
}
