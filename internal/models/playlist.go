package models

import (
	"fmt"
	"strings"
	"time"
)

// PayloadTrackCount is the exact number of suggestions a [MoodPayload] must carry.
const PayloadTrackCount = 10

// MoodPayload is the structured object the model emits once it has enough context.
type MoodPayload struct {
	Mood   string   `json:"mood"`
	Tracks []string `json:"tracks"`
}

// PlaylistResult reports the outcome of assembling a playlist.
//
// Playlist fields are only set when Success is true.
type PlaylistResult struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	PlaylistID string          `json:"playlist_id,omitempty"`
	URL        string          `json:"url,omitempty"`
	Name       string          `json:"name,omitempty"`
	TrackCount int             `json:"track_count"`
	Requested  int             `json:"requested"`
	Mood       string          `json:"mood"`
	Tracks     []ResolvedTrack `json:"tracks,omitempty"`
}

var _ Model = (*PlaylistRecord)(nil)

// PlaylistRecord is a persisted history entry for a created playlist.
type PlaylistRecord struct {
	id         string
	sequence   int
	spotifyID  string
	name       string
	url        string
	mood       string
	trackCount int
	createdAt  time.Time
	deletedAt  *time.Time
}

// NewPlaylistRecord builds a record from a successful [PlaylistResult].
func NewPlaylistRecord(result PlaylistResult, createdAt time.Time) *PlaylistRecord {
	return &PlaylistRecord{
		spotifyID:  result.PlaylistID,
		name:       result.Name,
		url:        result.URL,
		mood:       result.Mood,
		trackCount: result.TrackCount,
		createdAt:  createdAt,
	}
}

// RestorePlaylistRecord rebuilds a record read from storage.
func RestorePlaylistRecord(id string, sequence int, spotifyID, name, url, mood string, trackCount int, createdAt time.Time, deletedAt *time.Time) *PlaylistRecord {
	return &PlaylistRecord{
		id:         id,
		sequence:   sequence,
		spotifyID:  spotifyID,
		name:       name,
		url:        url,
		mood:       mood,
		trackCount: trackCount,
		createdAt:  createdAt,
		deletedAt:  deletedAt,
	}
}

func (p *PlaylistRecord) ID() string            { return p.id }
func (p *PlaylistRecord) Sequence() int         { return p.sequence }
func (p *PlaylistRecord) SpotifyID() string     { return p.spotifyID }
func (p *PlaylistRecord) Name() string          { return p.name }
func (p *PlaylistRecord) URL() string           { return p.url }
func (p *PlaylistRecord) Mood() string          { return p.mood }
func (p *PlaylistRecord) TrackCount() int       { return p.trackCount }
func (p *PlaylistRecord) CreatedAt() time.Time  { return p.createdAt }
func (p *PlaylistRecord) DeletedAt() *time.Time { return p.deletedAt }

func (p *PlaylistRecord) SetID(id string)          { p.id = id }
func (p *PlaylistRecord) SetSequence(sequence int) { p.sequence = sequence }

// Validate checks required fields before persisting.
func (p *PlaylistRecord) Validate() error {
	switch {
	case strings.TrimSpace(p.spotifyID) == "":
		return fmt.Errorf("spotify id is required")
	case strings.TrimSpace(p.name) == "":
		return fmt.Errorf("name is required")
	case strings.TrimSpace(p.mood) == "":
		return fmt.Errorf("mood is required")
	case p.trackCount < 0:
		return fmt.Errorf("track count cannot be negative")
	}
	return nil
}
