package models

import (
	"strings"

	"github.com/desertthunder/moodmix/internal/shared"
)

// trackDelimiters separate title from artist; the earliest occurrence in the raw string wins.
var trackDelimiters = []string{" - ", " – ", " — "}

// TrackQuery is a raw suggestion split once into title and artist. Artist may be empty.
type TrackQuery struct {
	Raw    string
	Title  string
	Artist string
}

// HasArtist reports whether artist-scoped search strategies apply.
func (q TrackQuery) HasArtist() bool {
	return q.Artist != ""
}

// ParseTrackQuery splits raw on the first title/artist delimiter.
//
// ok is false when no usable title remains after trimming.
func ParseTrackQuery(raw string) (q TrackQuery, ok bool) {
	q.Raw = raw
	trimmed := strings.TrimSpace(raw)

	cut, width := -1, 0
	for _, d := range trackDelimiters {
		if i := strings.Index(trimmed, d); i >= 0 && (cut < 0 || i < cut) {
			cut, width = i, len(d)
		}
	}

	if cut < 0 {
		q.Title = trimmed
	} else {
		q.Title = strings.TrimSpace(trimmed[:cut])
		q.Artist = strings.TrimSpace(trimmed[cut+width:])
	}

	return q, q.Title != "" && shared.Normalize(q.Title) != ""
}

// Candidate is one track returned by a catalog search.
type Candidate struct {
	URI        string   `json:"uri"`
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Popularity int      `json:"popularity"`
}

// Matches reports whether the candidate's title and any credited artist loosely match q.
//
// When q has no artist only the title is compared.
func (c Candidate) Matches(q TrackQuery) bool {
	if !shared.MatchesLoosely(c.Name, q.Title) {
		return false
	}
	if !q.HasArtist() {
		return true
	}
	for _, artist := range c.Artists {
		if shared.MatchesLoosely(artist, q.Artist) {
			return true
		}
	}
	return false
}

// ResolvedTrack binds a catalog URI to the raw string it was resolved from.
type ResolvedTrack struct {
	Raw string `json:"raw"`
	URI string `json:"uri"`
}
