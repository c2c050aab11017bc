package models

import (
	"testing"
	"time"
)

func TestParseTrackQuery(t *testing.T) {
	tc := []struct {
		name       string
		raw        string
		wantTitle  string
		wantArtist string
		wantOK     bool
	}{
		{name: "hyphen", raw: "Clocks - Coldplay", wantTitle: "Clocks", wantArtist: "Coldplay", wantOK: true},
		{name: "en dash", raw: "Bohemian Rhapsody – Queen", wantTitle: "Bohemian Rhapsody", wantArtist: "Queen", wantOK: true},
		{name: "em dash", raw: "Hurt — Johnny Cash", wantTitle: "Hurt", wantArtist: "Johnny Cash", wantOK: true},
		{name: "split once", raw: "Song - Artist - Extra", wantTitle: "Song", wantArtist: "Artist - Extra", wantOK: true},
		{name: "earliest delimiter wins", raw: "A – B - C", wantTitle: "A", wantArtist: "B - C", wantOK: true},
		{name: "hyphen inside word", raw: "Anti-Hero - Taylor Swift", wantTitle: "Anti-Hero", wantArtist: "Taylor Swift", wantOK: true},
		{name: "no artist", raw: "  Yellow  ", wantTitle: "Yellow", wantOK: true},
		{name: "empty title", raw: " - Coldplay", wantTitle: "", wantArtist: "Coldplay", wantOK: false},
		{name: "punctuation only title", raw: "?! - Coldplay", wantTitle: "?!", wantArtist: "Coldplay", wantOK: false},
		{name: "blank", raw: "   ", wantOK: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := ParseTrackQuery(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ParseTrackQuery(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if q.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", q.Title, tt.wantTitle)
			}
			if q.Artist != tt.wantArtist {
				t.Errorf("artist = %q, want %q", q.Artist, tt.wantArtist)
			}
			if q.Raw != tt.raw {
				t.Errorf("raw = %q, want %q", q.Raw, tt.raw)
			}
		})
	}
}

func TestCandidateMatches(t *testing.T) {
	clocks, _ := ParseTrackQuery("Clocks - Coldplay")
	titleOnly, _ := ParseTrackQuery("Clocks")

	tc := []struct {
		name      string
		query     TrackQuery
		candidate Candidate
		want      bool
	}{
		{
			name:      "remastered suffix",
			query:     clocks,
			candidate: Candidate{Name: "Clocks - Remastered 2009", Artists: []string{"Coldplay"}},
			want:      true,
		},
		{
			name:      "featured artist credited second",
			query:     clocks,
			candidate: Candidate{Name: "Clocks", Artists: []string{"Someone", "Coldplay"}},
			want:      true,
		},
		{
			name:      "wrong artist",
			query:     clocks,
			candidate: Candidate{Name: "Clocks", Artists: []string{"Tribute Band"}},
			want:      false,
		},
		{
			name:      "wrong title",
			query:     clocks,
			candidate: Candidate{Name: "Yellow", Artists: []string{"Coldplay"}},
			want:      false,
		},
		{
			name:      "no artists credited",
			query:     clocks,
			candidate: Candidate{Name: "Clocks"},
			want:      false,
		},
		{
			name:      "title only query ignores artist",
			query:     titleOnly,
			candidate: Candidate{Name: "Clocks (Live)", Artists: []string{"Anyone"}},
			want:      true,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.candidate.Matches(tt.query); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlaylistRecord(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	result := PlaylistResult{
		Success:    true,
		PlaylistID: "sp123",
		URL:        "https://open.spotify.com/playlist/sp123",
		Name:       "Moodmix 2025-03-14",
		TrackCount: 8,
		Mood:       "nostalgic",
	}

	t.Run("NewPlaylistRecord", func(t *testing.T) {
		record := NewPlaylistRecord(result, created)
		if record.SpotifyID() != "sp123" || record.Mood() != "nostalgic" || record.TrackCount() != 8 {
			t.Errorf("unexpected record %+v", record)
		}
		if !record.CreatedAt().Equal(created) {
			t.Errorf("expected created at %v, got %v", created, record.CreatedAt())
		}
		if err := record.Validate(); err != nil {
			t.Errorf("expected valid record, got %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*PlaylistResult)
		}{
			{name: "missing spotify id", mutate: func(r *PlaylistResult) { r.PlaylistID = "" }},
			{name: "missing name", mutate: func(r *PlaylistResult) { r.Name = " " }},
			{name: "missing mood", mutate: func(r *PlaylistResult) { r.Mood = "" }},
			{name: "negative count", mutate: func(r *PlaylistResult) { r.TrackCount = -1 }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				r := result
				tt.mutate(&r)
				var m Model = NewPlaylistRecord(r, created)
				if err := m.Validate(); err == nil {
					t.Error("expected validation error")
				}
			})
		}
	})
}
