// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
)

// FakeChatter is a test double for [services.Chatter].
//
// Respond receives the user text and the 1-based turn number within its session.
type FakeChatter struct {
	Respond func(text string, turn int) (string, error)

	mu       sync.Mutex
	sessions []*FakeChatSession
}

// StartSession records the system prompt and returns a scripted session.
func (f *FakeChatter) StartSession(system string) services.ChatSession {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := &FakeChatSession{System: system, respond: f.Respond}
	f.sessions = append(f.sessions, s)
	return s
}

// Started returns how many sessions were opened.
func (f *FakeChatter) Started() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// Session returns the i-th opened session.
func (f *FakeChatter) Session(i int) *FakeChatSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[i]
}

// FakeChatSession records the messages it received.
type FakeChatSession struct {
	System string

	mu       sync.Mutex
	respond  func(text string, turn int) (string, error)
	messages []string
}

// SendTurn returns the scripted reply; failed turns are not recorded.
func (s *FakeChatSession) SendTurn(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.respond == nil {
		s.messages = append(s.messages, text)
		return "tell me more", nil
	}

	reply, err := s.respond(text, len(s.messages)+1)
	if err != nil {
		return "", err
	}
	s.messages = append(s.messages, text)
	return reply, nil
}

// Messages returns the accepted user messages in order.
func (s *FakeChatSession) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

// FakeCatalog is an in-memory [services.Catalog].
//
// Results maps an exact query to its hits; queries not in Results are answered by filtering
// Tracks with a small subset of Spotify's field syntax (track:"..." and artist:"...").
type FakeCatalog struct {
	Tracks    []models.Candidate
	Results   map[string][]models.Candidate
	SearchErr map[string]error
	CreateErr error
	AddErr    error

	mu       sync.Mutex
	queries  []string
	creates  []string
	added    map[string][]string
	addCalls int
	created  int
}

var fieldPattern = regexp.MustCompile(`(track|artist):"([^"]*)"`)

// Search answers from Results or by filtering Tracks.
func (f *FakeCatalog) Search(ctx context.Context, query string, opts services.SearchOptions) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, query)
	if err := f.SearchErr[query]; err != nil {
		return nil, err
	}

	hits, ok := f.Results[query]
	if !ok {
		hits = f.filter(query)
	}
	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return append([]models.Candidate(nil), hits...), nil
}

func (f *FakeCatalog) filter(query string) []models.Candidate {
	var title, artist string
	fields := fieldPattern.FindAllStringSubmatch(query, -1)
	for _, m := range fields {
		switch m[1] {
		case "track":
			title = m[2]
		case "artist":
			artist = m[2]
		}
	}

	var hits []models.Candidate
	for _, c := range f.Tracks {
		if len(fields) == 0 {
			haystack := shared.Normalize(c.Name + " " + strings.Join(c.Artists, " "))
			if containsAllWords(haystack, shared.Normalize(query)) {
				hits = append(hits, c)
			}
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(title)) {
			continue
		}
		if artist != "" && !anyContains(c.Artists, artist) {
			continue
		}
		hits = append(hits, c)
	}
	return hits
}

// CreatePlaylist records the name and returns a predictable id.
func (f *FakeCatalog) CreatePlaylist(ctx context.Context, name string, opts services.PlaylistOptions) (*services.CreatedPlaylist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates = append(f.creates, name)
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	f.created++
	id := fmt.Sprintf("playlist-%d", f.created)
	return &services.CreatedPlaylist{ID: id, Name: name, URL: "https://open.spotify.com/playlist/" + id}, nil
}

// AddTracks records uris per playlist.
func (f *FakeCatalog) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.addCalls++
	if f.AddErr != nil {
		return f.AddErr
	}
	if f.added == nil {
		f.added = make(map[string][]string)
	}
	f.added[playlistID] = append(f.added[playlistID], uris...)
	return nil
}

// SearchCalls returns how many searches were issued.
func (f *FakeCatalog) SearchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// Queries returns every search query in order.
func (f *FakeCatalog) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// CreateCalls returns how many playlist creations were attempted.
func (f *FakeCatalog) CreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}

// CreatedNames returns the names passed to CreatePlaylist.
func (f *FakeCatalog) CreatedNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.creates...)
}

// AddCalls returns how many AddTracks calls were made.
func (f *FakeCatalog) AddCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addCalls
}

// Added returns the uris added to playlistID.
func (f *FakeCatalog) Added(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.added[playlistID]...)
}

// Track builds a candidate with a URI derived from id.
func Track(id, name string, popularity int, artists ...string) models.Candidate {
	return models.Candidate{URI: "spotify:track:" + id, ID: id, Name: name, Artists: artists, Popularity: popularity}
}

// TenTracks returns ten distinct "Song N - Artist N" strings.
func TenTracks() []string {
	tracks := make([]string, models.PayloadTrackCount)
	for i := range tracks {
		tracks[i] = fmt.Sprintf("Song %d - Artist %d", i+1, i+1)
	}
	return tracks
}

// PayloadReply wraps a ten-track payload for mood in prose and a fenced block.
func PayloadReply(mood string) string {
	quoted := make([]string, 0, models.PayloadTrackCount)
	for _, t := range TenTracks() {
		quoted = append(quoted, fmt.Sprintf("%q", t))
	}
	return fmt.Sprintf("Here you go:\n```json\n{\"mood\": %q, \"tracks\": [%s]}\n```", mood, strings.Join(quoted, ", "))
}

func containsAllWords(haystack, needle string) bool {
	words := strings.Fields(needle)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !strings.Contains(haystack, w) {
			return false
		}
	}
	return true
}

func anyContains(values []string, needle string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), strings.ToLower(needle)) {
			return true
		}
	}
	return false
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
