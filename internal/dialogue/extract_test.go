package dialogue

import (
	"errors"
	"strings"
	"testing"

	th "github.com/desertthunder/moodmix/internal/testing"
)

func tenQuoted() string {
	quoted := make([]string, 0, 10)
	for _, t := range th.TenTracks() {
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, ",")
}

func TestExtractPayload(t *testing.T) {
	valid := `{"mood": "melancholic", "tracks": [` + tenQuoted() + `]}`

	tc := []struct {
		name     string
		reply    string
		wantMood string
		wantErr  error
	}{
		{name: "bare object", reply: valid, wantMood: "melancholic"},
		{name: "object in prose", reply: "Sure! " + valid + " Enjoy.", wantMood: "melancholic"},
		{name: "json fence", reply: "Here:\n```json\n" + valid + "\n```", wantMood: "melancholic"},
		{name: "plain fence", reply: "```\n" + valid + "```", wantMood: "melancholic"},
		{
			name:     "fence wins over earlier brace span",
			reply:    `I sense {calm}. ` + "```json\n" + `{"mood": "calm", "tracks": [` + tenQuoted() + `]}` + "\n```",
			wantMood: "calm",
		},
		{
			name:     "braces inside strings",
			reply:    `{"mood": "wistful {but} hopeful", "tracks": [` + tenQuoted() + `]}`,
			wantMood: "wistful {but} hopeful",
		},
		{
			name:     "escaped quote inside string",
			reply:    `{"mood": "so \"done\" }", "tracks": [` + tenQuoted() + `]}`,
			wantMood: `so "done" }`,
		},
		{
			name:     "unbalanced prefix skipped",
			reply:    `Feeling { a bit lost ` + valid,
			wantMood: "melancholic",
		},
		{name: "no json", reply: "How are you feeling today?", wantErr: ErrNoPayload},
		{name: "empty", reply: "", wantErr: ErrNoPayload},
		{name: "unterminated", reply: `{"mood": "sad", "tracks": [`, wantErr: ErrNoPayload},
		{name: "malformed", reply: `{"mood": "sad", tracks: []}`, wantErr: ErrMalformedPayload},
		{name: "array not object", reply: "```json\n[1,2,3]\n```", wantErr: ErrMalformedPayload},
		{name: "missing mood", reply: `{"tracks": [` + tenQuoted() + `]}`, wantErr: ErrMissingMood},
		{name: "blank mood", reply: `{"mood": "  ", "tracks": [` + tenQuoted() + `]}`, wantErr: ErrMissingMood},
		{name: "missing tracks", reply: `{"mood": "sad"}`, wantErr: ErrTrackCount},
		{name: "nine tracks", reply: `{"mood": "sad", "tracks": ["a","b","c","d","e","f","g","h","i"]}`, wantErr: ErrTrackCount},
		{name: "eleven tracks", reply: `{"mood": "sad", "tracks": ["a","b","c","d","e","f","g","h","i","j","k"]}`, wantErr: ErrTrackCount},
		{name: "blank track", reply: `{"mood": "sad", "tracks": ["a","b","c","d","e","f","g","h","i"," "]}`, wantErr: ErrTrackCount},
		{name: "wrong track type", reply: `{"mood": "sad", "tracks": [1,2,3,4,5,6,7,8,9,10]}`, wantErr: ErrMalformedPayload},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := ExtractPayload(tt.reply)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if payload != nil {
					t.Error("failed extraction must not return a payload")
				}
				return
			}

			if err != nil {
				t.Fatalf("ExtractPayload() error = %v", err)
			}
			if payload.Mood != tt.wantMood {
				t.Errorf("mood = %q, want %q", payload.Mood, tt.wantMood)
			}
			if len(payload.Tracks) != 10 {
				t.Errorf("expected 10 tracks, got %d", len(payload.Tracks))
			}
		})
	}
}

func TestFirstBalancedSpan(t *testing.T) {
	tc := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: `a {"x": {"y": 1}} b {"z": 2}`, want: `{"x": {"y": 1}}`, ok: true},
		{in: `{"s": "}"}`, want: `{"s": "}"}`, ok: true},
		{in: `no braces`, ok: false},
		{in: `{ open`, ok: false},
	}

	for _, tt := range tc {
		got, ok := firstBalancedSpan(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("firstBalancedSpan(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt(4)
	for _, want := range []string{"sent 4 messages", "exactly 10", `"mood"`, `"tracks"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt should mention %q", want)
		}
	}
}
