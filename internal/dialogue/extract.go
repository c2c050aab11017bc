package dialogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/moodmix/internal/models"
)

var (
	// ErrNoPayload means the reply contained neither a fenced block nor a balanced {...} span.
	ErrNoPayload = errors.New("no JSON payload in reply")
	// ErrMalformedPayload means the candidate text was not a JSON object of the expected shape.
	ErrMalformedPayload = errors.New("malformed JSON payload")
	// ErrMissingMood means the payload had no non-empty "mood".
	ErrMissingMood = errors.New("payload has no mood")
	// ErrTrackCount means "tracks" did not hold exactly ten non-empty strings.
	ErrTrackCount = errors.New("payload does not have exactly ten tracks")
)

// fencePattern matches ```json ... ``` or ``` ... ``` blocks.
var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\\r?\\n?(.*?)```")

// ExtractPayload parses the mood payload embedded in a model reply.
//
// Grammar: if the reply contains a fenced code block, the first block is the candidate and the
// rest of the reply is ignored. Otherwise the candidate is the first balanced {...} span, found
// with a scan that ignores braces inside JSON strings.
func ExtractPayload(reply string) (*models.MoodPayload, error) {
	candidate, ok := locatePayload(reply)
	if !ok {
		return nil, ErrNoPayload
	}

	var raw struct {
		Mood   *string   `json:"mood"`
		Tracks *[]string `json:"tracks"`
	}
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if raw.Mood == nil || strings.TrimSpace(*raw.Mood) == "" {
		return nil, ErrMissingMood
	}
	if raw.Tracks == nil {
		return nil, fmt.Errorf("%w: tracks missing", ErrTrackCount)
	}

	tracks := make([]string, 0, len(*raw.Tracks))
	for _, track := range *raw.Tracks {
		if track = strings.TrimSpace(track); track != "" {
			tracks = append(tracks, track)
		}
	}
	if len(tracks) != models.PayloadTrackCount || len(*raw.Tracks) != models.PayloadTrackCount {
		return nil, fmt.Errorf("%w: got %d", ErrTrackCount, len(tracks))
	}

	return &models.MoodPayload{Mood: strings.TrimSpace(*raw.Mood), Tracks: tracks}, nil
}

// locatePayload returns the text to decode, preferring a fenced block.
func locatePayload(reply string) (string, bool) {
	if m := fencePattern.FindStringSubmatch(reply); m != nil {
		block := strings.TrimSpace(m[1])
		if span, ok := firstBalancedSpan(block); ok {
			return span, true
		}
		return block, block != ""
	}
	return firstBalancedSpan(reply)
}

// firstBalancedSpan returns the first {...} span whose braces balance outside string literals.
func firstBalancedSpan(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end, ok := matchBrace(s, start); ok {
			return s[start : end+1], true
		}

		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at open.
func matchBrace(s string, open int) (int, bool) {
	depth := 0
	inString, escaped := false, false

	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
