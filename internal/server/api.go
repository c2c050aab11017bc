package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/tasks"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// CredentialChecker reports whether a Spotify account is linked.
type CredentialChecker interface {
	Linked() bool
}

// HistoryStore reads and removes created playlists.
type HistoryStore interface {
	List(limit int, mood string) ([]*models.PlaylistRecord, error)
	Find(id string) (*models.PlaylistRecord, error)
	Delete(id string) error
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// PlaylistRequest is the body of POST /api/playlists.
type PlaylistRequest struct {
	Mood   string   `json:"mood"`
	Tracks []string `json:"tracks"`
}

// HistoryEntry is one element of GET /api/history.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Sequence   int       `json:"sequence"`
	SpotifyID  string    `json:"spotify_id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Mood       string    `json:"mood"`
	TrackCount int       `json:"track_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// API serves the JSON endpoints.
type API struct {
	engine      tasks.MoodEngine
	credentials CredentialChecker
	history     HistoryStore
	logger      *log.Logger
}

// NewAPI creates the JSON handlers. history may be nil.
func NewAPI(engine tasks.MoodEngine, credentials CredentialChecker, history HistoryStore, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{engine: engine, credentials: credentials, history: history, logger: logger}
}

// Register mounts the API routes on router.
func (a *API) Register(router Router) {
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(a.Health))
	router.Handle(http.MethodPost, "/api/chat", a.requireCredentials(http.HandlerFunc(a.Chat)))
	router.Handle(http.MethodPost, "/api/playlists", a.requireCredentials(http.HandlerFunc(a.CreatePlaylist)))
	router.Handle(http.MethodGet, "/api/history", http.HandlerFunc(a.History))
	router.Handle(http.MethodGet, "/api/history/{id}", http.HandlerFunc(a.ShowHistory))
	router.Handle(http.MethodDelete, "/api/history/{id}", http.HandlerFunc(a.DeleteHistory))
}

// Health answers liveness probes.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Chat runs one conversation turn.
func (a *API) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "user_id and message are required")
		return
	}

	resp, err := a.engine.Chat(r.Context(), req.UserID, req.Message, nil)
	if err != nil {
		a.fail(w, "chat", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreatePlaylist assembles a playlist from an explicit mood and track list.
func (a *API) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req PlaylistRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Mood) == "" || len(req.Tracks) == 0 {
		writeError(w, http.StatusBadRequest, "mood and a non-empty tracks list are required")
		return
	}
	if len(req.Tracks) > models.PayloadTrackCount {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d tracks are allowed", models.PayloadTrackCount))
		return
	}

	result, err := a.engine.CreatePlaylist(r.Context(), req.Mood, req.Tracks, nil)
	if err != nil {
		a.fail(w, "create playlist", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// History lists created playlists. Supports ?limit= and ?mood=.
func (a *API) History(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusNotFound, "history is not enabled")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := a.history.List(limit, r.URL.Query().Get("mood"))
	if err != nil {
		a.logger.Error("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not read playlist history")
		return
	}

	writeJSON(w, http.StatusOK, HistoryEntries(records))
}

// ShowHistory returns one created playlist by record ID or Spotify playlist id.
func (a *API) ShowHistory(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusNotFound, "history is not enabled")
		return
	}

	record, err := a.history.Find(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, "history lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, NewHistoryEntry(record))
}

// DeleteHistory removes a playlist from the history. The Spotify playlist is kept.
func (a *API) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusNotFound, "history is not enabled")
		return
	}

	record, err := a.history.Find(chi.URLParam(r, "id"))
	if err == nil {
		err = a.history.Delete(record.ID())
	}
	if err != nil {
		a.fail(w, "history delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HistoryEntries converts stored records to their JSON shape. The result is never nil.
func HistoryEntries(records []*models.PlaylistRecord) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, NewHistoryEntry(rec))
	}
	return entries
}

// NewHistoryEntry converts one stored record to its JSON shape.
func NewHistoryEntry(rec *models.PlaylistRecord) HistoryEntry {
	return HistoryEntry{
		ID:         rec.ID(),
		Sequence:   rec.Sequence(),
		SpotifyID:  rec.SpotifyID(),
		Name:       rec.Name(),
		URL:        rec.URL(),
		Mood:       rec.Mood(),
		TrackCount: rec.TrackCount(),
		CreatedAt:  rec.CreatedAt(),
	}
}

func (a *API) requireCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.credentials != nil && !a.credentials.Linked() {
			writeError(w, http.StatusUnauthorized, shared.ErrReauthRequired.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// fail maps err to a fixed response. Internal error text is logged, never written.
func (a *API) fail(w http.ResponseWriter, op string, err error) {
	status, msg := StatusFor(err)
	if status >= 500 {
		a.logger.Error(op+" failed", "error", err)
	} else {
		a.logger.Warn(op+" rejected", "error", err)
	}
	writeError(w, status, msg)
}

// StatusFor maps an error to its HTTP status and public message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrReauthRequired):
		return http.StatusUnauthorized, shared.ErrReauthRequired.Error()
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, shared.ErrPlaylistNotFound):
		return http.StatusNotFound, shared.ErrPlaylistNotFound.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream service timed out"
	case errors.Is(err, shared.ErrAPIRequest), errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusBadGateway, "upstream service failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
