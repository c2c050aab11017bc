package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultNamePrefix = "Moodmix"
	DefaultMinTracks  = 3
	DefaultMaxTracks  = models.PayloadTrackCount
)

// TrackResolver resolves one raw suggestion. [Resolver] is the production implementation.
type TrackResolver interface {
	Resolve(ctx context.Context, raw string) (uri string, ok bool)
}

// PlaylistRecorder persists created playlists. Failures are logged and never fail assembly.
type PlaylistRecorder interface {
	Create(record *models.PlaylistRecord) error
}

// AssemblerOption customises an Assembler.
type AssemblerOption func(*Assembler)

// WithNamePrefix sets the text before the date in playlist names.
func WithNamePrefix(prefix string) AssemblerOption {
	return func(a *Assembler) {
		if strings.TrimSpace(prefix) != "" {
			a.namePrefix = strings.TrimSpace(prefix)
		}
	}
}

// WithTrackBounds sets the minimum resolved tracks for success and the maximum accepted.
//
// The maximum never exceeds [models.PayloadTrackCount].
func WithTrackBounds(minTracks, maxTracks int) AssemblerOption {
	return func(a *Assembler) {
		if minTracks > 0 {
			a.minTracks = minTracks
		}
		if maxTracks >= a.minTracks && maxTracks <= models.PayloadTrackCount {
			a.maxTracks = maxTracks
		}
	}
}

// WithPublic creates public playlists.
func WithPublic(public bool) AssemblerOption {
	return func(a *Assembler) {
		a.public = public
	}
}

// WithRecorder stores a history record for each created playlist.
func WithRecorder(recorder PlaylistRecorder) AssemblerOption {
	return func(a *Assembler) {
		a.recorder = recorder
	}
}

// WithClock overrides the time source used for playlist names.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// WithAssemblerLogger sets the assembler logger.
func WithAssemblerLogger(logger *log.Logger) AssemblerOption {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Assembler turns a mood and raw suggestions into a catalog playlist.
type Assembler struct {
	resolver   TrackResolver
	catalog    services.Catalog
	recorder   PlaylistRecorder
	namePrefix string
	minTracks  int
	maxTracks  int
	public     bool
	now        func() time.Time
	logger     *log.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(resolver TrackResolver, catalog services.Catalog, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		resolver:   resolver,
		catalog:    catalog,
		namePrefix: DefaultNamePrefix,
		minTracks:  DefaultMinTracks,
		maxTracks:  DefaultMaxTracks,
		now:        time.Now,
		logger:     shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MaxTracks returns the largest track list Assemble accepts.
func (a *Assembler) MaxTracks() int {
	return a.maxTracks
}

// PlaylistName returns the deterministic name for a playlist created at t.
func (a *Assembler) PlaylistName(t time.Time) string {
	return fmt.Sprintf("%s %s", a.namePrefix, t.Format("2006-01-02"))
}

// Assemble resolves raws concurrently and creates a playlist from the matches.
//
// Too few matches is reported as a result with Success false and makes no catalog write.
// Catalog write errors are returned wrapped in [shared.ErrAPIRequest].
func (a *Assembler) Assemble(ctx context.Context, mood string, raws []string, progress chan<- ProgressUpdate) (*models.PlaylistResult, error) {
	mood = strings.TrimSpace(mood)
	if mood == "" {
		return nil, fmt.Errorf("%w: mood is required", shared.ErrInvalidInput)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: at least one track is required", shared.ErrInvalidInput)
	}
	if len(raws) > a.maxTracks {
		return nil, fmt.Errorf("%w: at most %d tracks, got %d", shared.ErrInvalidInput, a.maxTracks, len(raws))
	}

	total := len(raws)
	sendProgress(progress, resolvingUpdate(total, mood))

	uris := make([]string, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(total)
	for i, raw := range raws {
		g.Go(func() error {
			uri, ok := a.resolver.Resolve(gctx, raw)
			if ok {
				uris[i] = uri
			}
			sendProgress(progress, resolvedUpdate(i+1, total, raw, ok))
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolved := make([]models.ResolvedTrack, 0, total)
	for i, uri := range uris {
		if uri == "" {
			continue
		}
		resolved = append(resolved, models.ResolvedTrack{Raw: raws[i], URI: uri})
	}

	result := &models.PlaylistResult{
		Mood:       mood,
		Requested:  total,
		TrackCount: len(resolved),
		Tracks:     resolved,
	}

	if len(resolved) < a.minTracks {
		result.Message = fmt.Sprintf("only %d of %d tracks could be found on Spotify, at least %d are needed", len(resolved), total, a.minTracks)
		a.logger.Info("playlist not created", "mood", mood, "resolved", len(resolved), "requested", total)
		return result, nil
	}

	name := a.PlaylistName(a.now())
	sendProgress(progress, createPlaylistUpdate(name))

	created, err := a.catalog.CreatePlaylist(ctx, name, services.PlaylistOptions{
		Public:      a.public,
		Description: fmt.Sprintf("A %s playlist by moodmix", mood),
	})
	if err != nil {
		a.logger.Error("create playlist failed", "name", name, "error", err)
		return nil, fmt.Errorf("%w: create playlist: %w", shared.ErrAPIRequest, err)
	}

	trackURIs := make([]string, len(resolved))
	for i, t := range resolved {
		trackURIs[i] = t.URI
	}

	sendProgress(progress, addTracksUpdate(len(trackURIs)))
	if err := a.catalog.AddTracks(ctx, created.ID, trackURIs); err != nil {
		a.logger.Error("add tracks failed", "playlist", created.ID, "error", err)
		return nil, fmt.Errorf("%w: add tracks: %w", shared.ErrAPIRequest, err)
	}

	result.Success = true
	result.Message = fmt.Sprintf("created %s with %d of %d tracks", created.Name, len(resolved), total)
	result.PlaylistID = created.ID
	result.URL = created.URL
	result.Name = created.Name
	a.logger.Info("playlist created", "id", created.ID, "mood", mood, "tracks", len(resolved))
	sendProgress(progress, playlistCreatedUpdate(result))

	if a.recorder != nil {
		if err := a.recorder.Create(models.NewPlaylistRecord(*result, a.now())); err != nil {
			a.logger.Warn("failed to record playlist", "id", created.ID, "error", err)
			sendProgress(progress, recordFailedUpdate(err))
		}
	}

	return result, nil
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
