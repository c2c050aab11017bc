package tasks

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/registry"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
	th "github.com/desertthunder/moodmix/internal/testing"
)

func clocksCatalog() *th.FakeCatalog {
	return &th.FakeCatalog{Tracks: []models.Candidate{
		th.Track("c1", "Clocks", 80, "Coldplay"),
		th.Track("c2", "Clocks", 95, "Tribute Band"),
		th.Track("c3", "Clocks - Live in Buenos Aires", 60, "Coldplay"),
		th.Track("y1", "Yellow", 85, "Coldplay"),
	}}
}

func newTestResolver(catalog *th.FakeCatalog) (*Resolver, *registry.MemoryRegistry) {
	reg := registry.NewMemoryRegistry(0, 0)
	r := NewResolver(catalog, reg, WithResolverLogger(log.New(io.Discard)))
	return r, reg
}

func TestResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("Clocks - Coldplay", func(t *testing.T) {
		catalog := clocksCatalog()
		r, reg := newTestResolver(catalog)

		uri, ok := r.Resolve(ctx, "Clocks - Coldplay")
		if !ok {
			t.Fatal("expected Clocks - Coldplay to resolve")
		}
		if uri != "spotify:track:c1" {
			t.Errorf("expected the Coldplay recording, got %s", uri)
		}

		queries := catalog.Queries()
		if len(queries) != 1 || queries[0] != `track:"Clocks" artist:"Coldplay"` {
			t.Errorf("expected a single structured search, got %v", queries)
		}

		if claimed, _ := reg.IsClaimed(ctx, uri); !claimed {
			t.Error("accepted uri should be claimed")
		}
		if cached, hit, _ := reg.Lookup(ctx, "Clocks - Coldplay"); !hit || cached != uri {
			t.Error("resolution should be cached under the raw string")
		}
	})

	t.Run("cache is idempotent", func(t *testing.T) {
		catalog := clocksCatalog()
		r, _ := newTestResolver(catalog)

		first, _ := r.Resolve(ctx, "Yellow - Coldplay")
		calls := catalog.SearchCalls()

		second, ok := r.Resolve(ctx, "Yellow - Coldplay")
		if !ok || second != first {
			t.Errorf("expected cached %s, got %s", first, second)
		}
		if catalog.SearchCalls() != calls {
			t.Errorf("cached resolve should not search, got %d extra calls", catalog.SearchCalls()-calls)
		}
	})

	t.Run("claimed uris are never reused", func(t *testing.T) {
		catalog := clocksCatalog()
		r, _ := newTestResolver(catalog)

		first, ok1 := r.Resolve(ctx, "Clocks - Coldplay")
		second, ok2 := r.Resolve(ctx, "clocks - coldplay")
		if !ok1 || !ok2 {
			t.Fatal("expected both spellings to resolve")
		}
		if first == second {
			t.Fatalf("uri %s was returned for two raw strings", first)
		}
		if second != "spotify:track:c3" {
			t.Errorf("expected the live recording, got %s", second)
		}

		if uri, ok := r.Resolve(ctx, "CLOCKS - COLDPLAY"); ok {
			t.Errorf("every Coldplay recording is claimed, got %s", uri)
		}
	})

	t.Run("most popular match wins", func(t *testing.T) {
		catalog := clocksCatalog()
		r, _ := newTestResolver(catalog)

		uri, ok := r.Resolve(ctx, "Clocks")
		if !ok || uri != "spotify:track:c2" {
			t.Errorf("without an artist the most popular title match should win, got %s", uri)
		}
	})

	t.Run("artist must match", func(t *testing.T) {
		catalog := &th.FakeCatalog{Tracks: []models.Candidate{th.Track("c2", "Clocks", 95, "Tribute Band")}}
		r, _ := newTestResolver(catalog)

		if uri, ok := r.Resolve(ctx, "Clocks - Coldplay"); ok {
			t.Errorf("expected a miss, got %s", uri)
		}
		if got := len(catalog.Queries()); got != 5 {
			t.Errorf("expected every strategy to be tried, got %d searches", got)
		}
	})

	t.Run("unusable title never searches", func(t *testing.T) {
		catalog := clocksCatalog()
		r, _ := newTestResolver(catalog)

		for _, raw := range []string{"", "   ", "!!! - Coldplay"} {
			if _, ok := r.Resolve(ctx, raw); ok {
				t.Errorf("Resolve(%q) should miss", raw)
			}
		}
		if catalog.SearchCalls() != 0 {
			t.Errorf("expected no searches, got %d", catalog.SearchCalls())
		}
	})

	t.Run("strategy error falls through", func(t *testing.T) {
		catalog := clocksCatalog()
		catalog.SearchErr = map[string]error{
			`track:"Clocks" artist:"Coldplay"`: shared.ErrServiceUnavailable,
		}
		r, _ := newTestResolver(catalog)

		uri, ok := r.Resolve(ctx, "Clocks - Coldplay")
		if !ok || uri != "spotify:track:c1" {
			t.Errorf("expected title-only strategy to resolve c1, got %s", uri)
		}
		if got := len(catalog.Queries()); got != 2 {
			t.Errorf("expected 2 searches, got %d", got)
		}
	})

	t.Run("cancelled context misses", func(t *testing.T) {
		catalog := clocksCatalog()
		reg := registry.NewMemoryRegistry(0, 0)
		r := NewResolver(catalog, reg, WithRateLimit(100, 1), WithResolverLogger(log.New(io.Discard)))

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if _, ok := r.Resolve(cctx, "Clocks - Coldplay"); ok {
			t.Error("cancelled resolve should miss")
		}
		if catalog.SearchCalls() != 0 {
			t.Errorf("expected no searches, got %d", catalog.SearchCalls())
		}
	})

	t.Run("search options", func(t *testing.T) {
		catalog := &recordingCatalog{FakeCatalog: clocksCatalog()}
		reg := registry.NewMemoryRegistry(0, 0)
		r := NewResolver(catalog, reg, WithSearchLimit(5), WithMarket("ES"), WithResolverLogger(log.New(io.Discard)))

		r.Resolve(ctx, "Yellow - Coldplay")
		if catalog.last.Limit != 5 || catalog.last.Market != "ES" {
			t.Errorf("unexpected search options %+v", catalog.last)
		}
	})
}

func TestStrategies(t *testing.T) {
	tc := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "title and artist",
			raw:  "Clocks - Coldplay",
			want: []string{
				`track:"Clocks" artist:"Coldplay"`,
				`track:"Clocks"`,
				`artist:"Coldplay"`,
				"Clocks Coldplay",
				"clocks coldplay",
			},
		},
		{
			name: "title only",
			raw:  "Clocks",
			want: []string{`track:"Clocks"`, "Clocks", "clocks"},
		},
		{
			name: "duplicates removed",
			raw:  "abc",
			want: []string{`track:"abc"`, "abc"},
		},
		{
			name: "accents folded in last strategy",
			raw:  "Café Tacvba - Eres",
			want: []string{
				`track:"Café Tacvba" artist:"Eres"`,
				`track:"Café Tacvba"`,
				`artist:"Eres"`,
				"Café Tacvba Eres",
				"cafe tacvba eres",
			},
		},
		{
			name: "quotes stripped from field queries",
			raw:  `Say "Hi" - X`,
			want: []string{
				`track:"Say Hi" artist:"X"`,
				`track:"Say Hi"`,
				`artist:"X"`,
				`Say "Hi" X`,
				"say hi x",
			},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := models.ParseTrackQuery(tt.raw)
			if !ok {
				t.Fatalf("ParseTrackQuery(%q) not usable", tt.raw)
			}

			got := Strategies(q)
			if len(got) != len(tt.want) {
				t.Fatalf("Strategies() = %q, want %q", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("strategy %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResolverRegistryErrors(t *testing.T) {
	catalog := clocksCatalog()
	r := NewResolver(catalog, failingRegistry{}, WithResolverLogger(log.New(io.Discard)))

	if uri, ok := r.Resolve(context.Background(), "Clocks - Coldplay"); ok {
		t.Errorf("claims cannot be made, expected a miss, got %s", uri)
	}
	if catalog.SearchCalls() == 0 {
		t.Error("a failing cache lookup should not stop searching")
	}
}

type recordingCatalog struct {
	*th.FakeCatalog
	last services.SearchOptions
}

func (c *recordingCatalog) Search(ctx context.Context, query string, opts services.SearchOptions) ([]models.Candidate, error) {
	c.last = opts
	return c.FakeCatalog.Search(ctx, query, opts)
}

type failingRegistry struct{}

var errRegistry = errors.New("registry down")

func (failingRegistry) Lookup(context.Context, string) (string, bool, error) {
	return "", false, errRegistry
}
func (failingRegistry) Store(context.Context, string, string) error { return errRegistry }
func (failingRegistry) IsClaimed(context.Context, string) (bool, error) {
	return false, nil
}
func (failingRegistry) Claim(context.Context, string, string) (bool, error) {
	return false, errRegistry
}
