package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Dialogue    DialogueConfig    `toml:"dialogue"`
	Resolver    ResolverConfig    `toml:"resolver"`
	Playlist    PlaylistConfig    `toml:"playlist"`
	Registry    RegistryConfig    `toml:"registry"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	LLM     LLMConfig     `toml:"llm"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	Market       string `toml:"market"`
}

// Configured reports whether both client credentials are present.
func (s SpotifyConfig) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// LLMConfig points at an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DialogueConfig tunes the mood conversation.
type DialogueConfig struct {
	TurnThreshold int      `toml:"turn_threshold"`
	MaxSessions   int      `toml:"max_sessions"`
	SessionTTL    Duration `toml:"session_ttl"`
}

// ResolverConfig tunes catalog searches made while resolving tracks.
type ResolverConfig struct {
	SearchLimit       int     `toml:"search_limit"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// PlaylistConfig controls how generated playlists are named and published.
type PlaylistConfig struct {
	NamePrefix string `toml:"name_prefix"`
	Public     bool   `toml:"public"`
	MinTracks  int    `toml:"min_tracks"`
	MaxTracks  int    `toml:"max_tracks"`
}

// RegistryConfig selects the backend for the resolved-track cache and claimed URIs.
//
// MaxEntries and TTL of zero mean unbounded.
type RegistryConfig struct {
	Backend    string   `toml:"backend"`
	RedisURL   string   `toml:"redis_url"`
	KeyPrefix  string   `toml:"key_prefix"`
	MaxEntries int      `toml:"max_entries"`
	TTL        Duration `toml:"ttl"`
}

// Duration wraps [time.Duration] so it reads and writes as "90s" style strings in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Playlist size limits: a playlist needs at least three matches out of at most ten suggestions.
const (
	minPlaylistTracks = 3
	maxPlaylistTracks = 10
)

// Validate rejects values the rest of the application cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.Dialogue.TurnThreshold < 1:
		return fmt.Errorf("%w: dialogue.turn_threshold must be at least 1", ErrInvalidConfig)
	case c.Resolver.SearchLimit < 1 || c.Resolver.SearchLimit > 50:
		return fmt.Errorf("%w: resolver.search_limit must be between 1 and 50", ErrInvalidConfig)
	case c.Playlist.MinTracks < minPlaylistTracks || c.Playlist.MinTracks > c.Playlist.MaxTracks:
		return fmt.Errorf("%w: playlist.min_tracks must be between %d and playlist.max_tracks", ErrInvalidConfig, minPlaylistTracks)
	case c.Playlist.MaxTracks > maxPlaylistTracks:
		return fmt.Errorf("%w: playlist.max_tracks must be at most %d", ErrInvalidConfig, maxPlaylistTracks)
	}

	switch c.Registry.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: registry.backend must be \"memory\" or \"redis\", got %q", ErrInvalidConfig, c.Registry.Backend)
	}
	return nil
}

// SaveConfig writes the configuration back to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
