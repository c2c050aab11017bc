package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnv reads a dotenv file into the process environment without overriding variables that are already set.
//
// A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ApplyEnv overrides config values from the environment.
//
// Recognised variables: SPOTIFY_ID, SPOTIFY_SECRET, SPOTIFY_REDIRECT_URI, SPOTIFY_MARKET,
// LLM_API_KEY, LLM_BASE_URL, LLM_MODEL, REDIS_URL and MOODMIX_PORT.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set("SPOTIFY_ID", &c.Credentials.Spotify.ClientID)
	set("SPOTIFY_SECRET", &c.Credentials.Spotify.ClientSecret)
	set("SPOTIFY_REDIRECT_URI", &c.Credentials.Spotify.RedirectURI)
	set("SPOTIFY_MARKET", &c.Credentials.Spotify.Market)
	set("LLM_API_KEY", &c.Credentials.LLM.APIKey)
	set("LLM_BASE_URL", &c.Credentials.LLM.BaseURL)
	set("LLM_MODEL", &c.Credentials.LLM.Model)

	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		c.Registry.RedisURL = v
		c.Registry.Backend = "redis"
	}

	if v, ok := lookup("MOODMIX_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
}
