// Package spotifyapi retrieves playlists from the Spotify Web API and
// converts them to the playlist export shape, so fetched playlists load the
// same way as exported ones.
package spotifyapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/joho/godotenv"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

var ErrMissingCredentials = errors.New("missing SPOTIFY_CLIENT_ID or SPOTIFY_CLIENT_SECRET environment variables")

type Config struct {
	ClientID     string
	ClientSecret string
	// RequestsPerSecond bounds page requests; retries inside the transport
	// are not counted.
	RequestsPerSecond float64
	Attempts          uint
	Progress          bool
}

// ConfigFromEnv reads credentials from the environment after loading
// envFile, if it exists.
func ConfigFromEnv(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	cfg := Config{
		ClientID:          os.Getenv("SPOTIFY_CLIENT_ID"),
		ClientSecret:      os.Getenv("SPOTIFY_CLIENT_SECRET"),
		RequestsPerSecond: 2,
		Attempts:          3,
		Progress:          true,
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return Config{}, ErrMissingCredentials
	}
	return cfg, nil
}

type Fetcher struct {
	client   *spotify.Client
	limiter  *rate.Limiter
	attempts uint
	progress bool
}

func New(ctx context.Context, cfg Config) (*Fetcher, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 5
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = 15 * time.Second

	// Token requests and API calls share the retrying transport.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, retryClient.StandardClient())
	config := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	if _, err := config.Token(ctx); err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return &Fetcher{
		client:   spotify.New(config.Client(ctx)),
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		attempts: attempts,
		progress: cfg.Progress,
	}, nil
}

// ParsePlaylistID accepts a bare id, a spotify:playlist: URI or an
// open.spotify.com playlist link.
func ParsePlaylistID(s string) (spotify.ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty playlist id")
	}
	if strings.HasPrefix(s, "spotify:") {
		parts := strings.Split(s, ":")
		if len(parts) != 3 || parts[1] != "playlist" || parts[2] == "" {
			return "", fmt.Errorf("not a playlist uri: %q", s)
		}
		return spotify.ID(parts[2]), nil
	}
	if strings.Contains(s, "/") {
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("parsing playlist link %q: %w", s, err)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < 2 || parts[len(parts)-2] != "playlist" || parts[len(parts)-1] == "" {
			return "", fmt.Errorf("not a playlist link: %q", s)
		}
		return spotify.ID(parts[len(parts)-1]), nil
	}
	return spotify.ID(s), nil
}
