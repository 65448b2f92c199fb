package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nlouis56/vroume/pkg/models"
	"github.com/nlouis56/vroume/pkg/utils"
)

const (
	DefaultAuthURL = "https://accounts.spotify.com/api/token"
	DefaultAPIURL  = "https://api.spotify.com/v1"
)

var ErrMissingCredentials = errors.New("playlist API client id and secret are required")

// Credentials authenticate against the playlist API.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

func (c Credentials) Valid() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// PlaylistClient reads playlist names and tracks with the client-credentials
// flow.
type PlaylistClient struct {
	creds      Credentials
	httpClient *http.Client
	authURL    string
	apiURL     string

	mu     sync.Mutex
	token  string
	expiry time.Time
}

type ClientOption func(*PlaylistClient)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *PlaylistClient) { c.httpClient = h }
}

// WithBaseURLs points the client at another token endpoint and API root.
func WithBaseURLs(authURL, apiURL string) ClientOption {
	return func(c *PlaylistClient) {
		c.authURL = authURL
		c.apiURL = strings.TrimRight(apiURL, "/")
	}
}

func NewPlaylistClient(creds Credentials, opts ...ClientOption) (*PlaylistClient, error) {
	if !creds.Valid() {
		return nil, ErrMissingCredentials
	}
	c := &PlaylistClient{
		creds:      creds,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		authURL:    DefaultAuthURL,
		apiURL:     DefaultAPIURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *PlaylistClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.expiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)

	var tok tokenResponse
	if err := c.do(req, &tok); err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("token response has no access_token")
	}
	c.token = tok.AccessToken
	// Refresh a minute early
	c.expiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *PlaylistClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *PlaylistClient) getJSON(ctx context.Context, endpoint string, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req, out)
}

// PlaylistName returns the display name of a playlist.
func (c *PlaylistClient) PlaylistName(ctx context.Context, playlistID string) (string, error) {
	var p struct {
		Name string `json:"name"`
	}
	endpoint := fmt.Sprintf("%s/playlists/%s?fields=name", c.apiURL, url.PathEscape(playlistID))
	if err := c.getJSON(ctx, endpoint, &p); err != nil {
		return "", fmt.Errorf("playlist %s: %w", playlistID, err)
	}
	return p.Name, nil
}

type trackPage struct {
	Items []struct {
		Track *struct {
			Name       string `json:"name"`
			DurationMs int    `json:"duration_ms"`
			Artists    []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"track"`
	} `json:"items"`
	Next *string `json:"next"`
}

// Tracks follows the paginated track list of a playlist. Every song is
// labelled with genre.
func (c *PlaylistClient) Tracks(ctx context.Context, playlistID, genre string) ([]models.Song, error) {
	next := fmt.Sprintf("%s/playlists/%s/tracks?limit=100", c.apiURL, url.PathEscape(playlistID))
	var songs []models.Song
	for next != "" {
		var page trackPage
		if err := c.getJSON(ctx, next, &page); err != nil {
			return songs, fmt.Errorf("playlist %s tracks: %w", playlistID, err)
		}
		for _, item := range page.Items {
			// Local files and removed tracks come back without metadata
			if item.Track == nil || item.Track.Name == "" || len(item.Track.Artists) == 0 {
				continue
			}
			songs = append(songs, models.Song{
				Title:    item.Track.Name,
				Artist:   item.Track.Artists[0].Name,
				Genre:    genre,
				Duration: float64(item.Track.DurationMs) / 1000,
			})
		}
		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	return songs, nil
}

// PlaylistSongs resolves a playlist link and returns its songs labelled
// with the playlist name.
func (c *PlaylistClient) PlaylistSongs(ctx context.Context, link string) ([]models.Song, error) {
	id, err := utils.ExtractPlaylistID(link)
	if err != nil {
		return nil, err
	}
	name, err := c.PlaylistName(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Tracks(ctx, id, name)
}
