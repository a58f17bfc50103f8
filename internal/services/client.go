package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amsctl/internal/auth"
	"github.com/desertthunder/amsctl/internal/models"
	"github.com/desertthunder/amsctl/internal/shared"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 10 << 20

// ClientOptions tunes a [Client]. Zero values select defaults.
type ClientOptions struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second; 0 disables limiting
	Burst     int
	Logger    *log.Logger
}

// Client provides typed access to the artist management API.
type Client struct {
	baseURL  string
	pipeline *auth.Pipeline
	http     *http.Client // authenticated, through the pipeline
	anon     *http.Client // no credentials, for login and registration
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewClient creates a [Client] that authenticates through p.
func NewClient(p *auth.Pipeline, opts ClientOptions) *Client {
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Client{
		baseURL:  p.BaseURL(),
		pipeline: p,
		http:     p.Client(opts.Timeout),
		anon:     &http.Client{Transport: p.Transport(), Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
	}
}

// Pipeline returns the pipeline the client authenticates through.
func (c *Client) Pipeline() *auth.Pipeline { return c.pipeline }

// Register creates an account without an existing session.
func (c *Client) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var user models.User
	if _, err := c.do(ctx, c.anon, http.MethodPost, "/users", nil, in, recordOf("user", &user)); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges an email and password for a credential pair and stores it.
func (c *Client) Login(ctx context.Context, in models.LoginInput) (*models.LoginResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var result models.LoginResult
	resp, err := c.do(ctx, c.anon, http.MethodPost, "/users/login", nil, in, &result)
	if err != nil {
		return nil, err
	}

	if result.RefreshToken == "" {
		for _, ck := range resp.Cookies() {
			if ck.Name == auth.RefreshCookie {
				result.RefreshToken = ck.Value
			}
		}
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response carried no access credential", shared.ErrAuthFailed)
	}

	if _, err := c.pipeline.Login(ctx, result.AccessToken, result.RefreshToken); err != nil {
		return nil, err
	}

	c.logger.Info("logged in", "user", result.User.Email)
	return &result, nil
}

// ListUsers returns one page of users.
func (c *Client) ListUsers(ctx context.Context, page models.PageRequest) (*models.UserList, error) {
	var list models.UserList
	if _, err := c.do(ctx, c.http, http.MethodGet, "/users", page.Query(), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetUser returns the user with id.
func (c *Client) GetUser(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	if _, err := c.do(ctx, c.http, http.MethodGet, "/users/"+strconv.Itoa(id), nil, nil, recordOf("user", &user)); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser registers a user on behalf of the logged in administrator.
func (c *Client) CreateUser(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var user models.User
	if _, err := c.do(ctx, c.http, http.MethodPost, "/users", nil, in, recordOf("user", &user)); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies a partial update to the user with id.
func (c *Client) UpdateUser(ctx context.Context, id int, in models.UserUpdate) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var user models.User
	if _, err := c.do(ctx, c.http, http.MethodPut, "/users/"+strconv.Itoa(id), nil, in, recordOf("user", &user)); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser deletes the user with id.
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	_, err := c.do(ctx, c.http, http.MethodDelete, "/users/"+strconv.Itoa(id), nil, nil, nil)
	return err
}

// ListArtists returns one page of artists.
func (c *Client) ListArtists(ctx context.Context, page models.PageRequest) (*models.ArtistList, error) {
	var list models.ArtistList
	if _, err := c.do(ctx, c.http, http.MethodGet, "/artist", page.Query(), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetArtist returns the artist with id.
func (c *Client) GetArtist(ctx context.Context, id int) (*models.Artist, error) {
	var artist models.Artist
	if _, err := c.do(ctx, c.http, http.MethodGet, "/artist/"+strconv.Itoa(id), nil, nil, recordOf("artist", &artist)); err != nil {
		return nil, err
	}
	return &artist, nil
}

// CreateArtist creates an artist.
func (c *Client) CreateArtist(ctx context.Context, in models.ArtistInput) (*models.Artist, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var artist models.Artist
	if _, err := c.do(ctx, c.http, http.MethodPost, "/artist", nil, in, recordOf("artist", &artist)); err != nil {
		return nil, err
	}
	return &artist, nil
}

// UpdateArtist applies a partial update to the artist with id.
func (c *Client) UpdateArtist(ctx context.Context, id int, in models.ArtistUpdate) (*models.Artist, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var artist models.Artist
	if _, err := c.do(ctx, c.http, http.MethodPut, "/artist/update/"+strconv.Itoa(id), nil, in, recordOf("artist", &artist)); err != nil {
		return nil, err
	}
	return &artist, nil
}

// DeleteArtist deletes the artist with id.
func (c *Client) DeleteArtist(ctx context.Context, id int) error {
	_, err := c.do(ctx, c.http, http.MethodDelete, "/artist/"+strconv.Itoa(id), nil, nil, nil)
	return err
}

// ListMusic returns one page of the tracks of artistID.
func (c *Client) ListMusic(ctx context.Context, artistID int, page models.PageRequest) (*models.MusicList, error) {
	var list models.MusicList
	if _, err := c.do(ctx, c.http, http.MethodGet, "/music/artist/"+strconv.Itoa(artistID), page.Query(), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetMusic returns the track with id.
func (c *Client) GetMusic(ctx context.Context, id int) (*models.Music, error) {
	var music models.Music
	if _, err := c.do(ctx, c.http, http.MethodGet, "/music/"+strconv.Itoa(id), nil, nil, recordOf("music", &music)); err != nil {
		return nil, err
	}
	return &music, nil
}

// CreateMusic adds a track to artistID.
func (c *Client) CreateMusic(ctx context.Context, artistID int, in models.MusicInput) (*models.Music, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var music models.Music
	if _, err := c.do(ctx, c.http, http.MethodPost, "/music/artist/"+strconv.Itoa(artistID), nil, in, recordOf("music", &music)); err != nil {
		return nil, err
	}
	return &music, nil
}

// UpdateMusic replaces the editable fields of the track with id.
func (c *Client) UpdateMusic(ctx context.Context, id int, in models.MusicInput) (*models.Music, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var music models.Music
	if _, err := c.do(ctx, c.http, http.MethodPut, "/music/"+strconv.Itoa(id), nil, in, recordOf("music", &music)); err != nil {
		return nil, err
	}
	return &music, nil
}

// DeleteMusic deletes the track with id.
func (c *Client) DeleteMusic(ctx context.Context, id int) error {
	_, err := c.do(ctx, c.http, http.MethodDelete, "/music/"+strconv.Itoa(id), nil, nil, nil)
	return err
}

// do sends a JSON request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, client *http.Client, method, path string, query url.Values, in, out any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("api call", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, newAPIError(method, path, resp.StatusCode, data)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp, nil
}

// record decodes either {"<key>": {...}} or the bare object.
type record struct {
	key string
	out any
}

func recordOf(key string, out any) *record {
	return &record{key: key, out: out}
}

func (r *record) UnmarshalJSON(data []byte) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err == nil {
		if inner, ok := envelope[r.key]; ok && len(inner) > 0 && inner[0] == '{' {
			return json.Unmarshal(inner, r.out)
		}
		if inner, ok := envelope["data"]; ok && len(inner) > 0 && inner[0] == '{' {
			return json.Unmarshal(inner, r.out)
		}
	}
	return json.Unmarshal(data, r.out)
}
