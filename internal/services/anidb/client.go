package anidb

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// banMarker is the literal body AniDB serves once a client is banned
const banMarker = "banned"

// Config holds configuration for the AniDB HTTP API client
type Config struct {
	Endpoint      string
	TitlesDumpURL string

	Client        string
	ClientVersion int
	ProtoVersion  int
	UserAgent     string

	Timeout         time.Duration // Default: 30s
	RequestInterval time.Duration // Default: 3s, AniDB's published minimum
	TitlesDumpTTL   time.Duration // Default: 24h
}

// Client is the gate in front of the AniDB HTTP API. Every outbound
// request passes the persisted ban check, the session budget, and the
// inter-request rate limiter, in that order.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	session     *Session
	config      Config
}

// NewClient creates a new AniDB API client around a persisted session
func NewClient(cfg Config, session *Session) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://api.anidb.net:9001/httpapi"
	}
	if cfg.TitlesDumpURL == "" {
		cfg.TitlesDumpURL = "http://anidb.net/api/anime-titles.xml.gz"
	}
	if cfg.Client == "" {
		cfg.Client = "fadbs"
	}
	if cfg.ClientVersion == 0 {
		cfg.ClientVersion = 2
	}
	if cfg.ProtoVersion == 0 {
		cfg.ProtoVersion = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "anidb-cache/1.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestInterval == 0 {
		cfg.RequestInterval = 3 * time.Second
	}
	if cfg.TitlesDumpTTL == 0 {
		cfg.TitlesDumpTTL = 24 * time.Hour
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		session:     session,
		config:      cfg,
	}
}

// Session exposes the underlying session for budget checks
func (c *Client) Session() *Session {
	return c.session
}

// IsBanned reports the persisted ban state
func (c *Client) IsBanned() bool {
	return c.session.IsBanned()
}

// CanRequest reports whether the session budget permits a fetch
func (c *Client) CanRequest() bool {
	return c.session.CanRequest()
}

// FetchSeries retrieves the raw XML document for one series. The ban
// check happens before anything touches the network.
func (c *Client) FetchSeries(ctx context.Context, aniDBID int) ([]byte, error) {
	if until := c.session.BannedUntil(); until != nil {
		return nil, fmt.Errorf("%w until %s", ErrBanned, until.UTC().Format(time.RFC3339))
	}
	if !c.session.CanRequest() {
		return nil, ErrBudgetExhausted
	}

	params := url.Values{}
	params.Set("client", c.config.Client)
	params.Set("clientver", strconv.Itoa(c.config.ClientVersion))
	params.Set("protover", strconv.Itoa(c.config.ProtoVersion))
	params.Set("request", "anime")
	params.Set("aid", strconv.Itoa(aniDBID))

	requestURL := c.config.Endpoint + "?" + params.Encode()

	body, err := c.doRequest(ctx, requestURL)
	if err != nil {
		return nil, fmt.Errorf("fetching series %d: %w", aniDBID, err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyDocument
	}

	// A ban arrives as a well-formed 200 with a marker body
	if string(bytes.TrimSpace(body)) == banMarker {
		if err := c.session.SetBanned(); err != nil {
			return nil, fmt.Errorf("persisting ban state: %w", err)
		}
		return nil, ErrBanned
	}

	if err := c.session.RecordRequest(); err != nil {
		return nil, fmt.Errorf("persisting session state: %w", err)
	}

	return body, nil
}

// FetchTitlesDump retrieves the bulk anime-titles dump used to seed the
// search index. AniDB allows this at most once per day; stale-enough
// checks live in TitlesDumpDue.
func (c *Client) FetchTitlesDump(ctx context.Context) ([]byte, error) {
	if until := c.session.BannedUntil(); until != nil {
		return nil, fmt.Errorf("%w until %s", ErrBanned, until.UTC().Format(time.RFC3339))
	}

	body, err := c.doRequest(ctx, c.config.TitlesDumpURL)
	if err != nil {
		return nil, fmt.Errorf("fetching titles dump: %w", err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyDocument
	}

	// The dump is served gzipped; tolerate an uncompressed body too
	if len(body) > 2 && body[0] == 0x1f && body[1] == 0x8b {
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("decompressing titles dump: %w", err)
		}
		defer reader.Close()
		body, err = io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("decompressing titles dump: %w", err)
		}
	}

	if err := c.session.RecordTitlesDump(); err != nil {
		return nil, fmt.Errorf("persisting session state: %w", err)
	}

	return body, nil
}

// TitlesDumpDue reports whether the dump may be refreshed again
func (c *Client) TitlesDumpDue() bool {
	return c.session.TitlesDumpDue(c.config.TitlesDumpTTL)
}

func (c *Client) doRequest(ctx context.Context, requestURL string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, StatusError{Code: resp.StatusCode, URL: requestURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return body, nil
}
