// Package odds fetches posted market lines from an odds board API.
package odds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

const (
	defaultRateLimit = 2.0 // requests per second, board terms of use
	defaultBurst     = 2
)

// Client is a rate-limited odds board client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets custom rate limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates an odds board client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// lineEntry is one spread quote on the board.
type lineEntry struct {
	GameID     string    `json:"game_id"`
	Side       string    `json:"side"`
	Line       float64   `json:"line"`
	Price      int       `json:"price"`
	Book       string    `json:"book"`
	CapturedAt time.Time `json:"captured_at"`
}

// Spreads fetches the current spread for every listed game in a league.
func (c *Client) Spreads(ctx context.Context, league model.League) ([]model.MarketLine, error) {
	params := url.Values{}
	params.Set("league", string(league))
	params.Set("market", "spread")

	var entries []lineEntry
	if err := c.get(ctx, "/v1/lines", params, &entries); err != nil {
		return nil, err
	}

	out := make([]model.MarketLine, 0, len(entries))
	for _, e := range entries {
		out = append(out, model.MarketLine{
			GameID:     e.GameID,
			Side:       model.Side(e.Side),
			Line:       e.Line,
			Price:      e.Price,
			Book:       e.Book,
			CapturedAt: e.CapturedAt,
		})
	}
	return out, nil
}

// GameSpread fetches the current spread for one game.
func (c *Client) GameSpread(ctx context.Context, gameID string) (model.MarketLine, error) {
	params := url.Values{}
	params.Set("market", "spread")

	var entry lineEntry
	if err := c.get(ctx, "/v1/games/"+url.PathEscape(gameID)+"/line", params, &entry); err != nil {
		return model.MarketLine{}, err
	}
	if entry.GameID == "" {
		return model.MarketLine{}, model.NotFound("market line", gameID)
	}
	return model.MarketLine{
		GameID:     entry.GameID,
		Side:       model.Side(entry.Side),
		Line:       entry.Line,
		Price:      entry.Price,
		Book:       entry.Book,
		CapturedAt: entry.CapturedAt,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("odds API %s returned %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
