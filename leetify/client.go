package leetify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public Leetify API.
const DefaultBaseURL = "https://api-public.cs-prod.leetify.com"

// Client talks to the Leetify API with a static bearer token.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient builds a Client. Empty baseURL uses the public API; tests point it at a
// local server.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpc := &http.Client{Timeout: 15 * time.Second}
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		httpc = oauth2.NewClient(context.Background(), src)
		httpc.Timeout = 15 * time.Second
	}
	return &Client{baseURL: baseURL, httpc: httpc}
}

// RecentMatches fetches the player's recent match history, newest first.
func (c *Client) RecentMatches(ctx context.Context, steam64 string) ([]Match, error) {
	var out []Match
	if err := c.get(ctx, "/v3/profile/matches", steam64, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Profile fetches the player's profile summary (winrate and ranks).
func (c *Client) Profile(ctx context.Context, steam64 string) (*Profile, error) {
	var out Profile
	if err := c.get(ctx, "/v3/profile", steam64, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path, steam64 string, out any) error {
	u := c.baseURL + path + "?" + url.Values{"steam64_id": {steam64}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("leetify %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("leetify %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("leetify %s: decode: %w", path, err)
	}
	return nil
}
