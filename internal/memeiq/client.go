package memeiq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"memeiq_bot/internal/domain"
)

// clientID identifies this bot to the analysis API.
const clientID = "memeiq-telegram-bot"

var (
	// ErrTokenData means the API answered but the payload carried no usable
	// token (ok=false or missing token object). Surfaced as "token not found".
	ErrTokenData = errors.New("token data missing")

	// ErrUnavailable covers transport failures and timeouts.
	ErrUnavailable = errors.New("analysis service unavailable")
)

// StatusError is a non-2xx response from the analysis API.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analysis API returned status %d", e.Status)
}

// Client talks to the MemeIQ analysis API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an analysis API client with a fixed request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type analyzeResponse struct {
	OK    bool                  `json:"ok"`
	Error string                `json:"error"`
	Token *domain.TokenAnalysis `json:"token"`
}

// Analyze fetches the analysis for one token address.
func (c *Client) Analyze(ctx context.Context, address string) (*domain.TokenAnalysis, error) {
	reqURL := fmt.Sprintf("%s/api/analyze?address=%s", c.baseURL, url.QueryEscape(address))

	var out analyzeResponse
	if err := c.getJSON(ctx, reqURL, &out); err != nil {
		return nil, err
	}

	if !out.OK || out.Token == nil {
		if out.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrTokenData, out.Error)
		}
		return nil, ErrTokenData
	}

	if out.Token.Address == "" {
		out.Token.Address = address
	}
	out.Token.Normalize()
	return out.Token, nil
}

type trendingResponse struct {
	OK     bool                   `json:"ok"`
	Tokens []domain.TrendingToken `json:"tokens"`
}

// Trending fetches the current trending token list.
func (c *Client) Trending(ctx context.Context) ([]domain.TrendingToken, error) {
	var out trendingResponse
	if err := c.getJSON(ctx, c.baseURL+"/api/trending", &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, ErrTokenData
	}
	return out.Tokens, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Client", clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenData, err)
	}
	return nil
}
