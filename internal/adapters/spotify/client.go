package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

const (
	DefaultAPIURL      = "https://api.spotify.com/v1"
	DefaultAccountsURL = "https://accounts.spotify.com"
	DefaultMarket      = "US"
)

// Scopes requested at login.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"user-modify-playback-state",
	"user-read-playback-state",
	"user-top-read",
	"streaming",
}

// Config configures a Client. Zero values fall back to the public endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	APIURL       string
	AccountsURL  string
	Market       string
	MaxRetries   int
	RetryBackoff time.Duration
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// Client is an HTTP client for the Spotify Web API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	market      string
	oauth       *oauth2.Config
	maxRetries  int
	baseBackoff time.Duration
	logger      *zap.Logger
}

// compile-time interface assertion
var _ ports.MusicService = (*Client)(nil)

// NewClient constructs a new Spotify client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	accountsURL := strings.TrimRight(cfg.AccountsURL, "/")
	if accountsURL == "" {
		accountsURL = DefaultAccountsURL
	}
	market := cfg.Market
	if market == "" {
		market = DefaultMarket
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(apiURL, "/"),
		market:     market,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   accountsURL + "/authorize",
				TokenURL:  accountsURL + "/api/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.RetryBackoff,
		logger:      logger.Named("spotify"),
	}
}

// newRequest builds an authenticated API request. body, when non-nil, is
// sent as JSON.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, token string, body any) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("spotify adapter: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	return req, nil
}

// getJSON performs a GET and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, token, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, token, nil)
	if err != nil {
		return err
	}

	resp, err := c.send(req)
	if err != nil {
		return fmt.Errorf("spotify adapter: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spotify adapter: GET %s: %w", path, decodeAPIError(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("spotify adapter: decode %s: %w", path, err)
	}
	return nil
}

// decodeAPIError turns a non-success response into a ports.APIError,
// preferring the message in Spotify's error envelope.
func decodeAPIError(resp *http.Response) *ports.APIError {
	apiErr := &ports.APIError{Status: resp.StatusCode}

	var envelope errorEnvelope
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(body) > 0 && json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		return apiErr
	}
	apiErr.Message = http.StatusText(resp.StatusCode)
	return apiErr
}
