// internal/adapters/gtin/client.go
package gtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/domain"
	"github.com/Gepetto-FIAP/tradebox-sub000/internal/core/ports"
)

// tokenSkew renews the bearer token slightly before the provider's expiry so
// in-flight requests never carry a token about to lapse.
const tokenSkew = 30 * time.Second

// Config for the metadata provider client
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to the public GTIN metadata provider. The bearer token is an
// explicit {value, expiresAt} pair guarded by a mutex: refreshed lazily when
// expired and retried once when the provider rejects it with 401.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
	logger     *slog.Logger

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

var _ ports.MetadataClient = (*Client)(nil)

// NewClient creates a metadata client. The timeout bounds every call,
// including token refresh.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		clientID:   cfg.ClientID,
		secret:     cfg.ClientSecret,
		logger:     logger.With(slog.String("component", "gtin_client")),
	}
}

type providerProduct struct {
	GTIN     string `json:"gtin"`
	Name     string `json:"description"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
	ImageURL string `json:"thumbnail"`
}

// Lookup fetches descriptive metadata for a code. domain.ErrNotFound means
// the provider has no record; anything transport-shaped wraps
// domain.ErrExternalLookup.
func (c *Client) Lookup(ctx context.Context, code string) (*domain.ExternalProduct, error) {
	resp, err := c.get(ctx, code, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var p providerProduct
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", domain.ErrExternalLookup, err)
		}
		return &domain.ExternalProduct{
			GTIN:     code,
			Name:     p.Name,
			Brand:    p.Brand,
			Category: p.Category,
			ImageURL: p.ImageURL,
		}, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: gtin %s", domain.ErrNotFound, code)
	default:
		return nil, fmt.Errorf("%w: provider returned %d", domain.ErrExternalLookup, resp.StatusCode)
	}
}

// get performs the authenticated product request, refreshing the token and
// retrying once when the provider answers 401.
func (c *Client) get(ctx context.Context, code string, retried bool) (*http.Response, error) {
	token, err := c.ensureToken(ctx, false)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/products/%s", c.baseURL, code), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrExternalLookup, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalLookup, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && !retried {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		c.logger.DebugContext(ctx, "token rejected, refreshing once",
			slog.String("code", code))
		if _, err := c.ensureToken(ctx, true); err != nil {
			return nil, err
		}
		return c.get(ctx, code, true)
	}

	return resp, nil
}

// ensureToken returns a valid bearer token, fetching a new one when the
// cached token is absent, expired or force-invalidated.
func (c *Client) ensureToken(ctx context.Context, force bool) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if !force && c.token != "" && time.Now().Add(tokenSkew).Before(c.tokenExpiry) {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.secret,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal token request: %v", domain.ErrExternalLookup, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build token request: %v", domain.ErrExternalLookup, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", domain.ErrExternalLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", domain.ErrExternalLookup, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", domain.ErrExternalLookup, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrExternalLookup)
	}

	c.token = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)

	c.logger.DebugContext(ctx, "bearer token refreshed",
		slog.Time("expires_at", c.tokenExpiry))

	return c.token, nil
}
