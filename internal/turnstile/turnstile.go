// Package turnstile verifies Cloudflare Turnstile challenge responses.
package turnstile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Verifier checks a bot-check response token submitted with a form.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
	Action     string   `json:"action"`
}

// Client calls the siteverify endpoint.
type Client struct {
	secret   string
	endpoint string
	http     *http.Client
	log      *zap.Logger
}

var _ Verifier = (*Client)(nil)

// NewClient creates a siteverify client.
func NewClient(secret, endpoint string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		secret:   secret,
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

// Verify returns true only for an explicit success from Cloudflare. Transport
// and decoding failures come back as (false, err); callers fail closed.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("siteverify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("siteverify returned status: %d", resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode siteverify response: %w", err)
	}

	if !body.Success {
		c.log.Info("turnstile rejected token", zap.Strings("error_codes", body.ErrorCodes))
	}
	return body.Success, nil
}
