// Package woocommerce is a minimal client for the WooCommerce REST API,
// authenticated with a consumer key/secret pair sent as HTTP Basic
// credentials. It implements storage.SubscriptionStore over the store's
// webhook endpoints.
package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shaharia-lab/webhookd/internal/build"
)

// DefaultAPIVersion is used when Config.Version is empty.
const DefaultAPIVersion = "v3"

// Config holds the storefront connection parameters.
type Config struct {
	StoreURL       string
	ConsumerKey    string
	ConsumerSecret string
	Version        string
}

// APIError is returned for any non-2xx response. Code is the WooCommerce
// error code from the JSON body and is empty when the body is not JSON.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// codeNoRoute is what WordPress answers when no REST route matches, e.g. a
// wrong store URL or disabled pretty permalinks.
const codeNoRoute = "rest_no_route"

// isMissingItem reports whether err is a 404 naming an unknown resource, as
// opposed to a 404 for the route itself.
func isMissingItem(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		apiErr.StatusCode == http.StatusNotFound &&
		apiErr.Code != "" && apiErr.Code != codeNoRoute
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("woocommerce API error: %d - %s", e.StatusCode, msg)
}

// Client issues authenticated requests against /wp-json/wc/<version>/.
type Client struct {
	baseURL string
	key     string
	secret  string
	http    *http.Client
}

// NewClient validates cfg and returns a Client using httpClient for transport.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, errors.New("woocommerce: store URL is required")
	}
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, errors.New("woocommerce: consumer key and secret are required")
	}
	u, err := url.Parse(cfg.StoreURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("woocommerce: invalid store URL %q", cfg.StoreURL)
	}
	version := cfg.Version
	if version == "" {
		version = DefaultAPIVersion
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.StoreURL, "/") + "/wp-json/wc/" + version + "/",
		key:     cfg.ConsumerKey,
		secret:  cfg.ConsumerSecret,
		http:    httpClient,
	}, nil
}

// do sends a JSON request to endpoint (relative to the versioned base) and
// decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", build.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("woocommerce %s %s: %w", method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)); readErr == nil {
			if json.Unmarshal(data, &payload) == nil {
				apiErr.Code = payload.Code
				apiErr.Message = payload.Message
			}
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding woocommerce response: %w", err)
	}
	return nil
}
