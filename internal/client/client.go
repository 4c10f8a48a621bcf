// Package client is the thin REST surface the validation core consumes.
// It carries no decision logic; retry policy, if any, belongs to the
// caller's transport, never here.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"lcgate/internal/license"
)

// LicenseAPI is the consumed interface over the licensing authority.
// A nil record with a nil error means the license does not exist.
type LicenseAPI interface {
	GetLicenseByKey(ctx context.Context, key string) (*license.Record, error)
	UpdateLicense(ctx context.Context, rec *license.Record) (*license.Record, error)
}

// HTTPClient talks to the authority's REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient overrides the underlying *http.Client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithLogger sets the client's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *HTTPClient) { c.logger = logger }
}

// New creates an authority client.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default().With(slog.String("component", "authority_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetLicenseByKey fetches a license record snapshot by its raw key.
// A 404 from the authority maps to (nil, nil): absence is an expected
// state the validation engine turns into a soft verdict.
func (c *HTTPClient) GetLicenseByKey(ctx context.Context, key string) (*license.Record, error) {
	endpoint := fmt.Sprintf("%s/licenses/%s", c.baseURL, url.PathEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build license fetch request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("license fetch failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var rec license.Record
		if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode license record: %w", err)
		}
		return &rec, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, c.unexpectedStatus(resp)
	}
}

// UpdateLicense pushes the post-validation usage/hardware state back to
// the authority with a PATCH and returns the authority's view of the
// record. Concurrency control across clients is the authority's job; the
// client never locks across network calls.
func (c *HTTPClient) UpdateLicense(ctx context.Context, rec *license.Record) (*license.Record, error) {
	endpoint := fmt.Sprintf("%s/licenses/%s", c.baseURL, url.PathEscape(rec.ID))

	patch := struct {
		Usage    license.Usage             `json:"usage"`
		Hardware []license.HardwareBinding `json:"hardware"`
	}{
		Usage:    rec.Usage,
		Hardware: rec.Hardware,
	}

	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode license update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build license update request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("license update failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.unexpectedStatus(resp)
	}

	var updated license.Record
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return nil, fmt.Errorf("failed to decode updated license record: %w", err)
	}
	return &updated, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *HTTPClient) unexpectedStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	c.logger.Warn("Authority returned unexpected status",
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(body)),
	)
	return fmt.Errorf("authority returned status %d", resp.StatusCode)
}
