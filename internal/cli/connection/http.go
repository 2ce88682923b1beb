package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// UserAgent is sent with every request.
const UserAgent = "shardkv-cli/1.0"

// Envelope is the response body shape shared by every JSON endpoint.
type Envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// APIError is an error envelope returned by the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
	Details    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// DecodeDetails unmarshals the error details into v. It reports false when
// the server sent none.
func (e *APIError) DecodeDetails(v any) bool {
	if len(e.Details) == 0 || string(e.Details) == "null" {
		return false
	}
	return json.Unmarshal(e.Details, v) == nil
}

// IsStatus reports whether err is an *APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	server  string
	baseURL string
	client  *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTLSConfig makes the client verify the server with cfg. It installs a
// fresh transport, so it should come after WithHTTPClient.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *HTTPClient) {
		if cfg == nil {
			return
		}
		c.client.Transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     cfg,
			TLSHandshakeTimeout: 10 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}
}

// UnixScheme prefixes a server address that names a Unix socket, as in
// unix:///run/shardkv/admin.sock.
const UnixScheme = "unix://"

// NewHTTPClient creates a client for server, which may be a bare host:port,
// a full http(s) URL or a unix:// socket path.
func NewHTTPClient(server string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		server: strings.TrimRight(server, "/"),
		client: &http.Client{Timeout: DefaultTimeout},
	}

	switch {
	case strings.HasPrefix(server, UnixScheme):
		c.server = server
		c.baseURL = "http://shardkv"
		c.client.Transport = unixTransport(strings.TrimPrefix(server, UnixScheme))
	case strings.HasPrefix(c.server, "http://"), strings.HasPrefix(c.server, "https://"):
		c.baseURL = c.server
	default:
		c.server = "http://" + c.server
		c.baseURL = c.server
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// unixTransport dials path for every request regardless of the URL host.
func unixTransport(path string) *http.Transport {
	return &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		},
		MaxIdleConns:    4,
		IdleConnTimeout: 30 * time.Second,
	}
}

// Server returns the server address in a form NewHTTPClient accepts.
func (c *HTTPClient) Server() string {
	return c.server
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request and decodes data into out.
func (c *HTTPClient) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put performs a PUT request with a JSON body.
func (c *HTTPClient) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete performs a DELETE request. body may be nil.
func (c *HTTPClient) Delete(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodDelete, path, body, out)
}

// Do sends a request and parses the response envelope.
//
// On 2xx the envelope's data is decoded into out when out is non-nil; a 204
// leaves out untouched. Any other status yields an *APIError.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	return ParseResponse(resp, out)
}

// Status performs a request and returns only the HTTP status code, for
// callers that branch on success statuses such as 200 versus 204.
func (c *HTTPClient) Status(ctx context.Context, method, path string, body, out any) (int, error) {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return 0, err
	}
	status := resp.StatusCode
	return status, ParseResponse(resp, out)
}

func (c *HTTPClient) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// ParseResponse reads an envelope from resp and closes its body.
func ParseResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env Envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
			apiErr.RequestID = env.RequestID
			apiErr.Details = env.Details
		}
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}

// KeyPath returns the request path addressing a single key. The key is
// escaped as one path segment, so slashes in it survive the round trip.
func KeyPath(key string) string {
	return "/kv/" + url.PathEscape(key)
}
