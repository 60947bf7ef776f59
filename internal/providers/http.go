package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// UserAgent is sent on every outbound provider request.
	UserAgent = "metasearch/1.0"

	maxBodyBytes = 4 << 20
)

// Settings configures a single adapter. Zero values fall back to the
// adapter's defaults.
type Settings struct {
	APIKey string
	// Secret is the second half of a two-part credential: the Google
	// engine id or the DataForSEO password.
	Secret  string
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// WithDefaults fills the base URL, timeout and HTTP client when unset.
func (s Settings) WithDefaults(baseURL string, timeout time.Duration) Settings {
	if s.BaseURL == "" {
		s.BaseURL = baseURL
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	if s.Timeout <= 0 {
		s.Timeout = timeout
	}
	if s.Client == nil {
		s.Client = NewHTTPClient(s.Timeout)
	}
	return s
}

// NewHTTPClient returns a traced client bounded by timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// GetJSON issues one GET and decodes a 2xx JSON body into out.
func GetJSON(ctx context.Context, client *http.Client, id ID, endpoint string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ConfigError(id, "build request: %v", err)
	}
	return do(client, id, req, headers, out)
}

// PostJSON issues one POST with a JSON payload and decodes a 2xx JSON body
// into out.
func PostJSON(ctx context.Context, client *http.Client, id ID, endpoint string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Provider: id, Kind: KindInternal, Err: fmt.Errorf("encode request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return ConfigError(id, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(client, id, req, headers, out)
}

func do(client *http.Client, id ID, req *http.Request, headers map[string]string, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return TransportError(id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return TransportError(id, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TransportError(id, fmt.Errorf("http %d: %s", resp.StatusCode, Truncate(strings.TrimSpace(string(body)), 200)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return ParseError(id, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
