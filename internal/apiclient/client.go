package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cwoolley/metasearch/internal/search"
)

// DefaultMaxRetries bounds retries after the first attempt.
const DefaultMaxRetries = 2

// newBackOff is overridden in tests to avoid real sleeps.
var newBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	return b
}

// Client calls a remote metasearch HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
}

// New creates a Client targeting the given base URL.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		maxRetries: DefaultMaxRetries,
	}
}

// StatusError is a non-200 answer from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return e.Message
}

// Search queries the /search endpoint. Connection failures and 5xx answers
// are retried with exponential backoff; 4xx answers are returned at once.
func (c *Client) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	u, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	u.RawQuery = encode(req).Encode()

	var out *search.Response
	op := func() error {
		resp, err := c.do(ctx, u.String())
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		out = resp
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, endpoint string) (*search.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	var out search.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func encode(req search.Request) url.Values {
	params := url.Values{}
	params.Set("q", req.Query)
	if len(req.Providers) > 0 {
		ids := make([]string, len(req.Providers))
		for i, id := range req.Providers {
			ids[i] = string(id)
		}
		params.Set("apis", strings.Join(ids, ","))
	}
	if req.ResultsPerProvider > 0 {
		params.Set("num_results", strconv.Itoa(req.ResultsPerProvider))
	}
	if req.Language != "" {
		params.Set("language", req.Language)
	}
	if req.Country != "" {
		params.Set("country", req.Country)
	}
	if req.Vertical != "" {
		params.Set("vertical", string(req.Vertical))
	}
	params.Set("safe_search", strconv.FormatBool(req.SafeSearch))
	params.Set("summarize", strconv.FormatBool(req.WantSummary))
	return params
}
