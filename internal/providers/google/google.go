package google

import (
	"context"
	"time"

	"github.com/cwoolley/metasearch/internal/providers"
)

const DefaultTimeout = 15 * time.Second

// Item is one Custom Search result.
type Item struct {
	Title       string
	Link        string
	Snippet     string
	HTMLSnippet string
}

// Client abstracts the Custom Search API for testability.
type Client interface {
	Search(ctx context.Context, q providers.Query) ([]Item, error)
}

// Provider queries a Google Programmable Search Engine. It needs both an
// API key and the engine id (cx).
type Provider struct {
	client  Client
	timeout time.Duration
	initErr error
}

// New builds a Provider backed by the real API. Settings.Secret holds the
// engine id.
func New(s providers.Settings) *Provider {
	endpoint := s.BaseURL
	s = s.WithDefaults("", DefaultTimeout)
	p := &Provider{timeout: s.Timeout}
	if s.APIKey == "" || s.Secret == "" {
		return p
	}
	client, err := NewAPIClient(context.Background(), s.APIKey, s.Secret, endpoint)
	if err != nil {
		p.initErr = err
		return p
	}
	p.client = client
	return p
}

// NewWithClient builds a Provider around an existing client.
func NewWithClient(client Client, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Provider{client: client, timeout: timeout}
}

func (p *Provider) ID() providers.ID { return providers.Google }

func (p *Provider) Timeout() time.Duration { return p.timeout }

func (p *Provider) Search(ctx context.Context, q providers.Query) ([]providers.Result, error) {
	if p.initErr != nil {
		return nil, providers.ConfigError(providers.Google, "%v", p.initErr)
	}
	if p.client == nil {
		return nil, providers.ConfigError(providers.Google, "GOOGLE_API_KEY and GOOGLE_CSE_ID must both be set")
	}

	items, err := p.client.Search(ctx, q)
	if err != nil {
		return nil, providers.AsError(providers.Google, err)
	}

	results := make([]providers.Result, 0, len(items))
	for _, it := range items {
		if len(results) == q.Count {
			break
		}
		if it.Link == "" && it.Title == "" {
			continue
		}
		results = append(results, providers.Result{
			Title:   providers.CleanText(it.Title),
			Link:    it.Link,
			Snippet: providers.FirstNonEmpty(it.Snippet, it.HTMLSnippet),
		})
	}
	return results, nil
}
