package searxng

import (
	"context"
	"net/url"
	"time"

	"github.com/cwoolley/metasearch/internal/providers"
)

const DefaultTimeout = 15 * time.Second

type response struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Provider queries a self-hosted SearXNG instance. The instance URL is the
// credential: without it the provider is unconfigured.
type Provider struct {
	s providers.Settings
}

func New(s providers.Settings) *Provider {
	return &Provider{s: s.WithDefaults("", DefaultTimeout)}
}

func (p *Provider) ID() providers.ID { return providers.SearXNG }

func (p *Provider) Timeout() time.Duration { return p.s.Timeout }

func (p *Provider) Search(ctx context.Context, q providers.Query) ([]providers.Result, error) {
	if p.s.BaseURL == "" {
		return nil, providers.ConfigError(providers.SearXNG, "SEARXNG_URL is not set")
	}

	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("format", "json")
	params.Set("language", q.Language)
	params.Set("pageno", "1")
	if q.SafeSearch {
		params.Set("safesearch", "2")
	} else {
		params.Set("safesearch", "0")
	}

	var resp response
	if err := providers.GetJSON(ctx, p.s.Client, providers.SearXNG, p.s.BaseURL+"/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	results := make([]providers.Result, 0, q.Count)
	for _, r := range resp.Results {
		if len(results) == q.Count {
			break
		}
		if r.URL == "" && r.Title == "" {
			continue
		}
		results = append(results, providers.Result{
			Title:   providers.CleanText(r.Title),
			Link:    r.URL,
			Snippet: providers.CleanText(r.Content),
		})
	}
	return results, nil
}
