package tavily

import (
	"context"
	"net/http"
	"time"

	"github.com/cwoolley/metasearch/internal/auth"
	"github.com/cwoolley/metasearch/internal/providers"
)

const (
	DefaultBaseURL = "https://api.tavily.com"
	DefaultTimeout = 15 * time.Second
)

type request struct {
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
}

type response struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Provider queries the Tavily search API. Tavily ignores locale and safe
// search settings.
type Provider struct {
	s      providers.Settings
	client *http.Client
}

func New(s providers.Settings) *Provider {
	s = s.WithDefaults(DefaultBaseURL, DefaultTimeout)
	p := &Provider{s: s, client: s.Client}
	if s.APIKey != "" {
		p.client = auth.BearerClient(context.Background(), s.Client, s.APIKey)
	}
	return p
}

func (p *Provider) ID() providers.ID { return providers.Tavily }

func (p *Provider) Timeout() time.Duration { return p.s.Timeout }

func (p *Provider) Search(ctx context.Context, q providers.Query) ([]providers.Result, error) {
	if p.s.APIKey == "" {
		return nil, providers.ConfigError(providers.Tavily, "TAVILY_API_KEY is not set")
	}

	body := request{
		Query:       q.Text,
		MaxResults:  q.Count,
		SearchDepth: "basic",
	}
	var resp response
	if err := providers.PostJSON(ctx, p.client, providers.Tavily, p.s.BaseURL+"/search", nil, body, &resp); err != nil {
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
