package serpapi

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cwoolley/metasearch/internal/providers"
)

const (
	DefaultBaseURL = "https://serpapi.com"
	DefaultTimeout = 20 * time.Second

	// noResults is how SerpApi reports an empty result page in its error field.
	noResults = "hasn't returned any results"
)

type response struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		// SerpApi sometimes only fills the highlighted variant.
		SnippetHighlightedWords []string `json:"snippet_highlighted_words"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

// Provider queries Google results through SerpApi.
type Provider struct {
	s providers.Settings
}

func New(s providers.Settings) *Provider {
	return &Provider{s: s.WithDefaults(DefaultBaseURL, DefaultTimeout)}
}

func (p *Provider) ID() providers.ID { return providers.SerpAPI }

func (p *Provider) Timeout() time.Duration { return p.s.Timeout }

func (p *Provider) Search(ctx context.Context, q providers.Query) ([]providers.Result, error) {
	if p.s.APIKey == "" {
		return nil, providers.ConfigError(providers.SerpAPI, "SERPAPI_API_KEY is not set")
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", q.Text)
	params.Set("num", strconv.Itoa(q.Count))
	params.Set("hl", q.Language)
	params.Set("gl", q.Country)
	params.Set("api_key", p.s.APIKey)
	if q.SafeSearch {
		params.Set("safe", "active")
	} else {
		params.Set("safe", "off")
	}

	var resp response
	if err := providers.GetJSON(ctx, p.s.Client, providers.SerpAPI, p.s.BaseURL+"/search.json?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" && len(resp.OrganicResults) == 0 && !strings.Contains(resp.Error, noResults) {
		return nil, providers.TransportError(providers.SerpAPI, errors.New(resp.Error))
	}

	results := make([]providers.Result, 0, q.Count)
	for _, r := range resp.OrganicResults {
		if len(results) == q.Count {
			break
		}
		if r.Link == "" && r.Title == "" {
			continue
		}
		snippet := r.Snippet
		if snippet == "" && len(r.SnippetHighlightedWords) > 0 {
			snippet = r.SnippetHighlightedWords[0]
		}
		results = append(results, providers.Result{
			Title:   providers.CleanText(r.Title),
			Link:    r.Link,
			Snippet: providers.CleanText(snippet),
		})
	}
	return results, nil
}
