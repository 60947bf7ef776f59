package brave

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/cwoolley/metasearch/internal/providers"
)

const (
	DefaultBaseURL = "https://api.search.brave.com/res/v1"
	DefaultTimeout = 10 * time.Second
)

type item struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Description   string   `json:"description"`
	ExtraSnippets []string `json:"extra_snippets"`
}

// response covers every vertical: web nests its items under "web", the
// image, news and video endpoints return them at the top level.
type response struct {
	Web struct {
		Results []item `json:"results"`
	} `json:"web"`
	Results []item `json:"results"`
}

// Provider queries the Brave Search API, one vertical endpoint per call.
type Provider struct {
	s providers.Settings
}

func New(s providers.Settings) *Provider {
	return &Provider{s: s.WithDefaults(DefaultBaseURL, DefaultTimeout)}
}

func (p *Provider) ID() providers.ID { return providers.Brave }

func (p *Provider) Timeout() time.Duration { return p.s.Timeout }

func (p *Provider) Search(ctx context.Context, q providers.Query) ([]providers.Result, error) {
	if p.s.APIKey == "" {
		return nil, providers.ConfigError(providers.Brave, "BRAVE_API_KEY is not set")
	}

	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("count", strconv.Itoa(q.Count))
	params.Set("country", q.Country)
	params.Set("search_lang", q.Language)
	if q.SafeSearch {
		params.Set("safesearch", "strict")
	} else {
		params.Set("safesearch", "off")
	}

	vertical := q.Vertical
	if !vertical.Known() {
		vertical = providers.VerticalWeb
	}

	headers := map[string]string{"X-Subscription-Token": p.s.APIKey}
	endpoint := p.s.BaseURL + "/" + string(vertical) + "/search?" + params.Encode()
	var resp response
	if err := providers.GetJSON(ctx, p.s.Client, providers.Brave, endpoint, headers, &resp); err != nil {
		return nil, err
	}

	items := resp.Web.Results
	if vertical != providers.VerticalWeb {
		items = resp.Results
	}

	results := make([]providers.Result, 0, q.Count)
	for _, r := range items {
		if len(results) == q.Count {
			break
		}
		if r.URL == "" && r.Title == "" {
			continue
		}
		var extra string
		if len(r.ExtraSnippets) > 0 {
			extra = r.ExtraSnippets[0]
		}
		results = append(results, providers.Result{
			Title:   providers.CleanText(r.Title),
			Link:    r.URL,
			Snippet: providers.FirstNonEmpty(r.Description, extra),
		})
	}
	return results, nil
}
