package dataforseo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cwoolley/metasearch/internal/auth"
	"github.com/cwoolley/metasearch/internal/providers"
)

const (
	DefaultBaseURL = "https://api.dataforseo.com"
	DefaultTimeout = 30 * time.Second

	statusOK = 20000
	// unitedStates is used when the caller's country has no known location code.
	unitedStates = 2840
)

// locationCodes maps ISO 3166-1 alpha-2 countries to DataForSEO location codes.
var locationCodes = map[string]int{
	"us": 2840, "gb": 2826, "ca": 2124, "au": 2036, "de": 2276, "fr": 2250,
	"es": 2724, "it": 2380, "nl": 2528, "br": 2076, "in": 2356, "jp": 2392,
	"mx": 2484, "se": 2752, "pl": 2616, "ie": 2372, "nz": 2554, "sg": 2702,
}

type task struct {
	Keyword      string `json:"keyword"`
	LanguageCode string `json:"language_code"`
	LocationCode int    `json:"location_code"`
	Depth        int    `json:"depth"`
}

type response struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Tasks         []struct {
		StatusCode    int    `json:"status_code"`
		StatusMessage string `json:"status_message"`
		Result        []struct {
			Items []struct {
				Type        string `json:"type"`
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"items"`
		} `json:"result"`
	} `json:"tasks"`
}

// Provider queries Google organic results through the DataForSEO SERP API.
// The live endpoint takes a batch of tasks; Search always posts a batch of one.
type Provider struct {
	s providers.Settings
}

func New(s providers.Settings) *Provider {
	return &Provider{s: s.WithDefaults(DefaultBaseURL, DefaultTimeout)}
}

func (p *Provider) ID() providers.ID { return providers.DataForSEO }

func (p *Provider) Timeout() time.Duration { return p.s.Timeout }

func (p *Provider) Search(ctx context.Context, q providers.Query) ([]providers.Result, error) {
	if p.s.APIKey == "" || p.s.Secret == "" {
		return nil, providers.ConfigError(providers.DataForSEO, "DATAFORSEO_LOGIN and DATAFORSEO_PASSWORD must both be set")
	}

	loc, ok := locationCodes[strings.ToLower(q.Country)]
	if !ok {
		loc = unitedStates
	}
	batch := []task{{
		Keyword:      q.Text,
		LanguageCode: strings.ToLower(q.Language),
		LocationCode: loc,
		Depth:        depth(q.Count),
	}}
	headers := map[string]string{"Authorization": auth.BasicAuthorization(p.s.APIKey, p.s.Secret)}

	var resp response
	endpoint := p.s.BaseURL + "/v3/serp/google/organic/live/advanced"
	if err := providers.PostJSON(ctx, p.s.Client, providers.DataForSEO, endpoint, headers, batch, &resp); err != nil {
		return nil, err
	}
	if resp.StatusCode != statusOK {
		return nil, providers.TransportError(providers.DataForSEO, fmt.Errorf("status %d: %s", resp.StatusCode, resp.StatusMessage))
	}
	if len(resp.Tasks) == 0 {
		return nil, providers.ParseError(providers.DataForSEO, fmt.Errorf("response has no tasks"))
	}
	t := resp.Tasks[0]
	if t.StatusCode != statusOK {
		return nil, providers.TransportError(providers.DataForSEO, fmt.Errorf("task status %d: %s", t.StatusCode, t.StatusMessage))
	}

	results := make([]providers.Result, 0, q.Count)
	for _, r := range t.Result {
		for _, item := range r.Items {
			if len(results) == q.Count {
				return results, nil
			}
			if item.Type != "organic" || item.URL == "" {
				continue
			}
			results = append(results, providers.Result{
				Title:   providers.CleanText(item.Title),
				Link:    item.URL,
				Snippet: providers.CleanText(item.Description),
			})
		}
	}
	return results, nil
}

// depth rounds the requested count up to the API's page granularity of 10.
func depth(n int) int {
	if n <= 10 {
		return 10
	}
	return (n + 9) / 10 * 10
}
