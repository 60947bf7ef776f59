package bing

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cwoolley/metasearch/internal/providers"
)

const (
	DefaultBaseURL = "https://api.bing.microsoft.com/v7.0"
	DefaultTimeout = 10 * time.Second
)

type response struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

// Provider queries the Bing Web Search v7 API.
type Provider struct {
	s providers.Settings
}

func New(s providers.Settings) *Provider {
	return &Provider{s: s.WithDefaults(DefaultBaseURL, DefaultTimeout)}
}

func (p *Provider) ID() providers.ID { return providers.Bing }

func (p *Provider) Timeout() time.Duration { return p.s.Timeout }

func (p *Provider) Search(ctx context.Context, q providers.Query) ([]providers.Result, error) {
	if p.s.APIKey == "" {
		return nil, providers.ConfigError(providers.Bing, "BING_API_KEY is not set")
	}

	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("count", strconv.Itoa(q.Count))
	params.Set("mkt", market(q.Language, q.Country))
	params.Set("responseFilter", "Webpages")
	if q.SafeSearch {
		params.Set("safeSearch", "Strict")
	} else {
		params.Set("safeSearch", "Off")
	}

	headers := map[string]string{"Ocp-Apim-Subscription-Key": p.s.APIKey}
	var resp response
	if err := providers.GetJSON(ctx, p.s.Client, providers.Bing, p.s.BaseURL+"/search?"+params.Encode(), headers, &resp); err != nil {
		return nil, err
	}

	results := make([]providers.Result, 0, q.Count)
	for _, v := range resp.WebPages.Value {
		if len(results) == q.Count {
			break
		}
		if v.URL == "" && v.Name == "" {
			continue
		}
		results = append(results, providers.Result{
			Title:   providers.CleanText(v.Name),
			Link:    v.URL,
			Snippet: providers.CleanText(v.Snippet),
		})
	}
	return results, nil
}

// market builds a Bing market code such as "en-US".
func market(language, country string) string {
	return strings.ToLower(language) + "-" + strings.ToUpper(country)
}
