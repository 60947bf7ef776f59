package serper

import (
	"context"
	"strings"
	"time"

	"github.com/cwoolley/metasearch/internal/providers"
)

const (
	DefaultBaseURL = "https://google.serper.dev"
	DefaultTimeout = 10 * time.Second
)

type request struct {
	Q   string `json:"q"`
	GL  string `json:"gl,omitempty"`
	HL  string `json:"hl,omitempty"`
	Num int    `json:"num"`
}

type response struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Provider queries Google results through Serper.dev. Serper has no safe
// search switch, so Query.SafeSearch is ignored.
type Provider struct {
	s providers.Settings
}

func New(s providers.Settings) *Provider {
	return &Provider{s: s.WithDefaults(DefaultBaseURL, DefaultTimeout)}
}

func (p *Provider) ID() providers.ID { return providers.Serper }

func (p *Provider) Timeout() time.Duration { return p.s.Timeout }

func (p *Provider) Search(ctx context.Context, q providers.Query) ([]providers.Result, error) {
	if p.s.APIKey == "" {
		return nil, providers.ConfigError(providers.Serper, "SERPER_API_KEY is not set")
	}

	body := request{
		Q:   q.Text,
		GL:  strings.ToLower(q.Country),
		HL:  strings.ToLower(q.Language),
		Num: q.Count,
	}
	headers := map[string]string{"X-API-KEY": p.s.APIKey}

	var resp response
	if err := providers.PostJSON(ctx, p.s.Client, providers.Serper, p.s.BaseURL+"/search", headers, body, &resp); err != nil {
		return nil, err
	}

	results := make([]providers.Result, 0, q.Count)
	for _, r := range resp.Organic {
		if len(results) == q.Count {
			break
		}
		if r.Link == "" && r.Title == "" {
			continue
		}
		results = append(results, providers.Result{
			Title:   providers.CleanText(r.Title),
			Link:    r.Link,
			Snippet: providers.CleanText(r.Snippet),
		})
	}
	return results, nil
}
