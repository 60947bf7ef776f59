package duckduckgo

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/cwoolley/metasearch/internal/providers"
)

const (
	DefaultBaseURL = "https://api.duckduckgo.com"
	DefaultTimeout = 10 * time.Second
)

type topic struct {
	Text     string  `json:"Text"`
	FirstURL string  `json:"FirstURL"`
	Topics   []topic `json:"Topics"`
}

type response struct {
	Heading       string  `json:"Heading"`
	AbstractText  string  `json:"AbstractText"`
	AbstractURL   string  `json:"AbstractURL"`
	Results       []topic `json:"Results"`
	RelatedTopics []topic `json:"RelatedTopics"`
}

// Provider queries the DuckDuckGo Instant Answer API. It needs no credential,
// which makes it the usual fallback provider.
type Provider struct {
	s providers.Settings
}

func New(s providers.Settings) *Provider {
	return &Provider{s: s.WithDefaults(DefaultBaseURL, DefaultTimeout)}
}

func (p *Provider) ID() providers.ID { return providers.DuckDuckGo }

func (p *Provider) Timeout() time.Duration { return p.s.Timeout }

func (p *Provider) Search(ctx context.Context, q providers.Query) ([]providers.Result, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")
	params.Set("kl", strings.ToLower(q.Country)+"-"+strings.ToLower(q.Language))
	if q.SafeSearch {
		params.Set("kp", "1")
	} else {
		params.Set("kp", "-2")
	}

	var resp response
	if err := providers.GetJSON(ctx, p.s.Client, providers.DuckDuckGo, p.s.BaseURL+"/?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	results := make([]providers.Result, 0, q.Count)
	seen := make(map[string]bool)
	add := func(title, link, snippet string) {
		link = strings.TrimSpace(link)
		if len(results) >= q.Count || link == "" || seen[link] {
			return
		}
		seen[link] = true
		results = append(results, providers.Result{
			Title:   providers.FirstNonEmpty(title, snippet),
			Link:    link,
			Snippet: providers.CleanText(snippet),
		})
	}

	if resp.AbstractText != "" {
		add(resp.Heading, resp.AbstractURL, resp.AbstractText)
	}
	for _, r := range resp.Results {
		add(topicTitle(r.Text), r.FirstURL, r.Text)
	}

	var walk func(ts []topic)
	walk = func(ts []topic) {
		for _, t := range ts {
			if len(results) >= q.Count {
				return
			}
			if len(t.Topics) > 0 {
				walk(t.Topics)
				continue
			}
			add(topicTitle(t.Text), t.FirstURL, t.Text)
		}
	}
	walk(resp.RelatedTopics)

	return results, nil
}

// topicTitle takes the part of a topic text before " - ", which DuckDuckGo
// uses to separate the entity name from its description.
func topicTitle(text string) string {
	if i := strings.Index(text, " - "); i > 0 {
		return text[:i]
	}
	return text
}
