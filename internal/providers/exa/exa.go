package exa

import (
	"context"
	"strings"
	"time"

	"github.com/cwoolley/metasearch/internal/providers"
)

const (
	DefaultBaseURL = "https://api.exa.ai"
	DefaultTimeout = 15 * time.Second

	highlightChars = 300
	textChars      = 500
)

type lengthLimit struct {
	MaxCharacters int `json:"maxCharacters"`
}

type contents struct {
	Highlights lengthLimit `json:"highlights"`
	Text       lengthLimit `json:"text"`
}

type request struct {
	Query        string   `json:"query"`
	Type         string   `json:"type"`
	NumResults   int      `json:"numResults"`
	UserLocation string   `json:"userLocation,omitempty"`
	Contents     contents `json:"contents"`
}

type response struct {
	Results []struct {
		Title      string   `json:"title"`
		URL        string   `json:"url"`
		Summary    string   `json:"summary"`
		Highlights []string `json:"highlights"`
		Text       string   `json:"text"`
	} `json:"results"`
}

// Provider queries the Exa neural search API.
type Provider struct {
	s providers.Settings
}

func New(s providers.Settings) *Provider {
	return &Provider{s: s.WithDefaults(DefaultBaseURL, DefaultTimeout)}
}

func (p *Provider) ID() providers.ID { return providers.Exa }

func (p *Provider) Timeout() time.Duration { return p.s.Timeout }

func (p *Provider) Search(ctx context.Context, q providers.Query) ([]providers.Result, error) {
	if p.s.APIKey == "" {
		return nil, providers.ConfigError(providers.Exa, "EXA_API_KEY is not set")
	}

	body := request{
		Query:        q.Text,
		Type:         "auto",
		NumResults:   q.Count,
		UserLocation: strings.ToUpper(q.Country),
		Contents: contents{
			Highlights: lengthLimit{MaxCharacters: highlightChars},
			Text:       lengthLimit{MaxCharacters: textChars},
		},
	}
	headers := map[string]string{"x-api-key": p.s.APIKey}

	var resp response
	if err := providers.PostJSON(ctx, p.s.Client, providers.Exa, p.s.BaseURL+"/search", headers, body, &resp); err != nil {
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
		var highlight string
		if len(r.Highlights) > 0 {
			highlight = r.Highlights[0]
		}
		results = append(results, providers.Result{
			Title:   providers.CleanText(r.Title),
			Link:    r.URL,
			Snippet: providers.Truncate(providers.FirstNonEmpty(highlight, r.Summary, r.Text), textChars),
		})
	}
	return results, nil
}
