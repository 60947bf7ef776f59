// Package summary condenses merged search results with one chat-completion
// call to an OpenAI-compatible endpoint.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cwoolley/metasearch/internal/providers"
	"github.com/cwoolley/metasearch/internal/search"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 30 * time.Second

	snippetChars = 200
)

const systemPrompt = "You summarize web search results for a user. " +
	"Write a short, factual overview in plain prose using only the results given. " +
	"Do not invent facts, links or sources."

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// Client implements search.Summarizer.
type Client struct {
	cfg    Config
	client openai.Client
}

// New creates a summarizer. A Client without an API key is valid; it reports
// search.ErrSummaryNotConfigured on every call and never reaches the network.
func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{cfg: cfg, client: openai.NewClient(opts...)}
}

func (c *Client) Summarize(ctx context.Context, query string, results []search.RankedResult, language string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", search.ErrSummaryNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(query, results, language)),
		},
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.cfg.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt renders the user message: the query, the answer language and
// one numbered line per result with its snippet cut to a fixed length.
func BuildPrompt(query string, results []search.RankedResult, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search query: %s\n", query)
	fmt.Fprintf(&b, "Answer in the language with ISO 639-1 code %q.\n\n", language)
	b.WriteString("Results:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "%d. %s (%s)\n", r.Rank, r.Title, r.Link)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", providers.Truncate(r.Snippet, snippetChars))
		}
	}
	return b.String()
}
