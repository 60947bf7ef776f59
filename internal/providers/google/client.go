package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cwoolley/metasearch/internal/providers"
	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// maxNum is the largest page the Custom Search JSON API returns.
const maxNum = 10

// APIClient implements Client using the Custom Search JSON API.
type APIClient struct {
	service *customsearch.Service
	cx      string
}

// createSearchService creates a Custom Search service. Overridden in tests.
var createSearchService = func(ctx context.Context, opts ...option.ClientOption) (*customsearch.Service, error) {
	return customsearch.NewService(ctx, opts...)
}

// NewAPIClient creates a client authenticated by API key for the search
// engine cx. endpoint overrides the API base URL when non-empty.
func NewAPIClient(ctx context.Context, apiKey, cx, endpoint string) (*APIClient, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	srv, err := createSearchService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create customsearch service: %w", err)
	}
	return &APIClient{service: srv, cx: cx}, nil
}

func (c *APIClient) Search(ctx context.Context, q providers.Query) ([]Item, error) {
	num := q.Count
	if num > maxNum {
		num = maxNum
	}

	call := c.service.Cse.List().
		Q(q.Text).
		Cx(c.cx).
		Num(int64(num)).
		Context(ctx)
	if q.Language != "" {
		call = call.Lr("lang_" + q.Language).Hl(q.Language)
	}
	if q.Country != "" {
		call = call.Gl(q.Country)
	}
	if q.SafeSearch {
		call = call.Safe("active")
	} else {
		call = call.Safe("off")
	}

	resp, err := call.Do()
	if err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return nil, providers.ParseError(providers.Google, fmt.Errorf("cse.list: %w", err))
		}
		return nil, providers.TransportError(providers.Google, fmt.Errorf("cse.list: %w", err))
	}

	items := make([]Item, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it == nil {
			continue
		}
		items = append(items, Item{
			Title:       it.Title,
			Link:        it.Link,
			Snippet:     it.Snippet,
			HTMLSnippet: it.HtmlSnippet,
		})
	}
	return items, nil
}
