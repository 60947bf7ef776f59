package providers

import (
	"context"
	"strings"
	"time"
)

// ID names a web-search provider.
type ID string

const (
	SerpAPI    ID = "serpapi"
	Google     ID = "google"
	Bing       ID = "bing"
	Brave      ID = "brave"
	DuckDuckGo ID = "duckduckgo"
	SearXNG    ID = "searxng"
	Serper     ID = "serper"
	Tavily     ID = "tavily"
	Exa        ID = "exa"
	DataForSEO ID = "dataforseo"
)

// ParseID normalizes a caller-supplied provider name. It does not check
// that the provider exists; the registry decides that.
func ParseID(s string) ID {
	return ID(strings.ToLower(strings.TrimSpace(s)))
}

// ParseIDs splits comma-separated provider lists, dropping blanks.
func ParseIDs(lists ...string) []ID {
	var ids []ID
	for _, list := range lists {
		for _, part := range strings.Split(list, ",") {
			if id := ParseID(part); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Result is one normalized web result. Fields are never absent: a value the
// provider did not send is the empty string.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Vertical selects a result type. Only Brave serves verticals other than
// web; every other adapter always searches the web.
type Vertical string

const (
	VerticalWeb    Vertical = "web"
	VerticalImages Vertical = "images"
	VerticalNews   Vertical = "news"
	VerticalVideos Vertical = "videos"
)

// Verticals lists the known verticals.
var Verticals = []Vertical{VerticalWeb, VerticalImages, VerticalNews, VerticalVideos}

// Known reports whether v is one of Verticals.
func (v Vertical) Known() bool {
	for _, k := range Verticals {
		if v == k {
			return true
		}
	}
	return false
}

// Query is what an adapter is asked to search for. An empty Vertical means
// VerticalWeb.
type Query struct {
	Text       string
	Count      int
	Language   string
	Country    string
	SafeSearch bool
	Vertical   Vertical
}

// Provider is a single web-search backend.
//
// Search performs exactly one outbound request and returns at most q.Count
// results in the provider's own order. Failures are reported as *Error.
type Provider interface {
	ID() ID
	Timeout() time.Duration
	Search(ctx context.Context, q Query) ([]Result, error)
}

// Limit truncates results to n items.
func Limit(results []Result, n int) []Result {
	if n >= 0 && len(results) > n {
		return results[:n]
	}
	return results
}
