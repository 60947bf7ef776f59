package search

import (
	"fmt"
	"strings"

	"github.com/cwoolley/metasearch/internal/providers"
)

const (
	MinResults     = 1
	MaxResults     = 15
	DefaultResults = 5

	DefaultLanguage = "en"
	DefaultCountry  = "us"

	// VerticalAuto picks the vertical from keywords in the query.
	VerticalAuto providers.Vertical = "auto"
)

// Request is one aggregation request. Build it, call Normalize, and treat the
// result as immutable.
type Request struct {
	Query              string
	Providers          []providers.ID
	ResultsPerProvider int
	Language           string
	Country            string
	SafeSearch         bool
	WantSummary        bool
	Vertical           providers.Vertical
}

// ValidationError rejects a request before any provider is invoked.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ClampResults bounds n to [MinResults, MaxResults].
func ClampResults(n int) int {
	switch {
	case n < MinResults:
		return MinResults
	case n > MaxResults:
		return MaxResults
	}
	return n
}

// Normalize returns a copy with defaults applied, the result count clamped,
// codes lower-cased, the vertical resolved and duplicate providers removed.
// A zero result count means DefaultResults.
func (r Request) Normalize() Request {
	r.Query = strings.TrimSpace(r.Query)
	if r.ResultsPerProvider == 0 {
		r.ResultsPerProvider = DefaultResults
	}
	r.ResultsPerProvider = ClampResults(r.ResultsPerProvider)
	r.Language = strings.ToLower(strings.TrimSpace(r.Language))
	if r.Language == "" {
		r.Language = DefaultLanguage
	}
	r.Country = strings.ToLower(strings.TrimSpace(r.Country))
	if r.Country == "" {
		r.Country = DefaultCountry
	}

	r.Vertical = providers.Vertical(strings.ToLower(strings.TrimSpace(string(r.Vertical))))
	switch r.Vertical {
	case "":
		r.Vertical = providers.VerticalWeb
	case VerticalAuto:
		r.Vertical = DetectVertical(r.Query)
	}

	seen := make(map[providers.ID]bool, len(r.Providers))
	ids := make([]providers.ID, 0, len(r.Providers))
	for _, id := range r.Providers {
		id = providers.ParseID(string(id))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	r.Providers = ids
	return r
}

// Validate checks a normalized request.
func (r Request) Validate() error {
	if r.Query == "" {
		return &ValidationError{Field: "q", Reason: "query parameter is required"}
	}
	if !isAlpha2(r.Language) {
		return &ValidationError{Field: "language", Reason: "must be a two-letter ISO 639-1 code"}
	}
	if !isAlpha2(r.Country) {
		return &ValidationError{Field: "country", Reason: "must be a two-letter ISO 3166-1 code"}
	}
	if !r.Vertical.Known() {
		return &ValidationError{Field: "vertical", Reason: "must be one of web, images, news, videos or auto"}
	}
	return nil
}

func (r Request) query() providers.Query {
	return providers.Query{
		Text:       r.Query,
		Count:      r.ResultsPerProvider,
		Language:   r.Language,
		Country:    r.Country,
		SafeSearch: r.SafeSearch,
		Vertical:   r.Vertical,
	}
}

// DetectVertical guesses the vertical from keywords in the query text.
func DetectVertical(query string) providers.Vertical {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "image"), strings.Contains(q, "picture"):
		return providers.VerticalImages
	case strings.Contains(q, "news"), strings.Contains(q, "recent"):
		return providers.VerticalNews
	case strings.Contains(q, "video"):
		return providers.VerticalVideos
	}
	return providers.VerticalWeb
}

func isAlpha2(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}
