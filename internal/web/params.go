package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cwoolley/metasearch/internal/providers"
	"github.com/cwoolley/metasearch/internal/search"
)

const maxFormBytes = 1 << 20

// jsonBody is the POST body accepted with Content-Type application/json.
// Its fields mirror the query parameters.
type jsonBody struct {
	Q          string          `json:"q"`
	Query      string          `json:"query"`
	API        string          `json:"api"`
	APIs       json.RawMessage `json:"apis"`
	NumResults json.RawMessage `json:"num_results"`
	Language   string          `json:"language"`
	Country    string          `json:"country"`
	SafeSearch json.RawMessage `json:"safe_search"`
	Summarize  json.RawMessage `json:"summarize"`
	Vertical   string          `json:"vertical"`
}

// parseRequest reads a search request from the query string, a form body or
// a JSON body. "query" is accepted wherever "q" is absent. Only a malformed
// num_results or body is rejected here; the remaining checks belong to
// search.Request.Validate.
func parseRequest(r *http.Request) (search.Request, error) {
	values, err := requestValues(r)
	if err != nil {
		return search.Request{}, err
	}

	lists := make([]string, 0, len(values["api"])+len(values["apis"]))
	lists = append(lists, values["api"]...)
	lists = append(lists, values["apis"]...)

	query := values.Get("q")
	if strings.TrimSpace(query) == "" {
		query = values.Get("query")
	}

	req := search.Request{
		Query:              query,
		Providers:          providers.ParseIDs(lists...),
		ResultsPerProvider: search.DefaultResults,
		Language:           values.Get("language"),
		Country:            values.Get("country"),
		SafeSearch:         parseBool(values.Get("safe_search"), true),
		WantSummary:        parseBool(values.Get("summarize"), false),
		Vertical:           providers.Vertical(values.Get("vertical")),
	}
	if raw := strings.TrimSpace(values.Get("num_results")); raw != "" {
		n, err := parseCount(raw)
		if err != nil {
			return search.Request{}, &search.ValidationError{Field: "num_results", Reason: "must be an integer"}
		}
		req.ResultsPerProvider = search.ClampResults(n)
	}
	return req, nil
}

// parseCount parses an integer. Values too large for an int saturate
// instead of failing, so the caller's clamp still applies.
func parseCount(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	var nerr *strconv.NumError
	if errors.As(err, &nerr) && errors.Is(nerr.Err, strconv.ErrRange) {
		if strings.HasPrefix(raw, "-") {
			return math.MinInt, nil
		}
		return math.MaxInt, nil
	}
	return n, err
}

func requestValues(r *http.Request) (url.Values, error) {
	if r.Method == http.MethodPost && isJSON(r.Header.Get("Content-Type")) {
		values := r.URL.Query()
		if err := mergeJSONBody(r, values); err != nil {
			return nil, err
		}
		return values, nil
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return nil, &search.ValidationError{Field: "body", Reason: "malformed form body"}
	}
	return r.Form, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

// mergeJSONBody folds body fields into values. Body fields win over query
// parameters of the same name.
func mergeJSONBody(r *http.Request, values url.Values) error {
	var body jsonBody
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxFormBytes))
	if err := dec.Decode(&body); err != nil {
		return &search.ValidationError{Field: "body", Reason: "malformed JSON body"}
	}

	set := func(key, v string) {
		if v != "" {
			values.Set(key, v)
		}
	}
	set("q", body.Query)
	set("q", body.Q)
	set("language", body.Language)
	set("vertical", body.Vertical)
	set("country", body.Country)
	if body.API != "" {
		values.Add("api", body.API)
	}
	if apis := rawList(body.APIs); apis != "" {
		values.Add("apis", apis)
	}
	set("num_results", rawScalar(body.NumResults))
	set("safe_search", rawScalar(body.SafeSearch))
	set("summarize", rawScalar(body.Summarize))
	return nil
}

// rawList accepts either "a,b" or ["a","b"].
func rawList(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ",")
	}
	return rawScalar(raw)
}

// rawScalar renders a JSON string, number or boolean as its query form.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// parseBool is lenient: unrecognized values fall back to def.
func parseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
