package google

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cwoolley/metasearch/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

func TestNewAPIClient_Success(t *testing.T) {
	client, err := NewAPIClient(context.Background(), "key", "cx", "")
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewAPIClient_ServiceError(t *testing.T) {
	orig := createSearchService
	createSearchService = func(_ context.Context, _ ...option.ClientOption) (*customsearch.Service, error) {
		return nil, fmt.Errorf("service creation failed")
	}
	t.Cleanup(func() { createSearchService = orig })

	_, err := NewAPIClient(context.Background(), "key", "cx", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create customsearch service")
}

func TestNew_ServiceErrorIsConfigError(t *testing.T) {
	orig := createSearchService
	createSearchService = func(_ context.Context, _ ...option.ClientOption) (*customsearch.Service, error) {
		return nil, fmt.Errorf("service creation failed")
	}
	t.Cleanup(func() { createSearchService = orig })

	p := New(providers.Settings{APIKey: "key", Secret: "cx"})
	_, err := p.Search(context.Background(), providers.Query{Text: "q", Count: 5})

	var perr *providers.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, providers.KindConfig, perr.Kind)
}

func TestSearch_SendsParamsAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		assert.Equal(t, "golang", qs.Get("q"))
		assert.Equal(t, "engine-1", qs.Get("cx"))
		assert.Equal(t, "10", qs.Get("num"))
		assert.Equal(t, "lang_en", qs.Get("lr"))
		assert.Equal(t, "us", qs.Get("gl"))
		assert.Equal(t, "active", qs.Get("safe"))
		assert.Equal(t, "key", qs.Get("key"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"title":"Go","link":"https://go.dev","snippet":"Build simple software"}]}`)
	}))
	defer srv.Close()

	client, err := NewAPIClient(context.Background(), "key", "engine-1", "")
	require.NoError(t, err)
	client.service.BasePath = srv.URL

	items, err := client.Search(context.Background(), providers.Query{Text: "golang", Count: 15, Language: "en", Country: "us", SafeSearch: true})
	require.NoError(t, err)
	assert.Equal(t, []Item{{Title: "Go", Link: "https://go.dev", Snippet: "Build simple software"}}, items)
}

func TestSearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := NewAPIClient(context.Background(), "key", "cx", "")
	require.NoError(t, err)
	client.service.BasePath = srv.URL

	_, err = client.Search(context.Background(), providers.Query{Text: "q", Count: 5})

	var perr *providers.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, providers.KindTransport, perr.Kind)
	assert.Contains(t, err.Error(), "cse.list")
}
