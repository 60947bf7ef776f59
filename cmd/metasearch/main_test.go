package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/cwoolley/metasearch/internal/config"
	"github.com/cwoolley/metasearch/internal/providers"
	"github.com/cwoolley/metasearch/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a thread-safe bytes.Buffer for use in concurrent tests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (sb *syncBuffer) Write(p []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.buf.Write(p)
}

func (sb *syncBuffer) String() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.buf.String()
}

func (sb *syncBuffer) Len() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.buf.Len()
}

var _ io.Writer = (*syncBuffer)(nil)

const ddgPayload = `{
	"Heading": "Go",
	"AbstractText": "Go is a statically typed language.",
	"AbstractURL": "https://en.wikipedia.org/wiki/Go_(programming_language)",
	"Results": [{"Text": "Official site - The Go homepage", "FirstURL": "https://go.dev"}],
	"RelatedTopics": []
}`

// fakeDuckDuckGo serves a canned instant-answer payload.
func fakeDuckDuckGo(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ddgPayload))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// useConfig points loadConfig at a fixed config whose DuckDuckGo adapter
// talks to ddgURL.
func useConfig(t *testing.T, ddgURL string) *config.Config {
	t.Helper()
	cfg := &config.Config{
		ServerAddr:      ":0",
		LogLevel:        "error",
		Environment:     "development",
		DefaultProvider: "duckduckgo",
		MergeStrategy:   "sequential",
		Providers: map[string]config.ProviderConfig{
			"duckduckgo": {BaseURL: ddgURL, Timeout: 2 * time.Second},
		},
		Summary: config.SummaryConfig{Model: "gpt-4o-mini", Timeout: time.Second, TopN: 5},
	}
	orig := loadConfig
	loadConfig = func() (*config.Config, error) { return cfg, nil }
	t.Cleanup(func() { loadConfig = orig })
	return cfg
}

func useSignalCh(t *testing.T) chan os.Signal {
	t.Helper()
	testCh := make(chan os.Signal, 1)
	orig := makeSignalCh
	makeSignalCh = func() (chan os.Signal, func()) {
		return testCh, func() {}
	}
	t.Cleanup(func() { makeSignalCh = orig })
	return testCh
}

func TestRun_ReturnsNilOnSuccess(t *testing.T) {
	err := runWithOutput([]string{}, io.Discard)
	assert.NoError(t, err)
}

func TestSearchCommand_PrintsResults(t *testing.T) {
	ddg := fakeDuckDuckGo(t)
	useConfig(t, ddg.URL)

	var buf bytes.Buffer
	err := runWithOutput([]string{"search", "golang"}, &buf)

	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "1. Go")
	assert.Contains(t, output, "https://go.dev")
	assert.Contains(t, output, "[duckduckgo]")
}

func TestSearchCommand_JSON(t *testing.T) {
	ddg := fakeDuckDuckGo(t)
	useConfig(t, ddg.URL)

	var buf bytes.Buffer
	err := runWithOutput([]string{"search", "--json", "--num", "1", "--apis", "duckduckgo,unknown", "golang"}, &buf)
	require.NoError(t, err)

	var resp search.Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "golang", resp.Query)
	assert.Equal(t, []providers.ID{providers.DuckDuckGo}, resp.ProvidersUsed)
	assert.Equal(t, 1, resp.RequestedCountPerProvider)
	assert.Len(t, resp.Results, 1)
}

func TestSearchCommand_SummarizeWithoutKey(t *testing.T) {
	ddg := fakeDuckDuckGo(t)
	useConfig(t, ddg.URL)

	var buf bytes.Buffer
	err := runWithOutput([]string{"search", "--summarize", "golang"}, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), search.SummaryNotConfigured)
}

func TestSearchCommand_NoQuery(t *testing.T) {
	err := runWithOutput([]string{"search"}, io.Discard)
	assert.Error(t, err)
}

// BUG-011: the "no results" output path.
func TestSearchCommand_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"RelatedTopics": []}`))
	}))
	t.Cleanup(srv.Close)
	useConfig(t, srv.URL)

	var buf bytes.Buffer
	err := runWithOutput([]string{"search", "empty"}, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No results found.")
}

func TestSearchCommand_InvalidLanguage(t *testing.T) {
	ddg := fakeDuckDuckGo(t)
	useConfig(t, ddg.URL)

	err := runWithOutput([]string{"search", "--language", "english", "golang"}, io.Discard)

	var verr *search.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "language", verr.Field)
}

func TestSearchCommand_ConfigLoadError(t *testing.T) {
	orig := loadConfig
	loadConfig = func() (*config.Config, error) {
		return nil, fmt.Errorf("config error")
	}
	t.Cleanup(func() { loadConfig = orig })

	err := runWithOutput([]string{"search", "test"}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestSearchCommand_Remote(t *testing.T) {
	var gotQuery, gotAPIs, gotVertical string
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotAPIs = r.URL.Query().Get("apis")
		gotVertical = r.URL.Query().Get("vertical")
		_ = json.NewEncoder(w).Encode(search.Response{
			Query: "remote query",
			Results: []search.RankedResult{
				{Result: providers.Result{Title: "Remote Doc", Link: "https://example.com/r"}, Provider: providers.Brave, Rank: 1},
			},
		})
	}))
	t.Cleanup(remote.Close)

	var buf bytes.Buffer
	err := runWithOutput([]string{"search", "--server", remote.URL, "--apis", "brave", "--vertical", "news", "remote", "query"}, &buf)

	require.NoError(t, err)
	assert.Equal(t, "remote query", gotQuery)
	assert.Equal(t, "brave", gotAPIs)
	assert.Equal(t, "news", gotVertical)
	assert.Contains(t, buf.String(), "Remote Doc")
}

func TestSearchCommand_FlagDefaults(t *testing.T) {
	cmd := newRootCmd(io.Discard)
	searchCmd, _, err := cmd.Find([]string{"search"})
	require.NoError(t, err)

	assert.Equal(t, "5", searchCmd.Flags().Lookup("num").DefValue)
	assert.Equal(t, "en", searchCmd.Flags().Lookup("language").DefValue)
	assert.Equal(t, "us", searchCmd.Flags().Lookup("country").DefValue)
	assert.Equal(t, "web", searchCmd.Flags().Lookup("vertical").DefValue)
	assert.Equal(t, "true", searchCmd.Flags().Lookup("safe-search").DefValue)
	assert.Equal(t, "false", searchCmd.Flags().Lookup("summarize").DefValue)
}

// BUG-009: The "serve" subcommand is registered and accepts --addr.
func TestServeCommand_IsRegistered(t *testing.T) {
	cmd := newRootCmd(io.Discard)

	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serveCmd.Name())

	f := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, f)
	assert.Equal(t, ":8080", f.DefValue)
}

// BUG-007: serve command gracefully shuts down on SIGINT/SIGTERM.
func TestServeCommand_GracefulShutdown(t *testing.T) {
	ddg := fakeDuckDuckGo(t)
	useConfig(t, ddg.URL)
	testCh := useSignalCh(t)

	buf := &syncBuffer{}
	errCh := make(chan error, 1)

	go func() {
		errCh <- runWithOutput([]string{"serve", "--addr", "127.0.0.1:0"}, buf)
	}()

	deadline := time.After(2 * time.Second)
	for buf.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for server to start")
		case err := <-errCh:
			t.Fatalf("serve exited early: %v", err)
		default:
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Contains(t, buf.String(), "Listening on")

	testCh <- syscall.SIGINT

	select {
	case err := <-errCh:
		assert.NoError(t, err, "serve should shut down cleanly on SIGINT")
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for serve to shut down")
	}

	assert.Contains(t, buf.String(), "shutting down")
}

func TestServeCommand_ServesSearch(t *testing.T) {
	ddg := fakeDuckDuckGo(t)
	useConfig(t, ddg.URL)
	testCh := useSignalCh(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	buf := &syncBuffer{}
	errCh := make(chan error, 1)
	go func() {
		errCh <- runWithOutput([]string{"serve", "--addr", addr}, buf)
	}()
	t.Cleanup(func() {
		testCh <- syscall.SIGTERM
		<-errCh
	})

	require.Eventually(t, func() bool { return buf.Len() > 0 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/search?q=golang&apis=duckduckgo")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got search.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []providers.ID{providers.DuckDuckGo}, got.ProvidersUsed)
	assert.NotEmpty(t, got.Results)

	mresp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	assert.Equal(t, http.StatusOK, mresp.StatusCode)
}

func TestServeCommand_ListenError(t *testing.T) {
	useConfig(t, "http://127.0.0.1:1")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = runWithOutput([]string{"serve", "--addr", ln.Addr().String()}, io.Discard)
	assert.Error(t, err)
}

func TestProvidersCommand_ListsAll(t *testing.T) {
	useConfig(t, "")

	var buf bytes.Buffer
	err := runWithOutput([]string{"providers", "--json"}, &buf)
	require.NoError(t, err)

	var ds []providers.Descriptor
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ds))
	require.Len(t, ds, 10)
	assert.Equal(t, providers.SerpAPI, ds[0].ID)
	for _, d := range ds {
		if d.ID == providers.DuckDuckGo {
			assert.True(t, d.Configured)
		}
		if d.ID == providers.Brave {
			assert.False(t, d.Configured)
			assert.Equal(t, []string{"BRAVE_API_KEY"}, d.Requires)
		}
	}
}

func TestProvidersCommand_Text(t *testing.T) {
	useConfig(t, "")

	var buf bytes.Buffer
	require.NoError(t, runWithOutput([]string{"providers"}, &buf))
	assert.Contains(t, buf.String(), "missing BRAVE_API_KEY")
}

func TestVersionCommand_PrintsVersion(t *testing.T) {
	var buf bytes.Buffer
	err := runWithOutput([]string{"version"}, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "metasearch version")
	assert.Contains(t, buf.String(), version)
}

func TestBuildApp_RejectsUnknownStrategy(t *testing.T) {
	_, err := buildApp(&config.Config{LogLevel: "info", MergeStrategy: "random", DefaultProvider: "duckduckgo"})
	assert.Error(t, err)
}

func TestBuildApp_RejectsBadLogLevel(t *testing.T) {
	_, err := buildApp(&config.Config{LogLevel: "loud", MergeStrategy: "sequential"})
	assert.Error(t, err)
}

// mockHTTPServer implements httpServer for testing serveLoop.
type mockHTTPServer struct {
	serveFunc   func() error
	shutdownErr error
	addr        string
}

func (m *mockHTTPServer) Serve() error                     { return m.serveFunc() }
func (m *mockHTTPServer) Addr() string                     { return m.addr }
func (m *mockHTTPServer) Shutdown(_ context.Context) error { return m.shutdownErr }

func TestServeLoop_ErrServerClosed(t *testing.T) {
	useSignalCh(t)

	mock := &mockHTTPServer{
		serveFunc: func() error { return http.ErrServerClosed },
	}
	err := serveLoop(mock, &syncBuffer{})
	assert.NoError(t, err)
}

func TestServeLoop_ServerError(t *testing.T) {
	useSignalCh(t)

	mock := &mockHTTPServer{
		serveFunc: func() error { return fmt.Errorf("bind error") },
	}
	err := serveLoop(mock, &syncBuffer{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bind error")
}

func TestServeLoop_ShutdownError(t *testing.T) {
	testCh := useSignalCh(t)

	serveDone := make(chan struct{})
	mock := &mockHTTPServer{
		serveFunc:   func() error { <-serveDone; return http.ErrServerClosed },
		shutdownErr: fmt.Errorf("shutdown failed"),
	}

	buf := &syncBuffer{}
	errCh := make(chan error, 1)
	go func() {
		errCh <- serveLoop(mock, buf)
	}()

	testCh <- syscall.SIGINT

	select {
	case err := <-errCh:
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "shutdown")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for serveLoop to return")
	}
	close(serveDone)
}
