package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate clears every variable Load reads and disables .env loading.
func isolate(t *testing.T) {
	t.Helper()
	orig := loadDotenv
	loadDotenv = func() {}
	t.Cleanup(func() { loadDotenv = orig })

	keys := []string{
		"METASEARCH_CONFIG", "METASEARCH_ADDR", "METASEARCH_LOG_LEVEL", "METASEARCH_ENV",
		"METASEARCH_DEFAULT_PROVIDER", "METASEARCH_MERGE_STRATEGY", "METASEARCH_SUMMARY_MODEL",
		"OPENAI_API_KEY", "OPENAI_BASE_URL",
	}
	for _, vars := range CredentialEnv {
		keys = append(keys, vars...)
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "duckduckgo", cfg.DefaultProvider)
	assert.Equal(t, "sequential", cfg.MergeStrategy)
	assert.False(t, cfg.Breaker.Enabled, "breaker is opt-in")
	assert.Equal(t, 30*time.Second, cfg.Summary.Timeout)
	assert.Len(t, cfg.Providers, len(CredentialEnv))
}

func TestLoad_ReadsEnvVars(t *testing.T) {
	isolate(t)
	t.Setenv("METASEARCH_ADDR", ":9090")
	t.Setenv("BRAVE_API_KEY", "brave-key")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("GOOGLE_CSE_ID", "g-cx")
	t.Setenv("SEARXNG_URL", "http://searx.local")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "brave-key", cfg.Providers["brave"].APIKey)
	assert.Equal(t, "g-key", cfg.Providers["google"].APIKey)
	assert.Equal(t, "g-cx", cfg.Providers["google"].Secret)
	assert.Equal(t, "http://searx.local", cfg.Providers["searxng"].BaseURL)
	assert.Equal(t, "sk-test", cfg.Summary.APIKey)
}

func TestLoad_YAMLFileThenEnvOverride(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "metasearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_addr: ":7000"
merge_strategy: interleave
breaker:
  enabled: true
providers:
  brave:
    timeout: 4s
    base_url: http://brave.local
summary:
  top_n: 3
`), 0644))
	t.Setenv("METASEARCH_CONFIG", path)
	t.Setenv("METASEARCH_ADDR", ":7001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.ServerAddr)
	assert.Equal(t, "interleave", cfg.MergeStrategy)
	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, uint32(5), cfg.Breaker.ConsecutiveFailures)
	assert.Equal(t, 4*time.Second, cfg.Providers["brave"].Timeout)
	assert.Equal(t, "http://brave.local", cfg.Providers["brave"].BaseURL)
	assert.Equal(t, 3, cfg.Summary.TopN)
	assert.Equal(t, "gpt-4o-mini", cfg.Summary.Model)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	isolate(t)
	t.Setenv("METASEARCH_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers: [1, 2"), 0644))
	t.Setenv("METASEARCH_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_RejectsUnknownDefaultProvider(t *testing.T) {
	isolate(t)
	t.Setenv("METASEARCH_DEFAULT_PROVIDER", "altavista")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "altavista")
}

func TestLoad_RejectsUnknownMergeStrategy(t *testing.T) {
	isolate(t)
	t.Setenv("METASEARCH_MERGE_STRATEGY", "random")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_CallsLoadDotenv(t *testing.T) {
	isolate(t)
	called := false
	loadDotenv = func() { called = true }

	_, _ = Load()
	assert.True(t, called, "Load() must call loadDotenv()")
}

func TestLoad_DotenvFilePopulatesConfig(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SERPER_API_KEY=dotenv-key\nDATAFORSEO_LOGIN=me\nDATAFORSEO_PASSWORD=pw\n"), 0644))
	loadDotenv = func() { _ = godotenv.Load(envPath) }

	// godotenv never overrides variables that are already set, even to "".
	for _, k := range []string{"SERPER_API_KEY", "DATAFORSEO_LOGIN", "DATAFORSEO_PASSWORD"} {
		os.Unsetenv(k)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.Providers["serper"].APIKey)
	assert.Equal(t, "me", cfg.Providers["dataforseo"].APIKey)
	assert.Equal(t, "pw", cfg.Providers["dataforseo"].Secret)
}

func TestLoad_EnvVarsTakePrecedenceOverDotenv(t *testing.T) {
	isolate(t)
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("EXA_API_KEY=dotenv-key\n"), 0644))
	loadDotenv = func() { _ = godotenv.Load(envPath) }
	t.Setenv("EXA_API_KEY", "real-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "real-key", cfg.Providers["exa"].APIKey)
}

func TestConfigured(t *testing.T) {
	cfg := defaults()
	cfg.Providers["brave"] = ProviderConfig{APIKey: "k"}
	cfg.Providers["google"] = ProviderConfig{APIKey: "k"}
	cfg.Providers["searxng"] = ProviderConfig{BaseURL: "http://searx"}

	assert.True(t, cfg.Configured("brave"))
	assert.False(t, cfg.Configured("google"), "google needs key and engine id")
	assert.True(t, cfg.Configured("searxng"))
	assert.True(t, cfg.Configured("duckduckgo"))
	assert.False(t, cfg.Configured("bing"))
	assert.False(t, cfg.Configured("altavista"))
}
