// Package builtin assembles the static provider registry from configuration.
package builtin

import (
	"github.com/cwoolley/metasearch/internal/config"
	"github.com/cwoolley/metasearch/internal/providers"
	"github.com/cwoolley/metasearch/internal/providers/bing"
	"github.com/cwoolley/metasearch/internal/providers/brave"
	"github.com/cwoolley/metasearch/internal/providers/dataforseo"
	"github.com/cwoolley/metasearch/internal/providers/duckduckgo"
	"github.com/cwoolley/metasearch/internal/providers/exa"
	"github.com/cwoolley/metasearch/internal/providers/google"
	"github.com/cwoolley/metasearch/internal/providers/searxng"
	"github.com/cwoolley/metasearch/internal/providers/serpapi"
	"github.com/cwoolley/metasearch/internal/providers/serper"
	"github.com/cwoolley/metasearch/internal/providers/tavily"
	"go.uber.org/zap"
)

// Order is the registration order, which is also the order providers are
// listed in.
var Order = []providers.ID{
	providers.SerpAPI,
	providers.Google,
	providers.Bing,
	providers.Brave,
	providers.DuckDuckGo,
	providers.SearXNG,
	providers.Serper,
	providers.Tavily,
	providers.Exa,
	providers.DataForSEO,
}

var constructors = map[providers.ID]func(providers.Settings) providers.Provider{
	providers.SerpAPI:    func(s providers.Settings) providers.Provider { return serpapi.New(s) },
	providers.Google:     func(s providers.Settings) providers.Provider { return google.New(s) },
	providers.Bing:       func(s providers.Settings) providers.Provider { return bing.New(s) },
	providers.Brave:      func(s providers.Settings) providers.Provider { return brave.New(s) },
	providers.DuckDuckGo: func(s providers.Settings) providers.Provider { return duckduckgo.New(s) },
	providers.SearXNG:    func(s providers.Settings) providers.Provider { return searxng.New(s) },
	providers.Serper:     func(s providers.Settings) providers.Provider { return serper.New(s) },
	providers.Tavily:     func(s providers.Settings) providers.Provider { return tavily.New(s) },
	providers.Exa:        func(s providers.Settings) providers.Provider { return exa.New(s) },
	providers.DataForSEO: func(s providers.Settings) providers.Provider { return dataforseo.New(s) },
}

// New builds every known provider. Unconfigured providers are still
// registered; they fail fast with a config error when invoked.
func New(cfg *config.Config, log *zap.Logger) *providers.Registry {
	if log == nil {
		log = zap.NewNop()
	}
	reg := providers.NewRegistry(providers.ParseID(cfg.DefaultProvider))
	for _, id := range Order {
		pc := cfg.Providers[string(id)]
		p := constructors[id](providers.Settings{
			APIKey:  pc.APIKey,
			Secret:  pc.Secret,
			BaseURL: pc.BaseURL,
			Timeout: pc.Timeout,
		})
		if cfg.Breaker.Enabled {
			p = providers.WithBreaker(p, providers.BreakerSettings{
				ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
				OpenTimeout:         cfg.Breaker.OpenTimeout,
			}, log)
		}
		configured := cfg.Configured(string(id))
		reg.Register(p, providers.Descriptor{
			Requires:   config.CredentialEnv[string(id)],
			Configured: configured,
		})
		log.Debug("registered provider", zap.String("provider", string(id)), zap.Bool("configured", configured))
	}
	return reg
}
