package github

import (
	"time"

	"totalimpact-backend/internal/core/item"
	"totalimpact-backend/internal/core/provider"
	perr "totalimpact-backend/internal/platform/errors"
)

const defaultAliasesURL = "https://github.com/api/v2/json/repos/show/%s"

func init() {
	provider.Register("github", Factory)
}

// Factory builds the github Provider descriptor from its decoded config
func Factory(cfg provider.Config) (*provider.Provider, error) {
	aliasesURL := cfg.AliasesURL
	if aliasesURL == "" {
		aliasesURL = defaultAliasesURL
	}
	biblioURL := cfg.BiblioURL
	if biblioURL == "" {
		biblioURL = defaultAliasesURL
	}
	metricsURL := cfg.MetricsURL
	if metricsURL == "" {
		metricsURL = defaultAliasesURL
	}

	entries := make(map[perr.ErrorCode]provider.RetryPolicyEntry, len(cfg.Errors))
	for name, e := range cfg.Errors {
		entries[perr.KindByName(name)] = e
	}

	return &provider.Provider{
		Name: cfg.Name,
		Capabilities: provider.Capabilities{
			ProvidesAliases: true,
			ProvidesBiblio:  true,
			ProvidesMetrics: true,
			ProvidesMembers: true,
		},
		Namespaces: provider.Namespaces{
			Aliases: []string{"github"},
			Biblio:  []string{"github"},
			Metrics: []string{"github"},
		},
		MetricNames: MetricNames,
		Templates: map[provider.Method]string{
			provider.MethodAliases: aliasesURL,
			provider.MethodBiblio:  biblioURL,
			provider.MethodMetrics: metricsURL,
		},
		TemplateFor: TemplateFor,
		IsRelevantAliasFn: func(a item.Alias) bool { return a.Namespace == "github" },
		Policy:    provider.NewPolicy(entries),
		RateLimit: provider.NewRateLimiter(time.Duration(cfg.RatePeriodSec)*time.Second, cfg.RateLimit, cfg.Throttled),
		Extractor: New(provider.SharedFetcher()),
	}, nil
}
