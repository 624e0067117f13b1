package plos

import (
	"time"

	"totalimpact-backend/internal/core/item"
	"totalimpact-backend/internal/core/provider"
	perr "totalimpact-backend/internal/platform/errors"
)

const defaultMetricsURL = "https://alm.plos.org/api/v5/articles?ids=%s&info=detail"

func init() {
	provider.Register("plos", Factory)
}

// Factory builds the plos Provider descriptor from its decoded config
func Factory(cfg provider.Config) (*provider.Provider, error) {
	metricsURL := cfg.MetricsURL
	if metricsURL == "" {
		metricsURL = defaultMetricsURL
	}

	entries := make(map[perr.ErrorCode]provider.RetryPolicyEntry, len(cfg.Errors))
	for name, e := range cfg.Errors {
		entries[perr.KindByName(name)] = e
	}

	return &provider.Provider{
		Name: cfg.Name,
		Capabilities: provider.Capabilities{
			ProvidesMetrics: true,
		},
		Namespaces: provider.Namespaces{
			Metrics: []string{"doi"},
		},
		MetricNames: MetricNames,
		Templates: map[provider.Method]string{
			provider.MethodMetrics: metricsURL,
		},
		IsRelevantAliasFn: func(a item.Alias) bool { return a.Namespace == "doi" },
		Policy:            provider.NewPolicy(entries),
		RateLimit:         provider.NewRateLimiter(time.Duration(cfg.RatePeriodSec)*time.Second, cfg.RateLimit, cfg.Throttled),
		Extractor:         New(provider.SharedFetcher()),
	}, nil
}
