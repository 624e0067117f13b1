package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"totalimpact-backend/internal/core/provider"
)

// RetryPolicyConfig is the YAML shape of one policy table entry. Zero
// values decode to the §3 defaults (retries=0, retry_delay=0,
// retry_type=linear, delay_cap=-1) applied in Normalize.
type RetryPolicyConfig struct {
	Retries    *int     `yaml:"retries"`
	RetryDelay *float64 `yaml:"retry_delay"`
	RetryType  string   `yaml:"retry_type" validate:"omitempty,oneof=linear incremental_back_off"`
	DelayCap   *float64 `yaml:"delay_cap"`
}

// Normalize fills every unset field with its §3 default
func (r RetryPolicyConfig) Normalize() RetryPolicyConfig {
	if r.Retries == nil {
		zero := 0
		r.Retries = &zero
	}
	if r.RetryDelay == nil {
		zero := 0.0
		r.RetryDelay = &zero
	}
	if r.RetryType == "" {
		r.RetryType = "linear"
	}
	if r.DelayCap == nil {
		negOne := -1.0
		r.DelayCap = &negOne
	}
	return r
}

// ToEntry converts the YAML-decoded policy entry into the duration-typed
// shape core/provider works with. It runs Normalize itself, so unset
// fields take their §3 defaults.
func (r RetryPolicyConfig) ToEntry() provider.RetryPolicyEntry {
	n := r.Normalize()
	retryType := provider.RetryTypeLinear
	if n.RetryType == string(provider.RetryTypeIncrementalBackoff) {
		retryType = provider.RetryTypeIncrementalBackoff
	}
	cap := time.Duration(-1)
	if *n.DelayCap >= 0 {
		cap = time.Duration(*n.DelayCap * float64(time.Second))
	}
	return provider.RetryPolicyEntry{
		Retries:    *n.Retries,
		RetryDelay: time.Duration(*n.RetryDelay * float64(time.Second)),
		RetryType:  retryType,
		DelayCap:   cap,
	}
}

// ProviderConfig is the decode target for one PROVIDERS.<name> block
type ProviderConfig struct {
	Workers       int                          `yaml:"workers" validate:"gte=0"`
	AliasesURL    string                       `yaml:"aliases_url"`
	BiblioURL     string                       `yaml:"biblio_url"`
	MetricsURL    string                       `yaml:"metrics_url"`
	TimeoutSec    int                          `yaml:"timeout_sec" validate:"gte=0"`
	RatePeriodSec int                          `yaml:"rate_period_sec" validate:"gte=0"`
	RateLimit     int                          `yaml:"rate_limit" validate:"gte=0"`
	Throttled     bool                         `yaml:"throttled"`
	Errors        map[string]RetryPolicyConfig `yaml:"errors" validate:"dive"`
}

// AliasesConfig is the top-level ALIASES block
type AliasesConfig struct {
	Workers int `yaml:"workers" validate:"gte=0"`
}

// CacheConfig is the top-level cache block
type CacheConfig struct {
	MaxCacheDurationSec int `yaml:"max_cache_duration_sec" validate:"gte=0"`
}

// ProvidersConfig is the full decode target for the nested configuration
// object described in §6.
type ProvidersConfig struct {
	Providers map[string]ProviderConfig `yaml:"PROVIDERS"`
	Aliases   AliasesConfig             `yaml:"ALIASES"`
	Cache     CacheConfig               `yaml:"cache"`
}

// ToProviderConfig converts one decoded PROVIDERS.<name> block into the
// narrow shape core/provider's Factory functions expect.
func (p ProviderConfig) ToProviderConfig(name string) provider.Config {
	errs := make(map[string]provider.RetryPolicyEntry, len(p.Errors))
	for kind, entry := range p.Errors {
		errs[kind] = entry.ToEntry()
	}
	return provider.Config{
		Name:          name,
		Workers:       p.Workers,
		AliasesURL:    p.AliasesURL,
		BiblioURL:     p.BiblioURL,
		MetricsURL:    p.MetricsURL,
		TimeoutSec:    p.TimeoutSec,
		RatePeriodSec: p.RatePeriodSec,
		RateLimit:     p.RateLimit,
		Throttled:     p.Throttled,
		Errors:        errs,
	}
}

var providersValidate = validator.New()

// LoadProviders decodes and validates the nested provider configuration
// from the YAML file at path. Defaults from §3/§6 (timeout 20s, cache
// 86400s) are applied here so the engine and fetcher never special-case
// zero values.
func LoadProviders(path string) (ProvidersConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ProvidersConfig{}, fmt.Errorf("config: read providers file: %w", err)
	}

	var pc ProvidersConfig
	if err := yaml.Unmarshal(b, &pc); err != nil {
		return ProvidersConfig{}, fmt.Errorf("config: parse providers yaml: %w", err)
	}

	if pc.Cache.MaxCacheDurationSec == 0 {
		pc.Cache.MaxCacheDurationSec = 86400
	}
	for name, p := range pc.Providers {
		if p.TimeoutSec == 0 {
			p.TimeoutSec = 20
		}
		for kind, entry := range p.Errors {
			p.Errors[kind] = entry.Normalize()
		}
		pc.Providers[name] = p
	}

	if err := providersValidate.Struct(pc); err != nil {
		return ProvidersConfig{}, fmt.Errorf("config: invalid providers config: %w", err)
	}
	for name, p := range pc.Providers {
		if err := providersValidate.Struct(p); err != nil {
			return ProvidersConfig{}, fmt.Errorf("config: invalid provider %q: %w", name, err)
		}
	}

	return pc, nil
}
