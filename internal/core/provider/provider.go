// Package provider declares the provider descriptor contract the
// invocation engine drives: capabilities, namespaces, retry policy, rate
// limiting, and method dispatch over a single upstream service.
package provider

import (
	"context"

	"totalimpact-backend/internal/core/item"
)

// Method is one of the three invocation kinds a provider may be called for
type Method string

const (
	MethodAliases Method = "aliases"
	MethodBiblio  Method = "biblio"
	MethodMetrics Method = "metrics"
)

// Result is the tagged variant an extractor returns, replacing the source's
// dynamically-typed method returns with a closed set the engine can
// pattern-match on instead of inspecting shapes.
type Result struct {
	Aliases []item.Alias
	Biblio  map[string]any
	Metrics map[string]float64
}

// Capabilities declares which methods a provider implements
type Capabilities struct {
	ProvidesAliases bool
	ProvidesBiblio  bool
	ProvidesMetrics bool
	ProvidesMembers bool
}

// Namespaces declares, per method, which alias namespaces a provider
// recognises as input
type Namespaces struct {
	Aliases []string
	Biblio  []string
	Metrics []string
}

// Extractor is the pure-function boundary a concrete adapter implements:
// body-to-structure parsing that raises only taxonomy errors (see
// platform/errors taxonomy kinds). The Invocation Engine is the only
// caller; extractors never retry or sleep themselves.
type Extractor interface {
	Aliases(ctx context.Context, aliases []item.Alias, templateURL string) ([]item.Alias, error)
	Biblio(ctx context.Context, aliases []item.Alias, templateURL string) (map[string]any, error)
	Metrics(ctx context.Context, aliases []item.Alias, templateURL string) (map[string]float64, error)
}

// Provider is the full descriptor the engine consults: capabilities,
// namespaces, url templates, a retry policy table, a metric name list,
// alias relevance, and the rate-limit sub-machine (§4.1), plus the
// extractor used to actually perform the method call.
type Provider struct {
	Name string

	Capabilities Capabilities
	Namespaces   Namespaces

	// MetricNames is the closed list of metric keys this provider emits
	MetricNames []string

	// Templates holds the url templates, one per method, keyed by Method.
	// A method with no entry gets an empty URL from BuildURL.
	Templates map[Method]string

	// TemplateFor overrides how an alias id is substituted into a method's
	// template, e.g. GitHub replacing "," with "/" before interpolation.
	// Nil means the default: substitute the best id verbatim.
	TemplateFor func(method Method, tmpl string, best item.Alias) string

	// IsRelevantAlias reports whether alias belongs to this provider at all
	IsRelevantAliasFn func(a item.Alias) bool

	Policy Policy

	RateLimit *RateLimiter

	Extractor Extractor
}

// ProvidesMetrics reports the metrics capability
func (p *Provider) ProvidesMetrics() bool { return p.Capabilities.ProvidesMetrics }

// ProvidesAliases reports the aliases capability
func (p *Provider) ProvidesAliases() bool { return p.Capabilities.ProvidesAliases }

// ProvidesBiblio reports the biblio capability
func (p *Provider) ProvidesBiblio() bool { return p.Capabilities.ProvidesBiblio }

// ProvidesMembers reports the members capability
func (p *Provider) ProvidesMembers() bool { return p.Capabilities.ProvidesMembers }

// NamespacesFor returns the namespace list a method reads aliases from
func (p *Provider) NamespacesFor(m Method) []string {
	switch m {
	case MethodAliases:
		return p.Namespaces.Aliases
	case MethodBiblio:
		return p.Namespaces.Biblio
	case MethodMetrics:
		return p.Namespaces.Metrics
	default:
		return nil
	}
}

// IsRelevantAlias reports whether alias falls in any namespace this
// provider recognises for any method
func (p *Provider) IsRelevantAlias(a item.Alias) bool {
	if p.IsRelevantAliasFn != nil {
		return p.IsRelevantAliasFn(a)
	}
	for _, ns := range append(append(append([]string{}, p.Namespaces.Aliases...), p.Namespaces.Biblio...), p.Namespaces.Metrics...) {
		if ns == a.Namespace {
			return true
		}
	}
	return false
}

// TemplateForMethod resolves the url template configured for a method
func (p *Provider) TemplateForMethod(m Method) string {
	if p.Templates == nil {
		return ""
	}
	return p.Templates[m]
}

// BuildURL substitutes the best available alias id into the method's
// template. Default behaviour: verbatim substitution of the first
// namespace-matching alias id; TemplateFor overrides when set (e.g. a
// "," to "/" swap for path-shaped ids).
func (p *Provider) BuildURL(m Method, aliases []item.Alias) string {
	tmpl := p.TemplateForMethod(m)
	if tmpl == "" || len(aliases) == 0 {
		return ""
	}
	best := aliases[0]
	if p.TemplateFor != nil {
		return p.TemplateFor(m, tmpl, best)
	}
	return defaultSubstitute(tmpl, best.ID)
}

func defaultSubstitute(tmpl, id string) string {
	const placeholder = "%s"
	out := make([]byte, 0, len(tmpl)+len(id))
	for i := 0; i < len(tmpl); {
		if i+len(placeholder) <= len(tmpl) && tmpl[i:i+len(placeholder)] == placeholder {
			out = append(out, id...)
			i += len(placeholder)
			continue
		}
		out = append(out, tmpl[i])
		i++
	}
	return string(out)
}

// Invoke dispatches to the extractor for the given method. The engine is
// the only intended caller; this does not retry or rate-limit.
func (p *Provider) Invoke(ctx context.Context, m Method, aliases []item.Alias) (Result, error) {
	url := p.BuildURL(m, aliases)
	switch m {
	case MethodAliases:
		out, err := p.Extractor.Aliases(ctx, aliases, url)
		return Result{Aliases: out}, err
	case MethodBiblio:
		out, err := p.Extractor.Biblio(ctx, aliases, url)
		return Result{Biblio: out}, err
	case MethodMetrics:
		out, err := p.Extractor.Metrics(ctx, aliases, url)
		return Result{Metrics: out}, err
	default:
		return Result{}, nil
	}
}
