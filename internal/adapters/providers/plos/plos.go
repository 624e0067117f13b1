// Package plos implements a metrics-only provider.Extractor over the
// PLOS Article-Level Metrics endpoint, exercising the default
// verbatim-id substitution template (no TemplateFor override, unlike
// github's comma-to-slash rewrite).
package plos

import (
	"context"
	"encoding/json"

	"totalimpact-backend/internal/core/fetch"
	"totalimpact-backend/internal/core/item"
	"totalimpact-backend/internal/core/provider"
	perr "totalimpact-backend/internal/platform/errors"
)

// MetricNames is the closed list of metrics this provider emits
var MetricNames = []string{"plos:html_views", "plos:pdf_views", "plos:citations"}

type almDoc struct {
	Data []struct {
		CanonicalURL string `json:"canonical_url"`
		Counts       struct {
			HTMLViews float64 `json:"html_views"`
			PDFViews  float64 `json:"pdf_views"`
			Citations float64 `json:"citations"`
		} `json:"counts"`
	} `json:"data"`
}

// Extractor implements provider.Extractor against the PLOS ALM endpoint.
// It does not provide aliases or biblio; the Aliases and Biblio methods
// exist only to satisfy the interface and are never invoked because the
// provider descriptor's capabilities mark them unsupported.
type Extractor struct {
	Fetch *fetch.Fetcher
}

// New builds an Extractor using fetcher for all HTTP access
func New(fetcher *fetch.Fetcher) *Extractor {
	return &Extractor{Fetch: fetcher}
}

// Aliases is a no-op; plos provides metrics only
func (e *Extractor) Aliases(ctx context.Context, aliases []item.Alias, templateURL string) ([]item.Alias, error) {
	return nil, nil
}

// Biblio is a no-op; plos provides metrics only
func (e *Extractor) Biblio(ctx context.Context, aliases []item.Alias, templateURL string) (map[string]any, error) {
	return nil, nil
}

// Metrics fetches the ALM document and extracts view and citation counts
func (e *Extractor) Metrics(ctx context.Context, aliases []item.Alias, templateURL string) (map[string]float64, error) {
	body, err := e.Fetch.Get(ctx, templateURL, fetch.Options{})
	if err != nil {
		return nil, err
	}
	var doc almDoc
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, perr.Wrap(err, perr.KindContentMalformed, "plos: decode alm document")
	}
	if len(doc.Data) == 0 {
		return nil, perr.New(perr.KindValidationFailed, "plos: alm document has no data entries")
	}
	counts := doc.Data[0].Counts
	return map[string]float64{
		"plos:html_views": counts.HTMLViews,
		"plos:pdf_views":  counts.PDFViews,
		"plos:citations":  counts.Citations,
	}, nil
}

var _ provider.Extractor = (*Extractor)(nil)
