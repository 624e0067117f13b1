// Package github implements a provider.Extractor over the GitHub
// repository metadata endpoint: aliases, biblio, and watcher/fork
// metrics all come from the same repository document.
package github

import (
	"context"
	"encoding/json"
	"strings"

	"totalimpact-backend/internal/core/fetch"
	"totalimpact-backend/internal/core/item"
	"totalimpact-backend/internal/core/provider"
	perr "totalimpact-backend/internal/platform/errors"
)

// MetricNames is the closed list of metrics this provider emits
var MetricNames = []string{"github:watchers", "github:forks"}

// repoDoc is the subset of the GitHub repository document this extractor reads
type repoDoc struct {
	Repository struct {
		Name      string `json:"name"`
		Description string `json:"description"`
		Owner     string `json:"owner"`
		URL       string `json:"url"`
		PushedAt  string `json:"pushed_at"`
		CreatedAt string `json:"created_at"`
		Watchers  float64 `json:"watchers"`
		Forks     float64 `json:"forks"`
	} `json:"repository"`
}

// Extractor implements provider.Extractor against the GitHub repo endpoint
type Extractor struct {
	Fetch *fetch.Fetcher
}

// New builds an Extractor using fetcher for all HTTP access
func New(fetcher *fetch.Fetcher) *Extractor {
	return &Extractor{Fetch: fetcher}
}

// TemplateFor implements the "," to "/" id-template override §4.1 calls
// out explicitly: GitHub aliases are stored as "owner,repo" but the API
// path wants "owner/repo".
func TemplateFor(_ provider.Method, tmpl string, best item.Alias) string {
	id := strings.ReplaceAll(best.ID, ",", "/")
	return strings.Replace(tmpl, "%s", id, 1)
}

func (e *Extractor) fetchDoc(ctx context.Context, templateURL string) (*repoDoc, error) {
	body, err := e.Fetch.Get(ctx, templateURL, fetch.Options{})
	if err != nil {
		return nil, err
	}
	var doc repoDoc
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, perr.Wrap(err, perr.KindContentMalformed, "github: decode repository document")
	}
	return &doc, nil
}

// Aliases extracts the canonical url and title alias pair from the repo document
func (e *Extractor) Aliases(ctx context.Context, aliases []item.Alias, templateURL string) ([]item.Alias, error) {
	doc, err := e.fetchDoc(ctx, templateURL)
	if err != nil {
		return nil, err
	}
	return []item.Alias{
		{Namespace: "url", ID: doc.Repository.URL},
		{Namespace: "title", ID: doc.Repository.Name},
	}, nil
}

// Biblio extracts the repository's descriptive fields
func (e *Extractor) Biblio(ctx context.Context, aliases []item.Alias, templateURL string) (map[string]any, error) {
	doc, err := e.fetchDoc(ctx, templateURL)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"title":          doc.Repository.Name,
		"description":    doc.Repository.Description,
		"owner":          doc.Repository.Owner,
		"url":            doc.Repository.URL,
		"last_push_date": doc.Repository.PushedAt,
		"create_date":    doc.Repository.CreatedAt,
	}, nil
}

// Metrics extracts watcher and fork counts
func (e *Extractor) Metrics(ctx context.Context, aliases []item.Alias, templateURL string) (map[string]float64, error) {
	doc, err := e.fetchDoc(ctx, templateURL)
	if err != nil {
		return nil, err
	}
	return map[string]float64{
		"github:watchers": doc.Repository.Watchers,
		"github:forks":    doc.Repository.Forks,
	}, nil
}

var _ provider.Extractor = (*Extractor)(nil)
