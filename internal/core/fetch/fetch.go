// Package fetch implements the cache-consulting HTTP GET that providers'
// extractors and the bespoke provider clients build on, mapping transport
// and status outcomes onto the shared error taxonomy.
package fetch

import (
	"context"
	"io"
	"net/http"
	"time"

	perr "totalimpact-backend/internal/platform/errors"
)

// DefaultTimeout is the GET timeout applied when none is given (§4.2)
const DefaultTimeout = 20 * time.Second

// Cache is the write-through content cache the Fetcher consults. Get
// returns (body, true) on a hit. Implementations MUST be safe for
// concurrent reads and writes (§5, "HTTP content cache is shared").
type Cache interface {
	Get(key string) (body string, ok bool)
	Set(key, body string)
	MaxCacheDuration() time.Duration
}

// Fetcher performs a single GET with timeout, consulting Cache first and
// mapping outcomes onto the taxonomy.
type Fetcher struct {
	Client *http.Client
	Cache  Cache
}

// New builds a Fetcher with the given cache and a client using DefaultTimeout
func New(cache Cache) *Fetcher {
	return &Fetcher{
		Client: &http.Client{Timeout: DefaultTimeout},
		Cache:  cache,
	}
}

// Options tunes a single Get call
type Options struct {
	Headers map[string]string
	Timeout time.Duration
}

// Get performs the cache-consulting GET described in §4.2. It does not
// retry; callers that need the Invocation Engine's retry loop around a
// fetch run Get through that engine instead, per §4.2's "no duplication"
// instruction.
func (f *Fetcher) Get(ctx context.Context, url string, opts Options) (string, error) {
	if f.Cache != nil {
		if body, ok := f.Cache.Get(url); ok {
			return body, nil
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", perr.Wrap(err, perr.KindHTTPError, "fetch: build request failed")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			return "", perr.Wrap(err, perr.KindHTTPTimeout, "fetch: request timed out")
		}
		return "", perr.Wrap(err, perr.KindHTTPError, "fetch: transport error")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", perr.Wrap(err, perr.KindHTTPError, "fetch: read body failed")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		s := string(body)
		if f.Cache != nil {
			f.Cache.Set(url, s)
		}
		return s, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 600:
		return "", perr.Newf(perr.KindClientServerError, "fetch: http status %d", resp.StatusCode)
	default:
		return "", perr.Newf(perr.KindHTTPError, "fetch: unexpected http status %d", resp.StatusCode)
	}
}
