package provider

import "totalimpact-backend/internal/core/fetch"

// sharedFetcher is the process-wide HTTP fetcher every Factory builds its
// Extractor against. §5 requires the content cache to be "shared and
// safe for concurrent reads and writes"; a single Fetcher instance per
// process, rather than one per provider, is how that sharing is
// satisfied without threading a cache argument through every adapter's
// Factory signature.
var sharedFetcher *fetch.Fetcher

// SetSharedFetcher installs the Fetcher every subsequently-built Provider
// draws on. Call once during startup, before Build.
func SetSharedFetcher(f *fetch.Fetcher) { sharedFetcher = f }

// SharedFetcher returns the installed Fetcher, or a cacheless default if
// none was installed (useful in tests that don't care about caching).
func SharedFetcher() *fetch.Fetcher {
	if sharedFetcher == nil {
		sharedFetcher = fetch.New(nil)
	}
	return sharedFetcher
}
