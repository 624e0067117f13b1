package provider

import "fmt"

// Factory builds a Provider from its decoded config. Adapters register a
// Factory under their provider name at init() time; the supervisor
// resolves providers by name from config, never by class-name string or
// reflection (REDESIGN FLAG: dynamic dispatch over providers).
type Factory func(cfg Config) (*Provider, error)

// Config is the minimal shape a Factory needs out of the decoded
// PROVIDERS.<name> config block (see platform/config/providers.go for the
// full decode target); kept narrow here so core/provider has no
// dependency on the config package.
type Config struct {
	Name          string
	Workers       int
	AliasesURL    string
	BiblioURL     string
	MetricsURL    string
	TimeoutSec    int
	RatePeriodSec int
	RateLimit     int
	Throttled     bool
	Errors        map[string]RetryPolicyEntry
}

var registry = make(map[string]Factory)

// Register adds a Factory under name. Calling Register twice for the same
// name is a programmer error and panics, matching the teacher's
// fail-fast init()-time registration style elsewhere in the codebase.
func Register(name string, f Factory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("provider: duplicate registration for %q", name))
	}
	registry[name] = f
}

// Build resolves name in the registry and constructs a Provider from cfg.
func Build(name string, cfg Config) (*Provider, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("provider: no adapter registered for %q", name)
	}
	return f(cfg)
}

// Names returns every currently registered provider name
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	return out
}
