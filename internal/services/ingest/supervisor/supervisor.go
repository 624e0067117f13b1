// Package supervisor implements the Backend Supervisor (C5): it builds
// the provider list, spawns the alias and per-provider metrics worker
// pools, and drives them to a coordinated shutdown on signal.
package supervisor

import (
	"context"
	"time"

	"totalimpact-backend/internal/core/engine"
	"totalimpact-backend/internal/core/item"
	"totalimpact-backend/internal/core/provider"
	"totalimpact-backend/internal/platform/logger"
	"totalimpact-backend/internal/services/ingest/domain"
	"totalimpact-backend/internal/services/ingest/queue"

	"golang.org/x/sync/errgroup"
)

// Config wires the worker pool sizes and collaborators a Supervisor needs
type Config struct {
	// Providers is the full provider list, walked in order by every
	// AliasThread (§4.5)
	Providers []*provider.Provider

	// AliasWorkers is N, the AliasThread pool size
	AliasWorkers int

	AliasQueue domain.Queue
	DAO        domain.DAO

	// MetricsQueues maps provider name to its dedicated metrics queue
	MetricsQueues map[string]domain.Queue

	// MetricsWorkers maps provider name to M_p, its metrics thread count
	MetricsWorkers map[string]int

	MetricsWriter domain.MetricsWriter
}

// Supervisor owns the full worker pool for one ingest pipeline instance
type Supervisor struct {
	cfg Config
}

// New builds a Supervisor from cfg
func New(cfg Config) *Supervisor {
	return &Supervisor{cfg: cfg}
}

// Run spawns every AliasThread and MetricsThread(p) and blocks until ctx
// is cancelled (by the caller, typically on SIGINT/SIGTERM) or a worker
// returns an unrecoverable error. It returns nil on an orderly shutdown.
func (s *Supervisor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	log := logger.Named("supervisor")

	n := s.cfg.AliasWorkers
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		c := &queue.Consumer{
			Name:    "alias",
			Queue:   s.cfg.AliasQueue,
			Process: s.aliasProcessor(),
		}
		g.Go(func() error { return c.Run(gctx) })
	}

	for _, p := range s.cfg.Providers {
		if !p.ProvidesMetrics() {
			continue
		}
		q, ok := s.cfg.MetricsQueues[p.Name]
		if !ok {
			log.Warn().Str("provider", p.Name).Msg("metrics provider has no queue configured, skipping")
			continue
		}
		m := s.cfg.MetricsWorkers[p.Name]
		if m <= 0 {
			m = 1
		}
		for i := 0; i < m; i++ {
			c := &queue.Consumer{
				Name:    "metrics." + p.Name,
				Queue:   q,
				Process: s.metricsProcessor(p),
			}
			g.Go(func() error { return c.Run(gctx) })
		}
	}

	log.Info().Int("alias_workers", n).Int("providers", len(s.cfg.Providers)).Msg("supervisor started")
	err := g.Wait()
	log.Info().Msg("supervisor stopped")
	return err
}

// aliasProcessor walks every provider in order for one item, per §4.5:
// aliases then biblio per provider, breaking the provider loop on either
// step's terminal failure and clearing aliases on an aliases failure.
func (s *Supervisor) aliasProcessor() queue.Processor {
	return func(ctx context.Context, it *item.Item) {
		log := logger.C(ctx).With().Str("item_id", it.ID).Logger()

		for _, p := range s.cfg.Providers {
			aliasOutcome := engine.Invoke(ctx, it, p, provider.MethodAliases)
			if !aliasOutcome.Success {
				log.Warn().Str("provider", p.Name).Msg("aliases failed terminally, clearing and abandoning item")
				it.Aliases.Clear()
				break
			}
			if len(aliasOutcome.Response.Aliases) > 0 {
				it.Aliases.AddUnique(aliasOutcome.Response.Aliases)
			}

			biblioOutcome := engine.Invoke(ctx, it, p, provider.MethodBiblio)
			if !biblioOutcome.Success {
				log.Warn().Str("provider", p.Name).Msg("biblio failed terminally, stopping provider walk for item")
				break
			}
			if biblioOutcome.Response.Biblio != nil {
				it.Biblio.Merge(biblioOutcome.Response.Biblio)
			}
		}

		if s.cfg.DAO != nil {
			if err := s.cfg.DAO.Save(ctx, it); err != nil {
				log.Error().Err(err).Msg("save failed after provider walk")
			}
		}
	}
}

// metricsProcessor runs exactly p's metrics method for one item, null
// stamping every one of p's metric names on empty or terminal failure so
// the item is never requeued for the same metric (§4.5).
func (s *Supervisor) metricsProcessor(p *provider.Provider) queue.Processor {
	return func(ctx context.Context, it *item.Item) {
		log := logger.C(ctx).With().Str("item_id", it.ID).Str("provider", p.Name).Logger()
		now := time.Now().UTC()

		outcome := engine.Invoke(ctx, it, p, provider.MethodMetrics)
		if outcome.Success && len(outcome.Response.Metrics) > 0 {
			for k, v := range outcome.Response.Metrics {
				val := v
				it.Metrics.Stamp(k, now, &val)
			}
		} else {
			for _, name := range p.MetricNames {
				it.Metrics.Stamp(name, now, nil)
			}
		}

		if s.cfg.MetricsWriter != nil {
			if err := s.cfg.MetricsWriter.Save(ctx, p.Name, it); err != nil {
				log.Error().Err(err).Msg("metrics save failed")
			}
		}
	}
}
