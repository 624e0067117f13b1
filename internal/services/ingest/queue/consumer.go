// Package queue implements the Queue Consumer (C4): a blocking iterator
// over a named persistent queue that shepherds each popped item through a
// registered processor before unqueuing it.
package queue

import (
	"context"
	"time"

	"totalimpact-backend/internal/core/item"
	"totalimpact-backend/internal/core/provider"
	"totalimpact-backend/internal/platform/logger"
	"totalimpact-backend/internal/services/ingest/domain"
)

// pollInterval is the sleep between empty dequeues, per §4.4
const pollInterval = 500 * time.Millisecond

// Processor handles one dequeued item in place. The item it mutated is
// saved via SaveAndUnqueue regardless of any error it logs internally — a failed
// item is still dequeued (§7, "the alternative... would cause
// hot-looping").
type Processor func(ctx context.Context, it *item.Item)

// Consumer drives Queue with a Processor until ctx is cancelled.
type Consumer struct {
	Name      string
	Queue     domain.Queue
	Process   Processor
}

// Run blocks, repeatedly dequeuing and processing items, until ctx is
// cancelled. It returns nil on a clean shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	log := logger.Named("queue." + c.Name)
	for {
		if ctx.Err() != nil {
			return nil
		}

		it, err := c.Queue.Dequeue(ctx)
		if err != nil {
			log.Error().Err(err).Msg("dequeue failed")
			provider.SleepInterruptible(ctx, pollInterval)
			continue
		}
		if it == nil {
			provider.SleepInterruptible(ctx, pollInterval)
			continue
		}

		c.Process(ctx, it)

		if err := c.Queue.SaveAndUnqueue(ctx, it); err != nil {
			log.Error().Err(err).Str("item_id", it.ID).Msg("save_and_unqueue failed")
		}
	}
}
