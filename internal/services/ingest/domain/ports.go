// Package domain declares the external-collaborator contracts §6 assigns
// to the queue and DAO layers: pure ports the ingest services bind a
// concrete (Postgres/ClickHouse-backed) implementation to.
package domain

import (
	"context"

	"totalimpact-backend/internal/core/item"
)

// Queue is the blocking-iterator contract the Queue Consumer (C4) drives.
// Implementations MUST give dequeue exactly-once delivery semantics
// within a single logical queue (see DESIGN.md's resolution of Open
// Question #2).
type Queue interface {
	// First peeks the head item without removing it, or returns (nil, nil)
	// when the queue is empty.
	First(ctx context.Context) (*item.Item, error)

	// Dequeue pops and returns the head item, or (nil, nil) when empty.
	Dequeue(ctx context.Context) (*item.Item, error)

	// SaveAndUnqueue persists it's mutated state and removes it from the
	// queue atomically from the consumer's perspective.
	SaveAndUnqueue(ctx context.Context, it *item.Item) error
}

// DAO is the storage contract: item.save() from §6, opaque beyond the
// read-your-writes guarantee.
type DAO interface {
	Save(ctx context.Context, it *item.Item) error
}

// MetricsWriter persists one provider's sampled metric series for an
// item, kept distinct from DAO because metrics land in a columnar store
// while aliases/biblio land in Postgres.
type MetricsWriter interface {
	Save(ctx context.Context, provider string, it *item.Item) error
}
