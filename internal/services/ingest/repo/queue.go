// Package repo implements the Postgres and ClickHouse collaborators the
// ingest services bind to the domain.Queue and domain.DAO ports.
package repo

import (
	"context"
	"encoding/json"

	"totalimpact-backend/internal/core/item"
	perr "totalimpact-backend/internal/platform/errors"
	"totalimpact-backend/internal/platform/store"

	"github.com/google/uuid"
)

// AliasQueue is a Postgres-backed domain.Queue. Dequeue uses
// SELECT ... FOR UPDATE SKIP LOCKED inside a single transaction so two
// workers never observe the same row: this is the resolution of Open
// Question #2 (alias queue atomicity) in favor of exactly-once delivery
// over the teacher's at-least-once polling.
type AliasQueue struct {
	DB    store.TxRunner
	Table string
}

// NewAliasQueue binds q to table, defaulting to "alias_queue"
func NewAliasQueue(q store.TxRunner, table string) *AliasQueue {
	if table == "" {
		table = "alias_queue"
	}
	return &AliasQueue{DB: q, Table: table}
}

// First peeks the oldest unleased row without removing it
func (q *AliasQueue) First(ctx context.Context) (*item.Item, error) {
	rows, err := q.DB.Query(ctx,
		`SELECT id, aliases FROM `+q.Table+`
		 WHERE leased_at IS NULL
		 ORDER BY enqueued_at ASC
		 LIMIT 1`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQueueRow(rows)
}

// Dequeue pops the oldest unleased row, marking it leased so concurrent
// dequeuers skip it via FOR UPDATE SKIP LOCKED, and returns it decoded
// into an *item.Item. A nil, nil return means the queue is empty.
func (q *AliasQueue) Dequeue(ctx context.Context) (*item.Item, error) {
	var out *item.Item
	err := q.DB.Tx(ctx, func(tx store.RowQuerier) error {
		rows, err := tx.Query(ctx,
			`SELECT id, aliases FROM `+q.Table+`
			 WHERE leased_at IS NULL
			 ORDER BY enqueued_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT 1`,
		)
		if err != nil {
			return err
		}
		it, err := scanQueueRow(rows)
		rows.Close()
		if err != nil || it == nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE `+q.Table+` SET leased_at = now() WHERE id = $1`, it.ID,
		); err != nil {
			return err
		}
		out = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveAndUnqueue persists it's final alias set and removes its row from
// the queue in one transaction, so a crash between the two never leaves
// a partially-applied item (§7's "no item saved in a partial state").
func (q *AliasQueue) SaveAndUnqueue(ctx context.Context, it *item.Item) error {
	aliasJSON, err := marshalAliases(it)
	if err != nil {
		return err
	}
	return q.DB.Tx(ctx, func(tx store.RowQuerier) error {
		if _, err := tx.Exec(ctx,
			`UPDATE items SET aliases = $2, updated_at = now() WHERE id = $1`,
			it.ID, aliasJSON,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM `+q.Table+` WHERE id = $1`, it.ID)
		return err
	})
}

// Enqueue inserts a new alias-queue row for it, generating an id if it
// doesn't already have one
func (q *AliasQueue) Enqueue(ctx context.Context, it *item.Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	aliasJSON, err := marshalAliases(it)
	if err != nil {
		return err
	}
	_, err = q.DB.Exec(ctx,
		`INSERT INTO `+q.Table+` (id, aliases, enqueued_at) VALUES ($1, $2, now())
		 ON CONFLICT (id) DO NOTHING`,
		it.ID, aliasJSON,
	)
	return err
}

func scanQueueRow(rows store.Rows) (*item.Item, error) {
	if !rows.Next() {
		return nil, rows.Err()
	}
	var id string
	var aliasJSON []byte
	if err := rows.Scan(&id, &aliasJSON); err != nil {
		return nil, err
	}

	it := item.New(id)
	var aliases []item.Alias
	if len(aliasJSON) > 0 {
		if err := json.Unmarshal(aliasJSON, &aliases); err != nil {
			return nil, perr.Wrap(err, perr.KindContentMalformed, "decode queued aliases")
		}
	}
	it.Aliases.AddUnique(aliases)
	return it, nil
}

func marshalAliases(it *item.Item) ([]byte, error) {
	b, err := json.Marshal(it.Aliases.All())
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "encode aliases")
	}
	return b, nil
}

// MetricsQueue is a per-provider Postgres-backed domain.Queue for the
// Metrics Thread (C5's per-provider worker), mirroring AliasQueue but
// scoped to a single provider's table partition via Provider.
type MetricsQueue struct {
	DB       store.TxRunner
	Table    string
	Provider string
}

// NewMetricsQueue binds q to table (default "metrics_queue") scoped to provider
func NewMetricsQueue(q store.TxRunner, table, provider string) *MetricsQueue {
	if table == "" {
		table = "metrics_queue"
	}
	return &MetricsQueue{DB: q, Table: table, Provider: provider}
}

// First peeks this provider's oldest unleased row
func (q *MetricsQueue) First(ctx context.Context) (*item.Item, error) {
	rows, err := q.DB.Query(ctx,
		`SELECT id, aliases FROM `+q.Table+`
		 WHERE provider = $1 AND leased_at IS NULL
		 ORDER BY enqueued_at ASC LIMIT 1`,
		q.Provider,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQueueRow(rows)
}

// Dequeue pops this provider's oldest unleased row under SKIP LOCKED
func (q *MetricsQueue) Dequeue(ctx context.Context) (*item.Item, error) {
	var out *item.Item
	err := q.DB.Tx(ctx, func(tx store.RowQuerier) error {
		rows, err := tx.Query(ctx,
			`SELECT id, aliases FROM `+q.Table+`
			 WHERE provider = $1 AND leased_at IS NULL
			 ORDER BY enqueued_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT 1`,
			q.Provider,
		)
		if err != nil {
			return err
		}
		it, err := scanQueueRow(rows)
		rows.Close()
		if err != nil || it == nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE `+q.Table+` SET leased_at = now() WHERE id = $1 AND provider = $2`,
			it.ID, q.Provider,
		); err != nil {
			return err
		}
		out = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveAndUnqueue removes it from this provider's metrics queue; metric
// values themselves are written by ChMetrics, not here
func (q *MetricsQueue) SaveAndUnqueue(ctx context.Context, it *item.Item) error {
	_, err := q.DB.Exec(ctx,
		`DELETE FROM `+q.Table+` WHERE id = $1 AND provider = $2`, it.ID, q.Provider,
	)
	return err
}

// Enqueue inserts a new metrics-queue row scoped to this provider
func (q *MetricsQueue) Enqueue(ctx context.Context, it *item.Item) error {
	aliasJSON, err := marshalAliases(it)
	if err != nil {
		return err
	}
	_, err = q.DB.Exec(ctx,
		`INSERT INTO `+q.Table+` (id, provider, aliases, enqueued_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (id, provider) DO NOTHING`,
		it.ID, q.Provider, aliasJSON,
	)
	return err
}
