package repo

import (
	"context"

	"totalimpact-backend/internal/core/item"
	perr "totalimpact-backend/internal/platform/errors"
	"totalimpact-backend/internal/platform/store"
)

// ChMetrics writes one item's sampled metric series into ClickHouse as
// flat (item_id, provider, metric, sampled_at, value) rows. A nil
// value is inserted as ClickHouse NULL, preserving the "sampled, no
// result" stamp distinct from the row's absence.
type ChMetrics struct {
	CH    store.Clickhouse
	Table string
}

// NewChMetrics binds ch to table, defaulting to "item_metrics"
func NewChMetrics(ch store.Clickhouse, table string) *ChMetrics {
	if table == "" {
		table = "item_metrics"
	}
	return &ChMetrics{CH: ch, Table: table}
}

// Save flushes every metric series currently recorded on it for the
// given provider into ClickHouse
func (w *ChMetrics) Save(ctx context.Context, provider string, it *item.Item) error {
	var rows [][]any
	for _, name := range it.Metrics.Names() {
		series := it.Metrics.Series(name)
		if series == nil {
			continue
		}
		for ts, v := range series.Values {
			var value any
			if v != nil {
				value = *v
			}
			rows = append(rows, []any{it.ID, provider, name, ts, value})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	if err := w.CH.Insert(ctx, w.Table, rows); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "insert metric samples")
	}
	return nil
}
