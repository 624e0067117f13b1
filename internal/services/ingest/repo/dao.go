package repo

import (
	"context"
	"encoding/json"

	"totalimpact-backend/internal/core/item"
	perr "totalimpact-backend/internal/platform/errors"
	"totalimpact-backend/internal/platform/store"
)

// ItemDAO is the Postgres-backed domain.DAO: item.save() from §6.
type ItemDAO struct {
	DB store.RowQuerier
}

// NewItemDAO binds q as the item persistence seam
func NewItemDAO(q store.RowQuerier) *ItemDAO {
	return &ItemDAO{DB: q}
}

// Save upserts the item's aliases and biblio data. Metric series are
// persisted separately by ChMetrics into ClickHouse, not here.
func (d *ItemDAO) Save(ctx context.Context, it *item.Item) error {
	aliasJSON, err := json.Marshal(it.Aliases.All())
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode aliases")
	}
	biblioJSON, err := json.Marshal(it.Biblio.Data)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode biblio")
	}

	_, err = d.DB.Exec(ctx,
		`INSERT INTO items (id, aliases, biblio, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (id) DO UPDATE
		   SET aliases = EXCLUDED.aliases,
		       biblio = EXCLUDED.biblio,
		       updated_at = now()`,
		it.ID, aliasJSON, biblioJSON,
	)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "save item")
	}
	return nil
}
