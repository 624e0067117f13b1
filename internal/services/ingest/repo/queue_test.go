package repo

import (
	"context"
	"encoding/json"
	"testing"

	"totalimpact-backend/internal/core/item"
	"totalimpact-backend/internal/platform/store"
)

// fakeRows replays a fixed set of (id, aliasJSON) tuples as a store.Rows
type fakeRows struct {
	data []queueRow
	pos  int
}

type queueRow struct {
	id      string
	aliases []item.Alias
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	idPtr := dest[0].(*string)
	*idPtr = row.id
	b, err := json.Marshal(row.aliases)
	if err != nil {
		return err
	}
	jsonPtr := dest[1].(*[]byte)
	*jsonPtr = b
	return nil
}

func (r *fakeRows) Err() error        { return nil }
func (r *fakeRows) Close()            {}
func (r *fakeRows) Columns() []string { return []string{"id", "aliases"} }

// fakeQueueTx is a store.TxRunner whose Query/Tx return a canned fakeRows
// and record executed statements for assertions
type fakeQueueTx struct {
	rows    []queueRow
	execLog []string
}

func (f *fakeQueueTx) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	f.execLog = append(f.execLog, sql)
	var z store.CommandTag
	return z, nil
}

func (f *fakeQueueTx) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	return &fakeRows{data: f.rows}, nil
}

func (f *fakeQueueTx) QueryRow(ctx context.Context, sql string, args ...any) store.Row {
	var z store.Row
	return z
}

func (f *fakeQueueTx) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	return fn(f)
}

func TestAliasQueue_Dequeue_EmptyQueueReturnsNil(t *testing.T) {
	tx := &fakeQueueTx{}
	q := NewAliasQueue(tx, "")

	it, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it != nil {
		t.Fatalf("expected nil item for empty queue, got %+v", it)
	}
}

func TestAliasQueue_Dequeue_DecodesAliasesAndLeases(t *testing.T) {
	tx := &fakeQueueTx{
		rows: []queueRow{{id: "w1", aliases: []item.Alias{{Namespace: "doi", ID: "10.1/a"}}}},
	}
	q := NewAliasQueue(tx, "")

	it, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it == nil {
		t.Fatalf("expected a dequeued item")
	}
	if it.ID != "w1" {
		t.Fatalf("want id w1, got %s", it.ID)
	}
	if it.Aliases.Len() != 1 {
		t.Fatalf("want 1 decoded alias, got %d", it.Aliases.Len())
	}
	if len(tx.execLog) != 1 {
		t.Fatalf("expected a lease UPDATE to be issued, got %d execs", len(tx.execLog))
	}
}

func TestAliasQueue_SaveAndUnqueue_UpdatesThenDeletes(t *testing.T) {
	tx := &fakeQueueTx{}
	q := NewAliasQueue(tx, "")
	it := item.New("w1")

	if err := q.SaveAndUnqueue(context.Background(), it); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tx.execLog) != 2 {
		t.Fatalf("expected an UPDATE and a DELETE, got %d execs: %v", len(tx.execLog), tx.execLog)
	}
}

func TestMetricsQueue_Dequeue_ScopedToProvider(t *testing.T) {
	tx := &fakeQueueTx{rows: []queueRow{{id: "w1"}}}
	q := NewMetricsQueue(tx, "", "github")

	it, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it == nil || it.ID != "w1" {
		t.Fatalf("expected item w1, got %+v", it)
	}
}
