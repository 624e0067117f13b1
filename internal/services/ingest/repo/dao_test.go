package repo

import (
	"context"
	"testing"

	"totalimpact-backend/internal/core/item"
	"totalimpact-backend/internal/platform/store"
)

type fakeRowQuerier struct {
	execSQL  string
	execArgs []any
	execErr  error
}

func (f *fakeRowQuerier) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	f.execSQL = sql
	f.execArgs = args
	var z store.CommandTag
	return z, f.execErr
}

func (f *fakeRowQuerier) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	var z store.Rows
	return z, nil
}

func (f *fakeRowQuerier) QueryRow(ctx context.Context, sql string, args ...any) store.Row {
	var z store.Row
	return z
}

func TestItemDAO_Save_EncodesAliasesAndBiblio(t *testing.T) {
	it := item.New("w123")
	it.Aliases.AddUnique([]item.Alias{{Namespace: "doi", ID: "10.1/a"}})
	it.Biblio.Merge(map[string]any{"title": "a paper"})

	q := &fakeRowQuerier{}
	dao := NewItemDAO(q)

	if err := dao.Save(context.Background(), it); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if q.execSQL == "" {
		t.Fatalf("expected an Exec call")
	}
	if q.execArgs[0] != "w123" {
		t.Fatalf("expected first arg to be item id, got %v", q.execArgs[0])
	}
}

func TestItemDAO_Save_PropagatesExecError(t *testing.T) {
	it := item.New("w123")
	q := &fakeRowQuerier{execErr: context.DeadlineExceeded}
	dao := NewItemDAO(q)

	if err := dao.Save(context.Background(), it); err == nil {
		t.Fatalf("expected Save to propagate the Exec error")
	}
}
