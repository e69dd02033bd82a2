package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/healthline/healthline/internal/platform/crud"
)

type row struct {
	ID   int64
	Name string
}

type rowPatch struct {
	Name *string
}

func newRows(s *Store, opts ...Option[row]) *Table[row, rowPatch] {
	return NewTable(s,
		func(r *row, id int64) { r.ID = id },
		func(r *row, p rowPatch) error {
			if p.Name != nil {
				r.Name = *p.Name
			}
			return nil
		},
		opts...,
	)
}

func TestTable_CRUD(t *testing.T) {
	ctx := context.Background()
	tbl := newRows(New())

	a := &row{Name: "a"}
	if err := tbl.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID != 1 {
		t.Errorf("expected id 1, got %d", a.ID)
	}
	_ = tbl.Create(ctx, &row{Name: "b"})

	got, err := tbl.Get(ctx, 1)
	if err != nil || got.Name != "a" {
		t.Fatalf("Get: %+v, %v", got, err)
	}

	name := "renamed"
	upd, err := tbl.Update(ctx, 1, rowPatch{Name: &name})
	if err != nil || upd.Name != "renamed" {
		t.Fatalf("Update: %+v, %v", upd, err)
	}

	rows, _ := tbl.List(ctx)
	if len(rows) != 2 || rows[0].ID != 1 || rows[1].ID != 2 {
		t.Errorf("unexpected list order: %+v", rows)
	}

	if err := tbl.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := tbl.Get(ctx, 1); !errors.Is(err, crud.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := tbl.Delete(ctx, 1); !errors.Is(err, crud.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := tbl.Update(ctx, 99, rowPatch{}); !errors.Is(err, crud.ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
}

func TestTable_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	tbl := newRows(New())
	_ = tbl.Create(ctx, &row{Name: "a"})

	got, _ := tbl.Get(ctx, 1)
	got.Name = "mutated"

	again, _ := tbl.Get(ctx, 1)
	if again.Name != "a" {
		t.Errorf("stored row was mutated through returned pointer: %q", again.Name)
	}
}

func TestTable_Unique(t *testing.T) {
	ctx := context.Background()
	tbl := newRows(New(), Unique(func(a, b *row) bool { return a.Name == b.Name }))

	_ = tbl.Create(ctx, &row{Name: "a"})
	_ = tbl.Create(ctx, &row{Name: "b"})
	if err := tbl.Create(ctx, &row{Name: "a"}); !errors.Is(err, crud.ErrConflict) {
		t.Errorf("expected ErrConflict on create, got %v", err)
	}

	name := "a"
	if _, err := tbl.Update(ctx, 2, rowPatch{Name: &name}); !errors.Is(err, crud.ErrConflict) {
		t.Errorf("expected ErrConflict on update, got %v", err)
	}
	// Renaming a row to its own name is fine.
	if _, err := tbl.Update(ctx, 1, rowPatch{Name: &name}); err != nil {
		t.Errorf("self update: %v", err)
	}
}

func TestStore_InTxRollback(t *testing.T) {
	ctx := context.Background()
	s := New()
	first := newRows(s)
	second := newRows(s)
	_ = first.Create(ctx, &row{Name: "kept"})

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context) error {
		_ = first.Create(ctx, &row{Name: "discarded"})
		_ = second.Create(ctx, &row{Name: "discarded"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	rows, _ := first.List(ctx)
	if len(rows) != 1 || rows[0].Name != "kept" {
		t.Errorf("first table not restored: %+v", rows)
	}
	rows, _ = second.List(ctx)
	if len(rows) != 0 {
		t.Errorf("second table not restored: %+v", rows)
	}

	// Sequence is restored too.
	r := &row{Name: "next"}
	_ = first.Create(ctx, r)
	if r.ID != 2 {
		t.Errorf("expected id 2 after rollback, got %d", r.ID)
	}
}

func TestStore_InTxCommit(t *testing.T) {
	ctx := context.Background()
	s := New()
	tbl := newRows(s)

	if err := s.InTx(ctx, func(ctx context.Context) error {
		return tbl.Create(ctx, &row{Name: "a"})
	}); err != nil {
		t.Fatalf("InTx: %v", err)
	}
	rows, _ := tbl.List(ctx)
	if len(rows) != 1 {
		t.Errorf("expected committed row, got %d", len(rows))
	}
}

type child struct {
	ID       int64
	ParentID int64
}

type childPatch struct {
	ParentID *int64
}

func newChildren(s *Store) *Table[child, childPatch] {
	return NewTable(s,
		func(c *child, id int64) { c.ID = id },
		func(c *child, p childPatch) error {
			if p.ParentID != nil {
				c.ParentID = *p.ParentID
			}
			return nil
		},
		References("parents", func(c *child) int64 { return c.ParentID }),
	)
}

func TestTable_References(t *testing.T) {
	ctx := context.Background()
	s := New()
	parents := newRows(s, Named[row]("parents"))
	children := newChildren(s)

	_ = parents.Create(ctx, &row{Name: "p1"})
	_ = parents.Create(ctx, &row{Name: "p2"})

	if err := children.Create(ctx, &child{ParentID: 999}); !errors.Is(err, crud.ErrInvalidReference) {
		t.Errorf("expected ErrInvalidReference on create, got %v", err)
	}
	c := &child{ParentID: 1}
	if err := children.Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	missing := int64(999)
	if _, err := children.Update(ctx, c.ID, childPatch{ParentID: &missing}); !errors.Is(err, crud.ErrInvalidReference) {
		t.Errorf("expected ErrInvalidReference on update, got %v", err)
	}

	if err := parents.Delete(ctx, 1); !errors.Is(err, crud.ErrReferenced) {
		t.Errorf("expected ErrReferenced, got %v", err)
	}
	if err := parents.Delete(ctx, 2); err != nil {
		t.Errorf("unreferenced parent: %v", err)
	}

	if err := children.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete child: %v", err)
	}
	if err := parents.Delete(ctx, 1); err != nil {
		t.Errorf("parent should be deletable once its child is gone: %v", err)
	}
}

func TestTable_ReferencesToUnregisteredTableAreSkipped(t *testing.T) {
	children := newChildren(New())
	if err := children.Create(context.Background(), &child{ParentID: 5}); err != nil {
		t.Errorf("expected unchecked reference, got %v", err)
	}
}
