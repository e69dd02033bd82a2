// Package memstore provides in-memory record tables used by STORE_DRIVER=memory
// and by unit tests. A Store groups tables so that InTx can snapshot and
// restore all of them together.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/healthline/healthline/internal/platform/crud"
)

type snapshotter interface {
	snapshot() func()
}

type lookup interface {
	has(id int64) bool
}

// backref lets a referenced table ask whether a row still points at id.
type backref struct {
	target string
	holds  func(id int64) bool
}

type Store struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	tables []snapshotter
	named  map[string]lookup
	refs   []backref
}

func New() *Store { return &Store{named: make(map[string]lookup)} }

func (s *Store) register(t snapshotter) {
	s.mu.Lock()
	s.tables = append(s.tables, t)
	s.mu.Unlock()
}

func (s *Store) name(name string, t lookup) {
	s.mu.Lock()
	s.named[name] = t
	s.mu.Unlock()
}

func (s *Store) addBackref(r backref) {
	s.mu.Lock()
	s.refs = append(s.refs, r)
	s.mu.Unlock()
}

func (s *Store) table(name string) lookup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.named[name]
}

// referenced reports whether any row of another table points at id in the
// table registered as name. It must be called without table locks held.
func (s *Store) referenced(name string, id int64) bool {
	s.mu.Lock()
	var checks []func(int64) bool
	for _, r := range s.refs {
		if r.target == name {
			checks = append(checks, r.holds)
		}
	}
	s.mu.Unlock()

	for _, holds := range checks {
		if holds(id) {
			return true
		}
	}
	return false
}

// InTx runs fn with all tables snapshotted. If fn returns an error every
// table is restored to its state before the call. Transactions are
// serialized; writes made outside InTx while one is running are lost on
// rollback.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	restores := make([]func(), len(s.tables))
	for i, t := range s.tables {
		restores[i] = t.snapshot()
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// Table stores rows of T keyed by a sequential int64 id.
type Table[T any, P any] struct {
	mu     sync.RWMutex
	rows   map[int64]T
	nextID int64
	setID  func(*T, int64)
	apply  func(*T, P) error
	unique func(a, b *T) bool

	store *Store
	name  string
	refs  []reference[T]
}

// Option configures a Table.
type Option[T any] func(*tableOpts[T])

type tableOpts[T any] struct {
	unique func(a, b *T) bool
	name   string
	refs   []reference[T]
}

type reference[T any] struct {
	target string
	key    func(*T) int64
}

// Named registers the table under name so that other tables can reference
// it with References.
func Named[T any](name string) Option[T] {
	return func(o *tableOpts[T]) { o.name = name }
}

// References declares a foreign key: when key returns a non-zero id it must
// exist in the table registered as target, and rows of target cannot be
// deleted while a row points at them. References to a table that was never
// registered with the store are not checked.
func References[T any](target string, key func(*T) int64) Option[T] {
	return func(o *tableOpts[T]) {
		o.refs = append(o.refs, reference[T]{target: target, key: key})
	}
}

// Unique rejects a Create or Update whose result collides with an existing
// row according to eq.
func Unique[T any](eq func(a, b *T) bool) Option[T] {
	return func(o *tableOpts[T]) { o.unique = eq }
}

// NewTable registers a table with s. setID assigns the generated id; apply
// merges a patch into a row and may reject it.
func NewTable[T any, P any](s *Store, setID func(*T, int64), apply func(*T, P) error, opts ...Option[T]) *Table[T, P] {
	var o tableOpts[T]
	for _, opt := range opts {
		opt(&o)
	}
	t := &Table[T, P]{
		rows:   make(map[int64]T),
		setID:  setID,
		apply:  apply,
		unique: o.unique,
		store:  s,
		name:   o.name,
		refs:   o.refs,
	}
	if s == nil {
		return t
	}
	s.register(t)
	if t.name != "" {
		s.name(t.name, t)
	}
	for _, r := range t.refs {
		key := r.key
		s.addBackref(backref{target: r.target, holds: func(id int64) bool {
			return t.holds(key, id)
		}})
	}
	return t
}

// Optional reads a nullable key for References; nil is treated as unset.
func Optional(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

func (t *Table[T, P]) has(id int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rows[id]
	return ok
}

func (t *Table[T, P]) holds(key func(*T) int64, id int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, row := range t.rows {
		if key(&row) == id {
			return true
		}
	}
	return false
}

// checkRefs may be called with t.mu held; it only locks the target tables.
func (t *Table[T, P]) checkRefs(rec *T) error {
	if t.store == nil {
		return nil
	}
	for _, r := range t.refs {
		id := r.key(rec)
		if id == 0 {
			continue
		}
		target := t.store.table(r.target)
		if target != nil && !target.has(id) {
			return crud.ErrInvalidReference
		}
	}
	return nil
}

func (t *Table[T, P]) snapshot() func() {
	t.mu.RLock()
	rows := make(map[int64]T, len(t.rows))
	for k, v := range t.rows {
		rows[k] = v
	}
	next := t.nextID
	t.mu.RUnlock()

	return func() {
		t.mu.Lock()
		t.rows = rows
		t.nextID = next
		t.mu.Unlock()
	}
}

func (t *Table[T, P]) sortedIDs() []int64 {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *Table[T, P]) List(_ context.Context) ([]*T, error) {
	return t.Filter(func(*T) bool { return true }), nil
}

// Filter returns copies of the rows matching keep, in id order.
func (t *Table[T, P]) Filter(keep func(*T) bool) []*T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*T, 0)
	for _, id := range t.sortedIDs() {
		row := t.rows[id]
		if keep(&row) {
			out = append(out, &row)
		}
	}
	return out
}

func (t *Table[T, P]) Get(_ context.Context, id int64) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.rows[id]
	if !ok {
		return nil, crud.ErrNotFound
	}
	return &row, nil
}

func (t *Table[T, P]) Create(_ context.Context, rec *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.collides(rec, 0) {
		return crud.ErrConflict
	}
	if err := t.checkRefs(rec); err != nil {
		return err
	}
	t.nextID++
	t.setID(rec, t.nextID)
	t.rows[t.nextID] = *rec
	return nil
}

func (t *Table[T, P]) Update(_ context.Context, id int64, patch P) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[id]
	if !ok {
		return nil, crud.ErrNotFound
	}
	if err := t.apply(&row, patch); err != nil {
		return nil, err
	}
	if t.collides(&row, id) {
		return nil, crud.ErrConflict
	}
	if err := t.checkRefs(&row); err != nil {
		return nil, err
	}
	t.rows[id] = row
	return &row, nil
}

func (t *Table[T, P]) Delete(_ context.Context, id int64) error {
	if !t.has(id) {
		return crud.ErrNotFound
	}
	if t.store != nil && t.name != "" && t.store.referenced(t.name, id) {
		return crud.ErrReferenced
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[id]; !ok {
		return crud.ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

// collides must be called with t.mu held. skip excludes the row being updated.
func (t *Table[T, P]) collides(rec *T, skip int64) bool {
	if t.unique == nil {
		return false
	}
	for id, row := range t.rows {
		if id == skip {
			continue
		}
		if t.unique(&row, rec) {
			return true
		}
	}
	return false
}
