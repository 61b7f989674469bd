// Package testutil provides shared test doubles for the domain ports. This
// follows the Go convention of a shared test utility package (like
// net/http/httptest).
package testutil

import (
	"context"
	"sync"

	"asyncq/internal/domain"
)

// === Recording Store ===

// Calls counts the operations seen by a RecordingStore.
type Calls struct {
	Begin       int
	Load        int
	LoadObjects int
	Create      int
	Save        int
	Delete      int
	Commit      int
	Rollback    int
}

// RecordingStore wraps a domain.DataStore and counts every call made through
// it and through the transactions it opens.
type RecordingStore struct {
	Inner domain.DataStore

	mu    sync.Mutex
	calls Calls
}

var _ domain.DataStore = (*RecordingStore)(nil)

// NewRecordingStore wraps inner.
func NewRecordingStore(inner domain.DataStore) *RecordingStore {
	return &RecordingStore{Inner: inner}
}

// Calls returns a snapshot of the counters.
func (s *RecordingStore) Calls() Calls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Reset zeroes the counters.
func (s *RecordingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = Calls{}
}

func (s *RecordingStore) record(fn func(c *Calls)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.calls)
}

// BeginTransaction implements domain.DataStore.
func (s *RecordingStore) BeginTransaction(ctx context.Context) (domain.Transaction, error) {
	s.record(func(c *Calls) { c.Begin++ })
	tx, err := s.Inner.BeginTransaction(ctx)
	if err != nil {
		return nil, err
	}
	return &recordingTx{inner: tx, store: s}, nil
}

type recordingTx struct {
	inner domain.Transaction
	store *RecordingStore
}

func (t *recordingTx) LoadObject(ctx context.Context, entity *domain.EntitySchema, id string) (domain.Entity, error) {
	t.store.record(func(c *Calls) { c.Load++ })
	return t.inner.LoadObject(ctx, entity, id)
}

func (t *recordingTx) LoadObjects(ctx context.Context, entity *domain.EntitySchema, pred domain.Predicate) ([]domain.Entity, error) {
	t.store.record(func(c *Calls) { c.LoadObjects++ })
	return t.inner.LoadObjects(ctx, entity, pred)
}

func (t *recordingTx) CreateObject(ctx context.Context, e domain.Entity) error {
	t.store.record(func(c *Calls) { c.Create++ })
	return t.inner.CreateObject(ctx, e)
}

func (t *recordingTx) Save(ctx context.Context, e domain.Entity) error {
	t.store.record(func(c *Calls) { c.Save++ })
	return t.inner.Save(ctx, e)
}

func (t *recordingTx) Delete(ctx context.Context, e domain.Entity) error {
	t.store.record(func(c *Calls) { c.Delete++ })
	return t.inner.Delete(ctx, e)
}

func (t *recordingTx) Commit(ctx context.Context) error {
	t.store.record(func(c *Calls) { c.Commit++ })
	return t.inner.Commit(ctx)
}

func (t *recordingTx) Rollback(ctx context.Context) error {
	t.store.record(func(c *Calls) { c.Rollback++ })
	return t.inner.Rollback(ctx)
}

// === Predicate Translator Mock ===

// MockTranslator implements domain.PredicateTranslator for testing.
type MockTranslator struct {
	TranslateFn func(expr string, entity *domain.EntitySchema) (domain.Predicate, error)
}

// Translate implements the interface method for testing.
func (m *MockTranslator) Translate(expr string, entity *domain.EntitySchema) (domain.Predicate, error) {
	if m.TranslateFn != nil {
		return m.TranslateFn(expr, entity)
	}
	panic("unexpected call to MockTranslator.Translate")
}
