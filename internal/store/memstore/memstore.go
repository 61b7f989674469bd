// Package memstore provides an in-memory transactional store for async
// queries. Each transaction buffers its writes and applies them atomically on
// Commit; concurrent transactions are last-writer-wins.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"

	"asyncq/internal/domain"
)

// Op names a store operation, passed to a FaultFunc.
type Op string

// Store operations.
const (
	OpBegin       Op = "begin"
	OpLoad        Op = "load"
	OpLoadObjects Op = "loadObjects"
	OpCreate      Op = "create"
	OpSave        Op = "save"
	OpDelete      Op = "delete"
	OpCommit      Op = "commit"
)

// FaultFunc is consulted before every operation. A non-nil error is returned
// to the caller in place of the operation's result. id is the entity id, or
// empty for operations that have none.
type FaultFunc func(op Op, id string) error

// ErrTransactionDone is returned by operations on a committed or rolled back
// transaction.
var ErrTransactionDone = errors.New("memstore: transaction already finished")

// Store holds committed async queries and results.
type Store struct {
	mu      sync.RWMutex
	queries map[string]*domain.AsyncQuery       // Result is never set
	results map[string]*domain.AsyncQueryResult // Query is never set
	fault   FaultFunc
}

var _ domain.DataStore = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		queries: map[string]*domain.AsyncQuery{},
		results: map[string]*domain.AsyncQueryResult{},
	}
}

// SetFault installs f, replacing any previous hook. A nil f disables faults.
func (s *Store) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

func (s *Store) check(op Op, id string) error {
	s.mu.RLock()
	f := s.fault
	s.mu.RUnlock()
	if f == nil {
		return nil
	}
	return f(op, id)
}

// BeginTransaction implements domain.DataStore.
func (s *Store) BeginTransaction(_ context.Context) (domain.Transaction, error) {
	if err := s.check(OpBegin, ""); err != nil {
		return nil, err
	}
	return &Transaction{
		store:   s,
		queries: map[string]*domain.AsyncQuery{},
		results: map[string]*domain.AsyncQueryResult{},
		created: map[string]bool{},
	}, nil
}

// Transaction is a buffered write set over a Store.
type Transaction struct {
	store *Store

	// Pending writes; a nil value marks a delete.
	queries map[string]*domain.AsyncQuery
	results map[string]*domain.AsyncQueryResult
	created map[string]bool // keyed by entityKey

	done bool
}

var _ domain.Transaction = (*Transaction)(nil)

func entityKey(schema *domain.EntitySchema, id string) string {
	return schema.Name + "/" + id
}

// LoadObject implements domain.Transaction.
func (t *Transaction) LoadObject(_ context.Context, entity *domain.EntitySchema, id string) (domain.Entity, error) {
	if err := t.begin(OpLoad, id); err != nil {
		return nil, err
	}
	switch entity {
	case domain.AsyncQuerySchema:
		if q, ok := t.query(id); ok {
			return t.withResult(q), nil
		}
	case domain.AsyncQueryResultSchema:
		if r, ok := t.result(id); ok {
			return r.Clone(), nil
		}
	default:
		return nil, unsupportedEntity(entity)
	}
	return nil, domain.ErrNotFound("%s %q not found", entity.Name, id)
}

// LoadObjects implements domain.Transaction.
func (t *Transaction) LoadObjects(_ context.Context, entity *domain.EntitySchema, pred domain.Predicate) ([]domain.Entity, error) {
	if err := t.begin(OpLoadObjects, ""); err != nil {
		return nil, err
	}
	if pred != nil && pred.Entity() != entity {
		return nil, domain.ErrValidation("predicate for %s used to load %s", pred.Entity().Name, entity.Name)
	}

	var out []domain.Entity
	switch entity {
	case domain.AsyncQuerySchema:
		for _, q := range t.visibleQueries() {
			e := t.withResult(q)
			if pred == nil || pred.Matches(e) {
				out = append(out, e)
			}
		}
	case domain.AsyncQueryResultSchema:
		for _, r := range t.visibleResults() {
			e := r.Clone()
			if pred == nil || pred.Matches(e) {
				out = append(out, e)
			}
		}
	default:
		return nil, unsupportedEntity(entity)
	}
	return out, nil
}

// CreateObject implements domain.Transaction.
func (t *Transaction) CreateObject(_ context.Context, e domain.Entity) error {
	if err := t.begin(OpCreate, entityID(e)); err != nil {
		return err
	}
	switch e := e.(type) {
	case *domain.AsyncQuery:
		if e.ID == "" {
			return domain.ErrValidation("async query id is required")
		}
		if !e.Status.Valid() {
			return domain.ErrValidation("invalid query status %q", e.Status)
		}
		if _, ok := t.query(e.ID); ok {
			return domain.ErrConflict("async query %q already exists", e.ID)
		}
		t.queries[e.ID] = stripQuery(e)
		t.created[entityKey(domain.AsyncQuerySchema, e.ID)] = true
		return nil

	case *domain.AsyncQueryResult:
		if e.ID == "" {
			return domain.ErrValidation("async query result id is required")
		}
		r := e.Clone()
		if e.Query != nil {
			r.QueryID = e.Query.ID
		}
		if r.QueryID == "" {
			return domain.ErrValidation("async query result %q has no owning query", e.ID)
		}
		if _, ok := t.result(r.ID); ok {
			return domain.ErrConflict("async query result %q already exists", r.ID)
		}
		if _, ok := t.query(r.QueryID); !ok {
			return domain.ErrNotFound("async query %q not found", r.QueryID)
		}
		if t.resultFor(r.QueryID) != nil {
			return domain.ErrConflict("async query already has a result")
		}
		t.results[r.ID] = r
		t.created[entityKey(domain.AsyncQueryResultSchema, r.ID)] = true
		return nil

	default:
		return unsupportedObject(e)
	}
}

// Save implements domain.Transaction. created_on is kept from the stored copy.
func (t *Transaction) Save(_ context.Context, e domain.Entity) error {
	if err := t.begin(OpSave, entityID(e)); err != nil {
		return err
	}
	switch e := e.(type) {
	case *domain.AsyncQuery:
		existing, ok := t.query(e.ID)
		if !ok {
			return domain.ErrNotFound("async query %q not found", e.ID)
		}
		q := stripQuery(e)
		q.CreatedOn = existing.CreatedOn
		t.queries[e.ID] = q
		return nil
	case *domain.AsyncQueryResult:
		return domain.ErrValidation("async query result %q is immutable", e.ID)
	default:
		return unsupportedObject(e)
	}
}

// Delete implements domain.Transaction. Deleting a query also deletes its result.
func (t *Transaction) Delete(_ context.Context, e domain.Entity) error {
	if err := t.begin(OpDelete, entityID(e)); err != nil {
		return err
	}
	switch e := e.(type) {
	case *domain.AsyncQuery:
		if _, ok := t.query(e.ID); !ok {
			return domain.ErrNotFound("async query %q not found", e.ID)
		}
		if r := t.resultFor(e.ID); r != nil {
			t.results[r.ID] = nil
		}
		t.queries[e.ID] = nil
		return nil
	case *domain.AsyncQueryResult:
		return domain.ErrValidation("async query result %q can only be deleted with its query", e.ID)
	default:
		return unsupportedObject(e)
	}
}

// Commit implements domain.Transaction. If another transaction committed an
// entity this one created, nothing is applied and a *domain.ConflictError is
// returned. A saved query that another transaction deleted yields a
// *domain.NotFoundError, also without applying anything.
func (t *Transaction) Commit(_ context.Context) error {
	if err := t.begin(OpCommit, ""); err != nil {
		return err
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, q := range t.queries {
		if q == nil {
			continue
		}
		_, exists := s.queries[id]
		created := t.created[entityKey(domain.AsyncQuerySchema, id)]
		if created && exists {
			return domain.ErrConflict("async query %q already exists", id)
		}
		if !created && !exists {
			return domain.ErrNotFound("async query %q not found", id)
		}
	}
	for id, r := range t.results {
		if _, exists := s.results[id]; r != nil && exists && t.created[entityKey(domain.AsyncQueryResultSchema, id)] {
			return domain.ErrConflict("async query result %q already exists", id)
		}
	}

	for id, q := range t.queries {
		if q == nil {
			delete(s.queries, id)
			for rid, r := range s.results {
				if r.QueryID == id {
					delete(s.results, rid)
				}
			}
			continue
		}
		s.queries[id] = q
	}
	for id, r := range t.results {
		if r == nil {
			delete(s.results, id)
			continue
		}
		if _, ok := s.queries[r.QueryID]; ok {
			s.results[id] = r
		}
	}
	return nil
}

// Rollback implements domain.Transaction.
func (t *Transaction) Rollback(_ context.Context) error {
	t.done = true
	t.queries = nil
	t.results = nil
	return nil
}

func (t *Transaction) begin(op Op, id string) error {
	if t.done {
		return ErrTransactionDone
	}
	return t.store.check(op, id)
}

func (t *Transaction) query(id string) (*domain.AsyncQuery, bool) {
	if q, ok := t.queries[id]; ok {
		return q, q != nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	q, ok := t.store.queries[id]
	return q, ok
}

func (t *Transaction) result(id string) (*domain.AsyncQueryResult, bool) {
	if r, ok := t.results[id]; ok {
		return r, r != nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	r, ok := t.store.results[id]
	return r, ok
}

func (t *Transaction) resultFor(queryID string) *domain.AsyncQueryResult {
	for _, r := range t.visibleResults() {
		if r.QueryID == queryID {
			return r
		}
	}
	return nil
}

// visibleQueries merges committed state with the write set, ordered like the
// SQL store: by created_on, then id.
func (t *Transaction) visibleQueries() []*domain.AsyncQuery {
	t.store.mu.RLock()
	merged := make(map[string]*domain.AsyncQuery, len(t.store.queries)+len(t.queries))
	for id, q := range t.store.queries {
		merged[id] = q
	}
	t.store.mu.RUnlock()
	for id, q := range t.queries {
		if q == nil {
			delete(merged, id)
		} else {
			merged[id] = q
		}
	}

	out := make([]*domain.AsyncQuery, 0, len(merged))
	for _, q := range merged {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedOn.Equal(out[j].CreatedOn) {
			return out[i].CreatedOn.Before(out[j].CreatedOn)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *Transaction) visibleResults() []*domain.AsyncQueryResult {
	t.store.mu.RLock()
	merged := make(map[string]*domain.AsyncQueryResult, len(t.store.results)+len(t.results))
	for id, r := range t.store.results {
		merged[id] = r
	}
	t.store.mu.RUnlock()
	for id, r := range t.results {
		if r == nil {
			delete(merged, id)
		} else {
			merged[id] = r
		}
	}

	out := make([]*domain.AsyncQueryResult, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedOn.Equal(out[j].CreatedOn) {
			return out[i].CreatedOn.Before(out[j].CreatedOn)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// withResult returns a detached copy of q with its visible result attached.
func (t *Transaction) withResult(q *domain.AsyncQuery) *domain.AsyncQuery {
	c := stripQuery(q)
	if r := t.resultFor(q.ID); r != nil {
		rc := r.Clone()
		rc.Query = c
		c.Result = rc
	}
	return c
}

func stripQuery(q *domain.AsyncQuery) *domain.AsyncQuery {
	c := *q
	c.Result = nil
	return &c
}

func entityID(e domain.Entity) string {
	if e == nil {
		return ""
	}
	return e.EntityID()
}

func unsupportedEntity(entity *domain.EntitySchema) error {
	if entity == nil {
		return domain.ErrValidation("entity type is required")
	}
	return domain.ErrValidation("unsupported entity type %q", entity.Name)
}

func unsupportedObject(e domain.Entity) error {
	return domain.ErrValidation("unsupported object %T", e)
}
