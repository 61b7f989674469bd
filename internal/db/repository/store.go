package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"asyncq/internal/domain"
)

var _ domain.DataStore = (*Store)(nil)

// Store is the SQLite-backed transactional store for async queries and
// their results.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over db, which should be the single-connection
// write pool so that transactions serialize.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// BeginTransaction implements domain.DataStore.
func (s *Store) BeginTransaction(ctx context.Context) (domain.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Transaction{tx: tx}, nil
}

// Transaction is one SQLite transaction. It implements domain.Transaction.
type Transaction struct {
	tx *sql.Tx
}

var _ domain.Transaction = (*Transaction)(nil)

// LoadObject implements domain.Transaction.
func (t *Transaction) LoadObject(ctx context.Context, entity *domain.EntitySchema, id string) (domain.Entity, error) {
	var (
		found []domain.Entity
		err   error
	)
	switch entity {
	case domain.AsyncQuerySchema:
		found, err = t.loadQueries(ctx, "id = ?", []any{id})
	case domain.AsyncQueryResultSchema:
		found, err = t.loadResults(ctx, "id = ?", []any{id})
	default:
		return nil, unsupportedEntity(entity)
	}
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.ErrNotFound("%s %q not found", entity.Name, id)
	}
	return found[0], nil
}

// LoadObjects implements domain.Transaction.
func (t *Transaction) LoadObjects(ctx context.Context, entity *domain.EntitySchema, pred domain.Predicate) ([]domain.Entity, error) {
	where, args := "1 = 1", []any(nil)
	if pred != nil {
		if pred.Entity() != entity {
			return nil, domain.ErrValidation("predicate for %s used to load %s", pred.Entity().Name, entity.Name)
		}
		where, args = pred.SQL()
	}
	switch entity {
	case domain.AsyncQuerySchema:
		return t.loadQueries(ctx, where, args)
	case domain.AsyncQueryResultSchema:
		return t.loadResults(ctx, where, args)
	default:
		return nil, unsupportedEntity(entity)
	}
}

// CreateObject implements domain.Transaction.
func (t *Transaction) CreateObject(ctx context.Context, e domain.Entity) error {
	switch e := e.(type) {
	case *domain.AsyncQuery:
		return t.insertQuery(ctx, e)
	case *domain.AsyncQueryResult:
		return t.insertResult(ctx, e)
	default:
		return unsupportedObject(e)
	}
}

// Save implements domain.Transaction. Results are immutable and cannot be saved.
func (t *Transaction) Save(ctx context.Context, e domain.Entity) error {
	switch e := e.(type) {
	case *domain.AsyncQuery:
		return t.updateQuery(ctx, e)
	case *domain.AsyncQueryResult:
		return domain.ErrValidation("async query result %q is immutable", e.ID)
	default:
		return unsupportedObject(e)
	}
}

// Delete implements domain.Transaction. Deleting a query cascades to its
// result through the foreign key.
func (t *Transaction) Delete(ctx context.Context, e domain.Entity) error {
	switch e := e.(type) {
	case *domain.AsyncQuery:
		return t.deleteQuery(ctx, e.ID)
	case *domain.AsyncQueryResult:
		return domain.ErrValidation("async query result %q can only be deleted with its query", e.ID)
	default:
		return unsupportedObject(e)
	}
}

// Commit implements domain.Transaction.
func (t *Transaction) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback implements domain.Transaction.
func (t *Transaction) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
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
