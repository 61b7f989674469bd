package domain

import (
	"context"
)

// Entity is a persisted record the transactional store knows how to handle.
type Entity interface {
	EntitySchema() *EntitySchema
	EntityID() string
}

// Predicate is a compiled filter expression scoped to one entity type.
// Implemented by filter.Predicate.
type Predicate interface {
	// Entity returns the schema the predicate was translated against.
	Entity() *EntitySchema
	// Matches evaluates the predicate against a loaded entity.
	Matches(e Entity) bool
	// SQL renders a parameterised WHERE clause using "?" placeholders.
	SQL() (clause string, args []any)
	String() string
}

// PredicateTranslator turns a filter expression into a Predicate.
// Implemented by filter.Translator.
type PredicateTranslator interface {
	Translate(expr string, entity *EntitySchema) (Predicate, error)
}

// DataStore opens transactions against the backing store.
// Implemented by repository.Store, memstore.Store and gormstore.Store.
type DataStore interface {
	BeginTransaction(ctx context.Context) (Transaction, error)
}

// Transaction is one commit/rollback scope. A Transaction must not be shared
// between goroutines.
type Transaction interface {
	// LoadObject returns the entity with id, or a *NotFoundError.
	LoadObject(ctx context.Context, entity *EntitySchema, id string) (Entity, error)
	// LoadObjects returns every entity of the given type matching pred.
	// A nil pred matches everything.
	LoadObjects(ctx context.Context, entity *EntitySchema, pred Predicate) ([]Entity, error)
	// CreateObject persists a new entity. An existing id yields a *ConflictError.
	CreateObject(ctx context.Context, e Entity) error
	// Save persists changes to an existing entity, or returns a *NotFoundError.
	Save(ctx context.Context, e Entity) error
	// Delete removes an entity together with the entities it owns.
	Delete(ctx context.Context, e Entity) error
	Commit(ctx context.Context) error
	// Rollback discards all changes. It is a no-op after Commit.
	Rollback(ctx context.Context) error
}
