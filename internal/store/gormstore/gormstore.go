// Package gormstore implements the async query transactional store on gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"asyncq/internal/domain"
)

// Store is a gorm-backed domain.DataStore.
type Store struct {
	db *gorm.DB
}

var _ domain.DataStore = (*Store)(nil)

// Open opens a SQLite database at dsn through gorm and migrates the row models.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm sqlite: %w", err)
	}
	return New(db)
}

// New wraps an open gorm handle and migrates the row models.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&queryRow{}, &resultRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// BeginTransaction implements domain.DataStore.
func (s *Store) BeginTransaction(ctx context.Context) (domain.Transaction, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin: %w", tx.Error)
	}
	return &Transaction{tx: tx}, nil
}

// Transaction wraps one gorm transaction.
type Transaction struct {
	tx   *gorm.DB
	done bool
}

var _ domain.Transaction = (*Transaction)(nil)

// LoadObject implements domain.Transaction.
func (t *Transaction) LoadObject(ctx context.Context, entity *domain.EntitySchema, id string) (domain.Entity, error) {
	switch entity {
	case domain.AsyncQuerySchema:
		var row queryRow
		if err := t.tx.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
			return nil, mapError(err, "async query %q not found", id)
		}
		queries, err := t.attachResults(ctx, []queryRow{row})
		if err != nil {
			return nil, err
		}
		return queries[0], nil

	case domain.AsyncQueryResultSchema:
		var row resultRow
		if err := t.tx.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
			return nil, mapError(err, "async query result %q not found", id)
		}
		r, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		return r, nil

	default:
		return nil, unsupportedEntity(entity)
	}
}

// LoadObjects implements domain.Transaction.
func (t *Transaction) LoadObjects(ctx context.Context, entity *domain.EntitySchema, pred domain.Predicate) ([]domain.Entity, error) {
	if pred != nil && pred.Entity() != entity {
		return nil, domain.ErrValidation("predicate for %s used to load %s", pred.Entity().Name, entity.Name)
	}
	scope := func(db *gorm.DB) *gorm.DB {
		if pred != nil {
			clause, args := pred.SQL()
			db = db.Where(clause, args...)
		}
		return db.Order("created_on").Order("id")
	}

	switch entity {
	case domain.AsyncQuerySchema:
		var rows []queryRow
		if err := t.tx.WithContext(ctx).Scopes(scope).Find(&rows).Error; err != nil {
			return nil, err
		}
		queries, err := t.attachResults(ctx, rows)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Entity, len(queries))
		for i, q := range queries {
			out[i] = q
		}
		return out, nil

	case domain.AsyncQueryResultSchema:
		var rows []resultRow
		if err := t.tx.WithContext(ctx).Scopes(scope).Find(&rows).Error; err != nil {
			return nil, err
		}
		out := make([]domain.Entity, 0, len(rows))
		for _, row := range rows {
			r, err := row.toDomain()
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil

	default:
		return nil, unsupportedEntity(entity)
	}
}

func (t *Transaction) attachResults(ctx context.Context, rows []queryRow) ([]*domain.AsyncQuery, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	var resultRows []resultRow
	if err := t.tx.WithContext(ctx).Where("query_id IN ?", ids).Find(&resultRows).Error; err != nil {
		return nil, err
	}
	byQuery := make(map[string]resultRow, len(resultRows))
	for _, r := range resultRows {
		byQuery[r.QueryID] = r
	}

	out := make([]*domain.AsyncQuery, 0, len(rows))
	for _, row := range rows {
		q, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		if rr, ok := byQuery[q.ID]; ok {
			r, err := rr.toDomain()
			if err != nil {
				return nil, err
			}
			r.Query = q
			q.Result = r
		}
		out = append(out, q)
	}
	return out, nil
}

// CreateObject implements domain.Transaction.
func (t *Transaction) CreateObject(ctx context.Context, e domain.Entity) error {
	switch e := e.(type) {
	case *domain.AsyncQuery:
		if e.ID == "" {
			return domain.ErrValidation("async query id is required")
		}
		if !e.Status.Valid() {
			return domain.ErrValidation("invalid query status %q", e.Status)
		}
		row := toQueryRow(e)
		if err := t.tx.WithContext(ctx).Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict("async query %q already exists", e.ID)
			}
			return err
		}
		return nil

	case *domain.AsyncQueryResult:
		if e.ID == "" {
			return domain.ErrValidation("async query result id is required")
		}
		queryID := e.QueryID
		if e.Query != nil {
			queryID = e.Query.ID
		}
		if queryID == "" {
			return domain.ErrValidation("async query result %q has no owning query", e.ID)
		}

		var owners int64
		if err := t.tx.WithContext(ctx).Model(&queryRow{}).Where("id = ?", queryID).Count(&owners).Error; err != nil {
			return err
		}
		if owners == 0 {
			return domain.ErrNotFound("async query %q not found", queryID)
		}

		var existing int64
		if err := t.tx.WithContext(ctx).Model(&resultRow{}).Where("query_id = ?", queryID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return domain.ErrConflict("async query already has a result")
		}

		row := toResultRow(e, queryID)
		if err := t.tx.WithContext(ctx).Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict("async query result %q already exists", e.ID)
			}
			return err
		}
		return nil

	default:
		return unsupportedObject(e)
	}
}

// Save implements domain.Transaction. created_on is never rewritten.
func (t *Transaction) Save(ctx context.Context, e domain.Entity) error {
	switch e := e.(type) {
	case *domain.AsyncQuery:
		row := toQueryRow(e)
		res := t.tx.WithContext(ctx).Model(&queryRow{}).Where("id = ?", e.ID).Updates(map[string]any{
			"query":          row.Query,
			"query_type":     row.QueryType,
			"principal_name": row.PrincipalName,
			"status":         row.Status,
			"updated_on":     row.UpdatedOn,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound("async query %q not found", e.ID)
		}
		return nil
	case *domain.AsyncQueryResult:
		return domain.ErrValidation("async query result %q is immutable", e.ID)
	default:
		return unsupportedObject(e)
	}
}

// Delete implements domain.Transaction. A query's result is deleted first.
func (t *Transaction) Delete(ctx context.Context, e domain.Entity) error {
	switch e := e.(type) {
	case *domain.AsyncQuery:
		if err := t.tx.WithContext(ctx).Where("query_id = ?", e.ID).Delete(&resultRow{}).Error; err != nil {
			return err
		}
		res := t.tx.WithContext(ctx).Where("id = ?", e.ID).Delete(&queryRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound("async query %q not found", e.ID)
		}
		return nil
	case *domain.AsyncQueryResult:
		return domain.ErrValidation("async query result %q can only be deleted with its query", e.ID)
	default:
		return unsupportedObject(e)
	}
}

// Commit implements domain.Transaction.
func (t *Transaction) Commit(_ context.Context) error {
	t.done = true
	if err := t.tx.Commit().Error; err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback implements domain.Transaction.
func (t *Transaction) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback().Error; err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func mapError(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound(format, args...)
	}
	return err
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed")
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
