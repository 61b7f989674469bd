// Package asyncquery owns the async query lifecycle: status changes on single
// records and on filtered collections, bulk cleanup, result attachment, and
// the scheduled sweeps that time out stale queries and purge old ones.
package asyncquery

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"asyncq/internal/domain"
)

// Operation names, used in TransactionError.Op, logs and metric labels.
const (
	opSubmit           = "submitQuery"
	opGet              = "getQuery"
	opUpdateStatus     = "updateStatus"
	opUpdateCollection = "updateStatusCollection"
	opDeleteCollection = "deleteCollection"
	opCreateResult     = "createResult"
)

// Manager runs every lifecycle operation inside one store transaction.
type Manager struct {
	store      domain.DataStore
	translator domain.PredicateTranslator
	logger     *slog.Logger
	metrics    *Metrics
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithClock overrides the time source used for createdOn/updatedOn.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager over store, translating filters with translator.
func NewManager(store domain.DataStore, translator domain.PredicateTranslator, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		translator: translator,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "asyncquery")
	return m
}

func (m *Manager) timestamp() time.Time {
	return m.now().UTC()
}

// inTransaction runs fn inside a fresh transaction and commits it. Any error
// from begin, fn or commit is returned as a *domain.TransactionError after the
// transaction has been rolled back. A panic in fn rolls back and re-panics.
func (m *Manager) inTransaction(ctx context.Context, op string, fn func(tx domain.Transaction) error) error {
	start := time.Now()

	tx, err := m.store.BeginTransaction(ctx)
	if err != nil {
		m.metrics.observeTransaction(op, outcomeRolledBack, time.Since(start))
		return &domain.TransactionError{Op: op, Err: err}
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			m.logger.Warn("rollback failed", "op", op, "error", rbErr)
		}
		if p := recover(); p != nil {
			m.metrics.observeTransaction(op, outcomePanic, time.Since(start))
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		m.metrics.observeTransaction(op, outcomeRolledBack, time.Since(start))
		return &domain.TransactionError{Op: op, Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		m.metrics.observeTransaction(op, outcomeRolledBack, time.Since(start))
		return &domain.TransactionError{Op: op, Err: err}
	}
	committed = true
	m.metrics.observeTransaction(op, outcomeCommitted, time.Since(start))
	return nil
}

// SubmitQuery stores q as a new QUEUED record, assigning an id when q has
// none. On success q is updated in place and returned; on failure q is left
// as it was.
func (m *Manager) SubmitQuery(ctx context.Context, q *domain.AsyncQuery) (*domain.AsyncQuery, error) {
	if q == nil {
		return nil, domain.ErrValidation("async query is required")
	}
	if strings.TrimSpace(q.Query) == "" {
		return nil, domain.ErrValidation("query text is required")
	}
	c := *q
	if c.QueryType == "" {
		c.QueryType = domain.QueryTypeGraphQL
	}
	if !c.QueryType.Valid() {
		return nil, domain.ErrValidation("unsupported query type %q", c.QueryType)
	}
	if c.ID == "" {
		c.ID = domain.NewID()
	}
	now := m.timestamp()
	c.Status = domain.QueryStatusQueued
	c.CreatedOn = now
	c.UpdatedOn = now
	c.Result = nil

	err := m.inTransaction(ctx, opSubmit, func(tx domain.Transaction) error {
		return tx.CreateObject(ctx, &c)
	})
	if err != nil {
		return nil, err
	}
	*q = c
	m.logger.Info("async query submitted", "id", q.ID, "type", q.QueryType, "principal", q.PrincipalName)
	return q, nil
}

// GetQuery loads the record with id, including its result when present.
func (m *Manager) GetQuery(ctx context.Context, id string) (*domain.AsyncQuery, error) {
	var q *domain.AsyncQuery
	err := m.inTransaction(ctx, opGet, func(tx domain.Transaction) error {
		e, err := tx.LoadObject(ctx, domain.AsyncQuerySchema, id)
		if err != nil {
			return err
		}
		q = e.(*domain.AsyncQuery)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetResult returns the result attached to the record with queryID.
func (m *Manager) GetResult(ctx context.Context, queryID string) (*domain.AsyncQueryResult, error) {
	q, err := m.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if q.Result == nil {
		return nil, domain.ErrNotFound("async query %q has no result", queryID)
	}
	return q.Result, nil
}

// UpdateStatus moves q to status and persists it. q must already be stored.
// On success q is updated in place and returned; on failure q is left as it
// was.
func (m *Manager) UpdateStatus(ctx context.Context, q *domain.AsyncQuery, status domain.QueryStatus) (*domain.AsyncQuery, error) {
	if q == nil {
		return nil, domain.ErrValidation("async query is required")
	}
	if !status.Valid() {
		return nil, domain.ErrValidation("invalid query status %q", status)
	}

	prevStatus := q.Status
	var updatedOn time.Time
	err := m.inTransaction(ctx, opUpdateStatus, func(tx domain.Transaction) error {
		e, err := tx.LoadObject(ctx, domain.AsyncQuerySchema, q.ID)
		if err != nil {
			return err
		}
		// Only status and updatedOn change; the rest of the row is kept.
		stored := e.(*domain.AsyncQuery)
		if !stored.Status.CanTransitionTo(status) {
			return &domain.TransitionError{ID: q.ID, From: stored.Status, To: status}
		}
		stored.Status = status
		stored.UpdatedOn = m.timestamp()
		updatedOn = stored.UpdatedOn
		return tx.Save(ctx, stored)
	})
	if err != nil {
		m.logger.Warn("status update failed", "id", q.ID, "status", status, "error", err)
		return nil, err
	}
	q.Status, q.UpdatedOn = status, updatedOn

	m.metrics.statusUpdated(string(status), 1)
	m.logger.Info("async query status updated", "id", q.ID, "from", prevStatus, "to", status)
	return q, nil
}

// UpdateStatusCollection moves every record matching filter to status in one
// transaction and returns how many were updated. If any record cannot make
// the transition, nothing is updated.
func (m *Manager) UpdateStatusCollection(ctx context.Context, filter string, status domain.QueryStatus) (int, error) {
	if !status.Valid() {
		return 0, domain.ErrValidation("invalid query status %q", status)
	}
	pred, err := m.translator.Translate(filter, domain.AsyncQuerySchema)
	if err != nil {
		return 0, err
	}

	var updated int
	err = m.inTransaction(ctx, opUpdateCollection, func(tx domain.Transaction) error {
		updated = 0
		matches, err := tx.LoadObjects(ctx, domain.AsyncQuerySchema, pred)
		if err != nil {
			return err
		}
		now := m.timestamp()
		for _, e := range matches {
			q := e.(*domain.AsyncQuery)
			if !q.Status.CanTransitionTo(status) {
				return &domain.TransitionError{ID: q.ID, From: q.Status, To: status}
			}
			q.Status = status
			q.UpdatedOn = now
			if err := tx.Save(ctx, q); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		m.logger.Warn("bulk status update failed", "filter", filter, "status", status, "error", err)
		return 0, err
	}

	m.metrics.statusUpdated(string(status), updated)
	m.logger.Info("async queries status updated", "filter", filter, "status", status, "count", updated)
	return updated, nil
}

// DeleteCollection deletes every record matching filter, together with its
// result, in one transaction and returns how many records were deleted.
func (m *Manager) DeleteCollection(ctx context.Context, filter string) (int, error) {
	pred, err := m.translator.Translate(filter, domain.AsyncQuerySchema)
	if err != nil {
		return 0, err
	}

	var deleted int
	err = m.inTransaction(ctx, opDeleteCollection, func(tx domain.Transaction) error {
		deleted = 0
		matches, err := tx.LoadObjects(ctx, domain.AsyncQuerySchema, pred)
		if err != nil {
			return err
		}
		for _, e := range matches {
			if err := tx.Delete(ctx, e); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		m.logger.Warn("bulk delete failed", "filter", filter, "error", err)
		return 0, err
	}

	m.metrics.recordsDeleted(deleted)
	m.logger.Info("async queries deleted", "filter", filter, "count", deleted)
	return deleted, nil
}

// CreateResult stores a result with the given id for owner and links it.
// owner.Result is set on success and left unchanged on failure.
func (m *Manager) CreateResult(ctx context.Context, httpStatus int, body string, owner *domain.AsyncQuery, id string) (*domain.AsyncQueryResult, error) {
	if owner == nil {
		return nil, domain.ErrValidation("owning async query is required")
	}
	if id == "" {
		return nil, domain.ErrValidation("async query result id is required")
	}

	now := m.timestamp()
	result := &domain.AsyncQueryResult{
		ID:            id,
		HTTPStatus:    httpStatus,
		ResponseBody:  body,
		ContentLength: int64(len(body)),
		CreatedOn:     now,
		QueryID:       owner.ID,
		Query:         owner,
	}

	err := m.inTransaction(ctx, opCreateResult, func(tx domain.Transaction) error {
		e, err := tx.LoadObject(ctx, domain.AsyncQuerySchema, owner.ID)
		if err != nil {
			return err
		}
		if err := tx.CreateObject(ctx, result); err != nil {
			return err
		}
		// The stored row is saved so a concurrent status change is not undone.
		stored := e.(*domain.AsyncQuery)
		stored.Result = result
		stored.UpdatedOn = now
		return tx.Save(ctx, stored)
	})
	if err != nil {
		m.logger.Warn("result creation failed", "query_id", owner.ID, "result_id", id, "error", err)
		return nil, err
	}

	owner.Result, owner.UpdatedOn = result, now
	m.metrics.resultCreated()
	m.logger.Info("async query result created", "query_id", owner.ID, "result_id", id, "http_status", httpStatus)
	return result, nil
}
