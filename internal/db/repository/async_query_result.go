package repository

import (
	"context"
	"errors"
	"fmt"

	"asyncq/internal/domain"
)

const selectResults = `
	SELECT id, query_id, http_status, response_body, content_length, created_on
	FROM async_query_results
	WHERE %s
	ORDER BY created_on, id`

func (t *Transaction) loadResults(ctx context.Context, where string, args []any) ([]domain.Entity, error) {
	rows, err := t.tx.QueryContext(ctx, fmt.Sprintf(selectResults, where), args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Entity
	for rows.Next() {
		var (
			r         domain.AsyncQueryResult
			createdOn string
		)
		if err := rows.Scan(&r.ID, &r.QueryID, &r.HTTPStatus, &r.ResponseBody, &r.ContentLength, &createdOn); err != nil {
			return nil, mapDBError(err)
		}
		if r.CreatedOn, err = parseTimestamp("created_on", createdOn); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err)
	}
	return out, nil
}

func (t *Transaction) insertResult(ctx context.Context, r *domain.AsyncQueryResult) error {
	if r.ID == "" {
		return domain.ErrValidation("async query result id is required")
	}
	queryID := r.QueryID
	if r.Query != nil {
		queryID = r.Query.ID
	}
	if queryID == "" {
		return domain.ErrValidation("async query result %q has no owning query", r.ID)
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO async_query_results (id, query_id, http_status, response_body, content_length, created_on)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, queryID, r.HTTPStatus, r.ResponseBody, r.ContentLength, domain.FormatTimestamp(r.CreatedOn))
	if err == nil {
		return nil
	}

	mapped := mapDBError(err)
	var conflict *domain.ConflictError
	if errors.As(mapped, &conflict) && conflict.Message == "resource already exists" {
		return domain.ErrConflict("async query result %q already exists", r.ID)
	}
	var notFound *domain.NotFoundError
	if errors.As(mapped, &notFound) {
		return domain.ErrNotFound("async query %q not found", queryID)
	}
	return mapped
}
