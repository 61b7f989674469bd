package repository

import (
	"context"
	"database/sql"
	"fmt"

	"asyncq/internal/domain"
)

// Predicates are rendered against unqualified async_queries columns, so they
// are applied in a subquery before the result join.
const selectQueries = `
	SELECT q.id, q.query, q.query_type, q.principal_name, q.status, q.created_on, q.updated_on,
	       r.id, r.http_status, r.response_body, r.content_length, r.created_on
	FROM (SELECT * FROM async_queries WHERE %s) q
	LEFT JOIN async_query_results r ON r.query_id = q.id
	ORDER BY q.created_on, q.id`

func (t *Transaction) loadQueries(ctx context.Context, where string, args []any) ([]domain.Entity, error) {
	rows, err := t.tx.QueryContext(ctx, fmt.Sprintf(selectQueries, where), args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Entity
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err)
	}
	return out, nil
}

func scanQuery(rows *sql.Rows) (*domain.AsyncQuery, error) {
	var (
		q                    domain.AsyncQuery
		queryType, status    string
		createdOn, updatedOn string
		resultID             sql.NullString
		httpStatus           sql.NullInt64
		body                 sql.NullString
		contentLength        sql.NullInt64
		resultCreatedOn      sql.NullString
	)
	if err := rows.Scan(
		&q.ID, &q.Query, &queryType, &q.PrincipalName, &status, &createdOn, &updatedOn,
		&resultID, &httpStatus, &body, &contentLength, &resultCreatedOn,
	); err != nil {
		return nil, mapDBError(err)
	}

	q.QueryType = domain.QueryType(queryType)
	q.Status = domain.QueryStatus(status)
	var err error
	if q.CreatedOn, err = parseTimestamp("created_on", createdOn); err != nil {
		return nil, err
	}
	if q.UpdatedOn, err = parseTimestamp("updated_on", updatedOn); err != nil {
		return nil, err
	}

	if resultID.Valid {
		r := &domain.AsyncQueryResult{
			ID:            resultID.String,
			HTTPStatus:    int(httpStatus.Int64),
			ResponseBody:  body.String,
			ContentLength: contentLength.Int64,
			QueryID:       q.ID,
			Query:         &q,
		}
		if r.CreatedOn, err = parseTimestamp("result created_on", resultCreatedOn.String); err != nil {
			return nil, err
		}
		q.Result = r
	}
	return &q, nil
}

func (t *Transaction) insertQuery(ctx context.Context, q *domain.AsyncQuery) error {
	if q.ID == "" {
		return domain.ErrValidation("async query id is required")
	}
	if !q.Status.Valid() {
		return domain.ErrValidation("invalid query status %q", q.Status)
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO async_queries (id, query, query_type, principal_name, status, created_on, updated_on)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, q.ID, q.Query, string(q.QueryType), q.PrincipalName, string(q.Status),
		domain.FormatTimestamp(q.CreatedOn), domain.FormatTimestamp(q.UpdatedOn))
	if err != nil {
		if conflict := mapDBError(err); isConflict(conflict) {
			return domain.ErrConflict("async query %q already exists", q.ID)
		}
		return mapDBError(err)
	}
	return nil
}

// updateQuery persists the mutable columns. created_on is never rewritten.
func (t *Transaction) updateQuery(ctx context.Context, q *domain.AsyncQuery) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE async_queries
		SET query = ?, query_type = ?, principal_name = ?, status = ?, updated_on = ?
		WHERE id = ?
	`, q.Query, string(q.QueryType), q.PrincipalName, string(q.Status), domain.FormatTimestamp(q.UpdatedOn), q.ID)
	if err != nil {
		return mapDBError(err)
	}
	return requireAffected(res, "async query %q not found", q.ID)
}

func (t *Transaction) deleteQuery(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM async_queries WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	return requireAffected(res, "async query %q not found", id)
}

func requireAffected(res sql.Result, format string, args ...interface{}) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound(format, args...)
	}
	return nil
}
