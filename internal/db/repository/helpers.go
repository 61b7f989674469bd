// Package repository implements the domain transactional store on SQLite.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"asyncq/internal/domain"
)

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: async_query_results.query_id"):
		return &domain.ConflictError{Message: "async query already has a result"}
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY constraint failed"):
		return &domain.ConflictError{Message: "resource already exists"}
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return &domain.NotFoundError{Message: "referenced async query not found"}
	}
	return err
}

func parseTimestamp(col, v string) (time.Time, error) {
	ts, err := domain.ParseTimestamp(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", col, err)
	}
	return ts, nil
}

func isConflict(err error) bool {
	var conflict *domain.ConflictError
	return errors.As(err, &conflict)
}
