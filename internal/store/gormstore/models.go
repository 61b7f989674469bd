package gormstore

import (
	"fmt"

	"asyncq/internal/domain"
)

// Timestamps are stored in domain.TimestampLayout so that predicate SQL,
// which binds timestamps in that layout, compares them lexically.

type queryRow struct {
	ID            string `gorm:"primaryKey"`
	Query         string `gorm:"column:query;not null;default:''"`
	QueryType     string `gorm:"column:query_type;not null"`
	PrincipalName string `gorm:"column:principal_name;not null;default:''"`
	Status        string `gorm:"column:status;not null;index:idx_async_queries_status_created,priority:1"`
	CreatedOn     string `gorm:"column:created_on;not null;index:idx_async_queries_status_created,priority:2"`
	UpdatedOn     string `gorm:"column:updated_on;not null"`
}

func (queryRow) TableName() string { return "async_queries" }

type resultRow struct {
	ID            string `gorm:"primaryKey"`
	QueryID       string `gorm:"column:query_id;not null;uniqueIndex"`
	HTTPStatus    int    `gorm:"column:http_status;not null"`
	ResponseBody  string `gorm:"column:response_body;not null;default:''"`
	ContentLength int64  `gorm:"column:content_length;not null;default:0"`
	CreatedOn     string `gorm:"column:created_on;not null"`
}

func (resultRow) TableName() string { return "async_query_results" }

func toQueryRow(q *domain.AsyncQuery) queryRow {
	return queryRow{
		ID:            q.ID,
		Query:         q.Query,
		QueryType:     string(q.QueryType),
		PrincipalName: q.PrincipalName,
		Status:        string(q.Status),
		CreatedOn:     domain.FormatTimestamp(q.CreatedOn),
		UpdatedOn:     domain.FormatTimestamp(q.UpdatedOn),
	}
}

func (r queryRow) toDomain() (*domain.AsyncQuery, error) {
	created, err := domain.ParseTimestamp(r.CreatedOn)
	if err != nil {
		return nil, fmt.Errorf("parse created_on of %q: %w", r.ID, err)
	}
	updated, err := domain.ParseTimestamp(r.UpdatedOn)
	if err != nil {
		return nil, fmt.Errorf("parse updated_on of %q: %w", r.ID, err)
	}
	return &domain.AsyncQuery{
		ID:            r.ID,
		Query:         r.Query,
		QueryType:     domain.QueryType(r.QueryType),
		PrincipalName: r.PrincipalName,
		Status:        domain.QueryStatus(r.Status),
		CreatedOn:     created,
		UpdatedOn:     updated,
	}, nil
}

func toResultRow(r *domain.AsyncQueryResult, queryID string) resultRow {
	return resultRow{
		ID:            r.ID,
		QueryID:       queryID,
		HTTPStatus:    r.HTTPStatus,
		ResponseBody:  r.ResponseBody,
		ContentLength: r.ContentLength,
		CreatedOn:     domain.FormatTimestamp(r.CreatedOn),
	}
}

func (r resultRow) toDomain() (*domain.AsyncQueryResult, error) {
	created, err := domain.ParseTimestamp(r.CreatedOn)
	if err != nil {
		return nil, fmt.Errorf("parse created_on of result %q: %w", r.ID, err)
	}
	return &domain.AsyncQueryResult{
		ID:            r.ID,
		HTTPStatus:    r.HTTPStatus,
		ResponseBody:  r.ResponseBody,
		ContentLength: r.ContentLength,
		CreatedOn:     created,
		QueryID:       r.QueryID,
	}, nil
}
