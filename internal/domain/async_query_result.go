package domain

import "time"

// AsyncQueryResult is the materialized outcome of one async query. It is
// created once and never modified afterwards.
type AsyncQueryResult struct {
	ID            string
	HTTPStatus    int
	ResponseBody  string
	ContentLength int64
	CreatedOn     time.Time
	QueryID       string
	Query         *AsyncQuery
}

// EntitySchema implements Entity.
func (r *AsyncQueryResult) EntitySchema() *EntitySchema { return AsyncQueryResultSchema }

// EntityID implements Entity.
func (r *AsyncQueryResult) EntityID() string { return r.ID }

// Clone returns a copy of r that shares no pointers with the original.
// The owning query is not copied; only QueryID is kept.
func (r *AsyncQueryResult) Clone() *AsyncQueryResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Query = nil
	return &c
}
