package domain

import "time"

// QueryStatus represents the lifecycle state of an async query.
type QueryStatus string

// Async query lifecycle statuses.
const (
	QueryStatusQueued     QueryStatus = "QUEUED"
	QueryStatusProcessing QueryStatus = "PROCESSING"
	QueryStatusComplete   QueryStatus = "COMPLETE"
	QueryStatusFailure    QueryStatus = "FAILURE"
	QueryStatusTimedOut   QueryStatus = "TIMEDOUT"
)

// QueryStatuses lists every member of the status enumeration in lifecycle order.
var QueryStatuses = []QueryStatus{
	QueryStatusQueued,
	QueryStatusProcessing,
	QueryStatusComplete,
	QueryStatusFailure,
	QueryStatusTimedOut,
}

// allowed transitions, excluding the always-permitted same-status no-op.
var statusTransitions = map[QueryStatus][]QueryStatus{
	QueryStatusQueued:     {QueryStatusProcessing, QueryStatusFailure, QueryStatusTimedOut},
	QueryStatusProcessing: {QueryStatusComplete, QueryStatusFailure, QueryStatusTimedOut},
}

// Valid reports whether s is a member of the enumeration.
func (s QueryStatus) Valid() bool {
	for _, v := range QueryStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible out of s.
func (s QueryStatus) IsTerminal() bool {
	return s == QueryStatusComplete || s == QueryStatusFailure || s == QueryStatusTimedOut
}

// CanTransitionTo reports whether a record in status s may be moved to next.
// Re-applying the current status is allowed.
func (s QueryStatus) CanTransitionTo(next QueryStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, v := range statusTransitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

// ParseQueryStatus converts a string into a QueryStatus.
func ParseQueryStatus(v string) (QueryStatus, error) {
	s := QueryStatus(v)
	if !s.Valid() {
		return "", ErrValidation("invalid query status %q", v)
	}
	return s, nil
}

// QueryType identifies the API dialect of the submitted query text.
type QueryType string

// Supported query types.
const (
	QueryTypeGraphQL QueryType = "GRAPHQL_V1_0"
	QueryTypeJSONAPI QueryType = "JSONAPI_V1_0"
)

// Valid reports whether t is a supported query type.
func (t QueryType) Valid() bool {
	return t == QueryTypeGraphQL || t == QueryTypeJSONAPI
}

// AsyncQuery is the persisted record of one asynchronously executed query.
type AsyncQuery struct {
	ID            string
	Query         string
	QueryType     QueryType
	PrincipalName string
	Status        QueryStatus
	CreatedOn     time.Time
	UpdatedOn     time.Time
	Result        *AsyncQueryResult
}

// EntitySchema implements Entity.
func (q *AsyncQuery) EntitySchema() *EntitySchema { return AsyncQuerySchema }

// EntityID implements Entity.
func (q *AsyncQuery) EntityID() string { return q.ID }

// Clone returns a deep copy of q, including its result.
func (q *AsyncQuery) Clone() *AsyncQuery {
	if q == nil {
		return nil
	}
	c := *q
	if q.Result != nil {
		r := *q.Result
		r.Query = &c
		c.Result = &r
	}
	return &c
}
