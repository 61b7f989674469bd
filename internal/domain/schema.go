package domain

import (
	"time"
)

// FieldType classifies a filterable entity field.
type FieldType int

// Field types understood by the predicate translator and the stores.
const (
	FieldString FieldType = iota
	FieldEnum
	FieldTimestamp
	FieldInt
)

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldEnum:
		return "enum"
	case FieldTimestamp:
		return "timestamp"
	case FieldInt:
		return "int"
	default:
		return "unknown"
	}
}

// TimestampLayout is the persisted form of every timestamp. It is fixed width
// so that lexical order of the stored text is chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTimestamp renders t in TimestampLayout (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a value written by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}

// FieldSchema describes one field of an entity: how filters name it, its
// type, the store column it maps to, and how to read it from a loaded entity.
type FieldSchema struct {
	Name   string
	Type   FieldType
	Column string
	Values []string // enum members, FieldEnum only

	// Get returns the field value of e as string, int64 or time.Time.
	Get func(e Entity) any
}

// EntitySchema is the static descriptor of one persisted entity type.
type EntitySchema struct {
	Name     string
	Table    string
	IDColumn string
	Fields   []FieldSchema
}

// Field returns the field with the given filter-facing name.
func (s *EntitySchema) Field(name string) (*FieldSchema, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// FieldNames lists the filterable field names in declaration order.
func (s *EntitySchema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func queryStatusValues() []string {
	out := make([]string, len(QueryStatuses))
	for i, s := range QueryStatuses {
		out[i] = string(s)
	}
	return out
}

// AsyncQuerySchema describes AsyncQuery.
var AsyncQuerySchema = &EntitySchema{
	Name:     "asyncQuery",
	Table:    "async_queries",
	IDColumn: "id",
	Fields: []FieldSchema{
		{Name: "id", Type: FieldString, Column: "id", Get: func(e Entity) any { return e.(*AsyncQuery).ID }},
		{Name: "query", Type: FieldString, Column: "query", Get: func(e Entity) any { return e.(*AsyncQuery).Query }},
		{
			Name: "queryType", Type: FieldEnum, Column: "query_type",
			Values: []string{string(QueryTypeGraphQL), string(QueryTypeJSONAPI)},
			Get:    func(e Entity) any { return string(e.(*AsyncQuery).QueryType) },
		},
		{Name: "principalName", Type: FieldString, Column: "principal_name", Get: func(e Entity) any { return e.(*AsyncQuery).PrincipalName }},
		{
			Name: "status", Type: FieldEnum, Column: "status",
			Values: queryStatusValues(),
			Get:    func(e Entity) any { return string(e.(*AsyncQuery).Status) },
		},
		{Name: "createdOn", Type: FieldTimestamp, Column: "created_on", Get: func(e Entity) any { return e.(*AsyncQuery).CreatedOn }},
		{Name: "updatedOn", Type: FieldTimestamp, Column: "updated_on", Get: func(e Entity) any { return e.(*AsyncQuery).UpdatedOn }},
	},
}

// AsyncQueryResultSchema describes AsyncQueryResult.
var AsyncQueryResultSchema = &EntitySchema{
	Name:     "asyncQueryResult",
	Table:    "async_query_results",
	IDColumn: "id",
	Fields: []FieldSchema{
		{Name: "id", Type: FieldString, Column: "id", Get: func(e Entity) any { return e.(*AsyncQueryResult).ID }},
		{Name: "httpStatus", Type: FieldInt, Column: "http_status", Get: func(e Entity) any { return int64(e.(*AsyncQueryResult).HTTPStatus) }},
		{Name: "contentLength", Type: FieldInt, Column: "content_length", Get: func(e Entity) any { return e.(*AsyncQueryResult).ContentLength }},
		{Name: "queryId", Type: FieldString, Column: "query_id", Get: func(e Entity) any { return e.(*AsyncQueryResult).QueryID }},
		{Name: "createdOn", Type: FieldTimestamp, Column: "created_on", Get: func(e Entity) any { return e.(*AsyncQueryResult).CreatedOn }},
	},
}

// Schemas is the descriptor table for every persisted entity type.
var Schemas = []*EntitySchema{AsyncQuerySchema, AsyncQueryResultSchema}

// LookupSchema returns the descriptor registered under name.
func LookupSchema(name string) (*EntitySchema, bool) {
	for _, s := range Schemas {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}
