package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampLayout_LexicalOrderIsChronological(t *testing.T) {
	a := time.Date(2020, 4, 22, 13, 28, 5, 0, time.UTC)
	b := a.Add(500 * time.Millisecond)
	c := a.Add(time.Second)

	fa, fb, fc := FormatTimestamp(a), FormatTimestamp(b), FormatTimestamp(c)
	assert.Len(t, fb, len(fa))
	assert.Less(t, fa, fb)
	assert.Less(t, fb, fc)

	parsed, err := ParseTimestamp(fb)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(b))
}

func TestFormatTimestamp_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2020, 3, 23, 4, 2, 0, 0, loc)
	assert.Equal(t, "2020-03-23T02:02:00.000000000Z", FormatTimestamp(ts))
}

func TestAsyncQuerySchema_Accessors(t *testing.T) {
	created := time.Date(2020, 4, 22, 13, 28, 0, 0, time.UTC)
	q := &AsyncQuery{ID: "q1", Status: QueryStatusQueued, QueryType: QueryTypeGraphQL, CreatedOn: created}

	f, ok := AsyncQuerySchema.Field("status")
	require.True(t, ok)
	assert.Equal(t, FieldEnum, f.Type)
	assert.Equal(t, "status", f.Column)
	assert.Equal(t, "QUEUED", f.Get(q))
	assert.Contains(t, f.Values, "TIMEDOUT")

	f, ok = AsyncQuerySchema.Field("createdOn")
	require.True(t, ok)
	assert.Equal(t, "created_on", f.Column)
	assert.Equal(t, created, f.Get(q))

	_, ok = AsyncQuerySchema.Field("bogus")
	assert.False(t, ok)
}

func TestLookupSchema(t *testing.T) {
	s, ok := LookupSchema("asyncQueryResult")
	require.True(t, ok)
	assert.Same(t, AsyncQueryResultSchema, s)
	assert.Equal(t, []string{"id", "httpStatus", "contentLength", "queryId", "createdOn"}, s.FieldNames())

	_, ok = LookupSchema("nope")
	assert.False(t, ok)
}
