package asyncquery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asyncq/internal/db"
	"asyncq/internal/db/repository"
	"asyncq/internal/domain"
	"asyncq/internal/filter"
	"asyncq/internal/store/memstore"
	"asyncq/internal/testutil"
)

var (
	clockNow = time.Date(2020, 4, 22, 14, 0, 0, 0, time.UTC)
	boom     = errors.New("store unavailable")
)

type fixture struct {
	mem     *memstore.Store
	store   *testutil.RecordingStore
	mgr     *Manager
	metrics *Metrics
}

func setupManager(t *testing.T) *fixture {
	t.Helper()
	mem := memstore.New()
	rec := testutil.NewRecordingStore(mem)
	metrics := NewMetrics(prometheus.NewRegistry())
	mgr := NewManager(rec, filter.NewTranslator(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics),
		WithClock(func() time.Time { return clockNow }),
	)
	return &fixture{mem: mem, store: rec, mgr: mgr, metrics: metrics}
}

func record(id string, status domain.QueryStatus, created time.Time) *domain.AsyncQuery {
	return &domain.AsyncQuery{
		ID:            id,
		Query:         "/group?sort=commonName",
		QueryType:     domain.QueryTypeJSONAPI,
		PrincipalName: "alice",
		Status:        status,
		CreatedOn:     created,
		UpdatedOn:     created,
	}
}

// seed commits records directly and resets the call counters.
func (f *fixture) seed(t *testing.T, records ...*domain.AsyncQuery) {
	t.Helper()
	ctx := context.Background()
	tx, err := f.mem.BeginTransaction(ctx)
	require.NoError(t, err)
	for _, q := range records {
		require.NoError(t, tx.CreateObject(ctx, q))
	}
	require.NoError(t, tx.Commit(ctx))
	f.store.Reset()
}

func (f *fixture) status(t *testing.T, id string) domain.QueryStatus {
	t.Helper()
	ctx := context.Background()
	tx, err := f.mem.BeginTransaction(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck
	e, err := tx.LoadObject(ctx, domain.AsyncQuerySchema, id)
	require.NoError(t, err)
	return e.(*domain.AsyncQuery).Status
}

func TestUpdateStatus_SingleRecord(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	q := record("q1", domain.QueryStatusQueued, clockNow.Add(-time.Hour))
	f.seed(t, q)

	got, err := f.mgr.UpdateStatus(context.Background(), q, domain.QueryStatusProcessing)
	require.NoError(t, err)

	assert.Same(t, q, got)
	assert.Equal(t, domain.QueryStatusProcessing, q.Status)
	assert.Equal(t, clockNow, q.UpdatedOn)
	assert.Equal(t, domain.QueryStatusProcessing, f.status(t, "q1"))

	calls := f.store.Calls()
	assert.Equal(t, 1, calls.Save)
	assert.Equal(t, 1, calls.Begin)
	assert.Equal(t, 1, calls.Commit)
	assert.InDelta(t, 1, promtestutil.ToFloat64(f.metrics.statusUpdates.WithLabelValues("PROCESSING")), 0)
}

func TestUpdateStatus_WritesOnlyStatus(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	f.seed(t, record("q2", domain.QueryStatusQueued, clockNow.Add(-time.Hour)))
	ctx := context.Background()

	edited := record("q2", domain.QueryStatusQueued, clockNow.Add(-time.Hour))
	edited.Query = "tampered"
	edited.PrincipalName = "mallory"

	got, err := f.mgr.UpdateStatus(ctx, edited, domain.QueryStatusProcessing)
	require.NoError(t, err)
	assert.Same(t, edited, got)
	assert.Equal(t, domain.QueryStatusProcessing, got.Status)
	assert.Equal(t, clockNow, got.UpdatedOn)

	loaded, err := f.mgr.GetQuery(ctx, "q2")
	require.NoError(t, err)
	assert.Equal(t, domain.QueryStatusProcessing, loaded.Status)
	assert.Equal(t, "/group?sort=commonName", loaded.Query)
	assert.Equal(t, "alice", loaded.PrincipalName)
}

func TestUpdateStatusCollection_Bulk(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	f.seed(t,
		record("q1", domain.QueryStatusProcessing, time.Date(2020, 4, 22, 12, 0, 0, 0, time.UTC)),
		record("q2", domain.QueryStatusQueued, time.Date(2020, 4, 22, 13, 0, 0, 0, time.UTC)),
		record("q3", domain.QueryStatusQueued, time.Date(2020, 4, 22, 13, 30, 0, 0, time.UTC)),
	)

	n, err := f.mgr.UpdateStatusCollection(context.Background(),
		"status=in=(PROCESSING,QUEUED);createdOn=le='2020-04-22T13:28Z'", domain.QueryStatusTimedOut)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, 2, f.store.Calls().Save)
	assert.Equal(t, domain.QueryStatusTimedOut, f.status(t, "q1"))
	assert.Equal(t, domain.QueryStatusTimedOut, f.status(t, "q2"))
	assert.Equal(t, domain.QueryStatusQueued, f.status(t, "q3"))
}

func TestDeleteCollection_Bulk(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	old := time.Date(2020, 3, 20, 0, 0, 0, 0, time.UTC)
	f.seed(t,
		record("q1", domain.QueryStatusComplete, old),
		record("q2", domain.QueryStatusFailure, old.Add(time.Hour)),
		record("q3", domain.QueryStatusQueued, old.Add(2*time.Hour)),
		record("q4", domain.QueryStatusQueued, clockNow),
	)

	n, err := f.mgr.DeleteCollection(context.Background(), "createdOn=le='2020-03-23T02:02Z'")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	calls := f.store.Calls()
	assert.Equal(t, 1, calls.LoadObjects)
	assert.Equal(t, 3, calls.Delete)
	assert.Equal(t, 1, calls.Begin)
	assert.Equal(t, 1, calls.Commit)
	assert.InDelta(t, 3, promtestutil.ToFloat64(f.metrics.deleted), 0)
}

func TestDeleteCollection_Idempotent(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	f.seed(t, record("q1", domain.QueryStatusComplete, clockNow.Add(-48*time.Hour)))
	ctx := context.Background()

	n, err := f.mgr.DeleteCollection(ctx, "createdOn=le='2020-04-21T00:00Z'")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.mgr.DeleteCollection(ctx, "createdOn=le='2020-04-21T00:00Z'")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCreateResult(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	owner := record("q1", domain.QueryStatusComplete, clockNow.Add(-time.Minute))
	f.seed(t, owner)

	const id = "ba31ca4e-ed8f-4be0-a0f3-12088fa9263e"
	result, err := f.mgr.CreateResult(context.Background(), 200, "responseBody", owner, id)
	require.NoError(t, err)

	assert.Equal(t, id, result.ID)
	assert.Equal(t, 200, result.HTTPStatus)
	assert.Equal(t, "responseBody", result.ResponseBody)
	assert.Equal(t, int64(len("responseBody")), result.ContentLength)
	assert.Same(t, owner, result.Query)
	assert.Same(t, result, owner.Result)

	calls := f.store.Calls()
	assert.Equal(t, 1, calls.Create)
	assert.Equal(t, 1, calls.Save)

	stored, err := f.mgr.GetResult(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, id, stored.ID)
}

func TestCreateResult_RejectsSecondResult(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	owner := record("q1", domain.QueryStatusComplete, clockNow)
	f.seed(t, owner)
	ctx := context.Background()

	first, err := f.mgr.CreateResult(ctx, 200, "ok", owner, "r1")
	require.NoError(t, err)

	_, err = f.mgr.CreateResult(ctx, 500, "again", owner, "r2")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.True(t, domain.IsTransactionError(err))
	assert.Same(t, first, owner.Result)
}

func TestCreateResult_KeepsConcurrentStatusChange(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	owner := record("q1", domain.QueryStatusProcessing, clockNow.Add(-2*time.Hour))
	f.seed(t, owner)
	ctx := context.Background()

	n, err := f.mgr.UpdateStatusCollection(ctx, "status=in=(PROCESSING,QUEUED);createdOn=le='2020-04-22T13:28Z'", domain.QueryStatusTimedOut)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// owner still carries PROCESSING from before the sweep.
	result, err := f.mgr.CreateResult(ctx, 200, "body", owner, "r1")
	require.NoError(t, err)
	assert.Same(t, result, owner.Result)
	assert.Equal(t, clockNow, owner.UpdatedOn)

	assert.Equal(t, domain.QueryStatusTimedOut, f.status(t, "q1"))
	stored, err := f.mgr.GetResult(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "r1", stored.ID)
}

func TestCreateResult_AtomicOnFailure(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	created := clockNow.Add(-time.Hour)
	owner := record("q1", domain.QueryStatusComplete, created)
	f.seed(t, owner)
	f.mem.SetFault(func(op memstore.Op, id string) error {
		if op == memstore.OpSave && id == "q1" {
			return boom
		}
		return nil
	})

	_, err := f.mgr.CreateResult(context.Background(), 200, "body", owner, "r1")
	require.ErrorIs(t, err, boom)
	assert.True(t, domain.IsTransactionError(err))
	assert.Nil(t, owner.Result)
	assert.Equal(t, created, owner.UpdatedOn)

	calls := f.store.Calls()
	assert.Equal(t, 1, calls.Create)
	assert.Equal(t, 0, calls.Commit)
	assert.Equal(t, 1, calls.Rollback)

	f.mem.SetFault(nil)
	_, err = f.mgr.GetResult(context.Background(), "q1")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestCreateResult_Validation(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	ctx := context.Background()

	var validation *domain.ValidationError
	_, err := f.mgr.CreateResult(ctx, 200, "ok", nil, "r1")
	require.ErrorAs(t, err, &validation)
	_, err = f.mgr.CreateResult(ctx, 200, "ok", record("q1", domain.QueryStatusComplete, clockNow), "")
	require.ErrorAs(t, err, &validation)

	var notFound *domain.NotFoundError
	_, err = f.mgr.CreateResult(ctx, 200, "ok", record("ghost", domain.QueryStatusComplete, clockNow), "r1")
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 1, f.store.Calls().Begin)
}

func TestUpdateStatusCollection_EmptyMatch(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	f.seed(t, record("q1", domain.QueryStatusComplete, clockNow))

	n, err := f.mgr.UpdateStatusCollection(context.Background(), "status==QUEUED", domain.QueryStatusTimedOut)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	calls := f.store.Calls()
	assert.Equal(t, 1, calls.Begin)
	assert.Equal(t, 1, calls.Commit)
	assert.Equal(t, 0, calls.Save)
}

func TestBulkOperations_TranslationErrorSkipsStore(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	ctx := context.Background()

	_, err := f.mgr.UpdateStatusCollection(ctx, "colour==red", domain.QueryStatusTimedOut)
	require.Error(t, err)
	assert.True(t, domain.IsTranslationError(err))
	assert.False(t, domain.IsTransactionError(err))

	_, err = f.mgr.DeleteCollection(ctx, "createdOn=le=(")
	assert.True(t, domain.IsTranslationError(err))

	assert.Equal(t, testutil.Calls{}, f.store.Calls())
}

func TestBulkOperations_UseInjectedTranslator(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	f.seed(t,
		record("q1", domain.QueryStatusQueued, clockNow.Add(-time.Hour)),
		record("q2", domain.QueryStatusQueued, clockNow.Add(-time.Hour)),
	)

	var gotExpr []string
	translator := &testutil.MockTranslator{
		TranslateFn: func(expr string, entity *domain.EntitySchema) (domain.Predicate, error) {
			gotExpr = append(gotExpr, expr)
			assert.Same(t, domain.AsyncQuerySchema, entity)
			return filter.Compile("id==q2", entity)
		},
	}
	mgr := NewManager(f.store, translator, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	n, err := mgr.UpdateStatusCollection(context.Background(), "anything", domain.QueryStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.QueryStatusQueued, f.status(t, "q1"))
	assert.Equal(t, domain.QueryStatusProcessing, f.status(t, "q2"))

	n, err = mgr.DeleteCollection(context.Background(), "whatever")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"anything", "whatever"}, gotExpr)
}

func TestUpdateStatusCollection_AtomicOnFailure(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	f.seed(t,
		record("q1", domain.QueryStatusQueued, clockNow.Add(-3*time.Hour)),
		record("q2", domain.QueryStatusQueued, clockNow.Add(-2*time.Hour)),
		record("q3", domain.QueryStatusQueued, clockNow.Add(-time.Hour)),
	)
	f.mem.SetFault(func(op memstore.Op, id string) error {
		if op == memstore.OpSave && id == "q2" {
			return boom
		}
		return nil
	})

	n, err := f.mgr.UpdateStatusCollection(context.Background(), "status==QUEUED", domain.QueryStatusTimedOut)
	require.ErrorIs(t, err, boom)
	assert.True(t, domain.IsTransactionError(err))
	assert.Equal(t, 0, n)

	calls := f.store.Calls()
	assert.Equal(t, 0, calls.Commit)
	assert.Equal(t, 1, calls.Rollback)

	f.mem.SetFault(nil)
	for _, id := range []string{"q1", "q2", "q3"} {
		assert.Equal(t, domain.QueryStatusQueued, f.status(t, id), id)
	}
}

func TestUpdateStatusCollection_TerminalRecordAbortsBatch(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	f.seed(t,
		record("q1", domain.QueryStatusQueued, clockNow.Add(-2*time.Hour)),
		record("q2", domain.QueryStatusComplete, clockNow.Add(-time.Hour)),
	)

	_, err := f.mgr.UpdateStatusCollection(context.Background(), "createdOn=le='2020-04-22T14:00Z'", domain.QueryStatusTimedOut)
	var transition *domain.TransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, "q2", transition.ID)
	assert.Equal(t, domain.QueryStatusQueued, f.status(t, "q1"))
}

func TestDeleteCollection_AtomicOnFailure(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	f.seed(t,
		record("q1", domain.QueryStatusComplete, clockNow.Add(-2*time.Hour)),
		record("q2", domain.QueryStatusComplete, clockNow.Add(-time.Hour)),
	)
	f.mem.SetFault(func(op memstore.Op, _ string) error {
		if op == memstore.OpCommit {
			return boom
		}
		return nil
	})

	_, err := f.mgr.DeleteCollection(context.Background(), "status==COMPLETE")
	require.ErrorIs(t, err, boom)

	f.mem.SetFault(nil)
	assert.Equal(t, domain.QueryStatusComplete, f.status(t, "q1"))
	assert.Equal(t, domain.QueryStatusComplete, f.status(t, "q2"))
}

func TestUpdateStatus_StateMachine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    domain.QueryStatus
		to      domain.QueryStatus
		allowed bool
	}{
		{"queued to processing", domain.QueryStatusQueued, domain.QueryStatusProcessing, true},
		{"queued to timed out", domain.QueryStatusQueued, domain.QueryStatusTimedOut, true},
		{"processing to complete", domain.QueryStatusProcessing, domain.QueryStatusComplete, true},
		{"processing to failure", domain.QueryStatusProcessing, domain.QueryStatusFailure, true},
		{"same status", domain.QueryStatusProcessing, domain.QueryStatusProcessing, true},
		{"queued to complete", domain.QueryStatusQueued, domain.QueryStatusComplete, false},
		{"complete to processing", domain.QueryStatusComplete, domain.QueryStatusProcessing, false},
		{"timed out to queued", domain.QueryStatusTimedOut, domain.QueryStatusQueued, false},
		{"failure to complete", domain.QueryStatusFailure, domain.QueryStatusComplete, false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := setupManager(t)
			created := clockNow.Add(-time.Hour)
			q := record("q1", tc.from, created)
			f.seed(t, q)

			_, err := f.mgr.UpdateStatus(context.Background(), q, tc.to)
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, tc.to, f.status(t, "q1"))
				return
			}
			var transition *domain.TransitionError
			require.ErrorAs(t, err, &transition)
			assert.Equal(t, tc.from, transition.From)
			assert.Equal(t, tc.to, transition.To)
			assert.Equal(t, tc.from, q.Status, "caller's record is restored")
			assert.Equal(t, created, q.UpdatedOn)
			assert.Equal(t, tc.from, f.status(t, "q1"))
		})
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	ctx := context.Background()

	var validation *domain.ValidationError
	_, err := f.mgr.UpdateStatus(ctx, record("q1", domain.QueryStatusQueued, clockNow), "RUNNING")
	require.ErrorAs(t, err, &validation)
	_, err = f.mgr.UpdateStatus(ctx, nil, domain.QueryStatusProcessing)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, 0, f.store.Calls().Begin)

	var notFound *domain.NotFoundError
	_, err = f.mgr.UpdateStatus(ctx, record("detached", domain.QueryStatusQueued, clockNow), domain.QueryStatusProcessing)
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 1, f.store.Calls().Rollback)
}

func TestInTransaction_PanicRollsBack(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	q := record("q1", domain.QueryStatusQueued, clockNow)
	f.seed(t, q)
	f.mem.SetFault(func(op memstore.Op, _ string) error {
		if op == memstore.OpSave {
			panic("save exploded")
		}
		return nil
	})

	assert.PanicsWithValue(t, "save exploded", func() {
		_, _ = f.mgr.UpdateStatus(context.Background(), q, domain.QueryStatusProcessing)
	})

	calls := f.store.Calls()
	assert.Equal(t, 1, calls.Rollback)
	assert.Equal(t, 0, calls.Commit)
	assert.InDelta(t, 1, promtestutil.ToFloat64(f.metrics.transactions.WithLabelValues(opUpdateStatus, outcomePanic)), 0)
}

func TestInTransaction_BeginFailure(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	f.mem.SetFault(func(op memstore.Op, _ string) error {
		if op == memstore.OpBegin {
			return boom
		}
		return nil
	})

	_, err := f.mgr.DeleteCollection(context.Background(), "status==COMPLETE")
	require.ErrorIs(t, err, boom)
	var txErr *domain.TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, opDeleteCollection, txErr.Op)
}

func TestSubmitQuery(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	ctx := context.Background()

	q, err := f.mgr.SubmitQuery(ctx, &domain.AsyncQuery{Query: "{ books { title } }", PrincipalName: "bob"})
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, domain.QueryStatusQueued, q.Status)
	assert.Equal(t, domain.QueryTypeGraphQL, q.QueryType)
	assert.Equal(t, clockNow, q.CreatedOn)

	loaded, err := f.mgr.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", loaded.PrincipalName)

	_, err = f.mgr.GetResult(ctx, q.ID)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)

	var validation *domain.ValidationError
	_, err = f.mgr.SubmitQuery(ctx, &domain.AsyncQuery{Query: "  "})
	require.ErrorAs(t, err, &validation)
	_, err = f.mgr.SubmitQuery(ctx, &domain.AsyncQuery{Query: "x", QueryType: "SQL"})
	require.ErrorAs(t, err, &validation)

	var conflict *domain.ConflictError
	_, err = f.mgr.SubmitQuery(ctx, &domain.AsyncQuery{ID: q.ID, Query: "x"})
	require.ErrorAs(t, err, &conflict)
}

func TestSubmitQuery_LeavesInputOnFailure(t *testing.T) {
	t.Parallel()
	f := setupManager(t)
	ctx := context.Background()
	f.mem.SetFault(func(op memstore.Op, _ string) error {
		if op == memstore.OpCreate {
			return boom
		}
		return nil
	})

	in := &domain.AsyncQuery{Query: "{ books { title } }", PrincipalName: "bob"}
	_, err := f.mgr.SubmitQuery(ctx, in)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, &domain.AsyncQuery{Query: "{ books { title } }", PrincipalName: "bob"}, in)
}

func TestManager_SQLiteStore(t *testing.T) {
	t.Parallel()
	pools := db.OpenTestSQLite(t)
	mgr := NewManager(repository.NewStore(pools.Write), filter.NewTranslator(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return clockNow }),
	)
	ctx := context.Background()

	q, err := mgr.SubmitQuery(ctx, &domain.AsyncQuery{Query: "/book", QueryType: domain.QueryTypeJSONAPI})
	require.NoError(t, err)
	_, err = mgr.UpdateStatus(ctx, q, domain.QueryStatusProcessing)
	require.NoError(t, err)
	_, err = mgr.UpdateStatus(ctx, q, domain.QueryStatusComplete)
	require.NoError(t, err)
	_, err = mgr.CreateResult(ctx, 200, `{"data":[]}`, q, "r1")
	require.NoError(t, err)

	loaded, err := mgr.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueryStatusComplete, loaded.Status)
	require.NotNil(t, loaded.Result)
	assert.Equal(t, `{"data":[]}`, loaded.Result.ResponseBody)

	n, err := mgr.DeleteCollection(ctx, "status==COMPLETE")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = mgr.GetQuery(ctx, q.ID)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}
