package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkoh/wealthtower/internal/common"
	"github.com/jkoh/wealthtower/internal/interfaces"
	"github.com/jkoh/wealthtower/internal/models"
)

// --- Mocks ---

type mockTableClient struct {
	rows        []models.Row
	flags       []models.Flag
	replaceErr  error
	replaced    [][]models.HistoryRecord
	invalidated int
}

func (m *mockTableClient) FetchTable(_ context.Context, _ string) ([]models.Row, []models.Flag) {
	return m.rows, m.flags
}

func (m *mockTableClient) ReplaceHistory(_ context.Context, records []models.HistoryRecord) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaced = append(m.replaced, records)
	return nil
}

func (m *mockTableClient) InvalidateTables() {
	m.invalidated++
}

type mockValuation struct {
	total float64
	flags []models.Flag
}

func (m *mockValuation) Valuate(_ context.Context) *models.Valuation {
	return &models.Valuation{GrandTotal: m.total, Flags: m.flags}
}

func (m *mockValuation) Evaluate(_ context.Context, _ []models.HoldingRecord, fxRate float64) *models.Valuation {
	return &models.Valuation{ExchangeRate: fxRate}
}

func (m *mockValuation) ResolveExchangeRate(_ context.Context) (float64, []models.Flag) {
	return 1450, nil
}

type mockStorage struct {
	pending map[string]*models.PendingSnapshot
	kv      map[string]string
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		pending: make(map[string]*models.PendingSnapshot),
		kv:      make(map[string]string),
	}
}

func (m *mockStorage) SnapshotStore() interfaces.SnapshotStore { return m }
func (m *mockStorage) SystemStore() interfaces.SystemStore     { return m }
func (m *mockStorage) Close() error                            { return nil }

func (m *mockStorage) SavePending(_ context.Context, snap *models.PendingSnapshot) error {
	cp := *snap
	m.pending[snap.ID] = &cp
	return nil
}

func (m *mockStorage) GetPending(_ context.Context, id string) (*models.PendingSnapshot, error) {
	snap, ok := m.pending[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return snap, nil
}

func (m *mockStorage) DeletePending(_ context.Context, id string) error {
	delete(m.pending, id)
	return nil
}

func (m *mockStorage) ListPending(_ context.Context) ([]*models.PendingSnapshot, error) {
	out := make([]*models.PendingSnapshot, 0, len(m.pending))
	for _, snap := range m.pending {
		out = append(out, snap)
	}
	return out, nil
}

func (m *mockStorage) GetSystemKV(_ context.Context, key string) (string, error) {
	return m.kv[key], nil
}

func (m *mockStorage) SetSystemKV(_ context.Context, key, value string) error {
	m.kv[key] = value
	return nil
}

func (m *mockStorage) DeleteSystemKV(_ context.Context, key string) error {
	delete(m.kv, key)
	return nil
}

func newTestService(tables *mockTableClient, val *mockValuation, storage *mockStorage) *Service {
	if tables == nil {
		tables = &mockTableClient{}
	}
	if val == nil {
		val = &mockValuation{}
	}
	var sm interfaces.StorageManager
	if storage != nil {
		sm = storage
	}
	return NewService(tables, val, sm, "history", common.NewSilentLogger())
}

// --- BuildRecord ---

func TestBuildRecord_NetWorthSubtractsExpenses(t *testing.T) {
	svc := newTestService(nil, nil, nil)

	expenses := models.ExpenseBreakdown{Fixed: 100000, Living: 50000}
	rec := svc.BuildRecord("2024-03-04", 2345678.4, expenses)

	assert.Equal(t, models.Date("2024-03-04"), rec.Date)
	assert.Equal(t, int64(2345678-150000), rec.NetWorth)
	assert.Equal(t, expenses, rec.Expenses)
}

// --- Reconcile ---

func TestReconcile_SameDateLastWriteWins(t *testing.T) {
	svc := newTestService(nil, nil, nil)

	prior := []models.HistoryRecord{{Date: "2024-01-01", NetWorth: 1000000}}
	merged := svc.Reconcile(prior, models.HistoryRecord{Date: "2024-01-01", NetWorth: 950000})

	require.Len(t, merged, 1)
	assert.Equal(t, int64(950000), merged[0].NetWorth)
}

func TestReconcile_DistinctDatesSortedAscending(t *testing.T) {
	svc := newTestService(nil, nil, nil)

	prior := []models.HistoryRecord{
		{Date: "2024-02-05", NetWorth: 2},
		{Date: "2024-01-01", NetWorth: 1},
	}
	merged := svc.Reconcile(prior, models.HistoryRecord{Date: "2024-01-15", NetWorth: 3})

	require.Len(t, merged, 3)
	assert.Equal(t, models.Date("2024-01-01"), merged[0].Date)
	assert.Equal(t, models.Date("2024-01-15"), merged[1].Date)
	assert.Equal(t, models.Date("2024-02-05"), merged[2].Date)
}

func TestReconcile_Idempotent(t *testing.T) {
	svc := newTestService(nil, nil, nil)

	prior := []models.HistoryRecord{{Date: "2024-01-01", NetWorth: 1}}
	rec := models.HistoryRecord{Date: "2024-01-08", NetWorth: 2}

	once := svc.Reconcile(prior, rec)
	twice := svc.Reconcile(once, rec)

	assert.Equal(t, once, twice)
}

// --- History ---

func TestHistory_DecodesDedupesAndSorts(t *testing.T) {
	tables := &mockTableClient{rows: []models.Row{
		{models.FieldDate: "2024-01-08", models.FieldNetWorth: "1,100,000"},
		{models.FieldDate: "2024-01-01", models.FieldNetWorth: "1,000,000", models.FieldFixed: "abc"},
		{models.FieldDate: "not-a-date", models.FieldNetWorth: "9"},
		{models.FieldDate: "2024-01-01", models.FieldNetWorth: "1,050,000"},
	}}
	svc := newTestService(tables, nil, nil)

	records, flags := svc.History(context.Background())

	assert.Empty(t, flags)
	require.Len(t, records, 2)
	assert.Equal(t, models.Date("2024-01-01"), records[0].Date)
	assert.Equal(t, int64(1050000), records[0].NetWorth) // duplicate date keeps last row
	assert.Equal(t, int64(0), records[0].Expenses.Fixed) // non-numeric coerced to zero
	assert.Equal(t, models.Date("2024-01-08"), records[1].Date)
}

func TestHistory_SourceUnavailableYieldsEmptyWithFlag(t *testing.T) {
	tables := &mockTableClient{
		flags: []models.Flag{models.NewFlag(models.FlagSourceUnavailable, "history", "down")},
	}
	svc := newTestService(tables, nil, nil)

	records, flags := svc.History(context.Background())
	assert.Empty(t, records)
	assert.True(t, models.HasFlag(flags, models.FlagSourceUnavailable))
}

// --- FallbackPayload ---

func TestFallbackPayload_ExactColumnOrder(t *testing.T) {
	rec := models.HistoryRecord{
		Date:     "2024-03-04",
		NetWorth: 12345678,
		Expenses: models.ExpenseBreakdown{
			Fixed: 1, AllowanceA: 2, AllowanceB: 3, Living: 4, Events: 5, Misc: 6,
		},
	}

	assert.Equal(t, "2024-03-04\t12345678\t1\t2\t3\t4\t5\t6", FallbackPayload(rec))
}

// --- Persist ---

func TestPersist_SuccessInvalidatesHistoryCache(t *testing.T) {
	tables := &mockTableClient{}
	storage := newMockStorage()
	svc := newTestService(tables, nil, storage)

	rec := models.HistoryRecord{Date: "2024-03-04", NetWorth: 100}
	result := svc.Persist(context.Background(), []models.HistoryRecord{rec}, rec)

	assert.True(t, result.Persisted)
	assert.Empty(t, result.Payload)
	assert.Equal(t, 1, tables.invalidated)
	assert.Equal(t, "2024-03-04", storage.kv["ledger_last_persist"])
}

func TestPersist_FailureEmitsPayloadAndParksRecord(t *testing.T) {
	tables := &mockTableClient{replaceErr: errors.New("quota exceeded")}
	storage := newMockStorage()
	svc := newTestService(tables, nil, storage)

	rec := models.HistoryRecord{Date: "2024-03-04", NetWorth: 100}
	result := svc.Persist(context.Background(), []models.HistoryRecord{rec}, rec)

	assert.False(t, result.Persisted)
	assert.Equal(t, "2024-03-04\t100\t0\t0\t0\t0\t0\t0", result.Payload)
	assert.True(t, models.HasFlag(result.Flags, models.FlagPersistFailed))

	require.NotEmpty(t, result.PendingID)
	snap, err := storage.GetPending(context.Background(), result.PendingID)
	require.NoError(t, err)
	assert.Equal(t, rec, snap.Record)
	assert.Equal(t, 1, snap.Attempts)
	assert.Contains(t, snap.LastError, "quota")
}

func TestPersist_SuccessClearsStalePendingForDate(t *testing.T) {
	tables := &mockTableClient{}
	storage := newMockStorage()
	storage.pending["old"] = &models.PendingSnapshot{
		ID:     "old",
		Record: models.HistoryRecord{Date: "2024-03-04"},
	}
	svc := newTestService(tables, nil, storage)

	rec := models.HistoryRecord{Date: "2024-03-04", NetWorth: 100}
	svc.Persist(context.Background(), []models.HistoryRecord{rec}, rec)

	assert.Empty(t, storage.pending)
}

// --- RecordSnapshot ---

func TestRecordSnapshot_FullPipeline(t *testing.T) {
	tables := &mockTableClient{rows: []models.Row{
		{models.FieldDate: "2024-01-01", models.FieldNetWorth: "1000000"},
	}}
	val := &mockValuation{total: 2000000.4}
	svc := newTestService(tables, val, newMockStorage())

	expenses := models.ExpenseBreakdown{Living: 500000}
	result, err := svc.RecordSnapshot(context.Background(), "2024-01-08", expenses)

	require.NoError(t, err)
	assert.Equal(t, int64(1500000), result.Record.NetWorth) // 2,000,000 − 500,000

	require.Len(t, result.History, 2)
	assert.Equal(t, models.Date("2024-01-01"), result.History[0].Date)
	assert.Equal(t, models.Date("2024-01-08"), result.History[1].Date)

	assert.True(t, result.Persist.Persisted)
	require.Len(t, tables.replaced, 1)
	assert.Len(t, tables.replaced[0], 2) // full table written, not just the delta
}

func TestRecordSnapshot_SameDayCorrectionReplaces(t *testing.T) {
	tables := &mockTableClient{rows: []models.Row{
		{models.FieldDate: "2024-01-01", models.FieldNetWorth: "1000000"},
	}}
	val := &mockValuation{total: 950000}
	svc := newTestService(tables, val, newMockStorage())

	result, err := svc.RecordSnapshot(context.Background(), "2024-01-01", models.ExpenseBreakdown{})

	require.NoError(t, err)
	require.Len(t, result.History, 1)
	assert.Equal(t, int64(950000), result.History[0].NetWorth)
}

func TestRecordSnapshot_InvalidDateRejected(t *testing.T) {
	svc := newTestService(nil, &mockValuation{}, nil)

	_, err := svc.RecordSnapshot(context.Background(), "01/02/2024", models.ExpenseBreakdown{})
	assert.Error(t, err)
}

func TestRecordSnapshot_CollectsAllFlags(t *testing.T) {
	tables := &mockTableClient{
		flags:      []models.Flag{models.NewFlag(models.FlagSourceUnavailable, "history", "down")},
		replaceErr: errors.New("auth expired"),
	}
	val := &mockValuation{
		total: 100,
		flags: []models.Flag{models.NewFlag(models.FlagQuoteUnavailable, "Y", "no price")},
	}
	svc := newTestService(tables, val, newMockStorage())

	result, err := svc.RecordSnapshot(context.Background(), "2024-01-08", models.ExpenseBreakdown{})

	require.NoError(t, err)
	assert.True(t, models.HasFlag(result.Flags, models.FlagQuoteUnavailable))
	assert.True(t, models.HasFlag(result.Flags, models.FlagSourceUnavailable))
	assert.True(t, models.HasFlag(result.Flags, models.FlagPersistFailed))
	assert.NotEmpty(t, result.Persist.Payload)
}

// --- RetryPending ---

func TestRetryPending_SuccessClearsSnapshot(t *testing.T) {
	tables := &mockTableClient{}
	storage := newMockStorage()
	storage.pending["abc"] = &models.PendingSnapshot{
		ID:     "abc",
		Record: models.HistoryRecord{Date: "2024-03-04", NetWorth: 100},
	}
	svc := newTestService(tables, nil, storage)

	result, err := svc.RetryPending(context.Background(), "abc")

	require.NoError(t, err)
	assert.True(t, result.Persisted)
	assert.Empty(t, storage.pending)
	assert.Equal(t, 1, tables.invalidated)
}

func TestRetryPending_FailureIncrementsAttempts(t *testing.T) {
	tables := &mockTableClient{replaceErr: errors.New("still down")}
	storage := newMockStorage()
	storage.pending["abc"] = &models.PendingSnapshot{
		ID:       "abc",
		Record:   models.HistoryRecord{Date: "2024-03-04"},
		Payload:  "2024-03-04\t0\t0\t0\t0\t0\t0\t0",
		Attempts: 1,
	}
	svc := newTestService(tables, nil, storage)

	result, err := svc.RetryPending(context.Background(), "abc")

	require.NoError(t, err)
	assert.False(t, result.Persisted)
	assert.Equal(t, result.Payload, storage.pending["abc"].Payload)
	assert.Equal(t, 2, storage.pending["abc"].Attempts)
}

func TestRetryPending_UnknownID(t *testing.T) {
	svc := newTestService(nil, nil, newMockStorage())
	_, err := svc.RetryPending(context.Background(), "nope")
	assert.Error(t, err)
}
