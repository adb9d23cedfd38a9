// Package ledger merges dated net-worth observations into the append-only
// history series and persists the reconciled table. Reconciliation is a
// last-write-wins merge keyed by calendar date; a persistence failure
// surfaces a manual fallback payload and parks the record locally, so a
// computed observation is never lost.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jkoh/wealthtower/internal/common"
	"github.com/jkoh/wealthtower/internal/interfaces"
	"github.com/jkoh/wealthtower/internal/models"
)

// lastPersistKey is the system KV breadcrumb of the last successful write.
const lastPersistKey = "ledger_last_persist"

// Service implements LedgerService.
type Service struct {
	tables       interfaces.TableClient
	valuation    interfaces.ValuationService
	storage      interfaces.StorageManager
	historySheet string
	logger       *common.Logger
	now          func() time.Time // injectable clock for testing
}

// NewService creates a new ledger service. storage may be nil in tests;
// pending snapshots are then not parked locally.
func NewService(tables interfaces.TableClient, valuation interfaces.ValuationService, storage interfaces.StorageManager, historySheet string, logger *common.Logger) *Service {
	return &Service{
		tables:       tables,
		valuation:    valuation,
		storage:      storage,
		historySheet: historySheet,
		logger:       logger,
		now:          common.NowKST,
	}
}

// History returns the reconciled series from the backing store, ascending
// by date. Duplicate dates in the raw table collapse to the last row, and
// rows without a parseable date are dropped.
func (s *Service) History(ctx context.Context) ([]models.HistoryRecord, []models.Flag) {
	rows, flags := s.tables.FetchTable(ctx, s.historySheet)

	records := make([]models.HistoryRecord, 0, len(rows))
	for _, row := range rows {
		rec, ok := models.HistoryRecordFromRow(row)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	return mergeByDate(records), flags
}

// BuildRecord derives the history record for one reconciliation pass.
// Net worth is the integer-rounded raw valuation minus the expense sum —
// the sole place "net" worth differs from "raw" valuation.
func (s *Service) BuildRecord(date models.Date, rawTotal float64, expenses models.ExpenseBreakdown) models.HistoryRecord {
	net := decimal.NewFromFloat(rawTotal).Round(0).IntPart() - expenses.Total()
	return models.HistoryRecord{
		Date:     date,
		NetWorth: net,
		Expenses: expenses,
	}
}

// Reconcile merges record into prior. The new record wins a same-date tie
// against any prior record; output is always sorted ascending by date.
func (s *Service) Reconcile(prior []models.HistoryRecord, record models.HistoryRecord) []models.HistoryRecord {
	merged := make([]models.HistoryRecord, 0, len(prior)+1)
	merged = append(merged, prior...)
	merged = append(merged, record)
	return mergeByDate(merged)
}

// mergeByDate is the single named reconciliation step: a map keyed by
// calendar date where later insertion overwrites earlier, followed by a
// deterministic ascending sort.
func mergeByDate(records []models.HistoryRecord) []models.HistoryRecord {
	byDate := make(map[models.Date]models.HistoryRecord, len(records))
	for _, rec := range records {
		byDate[rec.Date] = rec
	}

	out := make([]models.HistoryRecord, 0, len(byDate))
	for _, rec := range byDate {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// FallbackPayload renders the record as one tab-separated line in the
// exact history column order, for manual copy-paste into the sheet when
// the programmatic write fails.
func FallbackPayload(record models.HistoryRecord) string {
	fields := make([]string, 0, len(models.HistoryFieldOrder))
	fields = append(fields, string(record.Date), strconv.FormatInt(record.NetWorth, 10))
	for _, amount := range record.Expenses.Amounts() {
		fields = append(fields, strconv.FormatInt(amount, 10))
	}
	return strings.Join(fields, "\t")
}

// Persist writes the merged table remotely, once. Success invalidates the
// cached history table. Failure emits the manual fallback payload and
// parks the record in the local store; silent data loss is never
// acceptable here.
func (s *Service) Persist(ctx context.Context, merged []models.HistoryRecord, record models.HistoryRecord) models.PersistResult {
	err := s.tables.ReplaceHistory(ctx, merged)
	if err == nil {
		s.tables.InvalidateTables()
		s.markPersisted(ctx, record)
		s.logger.Info().Str("date", string(record.Date)).Int("rows", len(merged)).Msg("History persisted")
		return models.PersistResult{Persisted: true}
	}

	payload := FallbackPayload(record)
	result := models.PersistResult{
		Payload: payload,
		Flags: []models.Flag{
			models.NewFlag(models.FlagPersistFailed, string(record.Date), "remote write failed: %v", err),
		},
	}

	if id, parkErr := s.parkPending(ctx, record, payload, err); parkErr == nil {
		result.PendingID = id
	} else {
		s.logger.Error().Err(parkErr).Msg("Failed to park pending snapshot")
	}

	s.logger.Warn().
		Err(err).
		Str("date", string(record.Date)).
		Str("payload", payload).
		Msg("History write failed, apply manually")

	return result
}

func (s *Service) markPersisted(ctx context.Context, record models.HistoryRecord) {
	if s.storage == nil {
		return
	}
	if err := s.storage.SystemStore().SetSystemKV(ctx, lastPersistKey, string(record.Date)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record last persist date")
	}
	// Any parked snapshot for the same date is now stale.
	pendings, err := s.storage.SnapshotStore().ListPending(ctx)
	if err != nil {
		return
	}
	for _, p := range pendings {
		if p.Record.Date == record.Date {
			if err := s.storage.SnapshotStore().DeletePending(ctx, p.ID); err != nil {
				s.logger.Warn().Err(err).Str("id", p.ID).Msg("Failed to clear stale pending snapshot")
			}
		}
	}
}

func (s *Service) parkPending(ctx context.Context, record models.HistoryRecord, payload string, cause error) (string, error) {
	if s.storage == nil {
		return "", nil
	}
	now := s.now()
	snap := &models.PendingSnapshot{
		ID:        uuid.New().String(),
		Record:    record,
		Payload:   payload,
		Attempts:  1,
		LastError: cause.Error(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.storage.SnapshotStore().SavePending(ctx, snap); err != nil {
		return "", err
	}
	return snap.ID, nil
}

// RecordSnapshot runs the full pipeline for one observation: valuate the
// portfolio, build the dated record, reconcile it into the series, and
// persist. Every degradation along the way lands in the result flags.
func (s *Service) RecordSnapshot(ctx context.Context, date models.Date, expenses models.ExpenseBreakdown) (*models.SnapshotResult, error) {
	if date == "" {
		date = models.DateOf(s.now())
	}
	if _, ok := models.ParseDate(string(date)); !ok {
		return nil, fmt.Errorf("invalid date %q", date)
	}

	v := s.valuation.Valuate(ctx)
	record := s.BuildRecord(date, v.GrandTotal, expenses)

	prior, histFlags := s.History(ctx)
	merged := s.Reconcile(prior, record)

	persist := s.Persist(ctx, merged, record)

	flags := make([]models.Flag, 0, len(v.Flags)+len(histFlags)+len(persist.Flags))
	flags = append(flags, v.Flags...)
	flags = append(flags, histFlags...)
	flags = append(flags, persist.Flags...)

	return &models.SnapshotResult{
		Record:    record,
		Valuation: v,
		History:   merged,
		Persist:   persist,
		Flags:     flags,
	}, nil
}

// PendingSnapshots lists locally parked records awaiting a retry.
func (s *Service) PendingSnapshots(ctx context.Context) ([]*models.PendingSnapshot, error) {
	if s.storage == nil {
		return nil, nil
	}
	return s.storage.SnapshotStore().ListPending(ctx)
}

// RetryPending re-attempts the remote write for one parked record, merging
// it against the current remote series first so a retry cannot clobber
// observations recorded since the failure.
func (s *Service) RetryPending(ctx context.Context, id string) (models.PersistResult, error) {
	if s.storage == nil {
		return models.PersistResult{}, fmt.Errorf("no local store configured")
	}

	snap, err := s.storage.SnapshotStore().GetPending(ctx, id)
	if err != nil {
		return models.PersistResult{}, fmt.Errorf("pending snapshot %s: %w", id, err)
	}

	prior, _ := s.History(ctx)
	merged := s.Reconcile(prior, snap.Record)

	if err := s.tables.ReplaceHistory(ctx, merged); err != nil {
		snap.Attempts++
		snap.LastError = err.Error()
		snap.UpdatedAt = s.now()
		if saveErr := s.storage.SnapshotStore().SavePending(ctx, snap); saveErr != nil {
			s.logger.Warn().Err(saveErr).Str("id", id).Msg("Failed to update pending snapshot")
		}
		return models.PersistResult{
			Payload:   snap.Payload,
			PendingID: snap.ID,
			Flags: []models.Flag{
				models.NewFlag(models.FlagPersistFailed, string(snap.Record.Date), "retry failed: %v", err),
			},
		}, nil
	}

	s.tables.InvalidateTables()
	s.markPersisted(ctx, snap.Record)
	s.logger.Info().Str("id", id).Str("date", string(snap.Record.Date)).Msg("Pending snapshot persisted")
	return models.PersistResult{Persisted: true}, nil
}

// Ensure Service implements LedgerService
var _ interfaces.LedgerService = (*Service)(nil)
