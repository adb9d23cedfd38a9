package interfaces

import (
	"context"

	"github.com/jkoh/wealthtower/internal/models"
)

// QuoteService is the price oracle: one quote per ticker, cached for a
// bounded interval. The cash sentinel short-circuits to a fixed 1.0 quote.
type QuoteService interface {
	// Quote never fails; an unresolvable ticker yields the unavailable
	// quote (price 0, no delta). Repeated calls inside the cache lifetime
	// return the identical cached quote.
	Quote(ctx context.Context, ticker string) models.PriceQuote

	// Invalidate drops all cached quotes.
	Invalidate()
}

// ValuationService converts the holdings table into a currency-normalized
// valuation using the oracle and the exchange-rate policy.
type ValuationService interface {
	// Valuate runs one full valuation cycle: fetch holdings, resolve the
	// exchange rate, price every holding. Degradations surface as flags
	// on the result, never as an error.
	Valuate(ctx context.Context) *models.Valuation

	// Evaluate prices an explicit holdings slice with a given exchange
	// rate. Exposed separately so the ledger can value what it records.
	Evaluate(ctx context.Context, holdings []models.HoldingRecord, fxRate float64) *models.Valuation

	// ResolveExchangeRate applies the sanity floor and fallback policy
	// over the oracle's FX quote. The returned flags note a substituted
	// fallback rate.
	ResolveExchangeRate(ctx context.Context) (float64, []models.Flag)
}

// LedgerService merges dated observations into the history series and
// persists the reconciled table.
type LedgerService interface {
	// History returns the reconciled series, ascending by date.
	History(ctx context.Context) ([]models.HistoryRecord, []models.Flag)

	// BuildRecord derives a history record: net worth = rounded raw total
	// minus the expense sum for the same pass.
	BuildRecord(date models.Date, rawTotal float64, expenses models.ExpenseBreakdown) models.HistoryRecord

	// Reconcile merges record into prior with last-write-wins semantics
	// keyed by calendar date. Output is always sorted ascending by date.
	Reconcile(prior []models.HistoryRecord, record models.HistoryRecord) []models.HistoryRecord

	// Persist writes the merged table remotely. On failure the result
	// carries the manual fallback payload and the record is parked in the
	// local pending store; the computed observation is never dropped.
	Persist(ctx context.Context, merged []models.HistoryRecord, record models.HistoryRecord) models.PersistResult

	// RecordSnapshot runs the full pipeline for one observation: valuate,
	// build, reconcile, persist.
	RecordSnapshot(ctx context.Context, date models.Date, expenses models.ExpenseBreakdown) (*models.SnapshotResult, error)

	// PendingSnapshots lists locally parked records awaiting a retry.
	PendingSnapshots(ctx context.Context) ([]*models.PendingSnapshot, error)

	// RetryPending re-attempts the remote write for one parked record.
	RetryPending(ctx context.Context, id string) (models.PersistResult, error)
}
