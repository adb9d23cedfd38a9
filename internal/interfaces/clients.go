// Package interfaces defines service contracts for Wealthtower
package interfaces

import (
	"context"

	"github.com/jkoh/wealthtower/internal/models"
)

// TableClient fetches named tables from the spreadsheet-backed store and
// writes the history table back.
type TableClient interface {
	// FetchTable retrieves a sheet as normalized rows keyed by canonical
	// field names. A transport or parse failure returns an empty slice and
	// a SourceUnavailable flag, never an error that aborts the cycle.
	FetchTable(ctx context.Context, sheet string) ([]models.Row, []models.Flag)

	// ReplaceHistory writes the full reconciled history table in one shot.
	// This is the only remote write path; it is attempted once, no retry.
	ReplaceHistory(ctx context.Context, records []models.HistoryRecord) error

	// InvalidateTables drops cached tables so the next read observes the
	// store. Called after a successful write and on force refresh.
	InvalidateTables()
}

// MarketDataClient resolves a ticker to a short recent close series,
// most recent first. Fewer than one close means the price is unavailable.
type MarketDataClient interface {
	GetRecentCloses(ctx context.Context, ticker string) ([]float64, error)
}
