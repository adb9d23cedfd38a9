// Package valuation converts the holdings table into a currency-normalized
// valuation: per-row evaluated amounts, the grand total, and category
// composition, with every upstream degradation surfaced as a flag.
package valuation

import (
	"context"
	"math"
	"time"

	"github.com/jkoh/wealthtower/internal/common"
	"github.com/jkoh/wealthtower/internal/interfaces"
	"github.com/jkoh/wealthtower/internal/models"
)

// Service implements ValuationService.
type Service struct {
	tables        interfaces.TableClient
	oracle        interfaces.QuoteService
	holdingsSheet string
	policy        common.ValuationConfig
	logger        *common.Logger
	now           func() time.Time // injectable clock for testing
}

// NewService creates a new valuation service.
func NewService(tables interfaces.TableClient, oracle interfaces.QuoteService, holdingsSheet string, policy common.ValuationConfig, logger *common.Logger) *Service {
	return &Service{
		tables:        tables,
		oracle:        oracle,
		holdingsSheet: holdingsSheet,
		policy:        policy,
		logger:        logger,
		now:           common.NowKST,
	}
}

// Valuate runs one full valuation cycle against the live holdings table.
func (s *Service) Valuate(ctx context.Context) *models.Valuation {
	rows, sourceFlags := s.tables.FetchTable(ctx, s.holdingsSheet)

	holdings := make([]models.HoldingRecord, 0, len(rows))
	for _, row := range rows {
		holdings = append(holdings, models.HoldingFromRow(row))
	}

	rate, rateFlags := s.ResolveExchangeRate(ctx)

	v := s.Evaluate(ctx, holdings, rate)
	v.Flags = append(append(sourceFlags, rateFlags...), v.Flags...)
	return v
}

// ResolveExchangeRate applies the sanity floor over the oracle's FX quote.
// A rate at or below the floor (including the unavailable 0 quote) is
// replaced with the configured fallback and flagged.
func (s *Service) ResolveExchangeRate(ctx context.Context) (float64, []models.Flag) {
	q := s.oracle.Quote(ctx, s.policy.RateTicker)

	rate := q.Last
	if rate > s.policy.RateFloor && !math.IsInf(rate, 0) && !math.IsNaN(rate) {
		return rate, nil
	}

	s.logger.Warn().
		Str("ticker", s.policy.RateTicker).
		Float64("live", rate).
		Float64("fallback", s.policy.RateFallback).
		Msg("Exchange rate rejected, using fallback")

	return s.policy.RateFallback, []models.Flag{
		models.NewFlag(models.FlagRateInvalid, s.policy.RateTicker,
			"live rate %.2f at or below floor %.0f, using fallback %.0f", rate, s.policy.RateFloor, s.policy.RateFallback),
	}
}

// Evaluate prices a holdings slice with the given exchange rate.
//
// Cash holdings are valued at face quantity. Market holdings are
// quantity × last price, converted through fxRate when the holding is
// foreign-currency. An unavailable price values the holding at exactly 0
// and raises a flag — under-stating wealth rather than erroring.
func (s *Service) Evaluate(ctx context.Context, holdings []models.HoldingRecord, fxRate float64) *models.Valuation {
	v := &models.Valuation{
		Holdings:     make([]models.EvaluatedHolding, 0, len(holdings)),
		ExchangeRate: fxRate,
		AsOf:         s.now(),
	}

	for _, h := range holdings {
		eh := models.EvaluatedHolding{HoldingRecord: h}

		if h.IsCash() {
			eh.UnitPrice = 1.0
			eh.Amount = h.Quantity
		} else {
			q := s.oracle.Quote(ctx, h.Ticker)
			if !q.Available() {
				v.Flags = append(v.Flags, models.NewFlag(models.FlagQuoteUnavailable, h.Ticker,
					"no price for %s, holding valued at 0", h.Ticker))
			} else {
				eh.UnitPrice = q.Last
				eh.Amount = h.Quantity * q.Last
				if h.Currency == models.CurrencyUSD {
					eh.Amount *= fxRate
				}
			}
		}

		v.GrandTotal += eh.Amount
		v.Holdings = append(v.Holdings, eh)
	}

	s.applyShares(v)
	s.aggregateCategories(v)

	s.logger.Debug().
		Float64("grand_total", v.GrandTotal).
		Float64("fx_rate", fxRate).
		Int("holdings", len(v.Holdings)).
		Int("flags", len(v.Flags)).
		Msg("Valuation computed")

	return v
}

// applyShares recomputes percentage shares. All shares are 0 when the
// grand total is 0; there is no division in that case.
func (s *Service) applyShares(v *models.Valuation) {
	if v.GrandTotal == 0 {
		for i := range v.Holdings {
			v.Holdings[i].SharePct = 0
		}
		return
	}
	for i := range v.Holdings {
		v.Holdings[i].SharePct = roundShare(v.Holdings[i].Amount / v.GrandTotal * 100)
	}
}

// aggregateCategories groups evaluated amounts by category label in
// first-seen order.
func (s *Service) aggregateCategories(v *models.Valuation) {
	index := make(map[string]int)
	for _, eh := range v.Holdings {
		i, ok := index[eh.Category]
		if !ok {
			i = len(v.Categories)
			index[eh.Category] = i
			v.Categories = append(v.Categories, models.CategoryTotal{Category: eh.Category})
		}
		v.Categories[i].Amount += eh.Amount
	}
	for i := range v.Categories {
		if v.GrandTotal != 0 {
			v.Categories[i].SharePct = roundShare(v.Categories[i].Amount / v.GrandTotal * 100)
		}
	}
}

// roundShare rounds a percentage to one decimal.
func roundShare(pct float64) float64 {
	return math.Round(pct*10) / 10
}

// Ensure Service implements ValuationService
var _ interfaces.ValuationService = (*Service)(nil)
