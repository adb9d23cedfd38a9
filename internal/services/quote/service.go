// Package quote provides the price oracle: per-ticker quotes with
// bounded-lifetime caching and a defined "unavailable" result on failure.
package quote

import (
	"context"
	"strings"
	"time"

	"github.com/jkoh/wealthtower/internal/cache"
	"github.com/jkoh/wealthtower/internal/common"
	"github.com/jkoh/wealthtower/internal/interfaces"
	"github.com/jkoh/wealthtower/internal/models"
)

// Service implements QuoteService on top of the market data client.
type Service struct {
	market interfaces.MarketDataClient
	quotes *cache.Cache[string, models.PriceQuote]
	logger *common.Logger
	now    func() time.Time // injectable clock for testing
}

// NewService creates a new quote service. The cache is injected so the app
// can register it for atomic force-refresh alongside the table cache.
func NewService(market interfaces.MarketDataClient, quotes *cache.Cache[string, models.PriceQuote], logger *common.Logger) *Service {
	return &Service{
		market: market,
		quotes: quotes,
		logger: logger,
		now:    time.Now,
	}
}

// Quote resolves one ticker. The cash sentinel short-circuits to a fixed
// 1.0 quote without touching the network or the cache. Everything else is
// served from the TTL cache; a miss triggers exactly one upstream fetch,
// and a failed fetch caches the unavailable quote for the same window so
// a broken feed is not hammered.
func (s *Service) Quote(ctx context.Context, ticker string) models.PriceQuote {
	ticker = strings.TrimSpace(ticker)
	if models.IsCashTicker(ticker) {
		return models.CashQuote(ticker, s.now())
	}

	q, cached := s.quotes.GetOrFetch(ticker, func() models.PriceQuote {
		return s.fetch(ctx, ticker)
	})
	q.Cached = cached
	return q
}

func (s *Service) fetch(ctx context.Context, ticker string) models.PriceQuote {
	closes, err := s.market.GetRecentCloses(ctx, ticker)
	if err != nil || len(closes) == 0 {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Quote unavailable")
		return models.UnavailableQuote(ticker)
	}

	q := models.PriceQuote{
		Ticker: ticker,
		Last:   closes[0],
		AsOf:   s.now(),
	}
	if len(closes) >= 2 {
		q.PrevClose = closes[1]
		q.HasPrev = true
	}

	// A non-positive close is upstream garbage, not zero-value wealth.
	if q.Last <= 0 {
		s.logger.Warn().Str("ticker", ticker).Float64("last", q.Last).Msg("Non-positive close treated as unavailable")
		return models.UnavailableQuote(ticker)
	}

	s.logger.Debug().Str("ticker", ticker).Float64("last", q.Last).Msg("Quote fetched")
	return q
}

// Invalidate drops all cached quotes.
func (s *Service) Invalidate() {
	s.quotes.InvalidateAll()
}

// Ensure Service implements QuoteService
var _ interfaces.QuoteService = (*Service)(nil)
