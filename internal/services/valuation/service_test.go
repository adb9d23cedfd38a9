package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkoh/wealthtower/internal/common"
	"github.com/jkoh/wealthtower/internal/models"
)

// --- Mocks ---

type mockTableClient struct {
	rows  []models.Row
	flags []models.Flag
}

func (m *mockTableClient) FetchTable(_ context.Context, _ string) ([]models.Row, []models.Flag) {
	return m.rows, m.flags
}

func (m *mockTableClient) ReplaceHistory(_ context.Context, _ []models.HistoryRecord) error {
	return nil
}

func (m *mockTableClient) InvalidateTables() {}

type mockOracle struct {
	quotes map[string]models.PriceQuote
}

func (m *mockOracle) Quote(_ context.Context, ticker string) models.PriceQuote {
	if models.IsCashTicker(ticker) {
		return models.CashQuote(ticker, time.Now())
	}
	if q, ok := m.quotes[ticker]; ok {
		return q
	}
	return models.UnavailableQuote(ticker)
}

func (m *mockOracle) Invalidate() {}

func policy() common.ValuationConfig {
	return common.ValuationConfig{RateTicker: "USDKRW=X", RateFloor: 100, RateFallback: 1450}
}

func newTestService(tables *mockTableClient, oracle *mockOracle) *Service {
	if tables == nil {
		tables = &mockTableClient{}
	}
	return NewService(tables, oracle, "assets", policy(), common.NewSilentLogger())
}

// --- Evaluate ---

func TestEvaluate_CashValuedAtFaceQuantity(t *testing.T) {
	svc := newTestService(nil, &mockOracle{})
	holdings := []models.HoldingRecord{
		{Category: "현금", Name: "비상금", Ticker: "-", Quantity: 1000000, Currency: models.CurrencyKRW},
	}

	// Exchange rate must not leak into cash.
	v := svc.Evaluate(context.Background(), holdings, 1450)

	require.Len(t, v.Holdings, 1)
	assert.Equal(t, 1000000.0, v.Holdings[0].Amount)
	assert.Equal(t, 1000000.0, v.GrandTotal)
	assert.Empty(t, v.Flags)
}

func TestEvaluate_ForeignHoldingConverted(t *testing.T) {
	oracle := &mockOracle{quotes: map[string]models.PriceQuote{
		"X": {Ticker: "X", Last: 100},
	}}
	svc := newTestService(nil, oracle)

	holdings := []models.HoldingRecord{
		{Ticker: "X", Quantity: 10, Currency: models.CurrencyUSD},
	}
	v := svc.Evaluate(context.Background(), holdings, 1300)

	assert.Equal(t, 1300000.0, v.Holdings[0].Amount) // 10 × 100 × 1300
	assert.Equal(t, 1300000.0, v.GrandTotal)
}

func TestEvaluate_DomesticHoldingNotConverted(t *testing.T) {
	oracle := &mockOracle{quotes: map[string]models.PriceQuote{
		"005930.KS": {Ticker: "005930.KS", Last: 70000},
	}}
	svc := newTestService(nil, oracle)

	holdings := []models.HoldingRecord{
		{Ticker: "005930.KS", Quantity: 10, Currency: models.CurrencyKRW},
	}
	v := svc.Evaluate(context.Background(), holdings, 1450)

	assert.Equal(t, 700000.0, v.Holdings[0].Amount)
}

func TestEvaluate_UnavailablePriceValuesAtZeroWithFlag(t *testing.T) {
	svc := newTestService(nil, &mockOracle{})

	holdings := []models.HoldingRecord{
		{Ticker: "Y", Quantity: 5, Currency: models.CurrencyUSD},
		{Ticker: "-", Quantity: 500000, Currency: models.CurrencyKRW},
	}
	v := svc.Evaluate(context.Background(), holdings, 1450)

	assert.Equal(t, 0.0, v.Holdings[0].Amount)
	assert.Equal(t, 500000.0, v.GrandTotal)
	assert.True(t, models.HasFlag(v.Flags, models.FlagQuoteUnavailable))
}

func TestEvaluate_GrandTotalIsSumIncludingEmptySet(t *testing.T) {
	svc := newTestService(nil, &mockOracle{})

	v := svc.Evaluate(context.Background(), nil, 1450)
	assert.Equal(t, 0.0, v.GrandTotal)
	assert.Empty(t, v.Holdings)
}

func TestEvaluate_SharesSumToHundred(t *testing.T) {
	oracle := &mockOracle{quotes: map[string]models.PriceQuote{
		"A": {Ticker: "A", Last: 1},
		"B": {Ticker: "B", Last: 1},
		"C": {Ticker: "C", Last: 1},
	}}
	svc := newTestService(nil, oracle)

	holdings := []models.HoldingRecord{
		{Ticker: "A", Quantity: 1000, Currency: models.CurrencyKRW},
		{Ticker: "B", Quantity: 2000, Currency: models.CurrencyKRW},
		{Ticker: "C", Quantity: 3000, Currency: models.CurrencyKRW},
	}
	v := svc.Evaluate(context.Background(), holdings, 1450)

	sum := 0.0
	for _, eh := range v.Holdings {
		sum += eh.SharePct
	}
	assert.InDelta(t, 100.0, sum, 0.3) // one-decimal rounding epsilon
}

func TestEvaluate_ZeroTotalMeansZeroShares(t *testing.T) {
	svc := newTestService(nil, &mockOracle{})

	holdings := []models.HoldingRecord{
		{Ticker: "Y", Quantity: 5, Currency: models.CurrencyUSD},
	}
	v := svc.Evaluate(context.Background(), holdings, 1450)

	assert.Equal(t, 0.0, v.GrandTotal)
	assert.Equal(t, 0.0, v.Holdings[0].SharePct)
}

func TestEvaluate_CategoryAggregation(t *testing.T) {
	oracle := &mockOracle{quotes: map[string]models.PriceQuote{
		"A": {Ticker: "A", Last: 1},
	}}
	svc := newTestService(nil, oracle)

	holdings := []models.HoldingRecord{
		{Category: "주식", Ticker: "A", Quantity: 600, Currency: models.CurrencyKRW},
		{Category: "현금", Ticker: "-", Quantity: 300, Currency: models.CurrencyKRW},
		{Category: "주식", Ticker: "A", Quantity: 100, Currency: models.CurrencyKRW},
	}
	v := svc.Evaluate(context.Background(), holdings, 1450)

	require.Len(t, v.Categories, 2)
	assert.Equal(t, "주식", v.Categories[0].Category)
	assert.Equal(t, 700.0, v.Categories[0].Amount)
	assert.Equal(t, "현금", v.Categories[1].Category)
	assert.Equal(t, 300.0, v.Categories[1].Amount)
	assert.Equal(t, 70.0, v.Categories[0].SharePct)
}

// --- ResolveExchangeRate ---

func TestResolveExchangeRate_LiveRateAboveFloor(t *testing.T) {
	oracle := &mockOracle{quotes: map[string]models.PriceQuote{
		"USDKRW=X": {Ticker: "USDKRW=X", Last: 1325.5},
	}}
	svc := newTestService(nil, oracle)

	rate, flags := svc.ResolveExchangeRate(context.Background())
	assert.Equal(t, 1325.5, rate)
	assert.Empty(t, flags)
}

func TestResolveExchangeRate_FloorRejectionUsesFallback(t *testing.T) {
	oracle := &mockOracle{quotes: map[string]models.PriceQuote{
		"USDKRW=X": {Ticker: "USDKRW=X", Last: 100},
	}}
	svc := newTestService(nil, oracle)

	rate, flags := svc.ResolveExchangeRate(context.Background())
	assert.Equal(t, 1450.0, rate)
	assert.True(t, models.HasFlag(flags, models.FlagRateInvalid))
}

func TestResolveExchangeRate_UnavailableQuoteUsesFallback(t *testing.T) {
	svc := newTestService(nil, &mockOracle{})

	rate, flags := svc.ResolveExchangeRate(context.Background())
	assert.Equal(t, 1450.0, rate)
	assert.True(t, models.HasFlag(flags, models.FlagRateInvalid))
}

// --- Valuate ---

func TestValuate_EmptySourcePropagatesFlagNotError(t *testing.T) {
	tables := &mockTableClient{
		flags: []models.Flag{models.NewFlag(models.FlagSourceUnavailable, "assets", "fetch failed")},
	}
	oracle := &mockOracle{quotes: map[string]models.PriceQuote{
		"USDKRW=X": {Ticker: "USDKRW=X", Last: 1325.5},
	}}
	svc := newTestService(tables, oracle)

	v := svc.Valuate(context.Background())
	assert.Equal(t, 0.0, v.GrandTotal)
	assert.True(t, models.HasFlag(v.Flags, models.FlagSourceUnavailable))
}

func TestValuate_DecodesRowsAndValues(t *testing.T) {
	tables := &mockTableClient{rows: []models.Row{
		{
			models.FieldCategory: "현금",
			models.FieldName:     "비상금",
			models.FieldTicker:   "-",
			models.FieldQuantity: "1,000,000",
			models.FieldCurrency: "KRW",
		},
		{
			models.FieldCategory: "주식",
			models.FieldName:     "S&P500",
			models.FieldTicker:   "VOO",
			models.FieldQuantity: "10",
			models.FieldCurrency: "USD",
		},
	}}
	oracle := &mockOracle{quotes: map[string]models.PriceQuote{
		"VOO":      {Ticker: "VOO", Last: 100},
		"USDKRW=X": {Ticker: "USDKRW=X", Last: 1300},
	}}
	svc := newTestService(tables, oracle)

	v := svc.Valuate(context.Background())

	require.Len(t, v.Holdings, 2)
	assert.Equal(t, 1000000.0, v.Holdings[0].Amount)
	assert.Equal(t, 1300000.0, v.Holdings[1].Amount) // 10 × 100 × 1300
	assert.Equal(t, 2300000.0, v.GrandTotal)
	assert.Equal(t, 1300.0, v.ExchangeRate)
	assert.Empty(t, v.Flags)
}
