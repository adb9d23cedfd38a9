// Package models defines data structures for Wealthtower
package models

import (
	"strings"
	"time"
)

// Currency distinguishes domestic (KRW) from foreign (USD) holdings.
// Foreign amounts are converted with the cycle's exchange rate.
type Currency string

const (
	CurrencyKRW Currency = "KRW"
	CurrencyUSD Currency = "USD"
)

// CashTicker is the sentinel that marks a holding as a fixed cash bucket
// rather than a market instrument. Cash is valued at face quantity in KRW.
const CashTicker = "-"

// IsCashTicker reports whether a ticker denotes fixed cash. The spreadsheet
// export produces "-", empty cells, and the literal "nan" for cash rows.
func IsCashTicker(ticker string) bool {
	switch strings.ToLower(strings.TrimSpace(ticker)) {
	case CashTicker, "", "nan":
		return true
	}
	return false
}

// ParseCurrency normalizes a raw currency field. Anything that is not
// recognizably USD is treated as domestic.
func ParseCurrency(raw string) Currency {
	if strings.EqualFold(strings.TrimSpace(raw), "USD") {
		return CurrencyUSD
	}
	return CurrencyKRW
}

// HoldingRecord is one line of the holdings table: an asset position or a
// cash bucket. Read fresh every valuation cycle, never persisted.
type HoldingRecord struct {
	Category string   `json:"category"`
	Name     string   `json:"name"`
	Ticker   string   `json:"ticker"`
	Quantity float64  `json:"quantity"`
	Currency Currency `json:"currency"`
}

// IsCash reports whether the holding is a fixed cash bucket.
func (h HoldingRecord) IsCash() bool {
	return IsCashTicker(h.Ticker)
}

// EvaluatedHolding is a holding with its resolved unit price, KRW amount,
// and share of the grand total.
type EvaluatedHolding struct {
	HoldingRecord
	UnitPrice float64 `json:"unit_price"`
	Amount    float64 `json:"amount"`
	SharePct  float64 `json:"share_pct"` // percent of grand total, one decimal
}

// CategoryTotal is an aggregated amount for one category label.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	SharePct float64 `json:"share_pct"`
}

// Valuation is the result of one full valuation cycle.
type Valuation struct {
	Holdings     []EvaluatedHolding `json:"holdings"`
	GrandTotal   float64            `json:"grand_total"`
	ExchangeRate float64            `json:"exchange_rate"`
	Categories   []CategoryTotal    `json:"categories"`
	Flags        []Flag             `json:"flags,omitempty"`
	AsOf         time.Time          `json:"as_of"`
}

// Degraded reports whether any data-quality flag was raised during the cycle.
func (v *Valuation) Degraded() bool {
	return len(v.Flags) > 0
}
