package models

import "time"

// PriceQuote is the oracle's answer for one ticker. A non-positive Last
// means the price is unavailable; callers must treat that as "no data",
// never as zero-value wealth.
type PriceQuote struct {
	Ticker    string    `json:"ticker"`
	Last      float64   `json:"last"`
	PrevClose float64   `json:"prev_close,omitempty"`
	HasPrev   bool      `json:"has_prev"`
	Cached    bool      `json:"cached"`
	AsOf      time.Time `json:"as_of"`
}

// Available reports whether the quote carries a usable price.
func (q PriceQuote) Available() bool {
	return q.Last > 0
}

// UnavailableQuote returns the canonical "no data" quote for a ticker.
func UnavailableQuote(ticker string) PriceQuote {
	return PriceQuote{Ticker: ticker}
}

// CashQuote returns the fixed quote for the cash sentinel: unit price 1.0,
// no delta, resolved without network access.
func CashQuote(ticker string, asOf time.Time) PriceQuote {
	return PriceQuote{Ticker: ticker, Last: 1.0, AsOf: asOf}
}
