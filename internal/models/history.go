package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date is a calendar day in ISO-8601 form ("2006-01-02"). It is the natural
// key of the history ledger: at most one record exists per date, and the
// string form sorts chronologically.
type Date string

// DateOf truncates a time to its calendar day.
func DateOf(t time.Time) Date {
	return Date(t.Format("2006-01-02"))
}

// ParseDate parses an ISO-8601 day. It tolerates a trailing time component
// as produced by some spreadsheet exports.
func ParseDate(raw string) (Date, bool) {
	s := strings.TrimSpace(raw)
	if len(s) > 10 {
		s = s[:10]
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", false
	}
	return Date(s), true
}

// Time returns the date at midnight UTC, for time arithmetic.
func (d Date) Time() time.Time {
	t, _ := time.Parse("2006-01-02", string(d))
	return t
}

// ExpenseBreakdown covers the fixed closed set of six expense categories,
// in the history table's stable column order.
type ExpenseBreakdown struct {
	Fixed      int64 `json:"fixed"`       // 고정지출
	AllowanceA int64 `json:"allowance_a"` // 경호용돈
	AllowanceB int64 `json:"allowance_b"` // 수진용돈
	Living     int64 `json:"living"`      // 생활비
	Events     int64 `json:"events"`      // 경조사비
	Misc       int64 `json:"misc"`        // 기타
}

// Total returns the sum of all six categories.
func (e ExpenseBreakdown) Total() int64 {
	return e.Fixed + e.AllowanceA + e.AllowanceB + e.Living + e.Events + e.Misc
}

// Amounts returns the six figures in stable column order.
func (e ExpenseBreakdown) Amounts() []int64 {
	return []int64{e.Fixed, e.AllowanceA, e.AllowanceB, e.Living, e.Events, e.Misc}
}

// HistoryRecord is one dated observation in the ledger: net worth after
// that day's recorded expenses, plus the expense breakdown itself.
// Records are never mutated in place; a later write for the same date
// replaces the earlier one during reconciliation.
type HistoryRecord struct {
	Date     Date             `json:"date"`
	NetWorth int64            `json:"net_worth"`
	Expenses ExpenseBreakdown `json:"expenses"`
}

// Canonical field keys for normalized table rows.
const (
	FieldDate       = "date"
	FieldNetWorth   = "net_worth"
	FieldFixed      = "fixed"
	FieldAllowanceA = "allowance_a"
	FieldAllowanceB = "allowance_b"
	FieldLiving     = "living"
	FieldEvents     = "events"
	FieldMisc       = "misc"

	FieldCategory = "category"
	FieldName     = "name"
	FieldTicker   = "ticker"
	FieldQuantity = "quantity"
	FieldCurrency = "currency"
)

// HistoryFieldOrder is the history table's stable column order. The manual
// fallback payload and the positional column mapping both depend on it.
var HistoryFieldOrder = []string{
	FieldDate, FieldNetWorth,
	FieldFixed, FieldAllowanceA, FieldAllowanceB, FieldLiving, FieldEvents, FieldMisc,
}

// HoldingsFieldOrder is the holdings table's stable column order.
var HoldingsFieldOrder = []string{
	FieldCategory, FieldName, FieldTicker, FieldQuantity, FieldCurrency,
}

// CoerceAmount parses a monetary field into integer won. Thousands
// separators and currency marks are stripped; non-numeric or missing
// values coerce to zero rather than rejecting the record.
func CoerceAmount(raw string) int64 {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(",", "", "₩", "", "원", "", " ", "").Replace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.Round(0).IntPart()
}

// CoerceQuantity parses a quantity field as a non-negative real number,
// coercing malformed input to zero.
func CoerceQuantity(raw string) float64 {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	if f < 0 {
		return 0
	}
	return f
}

// HistoryRecordFromRow decodes one normalized history row. Rows without a
// parseable date are skipped by the caller; every numeric field coerces
// to zero on bad input.
func HistoryRecordFromRow(row Row) (HistoryRecord, bool) {
	date, ok := ParseDate(row[FieldDate])
	if !ok {
		return HistoryRecord{}, false
	}
	return HistoryRecord{
		Date:     date,
		NetWorth: CoerceAmount(row[FieldNetWorth]),
		Expenses: ExpenseBreakdown{
			Fixed:      CoerceAmount(row[FieldFixed]),
			AllowanceA: CoerceAmount(row[FieldAllowanceA]),
			AllowanceB: CoerceAmount(row[FieldAllowanceB]),
			Living:     CoerceAmount(row[FieldLiving]),
			Events:     CoerceAmount(row[FieldEvents]),
			Misc:       CoerceAmount(row[FieldMisc]),
		},
	}, true
}

// HoldingFromRow decodes one normalized holdings row.
func HoldingFromRow(row Row) HoldingRecord {
	return HoldingRecord{
		Category: strings.TrimSpace(row[FieldCategory]),
		Name:     strings.TrimSpace(row[FieldName]),
		Ticker:   strings.TrimSpace(row[FieldTicker]),
		Quantity: CoerceQuantity(row[FieldQuantity]),
		Currency: ParseCurrency(row[FieldCurrency]),
	}
}
