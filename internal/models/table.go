package models

import "time"

// Row is one table row keyed by canonical field name. Values are raw
// strings as exported by the backing store; typed decoding happens in
// HistoryRecordFromRow / HoldingFromRow.
type Row map[string]string

// Empty reports whether every field of the row is blank.
func (r Row) Empty() bool {
	for _, v := range r {
		if v != "" {
			return false
		}
	}
	return true
}

// PendingSnapshot is a reconciled record whose remote write failed. It is
// kept in the local store until a retry succeeds, so a computed observation
// is never lost to a persistence failure.
type PendingSnapshot struct {
	ID        string        `json:"id" badgerhold:"key"`
	Record    HistoryRecord `json:"record"`
	Payload   string        `json:"payload"` // manual tab-separated fallback line
	Attempts  int           `json:"attempts"`
	LastError string        `json:"last_error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SnapshotResult is the outcome of one full record-snapshot pipeline run.
type SnapshotResult struct {
	Record    HistoryRecord   `json:"record"`
	Valuation *Valuation      `json:"valuation"`
	History   []HistoryRecord `json:"history"`
	Persist   PersistResult   `json:"persist"`
	Flags     []Flag          `json:"flags,omitempty"`
}

// PersistResult reports the outcome of one remote append attempt.
type PersistResult struct {
	Persisted bool   `json:"persisted"`
	Payload   string `json:"payload,omitempty"`    // manual fallback line when the write failed
	PendingID string `json:"pending_id,omitempty"` // local store id of the saved pending snapshot
	Flags     []Flag `json:"flags,omitempty"`
}
