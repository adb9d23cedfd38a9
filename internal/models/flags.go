package models

import "fmt"

// FlagKind classifies a recoverable data-quality degradation. Every engine
// boundary returns a best-effort value plus zero or more flags; none of
// these conditions abort a valuation cycle.
type FlagKind string

const (
	FlagSourceUnavailable FlagKind = "source_unavailable" // table fetch failed, proceeding with empty data
	FlagQuoteUnavailable  FlagKind = "quote_unavailable"  // ticker priced at 0, wealth under-stated
	FlagRateInvalid       FlagKind = "rate_invalid"       // live FX rate rejected, fallback substituted
	FlagPersistFailed     FlagKind = "persist_failed"     // remote write failed, manual payload emitted
)

// Flag records one degradation with its subject (table name, ticker) and
// a human-readable detail.
type Flag struct {
	Kind    FlagKind `json:"kind"`
	Subject string   `json:"subject,omitempty"`
	Detail  string   `json:"detail,omitempty"`
}

// NewFlag builds a flag with a formatted detail message.
func NewFlag(kind FlagKind, subject, format string, args ...interface{}) Flag {
	return Flag{
		Kind:    kind,
		Subject: subject,
		Detail:  fmt.Sprintf(format, args...),
	}
}

// HasFlag reports whether flags contains a flag of the given kind.
func HasFlag(flags []Flag, kind FlagKind) bool {
	for _, f := range flags {
		if f.Kind == kind {
			return true
		}
	}
	return false
}
