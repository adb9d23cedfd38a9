package common

import "time"

// Freshness TTLs for cached data. Tables and quotes share the one-minute
// window the dashboard refresh cycle is built around; the FX rate rides the
// quote cache. Config may widen or narrow these; they are the fallback when
// a configured TTL does not parse.
const (
	FreshnessTable = 1 * time.Minute
	FreshnessQuote = 1 * time.Minute
)
