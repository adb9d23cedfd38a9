package common

import "time"

// seoulLocation is the Asia/Seoul timezone. Korea has no DST, so the
// fixed-zone fallback is exact when tzdata is unavailable (minimal container).
var seoulLocation = mustLoadLocation("Asia/Seoul")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// NowKST returns the current time in Korean Standard Time. The history
// ledger is keyed by KST calendar days, so "today" must roll over at
// KST midnight regardless of the server's local zone.
func NowKST() time.Time {
	return time.Now().In(seoulLocation)
}

// KST returns the Asia/Seoul location.
func KST() *time.Location {
	return seoulLocation
}
