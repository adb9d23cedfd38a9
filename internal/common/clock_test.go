package common

import (
	"testing"
	"time"
)

func TestNowKST_Offset(t *testing.T) {
	now := NowKST()
	_, offset := now.Zone()
	if offset != 9*60*60 {
		t.Errorf("KST offset = %d seconds, want %d", offset, 9*60*60)
	}
}

func TestKST_DayRollover(t *testing.T) {
	// 2024-03-04 16:30 UTC is already 2024-03-05 01:30 in Seoul.
	utc := time.Date(2024, 3, 4, 16, 30, 0, 0, time.UTC)
	kst := utc.In(KST())
	if got := kst.Format("2006-01-02"); got != "2024-03-05" {
		t.Errorf("KST day = %s, want 2024-03-05", got)
	}
}
