package signal

import (
	"math"
	"time"

	"github.com/xxxsen/mfeed/internal/pkg/timeutil"
)

const (
	SeenFloor            = 0.1
	SeenCeiling          = 1.0
	SeenDoublingDays     = 18.0
	SeenRecoveryPerDay   = 0.05
	DefaultRetentionDays = 30
)

func seenBase(days float64) float64 {
	return SeenFloor * math.Exp2(days/SeenDoublingDays)
}

// SeenDecay is the multiplier for content last surfaced days ago:
// clamp(0.1, 1.0, base(d) + 0.05*d). It starts at 0.1 and is back at 1.0
// by day 18.
func SeenDecay(days float64) float64 {
	if days < 0 {
		days = 0
	}
	m := seenBase(days) + SeenRecoveryPerDay*days
	if m < SeenFloor {
		return SeenFloor
	}
	if m > SeenCeiling {
		return SeenCeiling
	}
	return m
}

// SeenMultiplier resolves the multiplier of one candidate. Unseen content
// and records past the retention window are neutral.
func SeenMultiplier(now time.Time, seenAt int64, seen bool, retentionDays int) float64 {
	if !seen {
		return 1.0
	}
	days := timeutil.DaysSince(now, seenAt)
	if retentionDays > 0 && days >= float64(retentionDays) {
		return 1.0
	}
	return SeenDecay(days)
}
