package signal

import (
	"time"

	"github.com/xxxsen/mfeed/internal/pkg/timeutil"
	"github.com/xxxsen/mfeed/internal/vecmath"
)

// DefaultTemporalDecayRate is per hour; content loses half its freshness in ~69h.
const DefaultTemporalDecayRate = 0.01

func Temporal(now time.Time, ctime int64, rate float64) float64 {
	return vecmath.TemporalDecay(timeutil.HoursSince(now, ctime), rate)
}
