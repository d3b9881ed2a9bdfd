package timeutil

import "time"

func NowUnix() int64 {
	return time.Now().Unix()
}

// HoursSince returns the elapsed hours from a unix timestamp, never negative.
func HoursSince(now time.Time, unix int64) float64 {
	h := now.Sub(time.Unix(unix, 0)).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// DaysSince returns the elapsed days from a unix timestamp, never negative.
func DaysSince(now time.Time, unix int64) float64 {
	return HoursSince(now, unix) / 24
}
