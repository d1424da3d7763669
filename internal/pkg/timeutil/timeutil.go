package timeutil

import "time"

func NowUnix() int64 {
	return time.Now().Unix()
}

// DateOf returns the UTC calendar time for a unix timestamp.
func DateOf(unix int64) time.Time {
	return time.Unix(unix, 0).UTC()
}
