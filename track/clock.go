package track

import "time"

/* All freshness arithmetic is done on millisecond timestamps. Ingest
 * runs on the message clock (the timestamp carried by the message being
 * processed); the periodic sweep runs on the wall clock. */

func mstime() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

func absdiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
