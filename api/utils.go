package api

import (
	"sync/atomic"
	"time"
)

// lastStamp holds the most recently issued timestamp in Unix milliseconds.
var lastStamp atomic.Int64

// nextTimestamp returns the current wall-clock time in Unix milliseconds,
// nudged forward when successive calls land on the same tick so entity
// update stamps stay strictly increasing within this process.
func nextTimestamp() int64 {
	for {
		now := time.Now().UnixMilli()
		last := lastStamp.Load()
		if now <= last {
			now = last + 1
		}
		if lastStamp.CompareAndSwap(last, now) {
			return now
		}
	}
}
