package api

import (
	"sync"
	"testing"
	"time"
)

func TestNextTimestampAdvancesPastLast(t *testing.T) {
	t.Cleanup(func() {
		lastStamp.Store(0)
	})

	base := time.Now().Add(time.Second).UnixMilli()
	lastStamp.Store(base)

	first := nextTimestamp()
	if first != base+1 {
		t.Fatalf("expected timestamp %d, got %d", base+1, first)
	}
	second := nextTimestamp()
	if second != base+2 {
		t.Fatalf("expected timestamp %d, got %d", base+2, second)
	}
}

func TestNextTimestampUsesWallClock(t *testing.T) {
	t.Cleanup(func() {
		lastStamp.Store(0)
	})
	lastStamp.Store(0)

	before := time.Now().UnixMilli()
	got := nextTimestamp()
	after := time.Now().UnixMilli()
	if got < before || got > after+1 {
		t.Fatalf("expected timestamp near now, got %d (window %d..%d)", got, before, after)
	}
}

func TestNextTimestampConcurrentUnique(t *testing.T) {
	t.Cleanup(func() {
		lastStamp.Store(0)
	})
	lastStamp.Store(0)

	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				local = append(local, nextTimestamp())
			}
			mu.Lock()
			for _, ts := range local {
				seen[ts] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Fatalf("expected %d unique timestamps, got %d", workers*perWorker, len(seen))
	}
}
