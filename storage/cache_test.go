package storage

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"tessera-api/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *Storage, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := newTestStorage(t)
	return NewCache(s, client, ttl), s, mr
}

func TestCacheSnapshotMissThenHit(t *testing.T) {
	cache, s, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	mustCreateBoard(t, s, "b1", "u1")
	mustCreateColumn(t, s, "c1", "b1")
	mustCreateTask(t, s, "t1", "c1")

	snap, err := cache.FetchBoardSnapshot(ctx, "b1")
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if snap.ID != "b1" || len(snap.Columns) != 1 || len(snap.Columns[0].Tasks) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if !mr.Exists(boardCacheKey("b1")) {
		t.Fatal("expected snapshot to be cached")
	}
	if ttl := mr.TTL(boardCacheKey("b1")); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	// A write bypassing the cache proves the second read is served from redis.
	if _, err := s.db.Exec(`UPDATE boards SET name = 'changed behind the cache' WHERE board_id = 'b1'`); err != nil {
		t.Fatalf("mutate behind cache: %v", err)
	}
	cached, err := cache.FetchBoardSnapshot(ctx, "b1")
	if err != nil {
		t.Fatalf("fetch cached snapshot: %v", err)
	}
	if cached.Name != snap.Name {
		t.Fatalf("expected cached name %q, got %q", snap.Name, cached.Name)
	}
}

func TestCacheEvictsOnStructuralWrite(t *testing.T) {
	cache, s, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	mustCreateBoard(t, s, "b1", "u1")
	mustCreateColumn(t, s, "c1", "b1")
	mustCreateTask(t, s, "t1", "c1")
	mustCreateTask(t, s, "t2", "c1")

	if _, err := cache.FetchBoardSnapshot(ctx, "b1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if !mr.Exists(boardCacheKey("b1")) {
		t.Fatal("expected primed cache")
	}

	if _, _, err := cache.UpdateTask(ctx, "t2", domain.TaskUpdate{Position: intPtr(0), UpdatedAt: now()}); err != nil {
		t.Fatalf("reorder task: %v", err)
	}
	if mr.Exists(boardCacheKey("b1")) {
		t.Fatal("expected reorder to evict the board snapshot")
	}

	snap, err := cache.FetchBoardSnapshot(ctx, "b1")
	if err != nil {
		t.Fatalf("fetch after evict: %v", err)
	}
	tasks := snap.Columns[0].Tasks
	if len(tasks) != 2 || tasks[0].ID != "t2" || tasks[1].ID != "t1" {
		t.Fatalf("expected fresh ordering after evict, got %+v", tasks)
	}
}

func TestCacheEvictsOnMembershipChange(t *testing.T) {
	cache, s, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	mustCreateBoard(t, s, "b1", "u1")

	if _, err := cache.FetchBoardSnapshot(ctx, "b1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if err := cache.PutMember(ctx, "b1", "u2", domain.RoleViewer); err != nil {
		t.Fatalf("put member: %v", err)
	}
	if mr.Exists(boardCacheKey("b1")) {
		t.Fatal("expected membership change to evict the snapshot")
	}
}

// The eviction follows a committed write; it must not be skipped just because
// the client disconnected and canceled the request context.
func TestCacheEvictSurvivesCanceledContext(t *testing.T) {
	cache, s, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	mustCreateBoard(t, s, "b1", "u1")

	if _, err := cache.FetchBoardSnapshot(ctx, "b1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if !mr.Exists(boardCacheKey("b1")) {
		t.Fatal("expected primed cache")
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	cache.evict(canceled, "b1")

	if mr.Exists(boardCacheKey("b1")) {
		t.Fatal("expected eviction despite canceled caller context")
	}
}

func TestCacheDropsCorruptEntry(t *testing.T) {
	cache, s, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	mustCreateBoard(t, s, "b1", "u1")

	if err := mr.Set(boardCacheKey("b1"), "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	snap, err := cache.FetchBoardSnapshot(ctx, "b1")
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if snap.ID != "b1" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestCacheZeroTTLSkipsStore(t *testing.T) {
	cache, s, mr := newTestCache(t, 0)
	ctx := context.Background()
	mustCreateBoard(t, s, "b1", "u1")

	if _, err := cache.FetchBoardSnapshot(ctx, "b1"); err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if mr.Exists(boardCacheKey("b1")) {
		t.Fatal("expected zero TTL to skip caching")
	}
}

func TestCachePassesThroughReads(t *testing.T) {
	cache, s, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	mustCreateBoard(t, s, "b1", "u1")

	// Reads outside the snapshot path go straight to the embedded storage.
	board, err := cache.GetBoard(ctx, "b1")
	if err != nil {
		t.Fatalf("get board: %v", err)
	}
	if board.ID != "b1" {
		t.Fatalf("unexpected board: %+v", board)
	}

	role, err := cache.RoleForUser(ctx, "b1", "u1")
	if err != nil {
		t.Fatalf("role for user: %v", err)
	}
	if role != domain.RoleOwner {
		t.Fatalf("expected owner, got %s", role)
	}
}
