package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"tessera-api/domain"
)

type backend interface {
	FetchBoardSnapshot(ctx context.Context, boardID string) (*domain.BoardSnapshot, error)
	UpdateBoard(ctx context.Context, boardID string, upd domain.BoardUpdate) (*domain.Board, error)
	DeleteBoard(ctx context.Context, boardID string) error
	PutMember(ctx context.Context, boardID, userID string, role domain.Role) error
	RemoveMember(ctx context.Context, boardID, userID string) error
	CreateColumn(ctx context.Context, col *domain.Column, position *int) error
	UpdateColumn(ctx context.Context, columnID string, upd domain.ColumnUpdate) (*domain.Column, error)
	DeleteColumn(ctx context.Context, columnID string) (string, error)
	CreateTask(ctx context.Context, task *domain.Task, position *int) (string, error)
	UpdateTask(ctx context.Context, taskID string, upd domain.TaskUpdate) (*domain.Task, string, error)
	DeleteTask(ctx context.Context, taskID string) (string, error)
}

// Cache wraps a Storage instance with Redis-backed caching for board
// snapshots. Every structural write evicts the affected board so readers
// never see a stale ordering for longer than one round trip.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Storage wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

func (c *Cache) FetchBoardSnapshot(ctx context.Context, boardID string) (*domain.BoardSnapshot, error) {
	if snap, ok := c.loadSnapshotFromCache(ctx, boardID); ok {
		return snap, nil
	}

	snap, err := c.base.FetchBoardSnapshot(ctx, boardID)
	if err != nil {
		return nil, err
	}

	c.storeSnapshot(ctx, boardID, snap)
	return snap, nil
}

func (c *Cache) UpdateBoard(ctx context.Context, boardID string, upd domain.BoardUpdate) (*domain.Board, error) {
	board, err := c.base.UpdateBoard(ctx, boardID, upd)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, boardID)
	return board, nil
}

func (c *Cache) DeleteBoard(ctx context.Context, boardID string) error {
	if err := c.base.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	c.evict(ctx, boardID)
	return nil
}

func (c *Cache) PutMember(ctx context.Context, boardID, userID string, role domain.Role) error {
	if err := c.base.PutMember(ctx, boardID, userID, role); err != nil {
		return err
	}
	c.evict(ctx, boardID)
	return nil
}

func (c *Cache) RemoveMember(ctx context.Context, boardID, userID string) error {
	if err := c.base.RemoveMember(ctx, boardID, userID); err != nil {
		return err
	}
	c.evict(ctx, boardID)
	return nil
}

func (c *Cache) CreateColumn(ctx context.Context, col *domain.Column, position *int) error {
	if err := c.base.CreateColumn(ctx, col, position); err != nil {
		return err
	}
	c.evict(ctx, col.BoardID)
	return nil
}

func (c *Cache) UpdateColumn(ctx context.Context, columnID string, upd domain.ColumnUpdate) (*domain.Column, error) {
	col, err := c.base.UpdateColumn(ctx, columnID, upd)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, col.BoardID)
	return col, nil
}

func (c *Cache) DeleteColumn(ctx context.Context, columnID string) (string, error) {
	boardID, err := c.base.DeleteColumn(ctx, columnID)
	if err != nil {
		return "", err
	}
	c.evict(ctx, boardID)
	return boardID, nil
}

func (c *Cache) CreateTask(ctx context.Context, task *domain.Task, position *int) (string, error) {
	boardID, err := c.base.CreateTask(ctx, task, position)
	if err != nil {
		return "", err
	}
	c.evict(ctx, boardID)
	return boardID, nil
}

func (c *Cache) UpdateTask(ctx context.Context, taskID string, upd domain.TaskUpdate) (*domain.Task, string, error) {
	task, boardID, err := c.base.UpdateTask(ctx, taskID, upd)
	if err != nil {
		return nil, "", err
	}
	c.evict(ctx, boardID)
	return task, boardID, nil
}

func (c *Cache) DeleteTask(ctx context.Context, taskID string) (string, error) {
	boardID, err := c.base.DeleteTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	c.evict(ctx, boardID)
	return boardID, nil
}

func (c *Cache) loadSnapshotFromCache(ctx context.Context, boardID string) (*domain.BoardSnapshot, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, boardCacheKey(boardID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, boardCacheKey(boardID)).Err()
		}
		return nil, false
	}
	var snap domain.BoardSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		_ = c.redis.Del(ctx, boardCacheKey(boardID)).Err()
		return nil, false
	}
	return &snap, true
}

func (c *Cache) storeSnapshot(ctx context.Context, boardID string, snap *domain.BoardSnapshot) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, boardCacheKey(boardID), data, c.ttl).Err()
}

// cacheEvictTimeout bounds the eviction round trip once a write has committed.
const cacheEvictTimeout = 5 * time.Second

func (c *Cache) evict(ctx context.Context, boardID string) {
	if c.redis == nil {
		return
	}
	// The write already committed; the eviction must land even when the
	// caller's request was canceled mid-flight, or readers keep seeing the
	// stale board until TTL expiry.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheEvictTimeout)
	defer cancel()
	_, _ = c.redis.Del(ctx, boardCacheKey(boardID)).Result()
}

func boardCacheKey(boardID string) string {
	return "board:" + boardID
}
