package api

import (
	"context"

	"tessera-api/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	Ping(ctx context.Context) error

	CreateBoard(ctx context.Context, board *domain.Board) error
	ListBoards(ctx context.Context, userID, pageToken string, pageSize int) ([]domain.Board, string, error)
	UpdateBoard(ctx context.Context, boardID string, upd domain.BoardUpdate) (*domain.Board, error)
	DeleteBoard(ctx context.Context, boardID string) error
	FetchBoardSnapshot(ctx context.Context, boardID string) (*domain.BoardSnapshot, error)

	PutMember(ctx context.Context, boardID, userID string, role domain.Role) error
	RemoveMember(ctx context.Context, boardID, userID string) error
	RoleForUser(ctx context.Context, boardID, userID string) (domain.Role, error)

	GetColumn(ctx context.Context, columnID string) (*domain.Column, error)
	CreateColumn(ctx context.Context, col *domain.Column, position *int) error
	UpdateColumn(ctx context.Context, columnID string, upd domain.ColumnUpdate) (*domain.Column, error)
	DeleteColumn(ctx context.Context, columnID string) (string, error)

	GetTask(ctx context.Context, taskID string) (*domain.Task, string, error)
	CreateTask(ctx context.Context, task *domain.Task, position *int) (string, error)
	UpdateTask(ctx context.Context, taskID string, upd domain.TaskUpdate) (*domain.Task, string, error)
	DeleteTask(ctx context.Context, taskID string) (string, error)
}

// InvalidPageTokenError is returned when a supplied pagination token is malformed or expired.
type InvalidPageTokenError interface {
	error
	InvalidPageToken()
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents reprocessing of mutations that carry an idempotency key.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when downstream processing fails.
	Remove(ctx context.Context, userID, key string) error
}
