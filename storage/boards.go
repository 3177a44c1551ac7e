package storage

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"tessera-api/domain"
)

// pageTokenError marks a malformed continuation token so the API layer can
// reject it without inspecting storage internals.
type pageTokenError struct{}

func (pageTokenError) Error() string     { return "invalid page token" }
func (pageTokenError) InvalidPageToken() {}

func encodePageToken(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodePageToken(token string) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, pageTokenError{}
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0, pageTokenError{}
	}
	return offset, nil
}

// CreateBoard inserts a new board.
func (s *Storage) CreateBoard(ctx context.Context, b *domain.Board) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO boards (board_id, name, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.OwnerID, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return mapSqliteErr(fmt.Errorf("insert board: %w", err))
	}
	return nil
}

// GetBoard retrieves a single board by id.
func (s *Storage) GetBoard(ctx context.Context, boardID string) (*domain.Board, error) {
	return getBoard(ctx, s.db, boardID)
}

func getBoard(ctx context.Context, q querier, boardID string) (*domain.Board, error) {
	row := q.QueryRowContext(ctx,
		`SELECT board_id, name, owner_id, created_at, updated_at FROM boards WHERE board_id = ?`, boardID)
	var b domain.Board
	if err := row.Scan(&b.ID, &b.Name, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan board: %w", err)
	}
	return &b, nil
}

// ListBoards returns one page of the boards the user owns or is a member of,
// newest first, plus a continuation token when more remain.
func (s *Storage) ListBoards(ctx context.Context, userID, pageToken string, pageSize int) ([]domain.Board, string, error) {
	if pageSize <= 0 {
		pageSize = s.listPageSize
	}
	if pageSize > maxListPageSize {
		pageSize = maxListPageSize
	}

	offset := 0
	if pageToken != "" {
		var err error
		if offset, err = decodePageToken(pageToken); err != nil {
			return nil, "", err
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT b.board_id, b.name, b.owner_id, b.created_at, b.updated_at
		 FROM boards b
		 WHERE b.owner_id = ? OR EXISTS (
			SELECT 1 FROM board_members m WHERE m.board_id = b.board_id AND m.user_id = ?
		 )
		 ORDER BY b.created_at DESC, b.board_id
		 LIMIT ? OFFSET ?`,
		userID, userID, pageSize+1, offset)
	if err != nil {
		return nil, "", fmt.Errorf("query boards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	boards := []domain.Board{}
	for rows.Next() {
		var b domain.Board
		if err := rows.Scan(&b.ID, &b.Name, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, "", fmt.Errorf("scan board row: %w", err)
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate boards: %w", err)
	}

	next := ""
	if len(boards) > pageSize {
		boards = boards[:pageSize]
		next = encodePageToken(offset + pageSize)
	}
	return boards, next, nil
}

// UpdateBoard applies partial updates to a board and returns the result.
func (s *Storage) UpdateBoard(ctx context.Context, boardID string, upd domain.BoardUpdate) (*domain.Board, error) {
	var out *domain.Board
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getBoard(ctx, tx, boardID)
		if err != nil {
			return err
		}
		if upd.Name != nil {
			cur.Name = *upd.Name
		}
		cur.UpdatedAt = upd.UpdatedAt
		if _, err := tx.ExecContext(ctx,
			`UPDATE boards SET name = ?, updated_at = ? WHERE board_id = ?`,
			cur.Name, cur.UpdatedAt, boardID); err != nil {
			return fmt.Errorf("update board: %w", err)
		}
		out = cur
		return nil
	})
	return out, err
}

// DeleteBoard removes a board and cascades to its members, columns and tasks.
func (s *Storage) DeleteBoard(ctx context.Context, boardID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE board_id = ?`, boardID)
	if err != nil {
		return mapSqliteErr(fmt.Errorf("delete board: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PutMember grants or changes a user's role on a board.
func (s *Storage) PutMember(ctx context.Context, boardID, userID string, role domain.Role) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO board_members (board_id, user_id, role) VALUES (?, ?, ?)
		 ON CONFLICT(board_id, user_id) DO UPDATE SET role = excluded.role`,
		boardID, userID, string(role))
	if err != nil {
		return mapSqliteErr(fmt.Errorf("put member: %w", err))
	}
	return nil
}

// RemoveMember revokes a user's membership on a board.
func (s *Storage) RemoveMember(ctx context.Context, boardID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM board_members WHERE board_id = ? AND user_id = ?`, boardID, userID)
	if err != nil {
		return mapSqliteErr(fmt.Errorf("remove member: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RoleForUser resolves the caller's role on a board. A missing board and a
// board the user has no access to both come back as ErrNotFound.
func (s *Storage) RoleForUser(ctx context.Context, boardID, userID string) (domain.Role, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT b.owner_id, m.role
		 FROM boards b
		 LEFT JOIN board_members m ON m.board_id = b.board_id AND m.user_id = ?
		 WHERE b.board_id = ?`,
		userID, boardID)
	var ownerID string
	var role sql.NullString
	if err := row.Scan(&ownerID, &role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("scan role: %w", err)
	}
	if ownerID == userID {
		return domain.RoleOwner, nil
	}
	if role.Valid {
		return domain.Role(role.String), nil
	}
	return "", domain.ErrNotFound
}

// FetchBoardSnapshot loads a board with its members, columns and tasks in
// position order. The reads share one deferred transaction so a snapshot
// never observes a sibling set mid-renumber and never waits on a writer for
// the write lock.
func (s *Storage) FetchBoardSnapshot(ctx context.Context, boardID string) (*domain.BoardSnapshot, error) {
	var snap *domain.BoardSnapshot
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		board, err := getBoard(ctx, tx, boardID)
		if err != nil {
			return err
		}

		members := []domain.BoardMember{}
		rows, err := tx.QueryContext(ctx,
			`SELECT user_id, role FROM board_members WHERE board_id = ? ORDER BY user_id`, boardID)
		if err != nil {
			return fmt.Errorf("query members: %w", err)
		}
		for rows.Next() {
			var m domain.BoardMember
			if err := rows.Scan(&m.UserID, &m.Role); err != nil {
				_ = rows.Close()
				return fmt.Errorf("scan member row: %w", err)
			}
			members = append(members, m)
		}
		_ = rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate members: %w", err)
		}

		columns := []domain.ColumnWithTasks{}
		index := map[string]int{}
		rows, err = tx.QueryContext(ctx,
			`SELECT column_id, board_id, name, color, position, created_at, updated_at
			 FROM columns WHERE board_id = ? ORDER BY position`, boardID)
		if err != nil {
			return fmt.Errorf("query columns: %w", err)
		}
		for rows.Next() {
			var c domain.Column
			if err := rows.Scan(&c.ID, &c.BoardID, &c.Name, &c.Color, &c.Position, &c.CreatedAt, &c.UpdatedAt); err != nil {
				_ = rows.Close()
				return fmt.Errorf("scan column row: %w", err)
			}
			index[c.ID] = len(columns)
			columns = append(columns, domain.ColumnWithTasks{Column: c, Tasks: []domain.Task{}})
		}
		_ = rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate columns: %w", err)
		}

		rows, err = tx.QueryContext(ctx,
			`SELECT t.task_id, t.column_id, t.title, t.notes, t.position, t.created_by, t.created_at, t.updated_at
			 FROM tasks t
			 JOIN columns c ON c.column_id = t.column_id
			 WHERE c.board_id = ?
			 ORDER BY c.position, t.position`, boardID)
		if err != nil {
			return fmt.Errorf("query tasks: %w", err)
		}
		for rows.Next() {
			var t domain.Task
			if err := rows.Scan(&t.ID, &t.ColumnID, &t.Title, &t.Notes, &t.Position, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
				_ = rows.Close()
				return fmt.Errorf("scan task row: %w", err)
			}
			if i, ok := index[t.ColumnID]; ok {
				columns[i].Tasks = append(columns[i].Tasks, t)
			}
		}
		_ = rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate tasks: %w", err)
		}

		snap = &domain.BoardSnapshot{Board: *board, Members: members, Columns: columns}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
