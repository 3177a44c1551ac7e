package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tessera-api/domain"
)

func getTask(ctx context.Context, q querier, taskID string) (*domain.Task, string, error) {
	row := q.QueryRowContext(ctx,
		`SELECT t.task_id, t.column_id, t.title, t.notes, t.position, t.created_by, t.created_at, t.updated_at, c.board_id
		 FROM tasks t
		 JOIN columns c ON c.column_id = t.column_id
		 WHERE t.task_id = ?`, taskID)
	var t domain.Task
	var boardID string
	if err := row.Scan(&t.ID, &t.ColumnID, &t.Title, &t.Notes, &t.Position, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt, &boardID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", fmt.Errorf("scan task: %w", err)
	}
	return &t, boardID, nil
}

// GetTask retrieves a task together with the id of the board it lives on.
func (s *Storage) GetTask(ctx context.Context, taskID string) (*domain.Task, string, error) {
	return getTask(ctx, s.db, taskID)
}

// CreateTask inserts a task into its column's ordered set and returns the id
// of the board that holds it. A nil position appends at the end; otherwise
// siblings shift up to make room, with the request clamped to [0, n].
func (s *Storage) CreateTask(ctx context.Context, task *domain.Task, position *int) (string, error) {
	var boardID string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT board_id FROM columns WHERE column_id = ?`, task.ColumnID)
		if err := row.Scan(&boardID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("scan column board: %w", err)
		}

		n, err := taskSet.count(ctx, tx, task.ColumnID)
		if err != nil {
			return err
		}
		pos := n
		if position != nil {
			pos = domain.ClampInsertPosition(*position, n)
		}
		if pos < n {
			if err := taskSet.openGap(ctx, tx, task.ColumnID, pos, n, ""); err != nil {
				return err
			}
		}

		task.Position = pos
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tasks (task_id, column_id, title, notes, position, created_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.ColumnID, task.Title, task.Notes, task.Position, task.CreatedBy, task.CreatedAt, task.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return nil
	})
	return boardID, err
}

// UpdateTask applies partial updates to a task. A non-nil Position reorders
// the task within its column; a non-nil ColumnID moves it to another column
// of the same board, closing the gap it leaves behind and opening one at the
// destination. Returns the updated task and the id of its board.
func (s *Storage) UpdateTask(ctx context.Context, taskID string, upd domain.TaskUpdate) (*domain.Task, string, error) {
	var out *domain.Task
	var boardID string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cur, board, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		boardID = board

		if upd.Title != nil {
			cur.Title = *upd.Title
		}
		if upd.Notes != nil {
			cur.Notes = *upd.Notes
		}
		cur.UpdatedAt = upd.UpdatedAt
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET title = ?, notes = ?, updated_at = ? WHERE task_id = ?`,
			cur.Title, cur.Notes, cur.UpdatedAt, taskID); err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		switch {
		case upd.ColumnID != nil && *upd.ColumnID != cur.ColumnID:
			dst := *upd.ColumnID
			var dstBoard string
			row := tx.QueryRowContext(ctx, `SELECT board_id FROM columns WHERE column_id = ?`, dst)
			if err := row.Scan(&dstBoard); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return domain.ErrNotFound
				}
				return fmt.Errorf("scan destination column: %w", err)
			}
			if dstBoard != board {
				return fmt.Errorf("%w: destination column belongs to another board", domain.ErrInvalidArgument)
			}

			nSrc, err := taskSet.count(ctx, tx, cur.ColumnID)
			if err != nil {
				return err
			}
			nDst, err := taskSet.count(ctx, tx, dst)
			if err != nil {
				return err
			}
			target := nDst
			if upd.Position != nil {
				target = domain.ClampInsertPosition(*upd.Position, nDst)
			}

			if err := taskSet.park(ctx, tx, taskID, -(nSrc + 1)); err != nil {
				return err
			}
			if err := taskSet.closeGap(ctx, tx, cur.ColumnID, cur.Position, nSrc, taskID); err != nil {
				return err
			}
			if target < nDst {
				if err := taskSet.openGap(ctx, tx, dst, target, nDst, taskID); err != nil {
					return err
				}
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE tasks SET column_id = ?, position = ? WHERE task_id = ?`,
				dst, target, taskID); err != nil {
				return fmt.Errorf("move task: %w", err)
			}
			cur.ColumnID = dst
			cur.Position = target

		case upd.Position != nil:
			n, err := taskSet.count(ctx, tx, cur.ColumnID)
			if err != nil {
				return err
			}
			newPos := domain.ClampPosition(*upd.Position, n)
			if err := taskSet.reorder(ctx, tx, taskID, cur.ColumnID, cur.Position, newPos, n); err != nil {
				return err
			}
			cur.Position = newPos
		}

		out = cur
		return nil
	})
	return out, boardID, err
}

// DeleteTask removes a task and closes the gap it leaves in its column's
// ordering. Returns the id of the board that held it.
func (s *Storage) DeleteTask(ctx context.Context, taskID string) (string, error) {
	var boardID string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cur, board, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		n, err := taskSet.count(ctx, tx, cur.ColumnID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE task_id = ?`, taskID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		if err := taskSet.closeGap(ctx, tx, cur.ColumnID, cur.Position, n, ""); err != nil {
			return err
		}
		boardID = board
		return nil
	})
	return boardID, err
}
