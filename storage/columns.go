package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tessera-api/domain"
)

func getColumn(ctx context.Context, q querier, columnID string) (*domain.Column, error) {
	row := q.QueryRowContext(ctx,
		`SELECT column_id, board_id, name, color, position, created_at, updated_at
		 FROM columns WHERE column_id = ?`, columnID)
	var c domain.Column
	if err := row.Scan(&c.ID, &c.BoardID, &c.Name, &c.Color, &c.Position, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan column: %w", err)
	}
	return &c, nil
}

// GetColumn retrieves a single column by id.
func (s *Storage) GetColumn(ctx context.Context, columnID string) (*domain.Column, error) {
	return getColumn(ctx, s.db, columnID)
}

// CreateColumn inserts a column into its board's ordered set. A nil position
// appends at the end; otherwise siblings at and after the requested position
// shift up by one to make room. The requested position is clamped to [0, n].
func (s *Storage) CreateColumn(ctx context.Context, col *domain.Column, position *int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getBoard(ctx, tx, col.BoardID); err != nil {
			return err
		}

		n, err := columnSet.count(ctx, tx, col.BoardID)
		if err != nil {
			return err
		}
		pos := n
		if position != nil {
			pos = domain.ClampInsertPosition(*position, n)
		}
		if pos < n {
			if err := columnSet.openGap(ctx, tx, col.BoardID, pos, n, ""); err != nil {
				return err
			}
		}

		col.Position = pos
		_, err = tx.ExecContext(ctx,
			`INSERT INTO columns (column_id, board_id, name, color, position, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			col.ID, col.BoardID, col.Name, col.Color, col.Position, col.CreatedAt, col.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert column: %w", err)
		}
		return nil
	})
}

// UpdateColumn applies partial updates to a column. A non-nil Position
// reorders the column within its board, clamped to the valid range.
func (s *Storage) UpdateColumn(ctx context.Context, columnID string, upd domain.ColumnUpdate) (*domain.Column, error) {
	var out *domain.Column
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getColumn(ctx, tx, columnID)
		if err != nil {
			return err
		}

		if upd.Name != nil {
			cur.Name = *upd.Name
		}
		if upd.Color != nil {
			cur.Color = *upd.Color
		}
		cur.UpdatedAt = upd.UpdatedAt
		if _, err := tx.ExecContext(ctx,
			`UPDATE columns SET name = ?, color = ?, updated_at = ? WHERE column_id = ?`,
			cur.Name, cur.Color, cur.UpdatedAt, columnID); err != nil {
			return fmt.Errorf("update column: %w", err)
		}

		if upd.Position != nil {
			n, err := columnSet.count(ctx, tx, cur.BoardID)
			if err != nil {
				return err
			}
			newPos := domain.ClampPosition(*upd.Position, n)
			if err := columnSet.reorder(ctx, tx, columnID, cur.BoardID, cur.Position, newPos, n); err != nil {
				return err
			}
			cur.Position = newPos
		}

		out = cur
		return nil
	})
	return out, err
}

// DeleteColumn removes a column and its tasks, then closes the gap it leaves
// in the board's ordering. Returns the id of the board that held it.
func (s *Storage) DeleteColumn(ctx context.Context, columnID string) (string, error) {
	var boardID string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getColumn(ctx, tx, columnID)
		if err != nil {
			return err
		}
		n, err := columnSet.count(ctx, tx, cur.BoardID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM columns WHERE column_id = ?`, columnID); err != nil {
			return fmt.Errorf("delete column: %w", err)
		}
		if err := columnSet.closeGap(ctx, tx, cur.BoardID, cur.Position, n, ""); err != nil {
			return err
		}
		boardID = cur.BoardID
		return nil
	})
	return boardID, err
}
