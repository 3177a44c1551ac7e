package storage

import (
	"context"
	"database/sql"
	"fmt"

	"tessera-api/domain"
)

// orderedSet names one of the two sibling collections that carry dense
// zero-based positions: columns within a board and tasks within a column.
// All renumbering for a set runs inside the caller's transaction.
type orderedSet struct {
	table  string
	id     string
	parent string
}

var (
	columnSet = orderedSet{table: "columns", id: "column_id", parent: "board_id"}
	taskSet   = orderedSet{table: "tasks", id: "task_id", parent: "column_id"}
)

func (o orderedSet) count(ctx context.Context, q querier, parentID string) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", o.table, o.parent)
	if err := q.QueryRowContext(ctx, query, parentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", o.table, err)
	}
	return n, nil
}

// park moves one row out of the dense range so its old position is free
// before siblings renumber. The slot -(count+1) lies below every value the
// shift phases can produce, so it never collides with them.
func (o orderedSet) park(ctx context.Context, tx *sql.Tx, id string, slot int) error {
	query := fmt.Sprintf("UPDATE %s SET position = ? WHERE %s = ?", o.table, o.id)
	if _, err := tx.ExecContext(ctx, query, slot, id); err != nil {
		return fmt.Errorf("park %s %s: %w", o.table, id, err)
	}
	return nil
}

// place writes the parked row's final position.
func (o orderedSet) place(ctx context.Context, tx *sql.Tx, id string, pos int) error {
	query := fmt.Sprintf("UPDATE %s SET position = ? WHERE %s = ?", o.table, o.id)
	if _, err := tx.ExecContext(ctx, query, pos, id); err != nil {
		return fmt.Errorf("place %s %s: %w", o.table, id, err)
	}
	return nil
}

// shiftRange renumbers every sibling of parentID whose position lies in the
// inclusive range [lo, hi] by delta. SQLite checks UNIQUE per row during an
// UPDATE, so a direct position = position + delta would collide with rows the
// statement has not reached yet. The shift instead runs in two passes through
// negative space: rows first move to -(position+1), then restore to
// position+delta. A row excluded by id keeps the parked slot it already
// holds.
func (o orderedSet) shiftRange(ctx context.Context, tx *sql.Tx, parentID string, lo, hi, delta int, excludeID string) error {
	if lo > hi {
		return nil
	}

	phase1 := fmt.Sprintf(
		"UPDATE %s SET position = -position - 1 WHERE %s = ? AND position BETWEEN ? AND ?",
		o.table, o.parent)
	args := []any{parentID, lo, hi}
	if excludeID != "" {
		phase1 += fmt.Sprintf(" AND %s <> ?", o.id)
		args = append(args, excludeID)
	}
	if _, err := tx.ExecContext(ctx, phase1, args...); err != nil {
		return fmt.Errorf("shift %s: %w", o.table, err)
	}

	phase2 := fmt.Sprintf(
		"UPDATE %s SET position = -position - 1 + ? WHERE %s = ? AND position < 0",
		o.table, o.parent)
	args = []any{delta, parentID}
	if excludeID != "" {
		phase2 += fmt.Sprintf(" AND %s <> ?", o.id)
		args = append(args, excludeID)
	}
	if _, err := tx.ExecContext(ctx, phase2, args...); err != nil {
		return fmt.Errorf("restore %s: %w", o.table, err)
	}
	return nil
}

// openGap shifts positions in [pos, count-1] up by one ahead of an insert.
func (o orderedSet) openGap(ctx context.Context, tx *sql.Tx, parentID string, pos, count int, excludeID string) error {
	return o.shiftRange(ctx, tx, parentID, pos, count-1, 1, excludeID)
}

// closeGap pulls positions above pos down by one after the row that held pos
// left the set. count is the sibling count before the removal.
func (o orderedSet) closeGap(ctx context.Context, tx *sql.Tx, parentID string, pos, count int, excludeID string) error {
	return o.shiftRange(ctx, tx, parentID, pos+1, count-1, -1, excludeID)
}

// reorder moves one row from oldPos to newPos within its parent, displacing
// the siblings between the two positions by one. Both positions must already
// be clamped to [0, count-1].
func (o orderedSet) reorder(ctx context.Context, tx *sql.Tx, id, parentID string, oldPos, newPos, count int) error {
	lo, hi, delta, ok := domain.ShiftRange(oldPos, newPos)
	if !ok {
		return nil
	}
	if err := o.park(ctx, tx, id, -(count + 1)); err != nil {
		return err
	}
	if err := o.shiftRange(ctx, tx, parentID, lo, hi, delta, id); err != nil {
		return err
	}
	return o.place(ctx, tx, id, newPos)
}
