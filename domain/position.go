package domain

// Positions within a sibling set are dense zero-based integers: a set of n
// items always occupies exactly {0..n-1}. The helpers below are the pure
// arithmetic behind every structural write; storage applies them inside a
// single transaction so the dense form is the only state other requests can
// observe.

// ClampPosition bounds a requested target position to [0, count-1] for a
// reorder within an existing sibling set of count items.
func ClampPosition(requested, count int) int {
	if count <= 0 || requested < 0 {
		return 0
	}
	if requested > count-1 {
		return count - 1
	}
	return requested
}

// ClampInsertPosition bounds a requested position to [0, count] for inserting
// a new item into a sibling set of count items.
func ClampInsertPosition(requested, count int) int {
	if requested < 0 {
		return 0
	}
	if requested > count {
		return count
	}
	return requested
}

// ShiftRange returns the inclusive range of sibling positions displaced by
// moving an item from oldPos to newPos, and the direction they move. ok is
// false when the positions are equal and nothing shifts.
func ShiftRange(oldPos, newPos int) (lo, hi, delta int, ok bool) {
	switch {
	case newPos < oldPos:
		return newPos, oldPos - 1, 1, true
	case newPos > oldPos:
		return oldPos + 1, newPos, -1, true
	default:
		return 0, 0, 0, false
	}
}
