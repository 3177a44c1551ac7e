package domain

// Column represents an ordered lane on a board.
type Column struct {
	ID        string `json:"id"`
	BoardID   string `json:"boardId"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	Position  int    `json:"position"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// ColumnUpdate carries partial updates for a column. A non-nil Position
// requests a reorder within the board.
type ColumnUpdate struct {
	Name      *string `json:"name,omitempty"`
	Color     *string `json:"color,omitempty"`
	Position  *int    `json:"position,omitempty"`
	UpdatedAt int64   `json:"-"`
}
