package domain

// Task represents a single card in a column.
type Task struct {
	ID        string `json:"id"`
	ColumnID  string `json:"columnId"`
	Title     string `json:"title"`
	Notes     string `json:"notes,omitempty"`
	Position  int    `json:"position"`
	CreatedBy string `json:"createdBy"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// TaskUpdate carries partial updates for a task. A non-nil ColumnID moves the
// task to another column of the same board; a non-nil Position requests a
// reorder at the destination.
type TaskUpdate struct {
	Title     *string `json:"title,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	ColumnID  *string `json:"columnId,omitempty"`
	Position  *int    `json:"position,omitempty"`
	UpdatedAt int64   `json:"-"`
}
