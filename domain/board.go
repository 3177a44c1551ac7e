package domain

// Role grants a board member a level of access.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// CanEdit reports whether the role permits structural writes.
func (r Role) CanEdit() bool {
	return r == RoleOwner || r == RoleEditor
}

// Board represents a kanban board.
type Board struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// BoardMember represents a user granted access to a board.
type BoardMember struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// BoardUpdate carries partial updates for a board.
type BoardUpdate struct {
	Name      *string `json:"name,omitempty"`
	UpdatedAt int64   `json:"-"`
}

// BoardSnapshot is a board together with its members and full ordered
// contents, the payload a client needs to render the whole board.
type BoardSnapshot struct {
	Board
	Members []BoardMember     `json:"members"`
	Columns []ColumnWithTasks `json:"columns"`
}

// ColumnWithTasks is a column with its tasks in position order.
type ColumnWithTasks struct {
	Column
	Tasks []Task `json:"tasks"`
}
