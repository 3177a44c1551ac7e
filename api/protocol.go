package api

import "tessera-api/domain"

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// headerIdempotencyKey carries the client-supplied deduplication key on mutations.
const headerIdempotencyKey = "Idempotency-Key"

// Stable machine-readable error codes carried in error responses.
const (
	codeInvalidArgument  = "INVALID_ARGUMENT"
	codeNotFound         = "NOT_FOUND"
	codePositionConflict = "POSITION_CONFLICT"
	codeDuplicateRequest = "DUPLICATE_REQUEST"
	codeInternal         = "INTERNAL"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createBoardRequest struct {
	Name string `json:"name"`
}

type updateBoardRequest struct {
	Name *string `json:"name"`
}

type memberRequest struct {
	Role string `json:"role"`
}

type boardsResponse struct {
	Boards        []domain.Board `json:"boards"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

type createColumnRequest struct {
	Name     string  `json:"name"`
	Color    *string `json:"color"`
	Position *int    `json:"position"`
}

type updateColumnRequest struct {
	Name     *string `json:"name"`
	Color    *string `json:"color"`
	Position *int    `json:"position"`
}

type createTaskRequest struct {
	Title    string  `json:"title"`
	Notes    *string `json:"notes"`
	Position *int    `json:"position"`
}

type updateTaskRequest struct {
	Title    *string `json:"title"`
	Notes    *string `json:"notes"`
	ColumnID *string `json:"columnId"`
	Position *int    `json:"position"`
}
