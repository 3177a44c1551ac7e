package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"tessera-api/domain"
)

func createTask(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if err := domain.ValidateTitle(req.Title); err != nil {
			return respondError(c, err)
		}
		if req.Notes != nil {
			if err := domain.ValidateNotes(*req.Notes); err != nil {
				return respondError(c, err)
			}
		}

		columnID := c.Param("id")
		col, err := store.GetColumn(ctx, columnID)
		if err != nil {
			return respondError(c, err)
		}
		if err := requireRole(ctx, store, col.BoardID, userID, domain.RoleEditor); err != nil {
			return respondError(c, err)
		}

		release, err := claimDedupeKey(c, deduper, userID)
		if err != nil {
			return respondError(c, err)
		}

		now := nextTimestamp()
		task := &domain.Task{
			ID:        uuid.NewString(),
			ColumnID:  columnID,
			Title:     strings.TrimSpace(req.Title),
			CreatedBy: userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if req.Notes != nil {
			task.Notes = *req.Notes
		}
		if _, err := store.CreateTask(ctx, task, req.Position); err != nil {
			release()
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		var req updateTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if req.Title != nil {
			trimmed := strings.TrimSpace(*req.Title)
			if err := domain.ValidateTitle(trimmed); err != nil {
				return respondError(c, err)
			}
			req.Title = &trimmed
		}
		if req.Notes != nil {
			if err := domain.ValidateNotes(*req.Notes); err != nil {
				return respondError(c, err)
			}
		}

		taskID := c.Param("id")
		_, boardID, err := store.GetTask(ctx, taskID)
		if err != nil {
			return respondError(c, err)
		}
		if err := requireRole(ctx, store, boardID, userID, domain.RoleEditor); err != nil {
			return respondError(c, err)
		}

		release, err := claimDedupeKey(c, deduper, userID)
		if err != nil {
			return respondError(c, err)
		}

		updated, _, err := store.UpdateTask(ctx, taskID, domain.TaskUpdate{
			Title:     req.Title,
			Notes:     req.Notes,
			ColumnID:  req.ColumnID,
			Position:  req.Position,
			UpdatedAt: nextTimestamp(),
		})
		if err != nil {
			release()
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, updated)
	}
}

func deleteTask(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		taskID := c.Param("id")
		_, boardID, err := store.GetTask(ctx, taskID)
		if err != nil {
			return respondError(c, err)
		}
		if err := requireRole(ctx, store, boardID, userID, domain.RoleEditor); err != nil {
			return respondError(c, err)
		}

		release, err := claimDedupeKey(c, deduper, userID)
		if err != nil {
			return respondError(c, err)
		}

		if _, err := store.DeleteTask(ctx, taskID); err != nil {
			release()
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
