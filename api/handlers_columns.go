package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"tessera-api/domain"
)

func createColumn(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		var req createColumnRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if err := domain.ValidateName(req.Name); err != nil {
			return respondError(c, err)
		}

		boardID := c.Param("id")
		if err := requireRole(ctx, store, boardID, userID, domain.RoleEditor); err != nil {
			return respondError(c, err)
		}

		release, err := claimDedupeKey(c, deduper, userID)
		if err != nil {
			return respondError(c, err)
		}

		now := nextTimestamp()
		col := &domain.Column{
			ID:        uuid.NewString(),
			BoardID:   boardID,
			Name:      strings.TrimSpace(req.Name),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if req.Color != nil {
			col.Color = *req.Color
		}
		if err := store.CreateColumn(ctx, col, req.Position); err != nil {
			release()
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, col)
	}
}

func updateColumn(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		var req updateColumnRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if req.Name != nil {
			trimmed := strings.TrimSpace(*req.Name)
			if err := domain.ValidateName(trimmed); err != nil {
				return respondError(c, err)
			}
			req.Name = &trimmed
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

		updated, err := store.UpdateColumn(ctx, columnID, domain.ColumnUpdate{
			Name:      req.Name,
			Color:     req.Color,
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

func deleteColumn(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
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

		if _, err := store.DeleteColumn(ctx, columnID); err != nil {
			release()
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
