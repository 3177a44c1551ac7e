package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"tessera-api/domain"
)

func listBoards(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		pageToken := c.QueryParam("pageToken")
		pageSizeParam := strings.TrimSpace(c.QueryParam("pageSize"))
		pageSize := 0
		if pageSizeParam != "" {
			var parseErr error
			pageSize, parseErr = strconv.Atoi(pageSizeParam)
			if parseErr != nil || pageSize <= 0 {
				return c.JSON(http.StatusBadRequest, errorResponse{Code: codeInvalidArgument, Message: "invalid page size"})
			}
		}

		boards, nextToken, err := store.ListBoards(ctx, userID, pageToken, pageSize)
		if err != nil {
			return respondError(c, err)
		}
		resp := boardsResponse{Boards: boards}
		if nextToken != "" {
			resp.NextPageToken = nextToken
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func createBoard(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		var req createBoardRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if err := domain.ValidateName(req.Name); err != nil {
			return respondError(c, err)
		}

		release, err := claimDedupeKey(c, deduper, userID)
		if err != nil {
			return respondError(c, err)
		}

		now := nextTimestamp()
		board := &domain.Board{
			ID:        uuid.NewString(),
			Name:      strings.TrimSpace(req.Name),
			OwnerID:   userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.CreateBoard(ctx, board); err != nil {
			release()
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, board)
	}
}

func updateBoard(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		var req updateBoardRequest
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

		boardID := c.Param("id")
		if err := requireRole(ctx, store, boardID, userID, domain.RoleEditor); err != nil {
			return respondError(c, err)
		}

		release, err := claimDedupeKey(c, deduper, userID)
		if err != nil {
			return respondError(c, err)
		}

		board, err := store.UpdateBoard(ctx, boardID, domain.BoardUpdate{
			Name:      req.Name,
			UpdatedAt: nextTimestamp(),
		})
		if err != nil {
			release()
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, board)
	}
}

func deleteBoard(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		boardID := c.Param("id")
		if err := requireRole(ctx, store, boardID, userID, domain.RoleOwner); err != nil {
			return respondError(c, err)
		}

		release, err := claimDedupeKey(c, deduper, userID)
		if err != nil {
			return respondError(c, err)
		}

		if err := store.DeleteBoard(ctx, boardID); err != nil {
			release()
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func putMember(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		var req memberRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, err)
		}
		role := domain.Role(req.Role)
		if err := domain.ValidateMemberRole(role); err != nil {
			return respondError(c, err)
		}

		boardID := c.Param("id")
		memberID := c.Param("userID")
		if memberID == userID {
			return respondError(c, fmt.Errorf("%w: cannot change own membership", domain.ErrInvalidArgument))
		}
		if err := requireRole(ctx, store, boardID, userID, domain.RoleOwner); err != nil {
			return respondError(c, err)
		}

		release, err := claimDedupeKey(c, deduper, userID)
		if err != nil {
			return respondError(c, err)
		}

		if err := store.PutMember(ctx, boardID, memberID, role); err != nil {
			release()
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, domain.BoardMember{UserID: memberID, Role: role})
	}
}

func removeMember(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		boardID := c.Param("id")
		memberID := c.Param("userID")
		if memberID == userID {
			return respondError(c, fmt.Errorf("%w: cannot change own membership", domain.ErrInvalidArgument))
		}
		if err := requireRole(ctx, store, boardID, userID, domain.RoleOwner); err != nil {
			return respondError(c, err)
		}

		release, err := claimDedupeKey(c, deduper, userID)
		if err != nil {
			return respondError(c, err)
		}

		if err := store.RemoveMember(ctx, boardID, memberID); err != nil {
			release()
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
