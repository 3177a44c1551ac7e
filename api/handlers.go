package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"

	"tessera-api/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth Authenticator, deduper Deduper, logger *log.Logger) {
	e.GET("/api/boards", listBoards(store, auth))
	e.POST("/api/boards", createBoard(store, auth, deduper))
	e.GET("/api/boards/:id", getBoard(store, auth, logger))
	e.PUT("/api/boards/:id", updateBoard(store, auth, deduper))
	e.DELETE("/api/boards/:id", deleteBoard(store, auth, deduper))
	e.PUT("/api/boards/:id/members/:userID", putMember(store, auth, deduper))
	e.DELETE("/api/boards/:id/members/:userID", removeMember(store, auth, deduper))
	e.POST("/api/boards/:id/columns", createColumn(store, auth, deduper))
	e.PUT("/api/columns/:id", updateColumn(store, auth, deduper))
	e.DELETE("/api/columns/:id", deleteColumn(store, auth, deduper))
	e.POST("/api/columns/:id/tasks", createTask(store, auth, deduper))
	e.PUT("/api/tasks/:id", updateTask(store, auth, deduper))
	e.DELETE("/api/tasks/:id", deleteTask(store, auth, deduper))
	e.GET("/healthz", healthz(store))
}

func healthz(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusServiceUnavailable, "storage unreachable")
		}
		return c.NoContent(http.StatusOK)
	}
}

// decodeBody reads a JSON request body into dst. Unknown fields and bodies
// over requestBodyMaxSize are rejected so malformed drags cannot smuggle
// arbitrary payloads through.
func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid body", domain.ErrInvalidArgument)
	}
	return nil
}

// respondError translates a domain error into the API error envelope.
// Not-found responses carry no detail so callers cannot distinguish a
// missing entity from one they are not allowed to see.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return c.JSON(http.StatusBadRequest, errorResponse{Code: codeInvalidArgument, Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Code: codeNotFound, Message: "not found"})
	case errors.Is(err, domain.ErrPositionConflict):
		return c.JSON(http.StatusConflict, errorResponse{Code: codePositionConflict, Message: "position conflict, retry the request"})
	case errors.Is(err, domain.ErrDuplicateRequest):
		return c.JSON(http.StatusConflict, errorResponse{Code: codeDuplicateRequest, Message: "duplicate request"})
	}
	var tokenErr InvalidPageTokenError
	if errors.As(err, &tokenErr) {
		return c.JSON(http.StatusBadRequest, errorResponse{Code: codeInvalidArgument, Message: "invalid page token"})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Code: codeInternal, Message: "internal error"})
}

// requireRole checks the caller's role on a board. Missing boards and
// insufficient roles both surface as not-found.
func requireRole(ctx context.Context, store Storage, boardID, userID string, need domain.Role) error {
	role, err := store.RoleForUser(ctx, boardID, userID)
	if err != nil {
		return err
	}
	switch need {
	case domain.RoleOwner:
		if role != domain.RoleOwner {
			return fmt.Errorf("%w: board %s", domain.ErrNotFound, boardID)
		}
	case domain.RoleEditor:
		if !role.CanEdit() {
			return fmt.Errorf("%w: board %s", domain.ErrNotFound, boardID)
		}
	}
	return nil
}

// dedupeReleaseTimeout bounds the post-failure release of an idempotency key.
const dedupeReleaseTimeout = 5 * time.Second

// claimDedupeKey reserves the request's Idempotency-Key when one was sent.
// The returned release func frees the key again and must be called when the
// mutation ultimately fails, so the client may retry with the same key. The
// release runs on its own context so a canceled request still frees the key.
// Deduper outages do not fail the request; the mutation proceeds undeduped.
func claimDedupeKey(c echo.Context, deduper Deduper, userID string) (func(), error) {
	noop := func() {}
	key := strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
	if key == "" || deduper == nil {
		return noop, nil
	}

	ctx := c.Request().Context()
	added, err := deduper.Add(ctx, userID, key)
	if err != nil {
		c.Logger().Warnf("dedupe add failed: %v", err)
		return noop, nil
	}
	if !added {
		return nil, fmt.Errorf("%w: idempotency key already used", domain.ErrDuplicateRequest)
	}
	return func() {
		// Runs after a failed mutation, possibly because the client is gone;
		// detach from request cancellation so the key does not stay claimed
		// until its TTL expires.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dedupeReleaseTimeout)
		defer cancel()
		if rerr := deduper.Remove(ctx, userID, key); rerr != nil {
			c.Logger().Warnf("dedupe release failed: %v", rerr)
		}
	}, nil
}

func getBoard(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newBoardRequestMetrics(ctx, logger)
		if spanCtx != nil {
			req := c.Request().WithContext(spanCtx)
			c.SetRequest(req)
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		boardID := c.Param("id")
		if roleErr := requireRole(ctx, store, boardID, userID, domain.RoleViewer); roleErr != nil {
			metrics.SetErrorStage("authz")
			err = respondError(c, roleErr)
			return err
		}

		fetchStart := time.Now()
		snapshot, fetchErr := store.FetchBoardSnapshot(ctx, boardID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = respondError(c, fetchErr)
			return err
		}
		metrics.SetColumnsReturned(len(snapshot.Columns))
		taskCount := 0
		for i := range snapshot.Columns {
			taskCount += len(snapshot.Columns[i].Tasks)
		}
		metrics.SetTasksReturned(taskCount)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, snapshot)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}
