// Ask HTTP handlers.
//
// This file exposes REST endpoints for ask resources:
//   - POST /asks                     (create, idempotent via Idempotency-Key)
//   - GET  /asks/open                (fan-out view, ETag support)
//   - GET  /assignments/my           (caller's open assignments)
//   - POST /assignments/{id}/done    (mark one assignment done)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groupasks/askbot/internal/domain"
	"github.com/groupasks/askbot/internal/http/middleware"
	"github.com/groupasks/askbot/internal/repo"
	"github.com/groupasks/askbot/internal/services"
	"github.com/groupasks/askbot/internal/utils"
)

//
// Service contracts (context-aware)
//

// AskService defines ask lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AskService interface {
	// CreateAsk validates and persists a new ask, notifying assignees.
	// It returns the created ask and the number of assignees notified.
	CreateAsk(ctx context.Context, chatScope, requesterID int64, text string, assigneeIDs []int64) (*domain.Ask, int, error)
	// CompleteAssignment marks actorID's assignment done and closes the ask
	// when it was the last open one.
	CompleteAssignment(ctx context.Context, assignmentID string, actorID int64, now time.Time) (*services.Completion, error)
	// ListMyOpenAssignments returns userID's open assignments on open asks.
	ListMyOpenAssignments(ctx context.Context, userID int64) ([]repo.OpenAssignment, error)
	// ListAllOpenAsks returns every open ask in the chat scope.
	ListAllOpenAsks(ctx context.Context, chatScope int64) ([]repo.OpenAsk, error)
}

// RosterService defines roster operations consumed by HTTP handlers.
type RosterService interface {
	// Register upserts a user into the roster.
	Register(ctx context.Context, userID int64, displayName string) (*domain.User, error)
	// Get returns one roster member.
	Get(ctx context.Context, userID int64) (*domain.User, error)
	// Roster returns all registered users ordered by display name.
	Roster(ctx context.Context) ([]domain.User, error)
}

//
// Handler wiring
//

// SessionConfig carries the secrets and lifetimes the session endpoint needs.
type SessionConfig struct {
	// BotToken is the Telegram bot token used to verify WebApp initData.
	BotToken string
	// Secret signs issued session tokens.
	Secret string
	// TokenTTL is the issued session lifetime.
	TokenTTL time.Duration
	// InitDataMaxAge bounds how old accepted initData may be.
	InitDataMaxAge time.Duration
}

// Handlers groups HTTP endpoints for sessions, the roster, asks, and
// assignments. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	askSvc    AskService
	rosterSvc RosterService
	session   SessionConfig

	// chatScope is the chat scope served by the web API; when zero, the
	// caller's own user id is used as the scope.
	chatScope int64

	idemTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(askSvc AskService, rosterSvc RosterService, session SessionConfig, chatScope int64, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{
		askSvc:    askSvc,
		rosterSvc: rosterSvc,
		session:   session,
		chatScope: chatScope,
		idemTTL:   idemTTL,
	}
}

// userID extracts the authenticated Telegram user id from the Gin context
// (set by the session auth middleware).
func userID(c *gin.Context) (int64, bool) {
	return middleware.UserIDFrom(c)
}

// scopeFor resolves the chat scope for web requests: the configured primary
// scope when set, otherwise the caller's own user id.
func (h *Handlers) scopeFor(uid int64) int64 {
	if h.chatScope != 0 {
		return h.chatScope
	}
	return uid
}

// clampLimit parses the optional "limit" query parameter. Zero means no cap;
// values above maxListLimit are clamped.
func clampLimit(c *gin.Context) int {
	const maxListLimit = 200
	n := utils.AtoiDefault(c.Query("limit"), 0)
	if n < 0 {
		n = 0
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n
}

// db exposes the concrete service's handle for ETag pre-checks and
// idempotency records (best effort; nil when a test double is injected).
func (h *Handlers) db() *gorm.DB {
	if svc, ok := h.askSvc.(*services.AskService); ok {
		return svc.DB
	}
	return nil
}

//
// DTOs
//

// CreateAskRequest is the JSON payload for creating an ask.
type CreateAskRequest struct {
	// Text is the request text (1-1000 characters).
	Text string `json:"text" binding:"required,min=1" example:"Take out the trash"`
	// AssigneeIDs are the Telegram user ids to assign (1-10, deduplicated).
	AssigneeIDs []int64 `json:"assignee_ids" binding:"required,min=1" example:"1001,1002"`
}

// CreateAskResponse is the JSON envelope for a newly created ask.
type CreateAskResponse struct {
	Ask *domain.Ask `json:"ask"`
	// Notified is how many assignees received a direct message.
	Notified int `json:"notified"`
}

// OpenAsksResponse wraps the fan-out view of open asks.
type OpenAsksResponse struct {
	Asks []repo.OpenAsk `json:"asks"`
}

// MyAssignmentsResponse wraps the caller's open assignments.
type MyAssignmentsResponse struct {
	Assignments []repo.OpenAssignment `json:"assignments"`
}

// CompleteAssignmentResponse reports the result of marking one done.
type CompleteAssignmentResponse struct {
	AskID string `json:"ask_id"`
	// Closed is true when this completion closed the whole ask.
	Closed bool `json:"closed"`
}

//
// Handlers
//

// CreateAsk godoc
// @ID          createAsk
// @Summary     Create a new ask
// @Description Creates an ask for the current user, assigns it to the listed people, and notifies them.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Asks
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateAskRequest  true  "Create ask payload"
//
// @Success     201  {object}  handlers.CreateAskResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /asks [post]
func (h *Handlers) CreateAsk(c *gin.Context) {
	ctx := c.Request.Context()
	uid, okID := userID(c)
	if !okID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	var req CreateAskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text and assignee_ids required")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		return
	}
	if utf8.RuneCountInString(text) > services.MaxAskTextRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("text too long: max %d characters", services.MaxAskTextRunes))
		return
	}

	// Idempotency (replay path): read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if db := h.db(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, uid, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetAsk(ctx, db, rec.AskID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, rec.Status, CreateAskResponse{Ask: prev})
					return
				}
			}
		}
	}

	ask, notified, err := h.askSvc.CreateAsk(ctx, h.scopeFor(uid), uid, text, req.AssigneeIDs)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyText),
			errors.Is(err, services.ErrTextTooLong),
			errors.Is(err, services.ErrNoAssignees),
			errors.Is(err, services.ErrTooManyAssignees),
			errors.Is(err, services.ErrUnknownAssignee):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	// Idempotency (store path), best effort.
	if idemKey != "" {
		if db := h.db(); db != nil {
			_, _ = repo.CreateIdempotency(ctx, db, uid, idemKey, ask.ID, http.StatusCreated, h.idemTTL)
		}
	}

	ok(c, http.StatusCreated, CreateAskResponse{Ask: ask, Notified: notified})
}

// ListOpenAsks godoc
// @ID          listOpenAsks
// @Summary     List all open asks
// @Description Returns every open ask in the chat scope with per-assignee status.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Asks
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       limit          query   int     false "Cap the number of returned asks"  minimum(1) maximum(200)
//
// @Success     200  {object} handlers.OpenAsksResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /asks/open [get]
func (h *Handlers) ListOpenAsks(c *gin.Context) {
	ctx := c.Request.Context()
	uid, okID := userID(c)
	if !okID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	scope := h.scopeFor(uid)

	// ETag pre-check (best effort).
	if db := h.db(); db != nil {
		count, maxTS, err := repo.OpenAsksStats(ctx, db, scope)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"asks:%d:%d:%d"`, scope, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	asks, err := h.askSvc.ListAllOpenAsks(ctx, scope)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if asks == nil {
		asks = []repo.OpenAsk{}
	}
	if limit := clampLimit(c); limit > 0 && len(asks) > limit {
		asks = asks[:limit]
	}
	ok(c, http.StatusOK, OpenAsksResponse{Asks: asks})
}

// ListMyAssignments godoc
// @ID          listMyAssignments
// @Summary     List the caller's open assignments
// @Description Returns the authenticated user's open assignments on open asks, most recent ask first.
// @Tags        Assignments
// @Produce     json
// @Security    BearerAuth
//
// @Param       limit  query  int  false "Cap the number of returned assignments"  minimum(1) maximum(200)
//
// @Success     200  {object} handlers.MyAssignmentsResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /assignments/my [get]
func (h *Handlers) ListMyAssignments(c *gin.Context) {
	uid, okID := userID(c)
	if !okID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	items, err := h.askSvc.ListMyOpenAssignments(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []repo.OpenAssignment{}
	}
	if limit := clampLimit(c); limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	ok(c, http.StatusOK, MyAssignmentsResponse{Assignments: items})
}

// CompleteAssignment godoc
// @ID          completeAssignment
// @Summary     Mark an assignment done
// @Description Marks the caller's assignment as done. When it was the last open assignment, the ask closes.
// @Tags        Assignments
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Assignment ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.CompleteAssignmentResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object} handlers.ErrorResponse "Assignment not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /assignments/{id}/done [post]
func (h *Handlers) CompleteAssignment(c *gin.Context) {
	uid, okID := userID(c)
	if !okID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	assignmentID := c.Param("id")
	if _, err := uuid.Parse(assignmentID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "assignment id must be a UUID")
		return
	}

	res, err := h.askSvc.CompleteAssignment(c.Request.Context(), assignmentID, uid, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAssignmentNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "assignment not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCompleteFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, CompleteAssignmentResponse{AskID: res.AskID, Closed: res.Closed})
}
