// Session and roster HTTP handlers.
//
// This file exposes the authentication entry point and identity endpoints:
//   - POST /session     (exchange Telegram WebApp initData for a bearer token)
//   - GET  /me          (the caller's roster record)
//   - GET  /roster      (all registered users, ETag support)
//
// POST /session is the only unauthenticated route besides /health and
// /metrics: it verifies the initData signature against the bot token,
// registers the caller into the roster, and mints a short-lived HMAC-signed
// session token for the remaining endpoints.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/groupasks/askbot/internal/auth"
	"github.com/groupasks/askbot/internal/domain"
	"github.com/groupasks/askbot/internal/repo"
	"github.com/groupasks/askbot/internal/services"
)

//
// DTOs
//

// CreateSessionRequest is the JSON payload for opening a session.
type CreateSessionRequest struct {
	// InitData is the raw Telegram WebApp initData query string.
	InitData string `json:"init_data" binding:"required,min=1"`
}

// SessionUser is the caller identity echoed in the session response.
type SessionUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CreateSessionResponse carries the minted bearer token.
type CreateSessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      SessionUser `json:"user"`
}

// RosterResponse wraps the list of registered users.
type RosterResponse struct {
	Users []domain.User `json:"users"`
}

//
// Handlers
//

// CreateSession godoc
// @ID          createSession
// @Summary     Open an authenticated session
// @Description Verifies Telegram WebApp initData, registers the caller into the roster,
// @Description and returns a short-lived bearer token for the remaining endpoints.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateSessionRequest  true  "Raw WebApp initData"
//
// @Success     200  {object}  handlers.CreateSessionResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "initData rejected"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /session [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "init_data required")
		return
	}

	now := time.Now().UTC()
	user, err := auth.VerifyInitData(req.InitData, h.session.BotToken, h.session.InitDataMaxAge, now)
	if err != nil {
		msg := "initData verification failed"
		if errors.Is(err, auth.ErrInitDataExpired) {
			msg = "initData expired"
		}
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, msg)
		return
	}

	name := services.ResolveDisplayName(user.FirstName, user.LastName, user.Username, user.ID)
	if _, err := h.rosterSvc.Register(c.Request.Context(), user.ID, name); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSessionFailed, err.Error())
		return
	}

	expiresAt := now.Add(h.session.TokenTTL)
	token, err := auth.IssueToken([]byte(h.session.Secret), auth.Claims{
		UserID: user.ID,
		Name:   name,
		Exp:    expiresAt.Unix(),
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSessionFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, CreateSessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      SessionUser{ID: user.ID, Name: name},
	})
}

// Me godoc
// @ID          me
// @Summary     Return the caller's roster record
// @Tags        Sessions
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  domain.User
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Not registered"
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	uid, okID := userID(c)
	if !okID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	u, err := h.rosterSvc.Get(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not registered")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, u)
}

// Roster godoc
// @ID          roster
// @Summary     List registered users
// @Description Returns everyone who has started the bot, ordered by display name.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Sessions
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
//
// @Success     200  {object}  handlers.RosterResponse
// @Header      200  {string}  ETag "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /roster [get]
func (h *Handlers) Roster(c *gin.Context) {
	ctx := c.Request.Context()
	if _, okID := userID(c); !okID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	// ETag pre-check (best effort).
	if db := h.db(); db != nil {
		count, maxTS, err := repo.RosterStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"roster:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	users, err := h.rosterSvc.Roster(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	ok(c, http.StatusOK, RosterResponse{Users: users})
}
