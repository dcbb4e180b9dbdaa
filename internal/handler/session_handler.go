package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-selftest/internal/middleware"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/response"
	"github.com/stemsi/exstem-selftest/internal/service"
	"github.com/stemsi/exstem-selftest/internal/validator"
)

// SessionHandler handles learner-facing endpoints (live sessions, past attempts).
type SessionHandler struct {
	sessionService *service.SessionService
	attemptService *service.AttemptService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService, attemptService *service.AttemptService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		attemptService: attemptService,
	}
}

// sessionView is returned by every session endpoint.
type sessionView struct {
	SessionID string      `json:"session_id"`
	BankID    string      `json:"bank_id"`
	AttemptID *uuid.UUID  `json:"attempt_id,omitempty"`
	Screen    interface{} `json:"screen"`
}

func (h *SessionHandler) view(live *service.LiveSession, screen interface{}) sessionView {
	v := sessionView{
		SessionID: live.ID.String(),
		BankID:    live.BankID.String(),
		Screen:    screen,
	}
	if id := live.AttemptID(); id != uuid.Nil {
		v.AttemptID = &id
	}
	return v
}

// CreateSession godoc
// POST /api/v1/learner/sessions
// Opens a live exam session on a question bank, in the instructions phase.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	bankID, _ := uuid.Parse(req.BankID)

	live, st, err := h.sessionService.Create(c.Request.Context(), claims.UserID, bankID)
	if err != nil {
		if errors.Is(err, service.ErrBankNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrBankNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, h.view(live, h.sessionService.Renderer().Render(st)))
}

// GetSession godoc
// GET /api/v1/learner/sessions/:session_id
// Returns the current screen of a live session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	live := middleware.GetLiveSession(c)

	st, err := live.Snapshot(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}

	response.Success(c, http.StatusOK, h.view(live, h.sessionService.Renderer().Render(st)))
}

// DispatchIntent godoc
// POST /api/v1/learner/sessions/:session_id/intents
// Applies one intent to the session and returns the resulting screen.
// Intents that do not apply to the current phase leave the state unchanged.
func (h *SessionHandler) DispatchIntent(c *gin.Context) {
	claims := middleware.GetClaims(c)
	live := middleware.GetLiveSession(c)

	var req model.IntentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	in, err := decodeIntent(&req)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidIntent, map[string]string{"detail": err.Error()})
		return
	}

	st, err := h.sessionService.Dispatch(c.Request.Context(), live.ID, claims.UserID, in)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, h.view(live, h.sessionService.Renderer().Render(st)))
}

// EndSession godoc
// DELETE /api/v1/learner/sessions/:session_id
// Closes a live session. An attempt still in progress is recorded as abandoned.
func (h *SessionHandler) EndSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	live := middleware.GetLiveSession(c)

	if err := h.sessionService.End(live.ID, claims.UserID); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Session closed"})
}

// ListAttempts godoc
// GET /api/v1/learner/attempts
// Returns the learner's past attempts, newest first.
func (h *SessionHandler) ListAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attempts, err := h.attemptService.ListByLearner(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// GetAttempt godoc
// GET /api/v1/learner/attempts/:attempt_id
// Returns one attempt with its grading record.
func (h *SessionHandler) GetAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.GetForLearner(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}
