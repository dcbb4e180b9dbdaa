package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-selftest/internal/response"
	"github.com/stemsi/exstem-selftest/internal/service"
)

// ContextKeySession is the Gin context key for the resolved live session.
const ContextKeySession = "live_session"

// RequireSessionOwner resolves :session_id to a live session owned by the
// learner in the JWT claims.
func RequireSessionOwner(sessionService *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		id, err := uuid.Parse(c.Param("session_id"))
		if err != nil {
			response.AbortFail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}

		live, err := sessionService.Get(id, claims.UserID)
		switch {
		case errors.Is(err, service.ErrNotSessionOwner):
			response.AbortFail(c, http.StatusForbidden, response.ErrNotSessionOwner)
			return
		case err != nil:
			response.AbortFail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}

		c.Set(ContextKeySession, live)
		c.Next()
	}
}

// GetLiveSession retrieves the session resolved by RequireSessionOwner.
func GetLiveSession(c *gin.Context) *service.LiveSession {
	val, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	live, _ := val.(*service.LiveSession)
	return live
}
