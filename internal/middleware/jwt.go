package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-selftest/internal/response"
	"github.com/stemsi/exstem-selftest/internal/service"
)

// ContextKeyClaims is the Gin context key for JWT claims.
const ContextKeyClaims = "claims"

// tokenSource extracts the raw token from a request, "" when absent.
type tokenSource func(c *gin.Context) string

// RequireLearnerJWT admits learner tokens sent as a Bearer header, or as
// ?token= for EventSource clients that cannot set headers.
func RequireLearnerJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, bearerOrQuery, service.TokenTypeLearner, response.ErrLearnerAccessOnly)
}

// RequireAdminJWT admits admin tokens, read like RequireLearnerJWT.
func RequireAdminJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, bearerOrQuery, service.TokenTypeAdmin, response.ErrAdminAccessOnly)
}

// RequireLearnerWSAuth admits learner tokens from ?token= only. Browsers
// cannot attach headers to a WebSocket upgrade.
func RequireLearnerWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, queryToken, service.TokenTypeLearner, response.ErrLearnerAccessOnly)
}

// GetClaims returns the claims stored by the JWT guards, nil when absent.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, _ := val.(*service.Claims)
	return claims
}

func requireToken(authService *service.AuthService, source tokenSource, want service.TokenType, denied response.ErrCode) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := source(c)
		if raw == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := authService.ValidateToken(raw)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}
		if claims.TokenType != want {
			response.AbortFail(c, http.StatusForbidden, denied)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

func bearerOrQuery(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "bearer") && token != "" {
		return strings.TrimSpace(token)
	}
	return queryToken(c)
}

func queryToken(c *gin.Context) string {
	return c.Query("token")
}
