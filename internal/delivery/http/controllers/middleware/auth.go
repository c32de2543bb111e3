package middleware

import (
	"CourseVault/internal/app_errors"
	"CourseVault/internal/service/auth"
	"CourseVault/pkg/logger"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type EditorTokenProvider struct {
	log    logger.Log
	tokens *auth.TokenManager
}

func NewEditorTokenProvider(log logger.Log, tokens *auth.TokenManager) *EditorTokenProvider {
	return &EditorTokenProvider{
		log:    log,
		tokens: tokens,
	}
}

// EditorMiddleware is a pure capability check: a valid bearer token names the
// acting editor, anything else is denied.
func (h *EditorTokenProvider) EditorMiddleware(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	var token string
	if parts := strings.Split(authHeader, "Bearer "); len(parts) == 2 {
		token = parts[1]
	}
	if token == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.EditorClaims(token)
	if err != nil {
		if errors.Is(err, app_errors.ErrTokenExpired) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": app_errors.ErrTokenExpired.Error()})
			return
		}
		h.log.Info("failed to parse editor token", "error", err.Error())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "cant parse token"})
		return
	}

	c.Set(ActorIDCtx, claims.ActorID)
	c.Next()
}
