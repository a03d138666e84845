package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/seasense/internal/auth"
)

// AuthHandler exchanges operator credentials for session tokens.
type AuthHandler struct {
	creds  auth.Credentials
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(creds auth.Credentials, tokens *auth.TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{creds: creds, tokens: tokens, logger: logger}
}

// Register mounts the auth routes. They sit outside the authenticated group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/token", h.Token)
}

// Token handles POST /auth/token with HTTP Basic credentials.
func (h *AuthHandler) Token(c *gin.Context) {
	if !h.creds.Enabled() || h.tokens == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "authentication is not configured"})
		return
	}

	user, pass, ok := c.Request.BasicAuth()
	if !ok {
		c.Header("WWW-Authenticate", `Basic realm="seasense"`)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "basic credentials required"})
		return
	}
	if err := h.creds.Check(user, pass); err != nil {
		h.logger.Warn("token exchange rejected", zap.String("username", user), zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	tok, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      tok,
		"token_type": "Bearer",
		"expires_in": int(h.tokens.TTL().Seconds()),
	})
}
