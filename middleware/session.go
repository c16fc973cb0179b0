package middleware

import (
	"net/http"
	"storefront/models"
	"storefront/services"
	"storefront/utils"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SessionCookie = "storefront_session"
	SessionHeader = "X-Session-Token"

	sessionKey = "session"
)

type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Secure bool
}

// SessionMiddleware resolves the caller's session from the signed session
// token, issuing a fresh one when it is missing or invalid. The token is
// re-issued on every response so idle expiry slides forward.
func SessionMiddleware(registry *services.SessionRegistry, cfg SessionConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := ""
		if raw := sessionToken(c); raw != "" {
			claims, err := utils.ValidateSessionToken(cfg.Secret, raw)
			if err != nil {
				logger.Debug("rejected session token", zap.Error(err))
			} else {
				sessionID = claims.SessionID
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		token, err := utils.GenerateSessionToken(cfg.Secret, sessionID, cfg.TTL)
		if err != nil {
			logger.Error("failed to sign session token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
				Success: false,
				Message: "Failed to start session",
			})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, token, int(cfg.TTL.Seconds()), "/", "", cfg.Secure, true)
		c.Header(SessionHeader, token)

		c.Set(sessionKey, registry.Get(c.Request.Context(), sessionID))
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if header := c.GetHeader(SessionHeader); header != "" {
		return header
	}
	cookie, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie
}

// CurrentSession returns the session attached by SessionMiddleware.
func CurrentSession(c *gin.Context) *services.Session {
	value, exists := c.Get(sessionKey)
	if !exists {
		return nil
	}
	sess, _ := value.(*services.Session)
	return sess
}
