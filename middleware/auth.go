package middleware

import (
	"net/http"
	"storefront/models"

	"github.com/gin-gonic/gin"
)

// RequireCredential rejects requests whose session holds no store API token.
func RequireCredential() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Success: false,
				Message: "Session required",
			})
			c.Abort()
			return
		}

		if !sess.Credential.IsLoggedIn(c.Request.Context()) {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Success: false,
				Message: "Login required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
