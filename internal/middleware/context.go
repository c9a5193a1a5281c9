package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
)

// Context keys set by the middleware in this package.
const (
	KeyUserID = "userId"
	KeyUser   = "user"
	KeyClaims = "claims"
	KeyTrace  = "trace"
)

func CurrentUserID(c *gin.Context) string {
	return c.GetString(KeyUserID)
}

func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(KeyUser); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

func CurrentClaims(c *gin.Context) *utils.Claims {
	if v, ok := c.Get(KeyClaims); ok {
		if cl, ok := v.(*utils.Claims); ok {
			return cl
		}
	}
	return nil
}

// Trace returns the OTP trace verified by OtpVerified.
func Trace(c *gin.Context) *models.OtpVerification {
	if v, ok := c.Get(KeyTrace); ok {
		if t, ok := v.(*models.OtpVerification); ok {
			return t
		}
	}
	return nil
}
