package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/triggah61/acent-messenger-backend/internal/services"
	"github.com/triggah61/acent-messenger-backend/pkg/errors"
)

type otpBody struct {
	TraceID string `json:"traceId" binding:"required"`
	Code    string `json:"code" binding:"required"`
}

// OtpVerified consumes the {traceId, code} pair in the JSON body and stores
// the verified trace under "trace". Handlers behind it must read the body
// with ShouldBindBodyWith.
func OtpVerified(otps *services.OtpService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body otpBody
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			abortWith(c, errors.FromBinding(err))
			return
		}

		trace, err := otps.Consume(c.Request.Context(), body.TraceID, body.Code)
		if err != nil {
			if appErr, ok := errors.As(err); ok {
				abortWith(c, appErr)
				return
			}
			c.Error(err)
			c.Abort()
			return
		}

		c.Set(KeyTrace, trace)
		c.Next()
	}
}
