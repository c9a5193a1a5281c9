package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
)

func RegisterAuthRoutes(r *gin.RouterGroup, d deps) {
	r.Use(middleware.RateLimitMiddleware(d.limiters.Auth))
	otp := middleware.RateLimitMiddleware(d.limiters.OTP)

	r.POST("/loginRequest", d.h.LoginRequest)
	r.POST("/login/verify", d.h.LoginVerify)

	r.POST("/registerRequest", middleware.RequireRegistrationOpen(d.svc.Settings), otp, d.h.RegisterRequest)
	r.POST("/verifyRegistration", middleware.OtpVerified(d.svc.Otps), d.h.VerifyRegistration)
	r.POST("/resendOTP", otp, d.h.ResendOTP)

	// Password Reset
	r.POST("/forgotPassword", otp, d.h.ForgotPassword)
	r.POST("/resetPassword", middleware.OtpVerified(d.svc.Otps), d.h.ResetPassword)

	r.POST("/logout", d.auth, d.h.Logout)

	// OAuth
	r.GET("/google/login", d.h.GoogleLogin)
	r.GET("/google/callback", d.h.GoogleCallback)
	r.GET("/github/login", d.h.GithubLogin)
	r.GET("/github/callback", d.h.GithubCallback)
}
