package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/triggah61/acent-messenger-backend/internal/database"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/services"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const twoFactorTokenTTL = 10 * time.Minute

var errInvalidCredentials = apperrors.Validation("Invalid email or password", nil)

func validatePasswordStrength(password string) error {
	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	if len(password) < 8 || !hasUpper || !hasLower || !hasNumber || !hasSpecial {
		return apperrors.Validation("Validation failed", map[string]string{
			"password": "password must be at least 8 characters long and contain an uppercase letter, a lowercase letter, a number and a special character",
		})
	}
	return nil
}

func sessionPayload(user *models.User) (gin.H, error) {
	token, err := utils.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	return gin.H{"token": token, "hasDashboardAccess": user.HasDashboardAccess(), "user": user}, nil
}

// --- Login ---

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest POST /api/auth/loginRequest
func (h *Handler) LoginRequest(c *gin.Context) {
	var input loginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}

	var user models.User
	err := h.db.WithContext(c.Request.Context()).Scopes(models.NotDeleted).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, errInvalidCredentials)
			return
		}
		fail(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
		fail(c, errInvalidCredentials)
		return
	}

	switch user.Status {
	case models.UserBlocked:
		fail(c, apperrors.Forbidden("Your account has been blocked"))
		return
	case models.UserPending:
		fail(c, apperrors.Forbidden("Your account is not activated"))
		return
	}

	if user.TwoFactorEnabled() {
		token, err := utils.GeneratePurposeToken(user.ID, utils.PurposeTwoFactor, twoFactorTokenTTL)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, "Authenticator code required", gin.H{"status": "otp_required", "token": token})
		return
	}

	payload, err := sessionPayload(&user)
	if err != nil {
		fail(c, err)
		return
	}
	logger.Info().Str("user_id", user.ID).Msg("User logged in")
	ok(c, "Login successful", payload)
}

type loginVerifyRequest struct {
	Token string `json:"token" binding:"required"`
	Otp   string `json:"otp" binding:"required"`
}

// LoginVerify POST /api/auth/login/verify completes a login gated by the
// authenticator app.
func (h *Handler) LoginVerify(c *gin.Context) {
	var input loginVerifyRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}

	claims, err := utils.ValidateToken(input.Token)
	if err != nil || claims.Purpose != utils.PurposeTwoFactor {
		fail(c, apperrors.Unauthorized("Invalid or expired token"))
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Scopes(models.NotDeleted).
		First(&user, "id = ?", claims.UserID).Error; err != nil {
		fail(c, apperrors.Unauthorized("Invalid or expired token"))
		return
	}
	if user.Status == models.UserBlocked {
		fail(c, apperrors.Forbidden("Your account has been blocked"))
		return
	}
	if !services.ValidateTOTP(input.Otp, user.GoogleAuthSeed) {
		fail(c, apperrors.Conflict("Invalid OTP"))
		return
	}

	payload, err := sessionPayload(&user)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Login successful", payload)
}

// --- Registration ---

type registerRequest struct {
	FirstName string            `json:"firstName" binding:"required,max=100"`
	LastName  string            `json:"lastName" binding:"max=100"`
	Email     string            `json:"email" binding:"omitempty,email"`
	DialCode  string            `json:"dialCode"`
	Phone     string            `json:"phone"`
	Password  string            `json:"password" binding:"required"`
	Via       models.OtpChannel `json:"via" binding:"required,oneof=email phone"`
}

// registration is what a USER_REGISTER trace carries until the code is
// confirmed. Password is already hashed.
type registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	DialCode  string `json:"dialCode,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
}

// checkIdentityFree rejects an email or phone already held by a live
// account. Pending leftovers from abandoned sign-ups are discarded.
func (h *Handler) checkIdentityFree(c *gin.Context, email, dialCode, phone string) error {
	db := h.db.WithContext(c.Request.Context())
	fields := map[string]string{}

	if email != "" {
		var count int64
		if err := db.Model(&models.User{}).Scopes(models.NotDeleted).
			Where("LOWER(email) = ? AND status <> ?", email, models.UserPending).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			fields["email"] = "email is already registered"
		}
	}
	if phone != "" {
		var count int64
		if err := db.Model(&models.User{}).Scopes(models.NotDeleted).
			Where("dial_code = ? AND phone = ? AND status <> ?", dialCode, phone, models.UserPending).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			fields["phone"] = "phone is already registered"
		}
	}
	if len(fields) > 0 {
		return apperrors.Validation("Account already exists", fields)
	}

	stale := db.Where("status = ?", models.UserPending)
	switch {
	case email != "" && phone != "":
		stale = stale.Where("LOWER(email) = ? OR (dial_code = ? AND phone = ?)", email, dialCode, phone)
	case email != "":
		stale = stale.Where("LOWER(email) = ?", email)
	default:
		stale = stale.Where("dial_code = ? AND phone = ?", dialCode, phone)
	}
	return stale.Delete(&models.User{}).Error
}

// RegisterRequest POST /api/auth/registerRequest
func (h *Handler) RegisterRequest(c *gin.Context) {
	var input registerRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}
	if err := validatePasswordStrength(input.Password); err != nil {
		fail(c, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	dialCode := utils.NormalizeDialCode(input.DialCode)
	phone := strings.TrimSpace(input.Phone)
	switch {
	case input.Via == models.OtpViaEmail && email == "":
		fail(c, apperrors.Validation("Validation failed", map[string]string{"email": "email is required"}))
		return
	case input.Via == models.OtpViaPhone && (phone == "" || dialCode == ""):
		fail(c, apperrors.Validation("Validation failed", map[string]string{"phone": "phone and dialCode are required"}))
		return
	}
	if phone != "" && (!utils.ValidPhone(phone) || !utils.ValidDialCode(dialCode)) {
		fail(c, apperrors.Validation("Validation failed", map[string]string{"phone": "phone must be a valid number"}))
		return
	}

	if err := h.checkIdentityFree(c, email, dialCode, phone); err != nil {
		fail(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to hash password")
		fail(c, err)
		return
	}

	trace, err := h.svc.Otps.Issue(c.Request.Context(), services.OtpRequest{
		Criteria: models.OtpUserRegister,
		Via:      input.Via,
		Email:    email,
		Phone:    dialCode + phone,
		Name:     input.FirstName,
		Data: registration{
			FirstName: utils.StripHTML(input.FirstName),
			LastName:  utils.StripHTML(input.LastName),
			Email:     email,
			DialCode:  dialCode,
			Phone:     phone,
			Password:  string(hash),
		},
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, fmt.Sprintf("OTP sent to your %s", input.Via), gin.H{"traceId": trace.TraceID})
}

// VerifyRegistration POST /api/auth/verifyRegistration, behind OtpVerified.
func (h *Handler) VerifyRegistration(c *gin.Context) {
	trace := middleware.Trace(c)
	if trace == nil || trace.Criteria != models.OtpUserRegister {
		fail(c, services.ErrInvalidTrace)
		return
	}

	var reg registration
	if err := services.DecodeData(trace, &reg); err != nil {
		fail(c, err)
		return
	}
	if err := h.checkIdentityFree(c, reg.Email, reg.DialCode, reg.Phone); err != nil {
		fail(c, err)
		return
	}

	user := models.User{
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Email:     reg.Email,
		DialCode:  reg.DialCode,
		Phone:     reg.Phone,
		Password:  reg.Password,
		Username:  utils.GenerateUsername(reg.FirstName+" "+reg.LastName, reg.Email),
		RoleType:  models.RoleTypeUser,
		Status:    models.UserActivated,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			fail(c, apperrors.Validation("Account already exists", nil))
			return
		}
		fail(c, err)
		return
	}

	payload, err := sessionPayload(&user)
	if err != nil {
		fail(c, err)
		return
	}
	logger.Info().Str("user_id", user.ID).Msg("User registered")
	respond(c, http.StatusCreated, "Registration successful", payload)
}

type resendRequest struct {
	TraceID string `json:"traceId" binding:"required"`
}

// ResendOTP POST /api/auth/resendOTP
func (h *Handler) ResendOTP(c *gin.Context) {
	var input resendRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}

	trace, sent, err := h.svc.Otps.Resend(c.Request.Context(), input.TraceID)
	if err != nil {
		fail(c, err)
		return
	}
	if !sent {
		ok(c, fmt.Sprintf("OTP already %s", trace.Status), gin.H{"traceId": trace.TraceID})
		return
	}
	ok(c, "OTP resent successfully", gin.H{"traceId": trace.TraceID})
}

// --- Password reset ---

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword POST /api/auth/forgotPassword
func (h *Handler) ForgotPassword(c *gin.Context) {
	var input forgotPasswordRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}

	var user models.User
	err := h.db.WithContext(c.Request.Context()).Scopes(models.NotDeleted).
		Where("LOWER(email) = ? AND status = ?", strings.ToLower(input.Email), models.UserActivated).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, apperrors.NotFound("No account found with this email"))
			return
		}
		fail(c, err)
		return
	}

	trace, err := h.svc.Otps.Issue(c.Request.Context(), services.OtpRequest{
		UserID:   &user.ID,
		Criteria: models.OtpUserResetPassword,
		Via:      models.OtpViaEmail,
		Email:    user.Email,
		Name:     user.FirstName,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "OTP sent to your email", gin.H{"traceId": trace.TraceID})
}

type resetPasswordRequest struct {
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

// ResetPassword POST /api/auth/resetPassword, behind OtpVerified.
func (h *Handler) ResetPassword(c *gin.Context) {
	trace := middleware.Trace(c)
	if trace == nil || trace.Criteria != models.OtpUserResetPassword || trace.UserID == nil {
		fail(c, services.ErrInvalidTrace)
		return
	}

	var input resetPasswordRequest
	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		bindFailed(c, err)
		return
	}
	if err := validatePasswordStrength(input.Password); err != nil {
		fail(c, err)
		return
	}

	user, err := h.setPassword(c, *trace.UserID, input.Password)
	if err != nil {
		fail(c, err)
		return
	}
	h.svc.Events.PasswordChanged(c.Request.Context(), user)
	ok(c, "Password reset successfully", nil)
}

func (h *Handler) setPassword(c *gin.Context, userID, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	var user models.User
	db := h.db.WithContext(c.Request.Context())
	if err := db.Scopes(models.NotDeleted).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, err
	}
	if err := db.Model(&user).Update("password", string(hash)).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout POST /api/auth/logout revokes the presented token until it expires.
func (h *Handler) Logout(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims != nil {
		ttl := time.Until(claims.GetExpiresAtTime())
		if ttl > 0 {
			if err := database.BlacklistToken(c.Request.Context(), claims.GetJTI(), ttl); err != nil {
				logger.Warn().Err(err).Msg("Failed to blacklist token")
			}
		}
	}
	ok(c, "Logged out successfully", nil)
}
