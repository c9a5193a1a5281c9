package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// audit records a dashboard action. Changes a user makes to their own
// account are not audited.
func (h *Handler) audit(c *gin.Context, action models.ActionType, targetID, targetType, reason string) {
	caller := middleware.CurrentUser(c)
	if caller == nil || (targetType == "user" && targetID == caller.ID) {
		return
	}
	entry := models.AdminAction{
		AdminID:    caller.ID,
		Action:     action,
		TargetID:   targetID,
		TargetType: targetType,
		Reason:     reason,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&entry).Error; err != nil {
		logger.Error().Err(err).Str("action", string(action)).Msg("Failed to write audit entry")
	}
}

var userSortColumns = map[string]string{
	"createdAt": "created_at",
	"firstName": "first_name",
	"lastName":  "last_name",
	"email":     "email",
	"status":    "status",
}

type createUserRequest struct {
	FirstName string            `json:"firstName" binding:"required,max=100"`
	LastName  string            `json:"lastName" binding:"max=100"`
	Email     string            `json:"email" binding:"required,email"`
	DialCode  string            `json:"dialCode"`
	Phone     string            `json:"phone"`
	Password  string            `json:"password" binding:"required"`
	RoleType  models.RoleType   `json:"roleType" binding:"omitempty,oneof=admin user"`
	RoleID    *string           `json:"roleId"`
	Status    models.UserStatus `json:"status" binding:"omitempty,oneof=pending activated blocked"`
}

func (h *Handler) loadUser(c *gin.Context, id string) (*models.User, error) {
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Preload("Role").Scopes(models.NotDeleted).
		First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, err
	}
	return &user, nil
}

func (h *Handler) checkRole(c *gin.Context, roleID *string) error {
	if roleID == nil || *roleID == "" {
		return nil
	}
	var count int64
	if err := h.db.WithContext(c.Request.Context()).Model(&models.Role{}).Where("id = ?", *roleID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.Validation("Validation failed", map[string]string{"roleId": "roleId does not exist"})
	}
	return nil
}

// CreateUser POST /api/users
func (h *Handler) CreateUser(c *gin.Context) {
	var input createUserRequest
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
	if err := h.checkIdentityFree(c, email, dialCode, strings.TrimSpace(input.Phone)); err != nil {
		fail(c, err)
		return
	}
	if err := h.checkRole(c, input.RoleID); err != nil {
		fail(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, err)
		return
	}
	if input.Status == "" {
		input.Status = models.UserActivated
	}

	user := models.User{
		FirstName: utils.StripHTML(input.FirstName),
		LastName:  utils.StripHTML(input.LastName),
		Email:     email,
		DialCode:  dialCode,
		Phone:     strings.TrimSpace(input.Phone),
		Password:  string(hash),
		Username:  utils.GenerateUsername(input.FirstName+" "+input.LastName, email),
		RoleType:  input.RoleType,
		RoleID:    input.RoleID,
		Status:    input.Status,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		fail(c, err)
		return
	}

	h.audit(c, models.ActionCreateUser, user.ID, "user", "")
	respond(c, http.StatusCreated, "User created successfully", user)
}

// ListUsers GET /api/users
func (h *Handler) ListUsers(c *gin.Context) {
	q := pageQuery(c)
	query := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Scopes(models.NotDeleted)

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := utils.SanitizeSearchQuery(search)
		query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like, like)
	}
	if status := models.UserStatus(c.Query("status")); status != "" {
		if !status.Valid() || status == models.UserDeleted {
			fail(c, apperrors.Validation("Invalid status filter", nil))
			return
		}
		query = query.Where("status = ?", status)
	}
	if roleType := c.Query("roleType"); roleType != "" {
		query = query.Where("role_type = ?", roleType)
	}
	if from, err := parseDate(c.Query("fromDate")); err != nil {
		fail(c, err)
		return
	} else if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	if to, err := parseDate(c.Query("toDate")); err != nil {
		fail(c, err)
		return
	} else if !to.IsZero() {
		query = query.Where("created_at < ?", to.AddDate(0, 0, 1))
	}

	column, found := userSortColumns[c.DefaultQuery("sortBy", "createdAt")]
	if !found {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(c.Query("sortOrder"), "asc") {
		direction = "ASC"
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		fail(c, err)
		return
	}
	var users []models.User
	if err := query.Preload("Role").Order(fmt.Sprintf("%s %s", column, direction)).
		Offset(q.Offset()).Limit(q.Limit).Find(&users).Error; err != nil {
		fail(c, err)
		return
	}
	ok(c, "Users fetched", utils.NewPage(users, total, q))
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, apperrors.Validation("Dates must use YYYY-MM-DD", nil)
	}
	return t, nil
}

// GetUser GET /api/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.loadUser(c, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "User fetched", user)
}

type updateUserRequest struct {
	FirstName *string            `json:"firstName" binding:"omitempty,max=100"`
	LastName  *string            `json:"lastName" binding:"omitempty,max=100"`
	DialCode  *string            `json:"dialCode"`
	Phone     *string            `json:"phone"`
	RoleType  *models.RoleType   `json:"roleType" binding:"omitempty,oneof=admin user"`
	RoleID    *string            `json:"roleId"`
	Status    *models.UserStatus `json:"status" binding:"omitempty,oneof=pending activated blocked"`
}

// UpdateUser PATCH /api/users/:id
func (h *Handler) UpdateUser(c *gin.Context) {
	var input updateUserRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}

	user, err := h.loadUser(c, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	caller := middleware.CurrentUser(c)
	if user.RoleType == models.RoleTypeSuperAdmin && caller.RoleType != models.RoleTypeSuperAdmin {
		fail(c, apperrors.Forbidden("Cannot modify a super admin"))
		return
	}

	updates := map[string]interface{}{}
	if input.FirstName != nil {
		updates["first_name"] = utils.StripHTML(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = utils.StripHTML(*input.LastName)
	}
	if input.DialCode != nil {
		updates["dial_code"] = utils.NormalizeDialCode(*input.DialCode)
	}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}
	if input.RoleType != nil {
		if user.ID == caller.ID {
			fail(c, apperrors.Forbidden("You cannot change your own role"))
			return
		}
		updates["role_type"] = *input.RoleType
	}
	if input.RoleID != nil {
		if err := h.checkRole(c, input.RoleID); err != nil {
			fail(c, err)
			return
		}
		updates["role_id"] = input.RoleID
	}

	action := models.ActionUpdateUser
	if input.Status != nil && *input.Status != user.Status {
		if user.ID == caller.ID {
			fail(c, apperrors.Forbidden("You cannot change your own status"))
			return
		}
		if err := models.CheckTransition("user", user.Status, *input.Status); err != nil {
			fail(c, err)
			return
		}
		updates["status"] = *input.Status
		if *input.Status == models.UserBlocked {
			action = models.ActionBlockUser
		}
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(c.Request.Context()).Model(user).Updates(updates).Error; err != nil {
			fail(c, err)
			return
		}
		h.audit(c, action, user.ID, "user", "")
	}

	user, err = h.loadUser(c, user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "User updated successfully", user)
}

// DeleteUser DELETE /api/users/:id soft deletes the account.
func (h *Handler) DeleteUser(c *gin.Context) {
	user, err := h.loadUser(c, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	caller := middleware.CurrentUser(c)
	if user.ID == caller.ID {
		fail(c, apperrors.BadRequest("You cannot delete your own account"))
		return
	}
	if user.RoleType == models.RoleTypeSuperAdmin {
		fail(c, apperrors.Forbidden("Cannot delete a super admin"))
		return
	}
	if err := models.CheckTransition("user", user.Status, models.UserDeleted); err != nil {
		fail(c, err)
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ? AND status = ?", user.ID, user.Status).
		Updates(map[string]interface{}{"status": models.UserDeleted, "is_online": false})
	if res.Error != nil {
		fail(c, res.Error)
		return
	}
	if res.RowsAffected != 1 {
		fail(c, apperrors.Conflict("User was modified concurrently, retry"))
		return
	}

	h.audit(c, models.ActionDeleteUser, user.ID, "user", c.Query("reason"))
	ok(c, "User deleted successfully", gin.H{"id": user.ID})
}
