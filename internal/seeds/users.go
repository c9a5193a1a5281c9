package seeds

import (
	"context"
	"errors"
	"fmt"

	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Admin describes the bootstrap super admin account.
type Admin struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Roles creates the built-in admin role with every permission and a
// read-only support role. Existing roles keep their permissions.
func Roles(ctx context.Context, db *gorm.DB) (map[string]*models.Role, error) {
	wanted := []models.Role{
		{Name: "admin", Permissions: models.Permissions(models.AllPermissions)},
		{Name: "support", Permissions: models.Permissions{models.PermUserRead, models.PermDashboard}},
	}

	out := make(map[string]*models.Role, len(wanted))
	for i := range wanted {
		role := wanted[i]
		err := db.WithContext(ctx).Where("name = ?", role.Name).
			Attrs(models.Role{Permissions: role.Permissions}).
			FirstOrCreate(&role).Error
		if err != nil {
			return nil, fmt.Errorf("seed role %s: %w", role.Name, err)
		}
		out[role.Name] = &role
	}
	return out, nil
}

// SuperAdmin creates the super admin if no account uses its email yet.
func SuperAdmin(ctx context.Context, db *gorm.DB, a Admin) (*models.User, error) {
	if a.Email == "" || a.Password == "" {
		return nil, errors.New("super admin email and password are required")
	}

	var existing models.User
	err := db.WithContext(ctx).Scopes(models.NotDeleted).Where("LOWER(email) = LOWER(?)", a.Email).First(&existing).Error
	if err == nil {
		logger.Info().Str("email", existing.Email).Msg("Super admin already present")
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := models.User{
		FirstName:           a.FirstName,
		LastName:            a.LastName,
		Email:               a.Email,
		Password:            string(hash),
		RoleType:            models.RoleTypeSuperAdmin,
		Status:              models.UserActivated,
		GoogleAuthenticator: models.TwoFactorUnset,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	logger.Info().Str("email", user.Email).Msg("Super admin created")
	return &user, nil
}

// Promote turns an existing account into an admin bound to role.
func Promote(ctx context.Context, db *gorm.DB, email string, role *models.Role) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).Scopes(models.NotDeleted).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, fmt.Errorf("user %s: %w", email, err)
	}
	if user.RoleType == models.RoleTypeSuperAdmin {
		return &user, nil
	}
	err := db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"role_type": models.RoleTypeAdmin,
		"role_id":   role.ID,
	}).Error
	if err != nil {
		return nil, err
	}
	user.RoleType = models.RoleTypeAdmin
	user.RoleID = &role.ID
	return &user, nil
}
