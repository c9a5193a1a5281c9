package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoleType string

const (
	RoleTypeSuperAdmin RoleType = "superAdmin"
	RoleTypeAdmin      RoleType = "admin"
	RoleTypeUser       RoleType = "user"
)

// TwoFactorState mirrors the authenticator toggle. unset means no secret
// has been generated yet.
type TwoFactorState string

const (
	TwoFactorUnset TwoFactorState = "unset"
	TwoFactorOn    TwoFactorState = "on"
	TwoFactorOff   TwoFactorState = "off"
)

type User struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	FirstName string `gorm:"type:varchar(100)" json:"firstName"`
	LastName  string `gorm:"type:varchar(100)" json:"lastName"`
	Username  string `gorm:"type:varchar(100);index" json:"username,omitempty"`
	Email     string `gorm:"type:varchar(255);index" json:"email,omitempty"`
	DialCode  string `gorm:"type:varchar(8)" json:"dialCode,omitempty"`
	Phone     string `gorm:"type:varchar(20);index" json:"phone,omitempty"`
	Photo     string `json:"photo,omitempty"`
	Password  string `json:"-"`

	RoleType RoleType `gorm:"type:varchar(20);default:'user';index" json:"roleType"`
	RoleID   *string  `gorm:"type:text;index" json:"roleId,omitempty"`
	Role     *Role    `gorm:"foreignKey:RoleID" json:"role,omitempty"`

	Status UserStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	GoogleAuthenticator TwoFactorState `gorm:"type:varchar(10);default:'unset'" json:"googleAuthenticator"`
	GoogleAuthSeed      string         `json:"-"`

	IsOnline bool       `gorm:"default:false" json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Status == "" {
		u.Status = UserPending
	}
	if u.RoleType == "" {
		u.RoleType = RoleTypeUser
	}
	if u.GoogleAuthenticator == "" {
		u.GoogleAuthenticator = TwoFactorUnset
	}
	return nil
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasDashboardAccess is true for admin and superAdmin accounts.
func (u *User) HasDashboardAccess() bool {
	return u.RoleType == RoleTypeAdmin || u.RoleType == RoleTypeSuperAdmin
}

func (u *User) TwoFactorEnabled() bool {
	return u.GoogleAuthenticator == TwoFactorOn
}

// Can reports whether the user holds permission through their role.
// superAdmin holds everything.
func (u *User) Can(permission string) bool {
	if u.RoleType == RoleTypeSuperAdmin {
		return true
	}
	return u.Role != nil && u.Role.Has(permission)
}

// PhoneWithDialCode joins dial code and number the way SMS gateways expect.
func (u *User) PhoneWithDialCode() string {
	if u.Phone == "" {
		return ""
	}
	return u.DialCode + u.Phone
}

// NotDeleted scopes a query to users that have not been soft deleted.
func NotDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("users.status <> ?", UserDeleted)
}

// UserSummaryColumns are the public columns loaded for embedded users.
var UserSummaryColumns = []string{"id", "first_name", "last_name", "username", "photo", "dial_code", "phone", "status", "is_online", "last_seen"}

// SelectUserSummary is a preload callback limiting a user relation to
// UserSummaryColumns.
func SelectUserSummary(db *gorm.DB) *gorm.DB {
	return db.Select(UserSummaryColumns)
}
