package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	PermUserCreate = "user.create"
	PermUserRead   = "user.read"
	PermUserUpdate = "user.update"
	PermUserDelete = "user.delete"
	PermConfig     = "config.update"
	PermDashboard  = "dashboard.read"
)

// AllPermissions is what the seeded admin role receives.
var AllPermissions = []string{
	PermUserCreate, PermUserRead, PermUserUpdate, PermUserDelete, PermConfig, PermDashboard,
}

// Permissions is stored as a native text array on Postgres and as the same
// array literal in a TEXT column elsewhere.
type Permissions pq.StringArray

func (p Permissions) Value() (driver.Value, error) {
	return pq.StringArray(p).Value()
}

func (p *Permissions) Scan(src interface{}) error {
	return (*pq.StringArray)(p).Scan(src)
}

// GormDataType is what the schema parser sees before the dialect refines
// it through GormDBDataType.
func (Permissions) GormDataType() string {
	return "text"
}

func (Permissions) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

type Role struct {
	ID          string      `gorm:"primaryKey;type:text" json:"id"`
	Name        string      `gorm:"type:varchar(100);uniqueIndex" json:"name"`
	Permissions Permissions `json:"permissions"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func (r *Role) Has(permission string) bool {
	for _, p := range r.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
