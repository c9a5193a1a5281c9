package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SettingMaintenanceMode  = "maintenanceMode"
	SettingRegistrationOpen = "registrationOpen"
)

// Setting is a named JSON value exposed through the config endpoints.
type Setting struct {
	ID        string         `gorm:"primaryKey;type:text" json:"-"`
	Name      string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (s *Setting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
