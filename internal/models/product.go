package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryStatus string

const (
	CategoryActive  CategoryStatus = "active"
	CategoryDeleted CategoryStatus = "deleted"
)

type Category struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	Name      string         `gorm:"type:varchar(150);uniqueIndex" json:"name"`
	Status    CategoryStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// Product is a physical item identified by a printed QR code. Redeeming it
// moves it to expired and records the redeemer.
type Product struct {
	ID         string        `gorm:"primaryKey;type:text" json:"id"`
	CategoryID *string       `gorm:"type:text;index" json:"categoryId,omitempty"`
	Name       string        `json:"name"`
	Series     string        `json:"series"`
	Photo      string        `json:"photo"`
	Code       string        `gorm:"type:varchar(40);uniqueIndex;not null" json:"code"`
	Status     ProductStatus `gorm:"type:varchar(20);default:'active';index" json:"status"`
	UserID     *string       `gorm:"type:text;index" json:"userId,omitempty"`
	RedeemedAt *time.Time    `json:"redeemedAt,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = ProductActive
	}
	return nil
}
