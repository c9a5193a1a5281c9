package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OtpCriteria string

const (
	OtpUserRegister      OtpCriteria = "USER_REGISTER"
	OtpUserLogin         OtpCriteria = "USER_LOGIN"
	OtpUserResetPassword OtpCriteria = "USER_RESET_PASSWORD"
	OtpChangePassword    OtpCriteria = "CHANGE_PASSWORD"
)

type OtpChannel string

const (
	OtpViaEmail OtpChannel = "email"
	OtpViaPhone OtpChannel = "phone"
)

// OtpVerification is a one-time code addressed by TraceID. Data carries
// whatever the flow needs once the code checks out.
type OtpVerification struct {
	ID                string         `gorm:"primaryKey;type:text" json:"id"`
	TraceID           string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"traceId"`
	UserID            *string        `gorm:"type:text;index" json:"userId,omitempty"`
	Criteria          OtpCriteria    `gorm:"type:varchar(40);not null" json:"criteria"`
	Via               OtpChannel     `gorm:"type:varchar(10);not null" json:"via"`
	Email             string         `json:"email,omitempty"`
	PhoneWithDialCode string         `json:"phoneWithDialCode,omitempty"`
	Code              string         `gorm:"type:varchar(10);not null" json:"-"`
	Data              datatypes.JSON `json:"-"`
	Status            OtpStatus      `gorm:"type:varchar(20);default:'pending';index:idx_otp_status_expire" json:"status"`
	ExpireAt          time.Time      `gorm:"index:idx_otp_status_expire" json:"expireAt"`
	ResendCount       int            `gorm:"default:0" json:"-"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

func (o *OtpVerification) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.TraceID == "" {
		o.TraceID = uuid.New().String()
	}
	if o.Status == "" {
		o.Status = OtpPending
	}
	return nil
}

// Destination is the address the code is delivered to.
func (o *OtpVerification) Destination() string {
	if o.Via == OtpViaPhone {
		return o.PhoneWithDialCode
	}
	return o.Email
}

func (o *OtpVerification) IsExpired(now time.Time) bool {
	return !o.ExpireAt.IsZero() && now.After(o.ExpireAt)
}
