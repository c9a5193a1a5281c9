package services

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/internal/database"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidTrace = apperrors.Validation("Invalid trace id provided", nil)
	ErrInvalidCode  = apperrors.Validation("Invalid verification code provided!", nil)
)

func errTraceStatus(status models.OtpStatus) *apperrors.AppError {
	return apperrors.Validation(fmt.Sprintf("This trace is already %s", status), nil)
}

// OtpRequest describes a code to issue. Exactly one of Email or Phone is
// used depending on Via.
type OtpRequest struct {
	UserID   *string
	Criteria models.OtpCriteria
	Via      models.OtpChannel
	Email    string
	Phone    string
	Name     string
	Data     interface{}
}

type OtpService struct {
	db     *gorm.DB
	sms    SMSSender
	mailer Mailer
	cfg    *config.Config
	now    func() time.Time
}

func NewOtpService(db *gorm.DB, sms SMSSender, mailer Mailer, cfg *config.Config) *OtpService {
	return &OtpService{db: db, sms: sms, mailer: mailer, cfg: cfg, now: time.Now}
}

func (s *OtpService) ttl() time.Duration {
	if s.cfg.OTPTTL > 0 {
		return s.cfg.OTPTTL
	}
	return 10 * time.Minute
}

// Issue persists a new pending trace and delivers its code.
func (s *OtpService) Issue(ctx context.Context, req OtpRequest) (*models.OtpVerification, error) {
	var payload datatypes.JSON
	if req.Data != nil {
		raw, err := json.Marshal(req.Data)
		if err != nil {
			return nil, err
		}
		payload = raw
	}

	code, err := utils.GenerateOTP(s.cfg.IsDev())
	if err != nil {
		return nil, err
	}

	otp := models.OtpVerification{
		UserID:            req.UserID,
		Criteria:          req.Criteria,
		Via:               req.Via,
		Email:             req.Email,
		PhoneWithDialCode: req.Phone,
		Code:              code,
		Data:              payload,
		Status:            models.OtpPending,
		ExpireAt:          s.now().Add(s.ttl()),
	}
	if err := s.db.WithContext(ctx).Create(&otp).Error; err != nil {
		return nil, err
	}

	s.deliver(ctx, &otp, req.Name)
	return &otp, nil
}

// Resend rotates the code of a pending trace and extends its expiry. A trace
// that is no longer pending is returned unchanged with sent == false.
func (s *OtpService) Resend(ctx context.Context, traceID string) (*models.OtpVerification, bool, error) {
	var otp models.OtpVerification
	if err := s.db.WithContext(ctx).Where("trace_id = ?", traceID).First(&otp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrInvalidTrace
		}
		return nil, false, err
	}
	if otp.Status != models.OtpPending {
		return &otp, false, nil
	}

	limit := s.cfg.OTPResendLimit
	if limit <= 0 {
		limit = 5
	}
	allowed, err := database.AllowAction(ctx, "otp_resend:"+traceID, limit, s.ttl())
	if err != nil {
		logger.Warn().Err(err).Str("traceId", traceID).Msg("OTP resend throttle check failed")
	}
	if !allowed {
		return nil, false, apperrors.TooMany("Too many OTP requests, please try again later")
	}

	code, err := utils.GenerateOTP(s.cfg.IsDev())
	if err != nil {
		return nil, false, err
	}
	otp.Code = code
	otp.ExpireAt = s.now().Add(s.ttl())
	res := s.db.WithContext(ctx).Model(&models.OtpVerification{}).
		Where("id = ? AND status = ?", otp.ID, models.OtpPending).
		Updates(map[string]interface{}{
			"code":         otp.Code,
			"expire_at":    otp.ExpireAt,
			"resend_count": gorm.Expr("resend_count + 1"),
		})
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return &otp, false, nil
	}
	otp.ResendCount++

	s.deliver(ctx, &otp, "")
	return &otp, true, nil
}

// Consume checks code against the trace and marks it verified. Only one
// caller can ever consume a given trace.
func (s *OtpService) Consume(ctx context.Context, traceID, code string) (*models.OtpVerification, error) {
	var otp models.OtpVerification
	if err := s.db.WithContext(ctx).Where("trace_id = ?", traceID).First(&otp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidTrace
		}
		return nil, err
	}
	if otp.Status != models.OtpPending {
		return nil, errTraceStatus(otp.Status)
	}

	if otp.IsExpired(s.now()) {
		s.db.WithContext(ctx).Model(&models.OtpVerification{}).
			Where("id = ? AND status = ?", otp.ID, models.OtpPending).
			Update("status", models.OtpExpired)
		return nil, errTraceStatus(models.OtpExpired)
	}

	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		return nil, ErrInvalidCode
	}

	if err := models.CheckTransition("otp", otp.Status, models.OtpVerified); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.OtpVerification{}).
		Where("id = ? AND status = ?", otp.ID, models.OtpPending).
		Update("status", models.OtpVerified)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, errTraceStatus(models.OtpVerified)
	}
	otp.Status = models.OtpVerified
	return &otp, nil
}

// ExpireStale moves pending traces past their expiry to expired.
func (s *OtpService) ExpireStale(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.OtpVerification{}).
		Where("status = ? AND expire_at < ?", models.OtpPending, s.now()).
		Update("status", models.OtpExpired)
	return res.RowsAffected, res.Error
}

// DecodeData unmarshals the payload stored on a trace.
func DecodeData(otp *models.OtpVerification, dest interface{}) error {
	if len(otp.Data) == 0 {
		return apperrors.Validation("Trace carries no data", nil)
	}
	return json.Unmarshal(otp.Data, dest)
}

func (s *OtpService) deliver(ctx context.Context, otp *models.OtpVerification, name string) {
	switch otp.Via {
	case models.OtpViaPhone:
		if s.sms == nil {
			return
		}
		if err := s.sms.Send(ctx, otp.PhoneWithDialCode, fmt.Sprintf("Your OTP is %s", otp.Code)); err != nil {
			logger.Error().Err(err).Str("traceId", otp.TraceID).Msg("Failed to send OTP sms")
		}
	default:
		if s.mailer == nil || otp.Email == "" {
			return
		}
		if name == "" {
			name = otp.Email
		}
		body, err := RenderMail("otp", map[string]interface{}{
			"Name": name,
			"Code": otp.Code,
			"TTL":  s.ttl().String(),
		})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to render OTP mail")
			return
		}
		if err := s.mailer.Send(ctx, otp.Email, "Your verification code", body); err != nil {
			logger.Error().Err(err).Str("traceId", otp.TraceID).Msg("Failed to send OTP email")
		}
	}
}
