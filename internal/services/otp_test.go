package services

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/testutil"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
)

func newOtpService(t *testing.T) (*OtpService, *recordingSMS, *recordingMailer) {
	t.Helper()
	cfg := testutil.InitConfig()
	cfg.AppEnv = "dev"
	db := testutil.NewDB(t)
	sms := &recordingSMS{}
	mailer := &recordingMailer{}
	return NewOtpService(db, sms, mailer, cfg), sms, mailer
}

func TestOtpIssueDeliversCode(t *testing.T) {
	svc, sms, mailer := newOtpService(t)
	ctx := context.Background()

	byPhone, err := svc.Issue(ctx, OtpRequest{Criteria: models.OtpUserRegister, Via: models.OtpViaPhone, Phone: "+15550001"})
	require.NoError(t, err)
	assert.NotEmpty(t, byPhone.TraceID)
	assert.Equal(t, models.OtpPending, byPhone.Status)
	assert.Equal(t, "Your OTP is "+utils.DevOTP, sms.sent["+15550001"])

	_, err = svc.Issue(ctx, OtpRequest{Criteria: models.OtpUserLogin, Via: models.OtpViaEmail, Email: "a@example.com", Name: "Ann"})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "a@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Body, utils.DevOTP)
	assert.Contains(t, mailer.sent[0].Body, "Ann")
}

func TestOtpConsumedOnce(t *testing.T) {
	svc, _, _ := newOtpService(t)
	ctx := context.Background()

	type payload struct {
		Email string `json:"email"`
	}
	otp, err := svc.Issue(ctx, OtpRequest{Criteria: models.OtpUserRegister, Via: models.OtpViaEmail, Email: "b@example.com", Data: payload{Email: "b@example.com"}})
	require.NoError(t, err)

	verified, err := svc.Consume(ctx, otp.TraceID, utils.DevOTP)
	require.NoError(t, err)
	assert.Equal(t, models.OtpVerified, verified.Status)

	var data payload
	require.NoError(t, DecodeData(verified, &data))
	assert.Equal(t, "b@example.com", data.Email)

	_, err = svc.Consume(ctx, otp.TraceID, utils.DevOTP)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
	assert.Equal(t, "This trace is already verified", err.Error())
}

func TestOtpConsumeFailures(t *testing.T) {
	svc, _, _ := newOtpService(t)
	ctx := context.Background()

	_, err := svc.Consume(ctx, "unknown", utils.DevOTP)
	assert.Equal(t, ErrInvalidTrace, err)

	otp, err := svc.Issue(ctx, OtpRequest{Criteria: models.OtpUserLogin, Via: models.OtpViaEmail, Email: "c@example.com"})
	require.NoError(t, err)
	_, err = svc.Consume(ctx, otp.TraceID, "000000")
	assert.Equal(t, ErrInvalidCode, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = svc.Consume(ctx, otp.TraceID, utils.DevOTP)
	require.Error(t, err)
	assert.Equal(t, "This trace is already expired", err.Error())

	var stored models.OtpVerification
	require.NoError(t, svc.db.First(&stored, "trace_id = ?", otp.TraceID).Error)
	assert.Equal(t, models.OtpExpired, stored.Status)
}

func TestOtpResend(t *testing.T) {
	svc, sms, _ := newOtpService(t)
	ctx := context.Background()

	otp, err := svc.Issue(ctx, OtpRequest{Criteria: models.OtpUserLogin, Via: models.OtpViaPhone, Phone: "+15550002"})
	require.NoError(t, err)
	delete(sms.sent, "+15550002")

	resent, sent, err := svc.Resend(ctx, otp.TraceID)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, 1, resent.ResendCount)
	assert.Contains(t, sms.sent, "+15550002")

	_, err = svc.Consume(ctx, otp.TraceID, utils.DevOTP)
	require.NoError(t, err)

	again, sent, err := svc.Resend(ctx, otp.TraceID)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Equal(t, models.OtpVerified, again.Status)

	_, _, err = svc.Resend(ctx, "unknown")
	assert.Equal(t, ErrInvalidTrace, err)
}

func TestOtpExpireStale(t *testing.T) {
	svc, _, _ := newOtpService(t)
	ctx := context.Background()

	stale, err := svc.Issue(ctx, OtpRequest{Criteria: models.OtpUserLogin, Via: models.OtpViaEmail, Email: "d@example.com"})
	require.NoError(t, err)
	require.NoError(t, svc.db.Model(&models.OtpVerification{}).Where("id = ?", stale.ID).
		Update("expire_at", time.Now().Add(-time.Minute)).Error)
	_, err = svc.Issue(ctx, OtpRequest{Criteria: models.OtpUserLogin, Via: models.OtpViaEmail, Email: "e@example.com"})
	require.NoError(t, err)

	n, err := svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGeneratedCodesAreRandomOutsideDev(t *testing.T) {
	svc, _, _ := newOtpService(t)
	svc.cfg.AppEnv = "production"

	otp, err := svc.Issue(context.Background(), OtpRequest{Criteria: models.OtpUserLogin, Via: models.OtpViaEmail, Email: "f@example.com"})
	require.NoError(t, err)
	assert.Len(t, otp.Code, 6)
	assert.Equal(t, "", strings.Trim(otp.Code, "0123456789"))
}

func TestTOTPRoundTrip(t *testing.T) {
	secret, err := GenerateTOTP("Acent", "ann@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(secret.QRCode, "data:image/png;base64,"))
	assert.Contains(t, secret.OtpAuthURL, "otpauth://totp/")

	code, err := totp.GenerateCode(secret.Secret, time.Now())
	require.NoError(t, err)
	assert.True(t, ValidateTOTP(code, secret.Secret))
	assert.False(t, ValidateTOTP("", secret.Secret))
}
