// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestJWTSecret = "test_secret_key_12345"
	TestPassword  = "Secret#123"
)

var dbSeq atomic.Int64

// InitConfig installs a config suitable for tests.
func InitConfig() *config.Config {
	cfg := &config.Config{
		AppEnv:           "test",
		AppName:          "acent-messenger-test",
		JWTSecret:        TestJWTSecret,
		JWTTTL:           time.Hour,
		OTPTTL:           10 * time.Minute,
		OTPResendLimit:   5,
		OTPSweepInterval: time.Minute,
	}
	config.AppConfig = cfg
	return cfg
}

// NewDB opens a private in-memory SQLite database with every model migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// CreateUser inserts an activated user with TestPassword. Non-zero fields
// of u override the defaults.
func CreateUser(t *testing.T, db *gorm.DB, u models.User) *models.User {
	t.Helper()
	if u.FirstName == "" {
		u.FirstName = "Test"
	}
	if u.LastName == "" {
		u.LastName = "User"
	}
	if u.Email == "" {
		u.Email = fmt.Sprintf("user%d@example.com", dbSeq.Add(1))
	}
	if u.Status == "" {
		u.Status = models.UserActivated
	}
	if u.Password == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
		require.NoError(t, err)
		u.Password = string(hash)
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

// FileHeader builds a multipart file header as gin would hand it to a
// handler after parsing a form.
func FileHeader(t *testing.T, field, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	require.NotEmpty(t, form.File[field])
	return form.File[field][0]
}
