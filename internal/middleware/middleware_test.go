package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/services"
	"github.com/triggah61/acent-messenger-backend/internal/testutil"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func authedRouter(db *gorm.DB, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandlerMiddleware())
	handlers := append([]gin.HandlerFunc{AuthMiddleware(db)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": CurrentUserID(c), "firstName": CurrentUser(c).FirstName})
	})
	r.GET("/me", handlers...)
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	testutil.InitConfig()
	db := testutil.NewDB(t)
	r := authedRouter(db)

	ann := testutil.CreateUser(t, db, models.User{FirstName: "Ann"})
	token, err := utils.GenerateToken(ann.ID)
	require.NoError(t, err)

	t.Run("missing header", func(t *testing.T) {
		w := get(r, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Authorization header required", decode(t, w)["message"])
	})

	t.Run("garbage token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "not-a-jwt").Code)
	})

	t.Run("purpose token rejected", func(t *testing.T) {
		tmp, err := utils.GeneratePurposeToken(ann.ID, utils.PurposeTwoFactor, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, get(r, "/me", tmp).Code)
	})

	t.Run("valid", func(t *testing.T) {
		w := get(r, "/me", token)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, ann.ID, body["userId"])
		assert.Equal(t, "Ann", body["firstName"])
	})

	t.Run("blocked", func(t *testing.T) {
		blocked := testutil.CreateUser(t, db, models.User{Status: models.UserBlocked})
		tok, err := utils.GenerateToken(blocked.ID)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, get(r, "/me", tok).Code)
	})

	t.Run("soft deleted", func(t *testing.T) {
		gone := testutil.CreateUser(t, db, models.User{Status: models.UserDeleted})
		tok, err := utils.GenerateToken(gone.ID)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, get(r, "/me", tok).Code)
	})
}

func TestOptionalAuthMiddleware(t *testing.T) {
	testutil.InitConfig()
	r := gin.New()
	r.GET("/open", OptionalAuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": CurrentUserID(c)})
	})

	token, err := utils.GenerateToken("u-1")
	require.NoError(t, err)
	tmp, err := utils.GeneratePurposeToken("u-1", utils.PurposeTwoFactor, time.Minute)
	require.NoError(t, err)

	cases := map[string]struct {
		token string
		want  string
	}{
		"anonymous":     {"", ""},
		"garbage":       {"not-a-jwt", ""},
		"purpose token": {tmp, ""},
		"session token": {token, "u-1"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := get(r, "/open", tc.token)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.want, decode(t, w)["userId"])
		})
	}
}

func TestRequirePermission(t *testing.T) {
	testutil.InitConfig()
	db := testutil.NewDB(t)

	role := models.Role{Name: "reader", Permissions: models.Permissions{models.PermUserRead}}
	require.NoError(t, db.Create(&role).Error)

	reader := testutil.CreateUser(t, db, models.User{RoleType: models.RoleTypeAdmin, RoleID: &role.ID})
	plain := testutil.CreateUser(t, db, models.User{})
	super := testutil.CreateUser(t, db, models.User{RoleType: models.RoleTypeSuperAdmin})

	read := authedRouter(db, RequireDashboard(), RequirePermission(models.PermUserRead))
	del := authedRouter(db, RequireDashboard(), RequirePermission(models.PermUserDelete))

	tokenFor := func(u *models.User) string {
		tok, err := utils.GenerateToken(u.ID)
		require.NoError(t, err)
		return tok
	}

	assert.Equal(t, http.StatusOK, get(read, "/me", tokenFor(reader)).Code)
	assert.Equal(t, http.StatusForbidden, get(del, "/me", tokenFor(reader)).Code)
	assert.Equal(t, http.StatusForbidden, get(read, "/me", tokenFor(plain)).Code)
	assert.Equal(t, http.StatusOK, get(del, "/me", tokenFor(super)).Code)
}

func TestOtpVerified(t *testing.T) {
	cfg := testutil.InitConfig()
	cfg.AppEnv = "dev"
	db := testutil.NewDB(t)
	otps := services.NewOtpService(db, nil, nil, cfg)

	trace, err := otps.Issue(t.Context(), services.OtpRequest{Criteria: models.OtpUserRegister, Via: models.OtpViaEmail, Email: "x@example.com"})
	require.NoError(t, err)

	type body struct {
		TraceID string `json:"traceId"`
		Code    string `json:"code"`
		Extra   string `json:"extra"`
	}

	r := gin.New()
	r.POST("/verify", OtpVerified(otps), func(c *gin.Context) {
		var b body
		require.NoError(t, c.ShouldBindBodyWith(&b, binding.JSON))
		c.JSON(http.StatusOK, gin.H{"trace": Trace(c).TraceID, "extra": b.Extra})
	})

	post := func(b body) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(b)
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post(body{TraceID: trace.TraceID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w)["errors"], "code")

	w = post(body{TraceID: trace.TraceID, Code: "999999"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = post(body{TraceID: trace.TraceID, Code: utils.DevOTP, Extra: "kept"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, trace.TraceID, decode(t, w)["trace"])
	assert.Equal(t, "kept", decode(t, w)["extra"])

	w = post(body{TraceID: trace.TraceID, Code: utils.DevOTP})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "This trace is already verified", decode(t, w)["message"])
}

func TestErrorHandlerMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandlerMiddleware())
	r.GET("/app", func(c *gin.Context) {
		c.Error(apperrors.Validation("Validation failed", map[string]string{"email": "email is required"}))
	})
	r.GET("/plain", func(c *gin.Context) {
		c.Error(errors.New("db down"))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := get(r, "/app", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Equal(t, map[string]interface{}{"email": "email is required"}, body["errors"])

	w = get(r, "/plain", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")

	assert.Equal(t, http.StatusInternalServerError, get(r, "/panic", "").Code)
}

func TestMaintenanceMode(t *testing.T) {
	testutil.InitConfig()
	db := testutil.NewDB(t)
	settings := services.NewSettingsService(db)

	admin := testutil.CreateUser(t, db, models.User{RoleType: models.RoleTypeAdmin})
	user := testutil.CreateUser(t, db, models.User{})
	adminTok, _ := utils.GenerateToken(admin.ID)
	userTok, _ := utils.GenerateToken(user.ID)

	r := authedRouter(db, MaintenanceMode(settings))
	assert.Equal(t, http.StatusOK, get(r, "/me", userTok).Code)

	_, err := settings.Set(t.Context(), []services.SettingRecord{{Name: models.SettingMaintenanceMode, Value: json.RawMessage("true")}})
	require.NoError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/me", userTok).Code)
	assert.Equal(t, http.StatusOK, get(r, "/me", adminTok).Code)
}

func TestRateLimitAndMetrics(t *testing.T) {
	m := NewMetrics()
	limiter := NewIPRateLimiter(rate.Limit(0.0001), 2)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", RateLimitMiddleware(limiter), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", m.Handler())

	assert.Equal(t, http.StatusNoContent, get(r, "/ping", "").Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/ping", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ping", "").Code)

	out := get(r, "/metrics", "").Body.String()
	assert.True(t, strings.Contains(out, `http_requests_total{method="GET",route="/ping",status="429"} 1`), out)
	assert.Contains(t, out, "http_request_duration_seconds")

	assert.Equal(t, 1, limiter.Sweep(0))
}

func TestTransitionErrorsAre422(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandlerMiddleware())
	r.GET("/move", func(c *gin.Context) {
		c.Error(models.CheckTransition("user", models.UserDeleted, models.UserActivated))
	})

	w := get(r, "/move", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "user cannot move from deleted to activated", decode(t, w)["message"])
}
