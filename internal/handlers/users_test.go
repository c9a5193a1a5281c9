package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/services"
	"github.com/triggah61/acent-messenger-backend/internal/testutil"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func userRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	cfg := testutil.InitConfig()
	db := testutil.NewDB(t)
	h := New(db, cfg, services.NewContainer(services.Deps{DB: db, Config: cfg}))

	r := gin.New()
	r.Use(middleware.ErrorHandlerMiddleware())
	users := r.Group("/api/users", middleware.AuthMiddleware(db), middleware.RequireDashboard())
	users.POST("", h.CreateUser)
	users.GET("", h.ListUsers)
	users.PATCH("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser)
	return r, db
}

func call(t *testing.T, r *gin.Engine, method, path string, token string, payload interface{}) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(u.ID)
	require.NoError(t, err)
	return token
}

func TestCreateUserValidation(t *testing.T) {
	r, db := userRouter(t)
	admin := testutil.CreateUser(t, db, models.User{RoleType: models.RoleTypeSuperAdmin})
	token := tokenFor(t, admin)

	w, body := call(t, r, http.MethodPost, "/api/users", token, gin.H{"firstName": "Kim", "email": "kim@example.com", "password": "weak"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, string(body["errors"]), "password")

	w, _ = call(t, r, http.MethodPost, "/api/users", token, gin.H{"firstName": "Kim", "email": "kim@example.com", "password": "Str0ng#pass", "roleType": "superAdmin"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, body = call(t, r, http.MethodPost, "/api/users", token, gin.H{"firstName": "<i>Kim</i>", "email": "Kim@Example.com", "password": "Str0ng#pass"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.User
	require.NoError(t, json.Unmarshal(body["data"], &created))
	assert.Equal(t, "Kim", created.FirstName)
	assert.Equal(t, "kim@example.com", created.Email)
	assert.Equal(t, models.UserActivated, created.Status)
	assert.Equal(t, models.RoleTypeUser, created.RoleType)

	w, body = call(t, r, http.MethodPost, "/api/users", token, gin.H{"firstName": "Kim", "email": "kim@example.com", "password": "Str0ng#pass"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, string(body["errors"]), "email")

	var audits []models.AdminAction
	require.NoError(t, db.Find(&audits).Error)
	require.Len(t, audits, 1)
	assert.Equal(t, models.ActionCreateUser, audits[0].Action)
	assert.Equal(t, created.ID, audits[0].TargetID)
}

func TestListUsersFilters(t *testing.T) {
	r, db := userRouter(t)
	admin := testutil.CreateUser(t, db, models.User{FirstName: "Zed", RoleType: models.RoleTypeAdmin})
	testutil.CreateUser(t, db, models.User{FirstName: "Amy", Email: "amy@example.com"})
	testutil.CreateUser(t, db, models.User{FirstName: "Bob", Status: models.UserBlocked})
	testutil.CreateUser(t, db, models.User{FirstName: "Cal", Status: models.UserDeleted})
	token := tokenFor(t, admin)

	decode := func(raw json.RawMessage) utils.Page[models.User] {
		var page utils.Page[models.User]
		require.NoError(t, json.Unmarshal(raw, &page))
		return page
	}

	w, body := call(t, r, http.MethodGet, "/api/users?sortBy=firstName&sortOrder=asc", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(body["data"])
	assert.Equal(t, int64(3), page.TotalDocs)
	require.Len(t, page.Docs, 3)
	assert.Equal(t, "Amy", page.Docs[0].FirstName)
	assert.Equal(t, "Zed", page.Docs[2].FirstName)

	_, body = call(t, r, http.MethodGet, "/api/users?status=blocked", token, nil)
	page = decode(body["data"])
	require.Len(t, page.Docs, 1)
	assert.Equal(t, "Bob", page.Docs[0].FirstName)

	_, body = call(t, r, http.MethodGet, "/api/users?search=AMY@", token, nil)
	assert.Len(t, decode(body["data"]).Docs, 1)

	_, body = call(t, r, http.MethodGet, "/api/users?roleType=admin&limit=1", token, nil)
	page = decode(body["data"])
	assert.Equal(t, 1, page.Limit)
	assert.Equal(t, int64(1), page.TotalDocs)

	w, _ = call(t, r, http.MethodGet, "/api/users?status=deleted", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w, _ = call(t, r, http.MethodGet, "/api/users?fromDate=yesterday", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpdateUserStatusTransitions(t *testing.T) {
	r, db := userRouter(t)
	admin := testutil.CreateUser(t, db, models.User{RoleType: models.RoleTypeAdmin})
	root := testutil.CreateUser(t, db, models.User{RoleType: models.RoleTypeSuperAdmin})
	target := testutil.CreateUser(t, db, models.User{})
	token := tokenFor(t, admin)

	w, _ := call(t, r, http.MethodPatch, "/api/users/"+target.ID, token, gin.H{"status": "blocked"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = call(t, r, http.MethodPatch, "/api/users/"+target.ID, token, gin.H{"status": "pending"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = call(t, r, http.MethodPatch, "/api/users/"+admin.ID, token, gin.H{"status": "blocked"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = call(t, r, http.MethodPatch, "/api/users/"+root.ID, token, gin.H{"firstName": "Nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = call(t, r, http.MethodDelete, "/api/users/"+admin.ID, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = call(t, r, http.MethodDelete, "/api/users/"+target.ID+"?reason=spam", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodDelete, "/api/users/"+target.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var audits []models.AdminAction
	require.NoError(t, db.Order("created_at ASC").Find(&audits).Error)
	require.Len(t, audits, 2)
	assert.Equal(t, models.ActionBlockUser, audits[0].Action)
	assert.Equal(t, models.ActionDeleteUser, audits[1].Action)
	assert.Equal(t, "spam", audits[1].Reason)
}
