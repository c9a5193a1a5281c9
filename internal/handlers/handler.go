package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/internal/services"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"gorm.io/gorm"
)

// Handler serves the HTTP API on top of the service container.
type Handler struct {
	db    *gorm.DB
	cfg   *config.Config
	svc   *services.Container
	oauth *OAuthProviders
}

func New(db *gorm.DB, cfg *config.Config, svc *services.Container) *Handler {
	return &Handler{db: db, cfg: cfg, svc: svc, oauth: NewOAuthProviders(cfg)}
}

// respond writes the {message, data} envelope.
func respond(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func ok(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, message, data)
}

// fail hands err to ErrorHandlerMiddleware.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

func bindFailed(c *gin.Context, err error) {
	fail(c, apperrors.FromBinding(err))
}

func pageQuery(c *gin.Context) utils.PageQuery {
	return utils.ParsePageQuery(c.Query("page"), c.Query("limit"), utils.DefaultPageLimit)
}
