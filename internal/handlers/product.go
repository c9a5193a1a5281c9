package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
	"github.com/triggah61/acent-messenger-backend/internal/services"
)

func productResponse(c *gin.Context, check *services.ProductCheck, success string) {
	if !check.Valid {
		respond(c, http.StatusBadRequest, "QR code has already been used", check)
		return
	}
	ok(c, success, check)
}

// CheckProduct GET /api/user/product/check/:code
func (h *Handler) CheckProduct(c *gin.Context) {
	check, err := h.svc.Products.Check(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	productResponse(c, check, "QR code is valid")
}

// ApplyProduct POST /api/user/product/apply/:code redeems the product.
func (h *Handler) ApplyProduct(c *gin.Context) {
	check, err := h.svc.Products.Redeem(c.Request.Context(), middleware.CurrentUser(c), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	productResponse(c, check, "Product redeemed successfully")
}
