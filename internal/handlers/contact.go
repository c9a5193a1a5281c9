package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
)

// ContactList GET /api/user/contact/list?status=active|sent|received
func (h *Handler) ContactList(c *gin.Context) {
	status := models.ContactStatus(c.DefaultQuery("status", string(models.ContactActive)))
	if !status.Valid() {
		fail(c, apperrors.Validation("Invalid status filter", nil))
		return
	}
	page, err := h.svc.Contacts.List(c.Request.Context(), middleware.CurrentUserID(c), status, strings.TrimSpace(c.Query("search")), pageQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Contacts fetched", page)
}

type inviteRequest struct {
	DialCode string `json:"dialCode" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

// Invite POST /api/user/contact/invite texts an invitation to a number
// that has no account yet.
func (h *Handler) Invite(c *gin.Context) {
	var input inviteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}
	dialCode := utils.NormalizeDialCode(input.DialCode)
	if !utils.ValidDialCode(dialCode) || !utils.ValidPhone(input.Phone) {
		fail(c, apperrors.Validation("Validation failed", map[string]string{"phone": "phone must be a valid number"}))
		return
	}
	if err := h.svc.Contacts.Invite(c.Request.Context(), dialCode, input.Phone); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Invitation sent", nil)
}

type findContactRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// FindContact POST /api/user/contact/find
func (h *Handler) FindContact(c *gin.Context) {
	var input findContactRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}
	users, err := h.svc.Contacts.Find(c.Request.Context(), strings.TrimSpace(input.Phone))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Users found", users)
}

type checkPhonesRequest struct {
	Phones []string `json:"phones" binding:"required,min=1,max=1000"`
}

// CheckPhoneNumbers POST /api/user/contact/checkPhoneNumbers returns the
// numbers from an address book that belong to accounts.
func (h *Handler) CheckPhoneNumbers(c *gin.Context) {
	var input checkPhonesRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}
	users, err := h.svc.Contacts.CheckPhoneNumbers(c.Request.Context(), input.Phones)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Phone numbers checked", users)
}

// ContactRequest POST /api/user/contact/request/:receiverId
func (h *Handler) ContactRequest(c *gin.Context) {
	contact, err := h.svc.Contacts.Request(c.Request.Context(), middleware.CurrentUser(c), c.Param("receiverId"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Contact request sent", contact)
}

// ContactAccept POST /api/user/contact/accept/:senderId
func (h *Handler) ContactAccept(c *gin.Context) {
	if err := h.svc.Contacts.Accept(c.Request.Context(), middleware.CurrentUser(c), c.Param("senderId")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Contact request accepted", nil)
}
