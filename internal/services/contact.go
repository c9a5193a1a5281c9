package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/internal/database"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"gorm.io/gorm"
)

var (
	ErrContactExists   = apperrors.Conflict("Contact request already exists")
	ErrContactNotFound = apperrors.NotFound("Contact request not found")
)

// ContactService manages the two-sided contact list.
type ContactService struct {
	db            *gorm.DB
	notifications *NotificationService
	sms           SMSSender
}

func NewContactService(db *gorm.DB, n *NotificationService, sms SMSSender) *ContactService {
	return &ContactService{db: db, notifications: n, sms: sms}
}

// Invite texts a download link to a phone number that has no account yet.
func (s *ContactService) Invite(ctx context.Context, dialCode, phone string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Scopes(models.NotDeleted).
		Where("phone = ?", phone).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperrors.BadRequest("User already exists")
	}
	if s.sms == nil {
		return apperrors.NewAppError(503, "SMS is not configured")
	}
	cfg := config.AppConfig
	text := fmt.Sprintf("You have been invited to join the %s app. Please download the app from the link below: %s", cfg.AppName, cfg.AppURL)
	if err := s.sms.Send(ctx, utils.NormalizeDialCode(dialCode)+phone, text); err != nil {
		logger.Error().Err(err).Str("phone", phone).Msg("Failed to send invitation")
		return apperrors.Internal("Failed to send invitation")
	}
	return nil
}

// Find returns the users registered with phone.
func (s *ContactService) Find(ctx context.Context, phone string) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Scopes(models.NotDeleted).
		Select(models.UserSummaryColumns).
		Where("phone = ?", phone).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperrors.NotFound("User not found")
	}
	return users, nil
}

// CheckPhoneNumbers returns which of phones belong to registered users.
func (s *ContactService) CheckPhoneNumbers(ctx context.Context, phones []string) ([]models.User, error) {
	users := []models.User{}
	if len(phones) == 0 {
		return users, nil
	}
	err := s.db.WithContext(ctx).Scopes(models.NotDeleted).
		Select(models.UserSummaryColumns).
		Where("status = ? AND phone IN ?", models.UserActivated, phones).
		Find(&users).Error
	return users, err
}

// Request creates a sent row for the owner and a received row for the target.
func (s *ContactService) Request(ctx context.Context, owner *models.User, targetID string) (*models.Contact, error) {
	if owner.ID == targetID {
		return nil, apperrors.BadRequest("You cannot add yourself as a contact")
	}
	db := s.db.WithContext(ctx)

	var target models.User
	if err := db.Scopes(models.NotDeleted).Select("id").First(&target, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipientMissing
		}
		return nil, err
	}

	sent := models.Contact{OwnerID: owner.ID, UserID: targetID, Status: models.ContactSent}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sent).Error; err != nil {
			return err
		}
		return tx.Create(&models.Contact{OwnerID: targetID, UserID: owner.ID, Status: models.ContactReceived}).Error
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrContactExists
		}
		return nil, err
	}

	if s.notifications != nil {
		if _, err := s.notifications.Notify(ctx, targetID, models.NotificationContactRequest,
			owner.FullName()+" sent you a contact request", map[string]interface{}{"userId": owner.ID}); err != nil {
			logger.Warn().Err(err).Msg("Failed to notify contact request")
		}
	}
	return &sent, nil
}

// Accept activates both rows. Only the side holding the received row may
// accept.
func (s *ContactService) Accept(ctx context.Context, acceptor *models.User, requesterID string) error {
	db := s.db.WithContext(ctx)

	var mine models.Contact
	if err := db.Where("owner_id = ? AND user_id = ?", acceptor.ID, requesterID).First(&mine).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrContactNotFound
		}
		return err
	}
	if mine.Status != models.ContactReceived {
		return apperrors.BadRequest("There is no pending request from this user")
	}
	if err := models.CheckTransition("contact", mine.Status, models.ContactActive); err != nil {
		return apperrors.BadRequest(err.Error())
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Contact{}).
			Where("owner_id = ? AND user_id = ? AND status = ?", acceptor.ID, requesterID, models.ContactReceived).
			Update("status", models.ContactActive)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrContactNotFound
		}
		return tx.Model(&models.Contact{}).
			Where("owner_id = ? AND user_id = ? AND status = ?", requesterID, acceptor.ID, models.ContactSent).
			Update("status", models.ContactActive).Error
	})
	if err != nil {
		return err
	}

	if s.notifications != nil {
		if _, err := s.notifications.Notify(ctx, requesterID, models.NotificationContactAccepted,
			acceptor.FullName()+" accepted your contact request", map[string]interface{}{"userId": acceptor.ID}); err != nil {
			logger.Warn().Err(err).Msg("Failed to notify contact accept")
		}
	}
	return nil
}

// List pages ownerID's contacts, optionally filtered by status and by a
// search over the contact's name, username and phone.
func (s *ContactService) List(ctx context.Context, ownerID string, status models.ContactStatus, search string, q utils.PageQuery) (utils.Page[models.Contact], error) {
	query := s.db.WithContext(ctx).Model(&models.Contact{}).Where("contacts.owner_id = ?", ownerID)
	if status != "" {
		query = query.Where("contacts.status = ?", status)
	}
	if search != "" {
		like := utils.SanitizeSearchQuery(search)
		query = query.Joins("JOIN users ON users.id = contacts.user_id").
			Where("LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ? OR LOWER(users.username) LIKE ? OR users.phone LIKE ?",
				like, like, like, like)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Page[models.Contact]{}, err
	}
	var contacts []models.Contact
	err := query.Preload("User", models.SelectUserSummary).
		Order("contacts.updated_at DESC").
		Offset(q.Offset()).Limit(q.Limit).
		Find(&contacts).Error
	if err != nil {
		return utils.Page[models.Contact]{}, err
	}
	return utils.NewPage(contacts, total, q), nil
}

// ContactIDs returns the ids of ownerID's active contacts.
func (s *ContactService) ContactIDs(ctx context.Context, ownerID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Contact{}).
		Where("owner_id = ? AND status = ?", ownerID, models.ContactActive).
		Pluck("user_id", &ids).Error
	return ids, err
}
