package services

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/triggah61/acent-messenger-backend/internal/models"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"gorm.io/gorm"
)

// FeedWindow is how long a post stays in contacts' feeds.
const FeedWindow = 24 * time.Hour

type PostService struct {
	db          *gorm.DB
	attachments *AttachmentService
	contacts    *ContactService
	now         func() time.Time
}

func NewPostService(db *gorm.DB, attachments *AttachmentService, contacts *ContactService) *PostService {
	return &PostService{db: db, attachments: attachments, contacts: contacts, now: time.Now}
}

func (s *PostService) Create(ctx context.Context, userID, caption string, fh *multipart.FileHeader) (*models.Post, error) {
	if fh == nil {
		return nil, apperrors.BadRequest("Attachment is required")
	}
	if s.attachments == nil {
		return nil, apperrors.NewAppError(503, "File storage is not configured")
	}
	attachment, err := s.attachments.Upload(ctx, userID, "posts", models.CriteriaPost, fh)
	if err != nil {
		return nil, err
	}

	post := models.Post{
		UserID:       userID,
		AttachmentID: attachment.ID,
		Caption:      utils.StripHTML(caption),
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, err
	}
	post.Attachment = attachment
	return &post, nil
}

// Feed returns the posts of userID's active contacts from the last
// FeedWindow, newest first.
func (s *PostService) Feed(ctx context.Context, userID string) ([]models.Post, error) {
	ids, err := s.contacts.ContactIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	posts := []models.Post{}
	if len(ids) == 0 {
		return posts, nil
	}
	err = s.db.WithContext(ctx).
		Preload("User", models.SelectUserSummary).
		Preload("Attachment").
		Where("user_id IN ? AND created_at >= ?", ids, s.now().Add(-FeedWindow)).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}
