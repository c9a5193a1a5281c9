package services

import (
	"context"
	"errors"
	"time"

	"github.com/triggah61/acent-messenger-backend/internal/models"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"gorm.io/gorm"
)

var ErrInvalidProductCode = apperrors.NotFound("QR code is invalid")

type ProductInfo struct {
	Name     string `json:"name"`
	Series   string `json:"series"`
	Photo    string `json:"photo"`
	Category string `json:"category"`
}

type RedeemerInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// ProductCheck is the public view of a product code.
type ProductCheck struct {
	Valid   bool          `json:"valid"`
	Product ProductInfo   `json:"product"`
	User    *RedeemerInfo `json:"user,omitempty"`
}

type ProductService struct {
	db            *gorm.DB
	notifications *NotificationService
	now           func() time.Time
}

func NewProductService(db *gorm.DB, n *NotificationService) *ProductService {
	return &ProductService{db: db, notifications: n, now: time.Now}
}

func (s *ProductService) load(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "first_name", "last_name", "email")
		}).
		First(&product, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidProductCode
		}
		return nil, err
	}
	return &product, nil
}

func checkOf(p *models.Product) *ProductCheck {
	check := &ProductCheck{
		Valid: p.Status == models.ProductActive,
		Product: ProductInfo{
			Name:   p.Name,
			Series: p.Series,
			Photo:  p.Photo,
		},
	}
	if p.Category != nil {
		check.Product.Category = p.Category.Name
	}
	if p.User != nil {
		check.User = &RedeemerInfo{FirstName: p.User.FirstName, LastName: p.User.LastName, Email: p.User.Email}
	}
	return check
}

// Check reports whether code can still be redeemed.
func (s *ProductService) Check(ctx context.Context, code string) (*ProductCheck, error) {
	product, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	return checkOf(product), nil
}

// Redeem expires the product for user. Only one caller can redeem a code;
// everyone else gets a check with Valid false.
func (s *ProductService) Redeem(ctx context.Context, user *models.User, code string) (*ProductCheck, error) {
	product, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if product.Status != models.ProductActive {
		return checkOf(product), nil
	}
	if err := models.CheckTransition("product", product.Status, models.ProductExpired); err != nil {
		return nil, err
	}

	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND status = ?", product.ID, models.ProductActive).
		Updates(map[string]interface{}{
			"status":      models.ProductExpired,
			"user_id":     user.ID,
			"redeemed_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		product, err = s.load(ctx, code)
		if err != nil {
			return nil, err
		}
		return checkOf(product), nil
	}

	if s.notifications != nil {
		if _, err := s.notifications.Notify(ctx, user.ID, models.NotificationProductRedeemed,
			"You redeemed "+product.Name, map[string]interface{}{"productId": product.ID, "code": code}); err != nil {
			logger.Warn().Err(err).Msg("Failed to notify product redemption")
		}
	}

	check := checkOf(product)
	check.User = &RedeemerInfo{FirstName: user.FirstName, LastName: user.LastName, Email: user.Email}
	return check, nil
}
