package seeds

import (
	"context"
	"fmt"

	"github.com/triggah61/acent-messenger-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var defaultSettings = map[string]string{
	models.SettingMaintenanceMode:  "false",
	models.SettingRegistrationOpen: "true",
}

// Settings inserts default values for settings that do not exist yet.
func Settings(ctx context.Context, db *gorm.DB) error {
	for name, value := range defaultSettings {
		setting := models.Setting{Name: name}
		err := db.WithContext(ctx).Where("name = ?", name).
			Attrs(models.Setting{Value: datatypes.JSON(value)}).
			FirstOrCreate(&setting).Error
		if err != nil {
			return fmt.Errorf("seed setting %s: %w", name, err)
		}
	}
	return nil
}

// Products inserts a demo category with redeemable codes. Codes already
// present are left alone.
func Products(ctx context.Context, db *gorm.DB, category string, codes []string) (int, error) {
	cat := models.Category{Name: category}
	if err := db.WithContext(ctx).Where("name = ?", category).FirstOrCreate(&cat).Error; err != nil {
		return 0, err
	}

	var existing []string
	if err := db.WithContext(ctx).Model(&models.Product{}).Where("code IN ?", codes).Pluck("code", &existing).Error; err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, code := range existing {
		seen[code] = true
	}

	created := 0
	for _, code := range codes {
		if seen[code] {
			continue
		}
		product := models.Product{Name: category + " " + code, Code: code, CategoryID: &cat.ID}
		if err := db.WithContext(ctx).Create(&product).Error; err != nil {
			return created, fmt.Errorf("seed product %s: %w", code, err)
		}
		seen[code] = true
		created++
	}
	return created, nil
}
