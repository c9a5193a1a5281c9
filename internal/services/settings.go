package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/triggah61/acent-messenger-backend/internal/database"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	settingsCacheKey = "settings:all"
	settingsCacheTTL = 5 * time.Minute
)

type SettingRecord struct {
	Name  string          `json:"name" binding:"required,max=100"`
	Value json.RawMessage `json:"value" binding:"required"`
}

// SettingsService reads and writes the global settings, cached in Redis.
type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// All returns every setting keyed by name.
func (s *SettingsService) All(ctx context.Context) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	if err := database.CacheGet(ctx, settingsCacheKey, &out); err == nil {
		return out, nil
	}

	var settings []models.Setting
	if err := s.db.WithContext(ctx).Find(&settings).Error; err != nil {
		return nil, err
	}
	for _, st := range settings {
		out[st.Name] = json.RawMessage(st.Value)
	}
	if err := database.CacheSet(ctx, settingsCacheKey, out, settingsCacheTTL); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache settings")
	}
	return out, nil
}

// Set upserts records by name. Records with an empty name or null value
// are skipped.
func (s *SettingsService) Set(ctx context.Context, records []SettingRecord) (int, error) {
	rows := make([]models.Setting, 0, len(records))
	for _, r := range records {
		name := strings.TrimSpace(r.Name)
		value := strings.TrimSpace(string(r.Value))
		if name == "" || value == "" || value == "null" {
			continue
		}
		rows = append(rows, models.Setting{Name: name, Value: datatypes.JSON(value), UpdatedAt: time.Now()})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, err
	}
	if err := database.CacheInvalidate(ctx, settingsCacheKey); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate settings cache")
	}
	return len(rows), nil
}

// Bool reads a boolean setting. Missing or malformed values yield def.
func (s *SettingsService) Bool(ctx context.Context, name string, def bool) bool {
	all, err := s.All(ctx)
	if err != nil {
		return def
	}
	raw, ok := all[name]
	if !ok {
		return def
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		var str string
		if json.Unmarshal(raw, &str) != nil {
			return def
		}
		return str == "true"
	}
	return v
}
