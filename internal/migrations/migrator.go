package migrations

import (
	"fmt"
	"time"

	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"gorm.io/gorm"
)

// Migration is a hand-written schema change applied after AutoMigrate.
type Migration struct {
	ID        string
	Name      string
	Up        func(db *gorm.DB) error
	Down      func(db *gorm.DB) error
	DependsOn []string
	// Dialects restricts the migration to these gorm dialector names.
	// Empty means every dialect.
	Dialects []string
}

// MigrationRecord tracks which migrations have been applied
type MigrationRecord struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Name      string    `gorm:"type:text"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: GetMigrations(),
	}
}

// AutoMigrate creates tables without foreign keys first so the circular
// session/message references resolve, then runs again to add constraints.
func AutoMigrate(db *gorm.DB) error {
	tables := models.All()

	db.Config.DisableForeignKeyConstraintWhenMigrating = true
	for _, m := range tables {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}
	db.Config.DisableForeignKeyConstraintWhenMigrating = false
	if err := db.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("add constraints: %w", err)
	}
	return nil
}

// Run executes all pending migrations
func (m *Migrator) Run() error {
	if err := m.db.AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var applied []MigrationRecord
	if err := m.db.Find(&applied).Error; err != nil {
		return fmt.Errorf("failed to fetch applied migrations: %w", err)
	}

	appliedMap := make(map[string]bool)
	for _, r := range applied {
		appliedMap[r.ID] = true
	}

	dialect := m.db.Dialector.Name()
	for _, migration := range m.migrations {
		if appliedMap[migration.ID] {
			continue
		}
		if !migration.supports(dialect) {
			logger.Debug().Str("migration", migration.ID).Str("dialect", dialect).Msg("Skipping migration for dialect")
			continue
		}

		for _, dep := range migration.DependsOn {
			if !appliedMap[dep] {
				return fmt.Errorf("migration %s depends on %s which is not applied", migration.ID, dep)
			}
		}

		logger.Info().Str("migration", migration.ID).Str("name", migration.Name).Msg("Running migration")

		if err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{
				ID:   migration.ID,
				Name: migration.Name,
			}).Error
		}); err != nil {
			logger.Error().Err(err).Str("migration", migration.ID).Msg("Migration failed")
			return fmt.Errorf("migration %s failed: %w", migration.ID, err)
		}

		appliedMap[migration.ID] = true
		logger.Info().Str("migration", migration.ID).Msg("Migration completed")
	}

	return nil
}

func (m Migration) supports(dialect string) bool {
	if len(m.Dialects) == 0 {
		return true
	}
	for _, d := range m.Dialects {
		if d == dialect {
			return true
		}
	}
	return false
}

// GetMigrations returns all registered migrations in order
func GetMigrations() []Migration {
	return []Migration{
		Migration001AddReplyToFK(),
		Migration002AddLookupIndexes(),
	}
}
