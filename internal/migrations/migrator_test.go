package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:migrator_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestRunAppliesPortableMigrationsOnce(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	m := NewMigrator(db)
	require.NoError(t, m.Run())
	require.NoError(t, m.Run())

	var records []MigrationRecord
	require.NoError(t, db.Order("id").Find(&records).Error)

	// The reply FK migration is Postgres only.
	require.Len(t, records, 1)
	assert.Equal(t, "002_add_lookup_indexes", records[0].ID)
	assert.True(t, db.Migrator().HasIndex("users", "idx_users_lower_email"))
}

func TestRunRejectsMissingDependency(t *testing.T) {
	db := openTestDB(t)
	m := &Migrator{db: db, migrations: []Migration{{
		ID:        "010_needs_other",
		Name:      "needs other",
		DependsOn: []string{"009_missing"},
		Up:        func(*gorm.DB) error { return nil },
	}}}

	err := m.Run()
	assert.ErrorContains(t, err, "depends on 009_missing")
}
