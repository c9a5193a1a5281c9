package migrations

import (
	"gorm.io/gorm"
)

// Migration002AddLookupIndexes adds expression and composite indexes gorm
// tags cannot express.
//
// 1. Case-insensitive email lookup on login and registration
// 2. Recipient membership checks filtered by status
// 3. Contact listing by owner and status
func Migration002AddLookupIndexes() Migration {
	return Migration{
		ID:   "002_add_lookup_indexes",
		Name: "Add lookup indexes for login, membership and contacts",
		Up: func(db *gorm.DB) error {
			statements := []string{
				`CREATE INDEX IF NOT EXISTS idx_users_lower_email ON users (lower(email))`,
				`CREATE INDEX IF NOT EXISTS idx_chat_recipients_user_status ON chat_recipients (user_id, status)`,
				`CREATE INDEX IF NOT EXISTS idx_contacts_owner_status ON contacts (owner_id, status)`,
			}
			for _, stmt := range statements {
				if err := db.Exec(stmt).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Down: func(db *gorm.DB) error {
			for _, idx := range []string{"idx_contacts_owner_status", "idx_chat_recipients_user_status", "idx_users_lower_email"} {
				if err := db.Exec(`DROP INDEX IF EXISTS ` + idx).Error; err != nil {
					return err
				}
			}
			return nil
		},
	}
}
