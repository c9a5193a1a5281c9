package migrations

import (
	"gorm.io/gorm"
)

// Migration001AddReplyToFK adds the self-referencing reply constraint on
// messages. AutoMigrate does not create it reliably for self references.
func Migration001AddReplyToFK() Migration {
	return Migration{
		ID:       "001_add_reply_to_fk",
		Name:     "Add foreign key constraint for message replies",
		Dialects: []string{"postgres"},
		Up: func(db *gorm.DB) error {
			cleanupSQL := `
				UPDATE messages
				SET reply_to_id = NULL
				WHERE reply_to_id IS NOT NULL
				AND reply_to_id NOT IN (SELECT id FROM messages)
			`
			if err := db.Exec(cleanupSQL).Error; err != nil {
				return err
			}

			var count int64
			checkSQL := `
				SELECT COUNT(*)
				FROM information_schema.table_constraints
				WHERE constraint_name = 'fk_messages_reply_to'
				AND table_name = 'messages'
			`
			if err := db.Raw(checkSQL).Scan(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return nil
			}

			return db.Exec(`
				ALTER TABLE messages
				ADD CONSTRAINT fk_messages_reply_to
				FOREIGN KEY (reply_to_id)
				REFERENCES messages(id)
				ON DELETE SET NULL
			`).Error
		},
		Down: func(db *gorm.DB) error {
			return db.Exec(`ALTER TABLE messages DROP CONSTRAINT IF EXISTS fk_messages_reply_to`).Error
		},
	}
}
