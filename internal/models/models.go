package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Role{},
		&User{},
		&Contact{},
		&Attachment{},
		&ChatSession{},
		&ChatRecipient{},
		&Message{},
		&MessageReaction{},
		&OtpVerification{},
		&Notification{},
		&Post{},
		&Category{},
		&Product{},
		&Setting{},
		&AdminAction{},
	}
}
