package repository

import (
	"fmt"

	"emotion-character-demo/backend/internal/models"

	"gorm.io/gorm"
)

// Migrate creates or updates the schema and the indexes gorm tags cannot express
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Genre{},
		&models.Emotion{},
		&models.EmotionKeyword{},
		&models.EmotionGenreRecommendation{},
		&models.UserEmotionEntry{},
		&models.Character{},
		&models.CharacterRating{},
		&models.Conversation{},
		&models.Message{},
		&models.UserCredit{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// at most one active conversation per (user, character)
	stmts := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_conversations_active_pair ON conversations(user_id, character_id) WHERE status = 'active'",
		"CREATE INDEX IF NOT EXISTS idx_keywords_emotion ON emotion_keywords(emotion_id)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
