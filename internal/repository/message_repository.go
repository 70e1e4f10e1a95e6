package repository

import (
	"context"
	"time"

	"emotion-character-demo/backend/internal/models"

	"gorm.io/gorm"
)

type MessageRepository interface {
	// Append stores the message and updates the conversation and character
	// counters in one transaction. It returns the conversation's new message count.
	Append(ctx context.Context, message *models.Message) (int, error)
	ListByConversation(ctx context.Context, conversationID uint) ([]models.Message, error)
	// Recent returns up to limit latest messages, oldest first
	Recent(ctx context.Context, conversationID uint, limit int) ([]models.Message, error)
	FirstUserMessage(ctx context.Context, conversationID uint) (*models.Message, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Append(ctx context.Context, message *models.Message) (int, error) {
	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		if err := tx.Select("id", "character_id").First(&conv, message.ConversationID).Error; err != nil {
			return notFound(err)
		}

		if err := tx.Create(message).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Updates(map[string]any{
				"message_count": gorm.Expr("message_count + ?", 1),
				"updated_at":    time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}

		if message.Sender == models.SenderUser {
			err := tx.Model(&models.Character{}).
				Where("id = ?", conv.CharacterID).
				UpdateColumn("total_conversations", gorm.Expr("total_conversations + ?", 1)).Error
			if err != nil {
				return err
			}
		}

		return tx.Model(&models.Conversation{}).
			Select("message_count").
			Where("id = ?", conv.ID).
			Row().
			Scan(&count)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormMessageRepository) ListByConversation(ctx context.Context, conversationID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

func (r *GormMessageRepository) Recent(ctx context.Context, conversationID uint, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *GormMessageRepository) FirstUserMessage(ctx context.Context, conversationID uint) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND sender = ?", conversationID, models.SenderUser).
		Order("created_at ASC, id ASC").
		First(&message).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &message, nil
}
