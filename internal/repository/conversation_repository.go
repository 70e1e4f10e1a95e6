package repository

import (
	"context"
	"errors"
	"time"

	"emotion-character-demo/backend/internal/models"

	"gorm.io/gorm"
)

type ConversationRepository interface {
	// GetOrCreateActive returns the active conversation for the pair, creating
	// one when none exists. created reports whether a new row was written.
	GetOrCreateActive(ctx context.Context, userID, characterID uint) (conv *models.Conversation, created bool, err error)
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Conversation, error)
	// ActiveGenreCounts counts the user's active conversations per character genre
	ActiveGenreCounts(ctx context.Context, userID uint) (map[uint]int, error)
	SetTitleIfEmpty(ctx context.Context, id uint, title string) (bool, error)
	End(ctx context.Context, id uint) error
}

type GormConversationRepository struct {
	db *gorm.DB
}

func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

func (r *GormConversationRepository) findActive(tx *gorm.DB, userID, characterID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := tx.Where("user_id = ? AND character_id = ? AND status = ?", userID, characterID, models.ConversationActive).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *GormConversationRepository) GetOrCreateActive(ctx context.Context, userID, characterID uint) (*models.Conversation, bool, error) {
	db := r.db.WithContext(ctx)

	var (
		conv    *models.Conversation
		created bool
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		existing, err := r.findActive(tx, userID, characterID)
		if err == nil {
			conv = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		conv = &models.Conversation{
			UserID:      userID,
			CharacterID: characterID,
			Status:      models.ConversationActive,
		}
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		// lost the race against a concurrent create; the unique index kept one row
		if existing, findErr := r.findActive(db, userID, characterID); findErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return conv, created, nil
}

func (r *GormConversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).Preload("Character.Genre").First(&conv, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &conv, nil
}

func (r *GormConversationRepository) ListByUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Character").
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&convs).Error
	return convs, err
}

func (r *GormConversationRepository) ActiveGenreCounts(ctx context.Context, userID uint) (map[uint]int, error) {
	var rows []struct {
		GenreID uint
		Count   int
	}
	err := r.db.WithContext(ctx).
		Table("conversations").
		Select("characters.genre_id AS genre_id, COUNT(*) AS count").
		Joins("JOIN characters ON characters.id = conversations.character_id").
		Where("conversations.user_id = ? AND conversations.status = ?", userID, models.ConversationActive).
		Group("characters.genre_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.GenreID] = row.Count
	}
	return counts, nil
}

func (r *GormConversationRepository) SetTitleIfEmpty(ctx context.Context, id uint, title string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ? AND (title = '' OR title IS NULL)", id).
		Update("title", title)
	return res.RowsAffected > 0, res.Error
}

func (r *GormConversationRepository) End(ctx context.Context, id uint) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": models.ConversationEnded, "ended_at": &now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
