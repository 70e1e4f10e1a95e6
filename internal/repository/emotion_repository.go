package repository

import (
	"context"
	"errors"

	"emotion-character-demo/backend/internal/models"

	"gorm.io/gorm"
)

// EmotionCount is how often a user picked one emotion
type EmotionCount struct {
	EmotionID uint   `json:"emotion_id"`
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	Count     int64  `json:"count"`
}

// EntryStats summarises a user's emotion history
type EntryStats struct {
	Total          int64         `json:"total_entries"`
	MostCommon     *EmotionCount `json:"most_common_emotion"`
	ThisMonthCount int64         `json:"this_month_count"`
}

type EmotionRepository interface {
	ListActive(ctx context.Context) ([]models.Emotion, error)
	GetActive(ctx context.Context, id uint) (*models.Emotion, error)
	Keywords(ctx context.Context, emotionID uint) ([]models.EmotionKeyword, error)
	GenreRecommendations(ctx context.Context, emotionID uint) ([]models.EmotionGenreRecommendation, error)
	ListGenres(ctx context.Context) ([]models.Genre, error)
	GenresByIDs(ctx context.Context, ids []uint) ([]models.Genre, error)
	// SaveEntry creates or replaces the entry for (user, date); created reports which
	SaveEntry(ctx context.Context, entry *models.UserEmotionEntry, genreIDs []uint) (created bool, err error)
	ListEntries(ctx context.Context, userID uint, limit, offset int) ([]models.UserEmotionEntry, error)
	// EntryStats counts entries overall and for the month prefix (YYYY-MM)
	EntryStats(ctx context.Context, userID uint, month string) (*EntryStats, error)
}

type GormEmotionRepository struct {
	db *gorm.DB
}

func NewGormEmotionRepository(db *gorm.DB) *GormEmotionRepository {
	return &GormEmotionRepository{db: db}
}

func (r *GormEmotionRepository) ListActive(ctx context.Context) ([]models.Emotion, error) {
	var emotions []models.Emotion
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&emotions).Error
	return emotions, err
}

func (r *GormEmotionRepository) GetActive(ctx context.Context, id uint) (*models.Emotion, error) {
	var emotion models.Emotion
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&emotion).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &emotion, nil
}

func (r *GormEmotionRepository) Keywords(ctx context.Context, emotionID uint) ([]models.EmotionKeyword, error) {
	var keywords []models.EmotionKeyword
	err := r.db.WithContext(ctx).
		Where("emotion_id = ?", emotionID).
		Order("id ASC").
		Find(&keywords).Error
	return keywords, err
}

func (r *GormEmotionRepository) GenreRecommendations(ctx context.Context, emotionID uint) ([]models.EmotionGenreRecommendation, error) {
	var recs []models.EmotionGenreRecommendation
	err := r.db.WithContext(ctx).
		Preload("Genre").
		Where("emotion_id = ?", emotionID).
		Order("priority ASC, id ASC").
		Find(&recs).Error
	return recs, err
}

func (r *GormEmotionRepository) ListGenres(ctx context.Context) ([]models.Genre, error) {
	var genres []models.Genre
	err := r.db.WithContext(ctx).Order("name ASC").Find(&genres).Error
	return genres, err
}

func (r *GormEmotionRepository) GenresByIDs(ctx context.Context, ids []uint) ([]models.Genre, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var genres []models.Genre
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&genres).Error
	return genres, err
}

func (r *GormEmotionRepository) SaveEntry(ctx context.Context, entry *models.UserEmotionEntry, genreIDs []uint) (bool, error) {
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.UserEmotionEntry
		err := tx.Where("user_id = ? AND date = ?", entry.UserID, entry.Date).First(&existing).Error
		switch {
		case err == nil:
			existing.EmotionID = entry.EmotionID
			existing.Note = entry.Note
			existing.Intensity = entry.Intensity
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			*entry = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Omit("SelectedGenres").Create(entry).Error; err != nil {
				return err
			}
			created = true
		default:
			return err
		}

		assoc := tx.Model(entry).Association("SelectedGenres")
		if len(genreIDs) == 0 {
			entry.SelectedGenres = nil
			return assoc.Clear()
		}

		var genres []models.Genre
		if err := tx.Where("id IN ?", genreIDs).Find(&genres).Error; err != nil {
			return err
		}
		entry.SelectedGenres = genres
		return assoc.Replace(genres)
	})
	return created, err
}

func (r *GormEmotionRepository) ListEntries(ctx context.Context, userID uint, limit, offset int) ([]models.UserEmotionEntry, error) {
	var entries []models.UserEmotionEntry
	err := r.db.WithContext(ctx).
		Preload("Emotion").
		Preload("SelectedGenres").
		Where("user_id = ?", userID).
		Order("date DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}

func (r *GormEmotionRepository) EntryStats(ctx context.Context, userID uint, month string) (*EntryStats, error) {
	db := r.db.WithContext(ctx)
	stats := &EntryStats{}

	if err := db.Model(&models.UserEmotionEntry{}).Where("user_id = ?", userID).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if stats.Total == 0 {
		return stats, nil
	}

	var top []EmotionCount
	err := db.Table("user_emotion_entries").
		Select("user_emotion_entries.emotion_id AS emotion_id, emotions.name AS name, emotions.emoji AS emoji, COUNT(*) AS count").
		Joins("JOIN emotions ON emotions.id = user_emotion_entries.emotion_id").
		Where("user_emotion_entries.user_id = ?", userID).
		Group("user_emotion_entries.emotion_id, emotions.name, emotions.emoji").
		Order("count DESC, emotion_id ASC").
		Limit(1).
		Scan(&top).Error
	if err != nil {
		return nil, err
	}
	if len(top) > 0 {
		stats.MostCommon = &top[0]
	}

	err = db.Model(&models.UserEmotionEntry{}).
		Where("user_id = ? AND date LIKE ?", userID, month+"-%").
		Count(&stats.ThisMonthCount).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
