package repository

import (
	"context"
	"errors"

	"emotion-character-demo/backend/internal/models"

	"gorm.io/gorm"
)

type RatingRepository interface {
	// Upsert stores the user's rating and recomputes the character's aggregates.
	// It returns the character with refreshed rating_sum and rating_count.
	Upsert(ctx context.Context, rating *models.CharacterRating) (*models.Character, error)
}

type GormRatingRepository struct {
	db *gorm.DB
}

func NewGormRatingRepository(db *gorm.DB) *GormRatingRepository {
	return &GormRatingRepository{db: db}
}

func (r *GormRatingRepository) Upsert(ctx context.Context, rating *models.CharacterRating) (*models.Character, error) {
	if rating.Rating < 1 || rating.Rating > 5 {
		return nil, ErrInvalidRating
	}

	var character models.Character
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&character, rating.CharacterID).Error; err != nil {
			return notFound(err)
		}

		var existing models.CharacterRating
		err := tx.Where("user_id = ? AND character_id = ?", rating.UserID, rating.CharacterID).First(&existing).Error
		switch {
		case err == nil:
			existing.Rating = rating.Rating
			existing.Review = rating.Review
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			*rating = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(rating).Error; err != nil {
				return err
			}
		default:
			return err
		}

		var agg struct {
			Total int
			Count int
		}
		err = tx.Model(&models.CharacterRating{}).
			Select("COALESCE(SUM(rating), 0) AS total, COUNT(*) AS count").
			Where("character_id = ?", rating.CharacterID).
			Scan(&agg).Error
		if err != nil {
			return err
		}

		character.RatingSum = agg.Total
		character.RatingCount = agg.Count
		return tx.Model(&models.Character{}).
			Where("id = ?", character.ID).
			UpdateColumns(map[string]any{"rating_sum": agg.Total, "rating_count": agg.Count}).Error
	})
	if err != nil {
		return nil, err
	}
	return &character, nil
}
