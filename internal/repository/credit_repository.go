package repository

import (
	"context"
	"errors"
	"time"

	"emotion-character-demo/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreditRepository interface {
	// GetOrCreate returns the user's credit row, granting the initial balance on first access
	GetOrCreate(ctx context.Context, userID uint) (*models.UserCredit, error)
	// Debit subtracts amount only when the balance covers it and returns the new balance
	Debit(ctx context.Context, userID uint, amount int) (int, error)
	// Grant adds credits, creating the row if needed
	Grant(ctx context.Context, userID uint, amount int) (int, error)
}

type GormCreditRepository struct {
	db           *gorm.DB
	initialGrant int
}

func NewGormCreditRepository(db *gorm.DB, initialGrant int) *GormCreditRepository {
	return &GormCreditRepository{db: db, initialGrant: initialGrant}
}

func (r *GormCreditRepository) GetOrCreate(ctx context.Context, userID uint) (*models.UserCredit, error) {
	db := r.db.WithContext(ctx)

	var credit models.UserCredit
	err := db.First(&credit, "user_id = ?", userID).Error
	if err == nil {
		return &credit, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserCredit{UserID: userID, FreeCredits: r.initialGrant}).Error
	if err != nil {
		return nil, err
	}

	if err := db.First(&credit, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &credit, nil
}

func (r *GormCreditRepository) Debit(ctx context.Context, userID uint, amount int) (int, error) {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return 0, err
	}

	var remaining int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserCredit{}).
			Where("user_id = ? AND free_credits >= ?", userID, amount).
			Updates(map[string]any{
				"free_credits": gorm.Expr("free_credits - ?", amount),
				"updated_at":   time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientCredits
		}
		return tx.Model(&models.UserCredit{}).
			Select("free_credits").
			Where("user_id = ?", userID).
			Row().
			Scan(&remaining)
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

func (r *GormCreditRepository) Grant(ctx context.Context, userID uint, amount int) (int, error) {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return 0, err
	}

	var balance int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.UserCredit{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"free_credits": gorm.Expr("free_credits + ?", amount),
				"updated_at":   time.Now(),
			}).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.UserCredit{}).
			Select("free_credits").
			Where("user_id = ?", userID).
			Row().
			Scan(&balance)
	})
	return balance, err
}
