// Package repository holds the gorm-backed persistence layer. Counter and
// aggregate maintenance happens here, inside the same transaction as the write
// that triggers it.
package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
)

// Repositories bundles every repository over one database handle
type Repositories struct {
	Characters    CharacterRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	Credits       CreditRepository
	Ratings       RatingRepository
	Emotions      EmotionRepository
}

// New wires the gorm implementations of every repository
func New(db *gorm.DB, initialCredits int) *Repositories {
	return &Repositories{
		Characters:    NewGormCharacterRepository(db),
		Conversations: NewGormConversationRepository(db),
		Messages:      NewGormMessageRepository(db),
		Credits:       NewGormCreditRepository(db, initialCredits),
		Ratings:       NewGormRatingRepository(db),
		Emotions:      NewGormEmotionRepository(db),
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
