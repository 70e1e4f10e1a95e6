package models

import (
	"time"
)

type Genre struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"size:50;uniqueIndex;not null"`
	Description string `json:"description"`
	Category    string `json:"category" gorm:"size:30;default:webtoon"`
}

type Emotion struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	Name           string `json:"name" gorm:"size:20;uniqueIndex;not null"`
	Emoji          string `json:"emoji" gorm:"size:10"`
	ColorCode      string `json:"color_code" gorm:"size:7;default:#6366f1"`
	Description    string `json:"description"`
	SubDescription string `json:"sub_description" gorm:"size:50"`
	IsActive       bool   `json:"is_active" gorm:"not null;index"`
	Order          int    `json:"order" gorm:"column:sort_order;default:0"`
}

// EmotionKeyword is a weighted word signalling an emotion. Scoring input only.
type EmotionKeyword struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	EmotionID   uint    `json:"emotion_id" gorm:"index;not null"`
	Keyword     string  `json:"keyword" gorm:"size:50;not null"`
	Weight      float64 `json:"weight" gorm:"not null;default:1"`
	Description string  `json:"description"`
}

// EmotionGenreRecommendation maps an emotion to a genre with a priority
type EmotionGenreRecommendation struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	EmotionID       uint   `json:"emotion_id" gorm:"uniqueIndex:idx_emotion_genre;not null"`
	GenreID         uint   `json:"genre_id" gorm:"uniqueIndex:idx_emotion_genre;not null"`
	Genre           *Genre `json:"genre,omitempty"`
	Priority        int    `json:"priority" gorm:"not null"`
	Reason          string `json:"reason"`
	MatchPercentage int    `json:"match_percentage" gorm:"default:80"`
}

// UserEmotionEntry records the emotion a user picked on a given day
type UserEmotionEntry struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	UserID         uint      `json:"user_id" gorm:"uniqueIndex:idx_entry_user_date;not null"`
	EmotionID      uint      `json:"emotion_id" gorm:"not null"`
	Emotion        *Emotion  `json:"emotion,omitempty"`
	Date           string    `json:"date" gorm:"uniqueIndex:idx_entry_user_date;size:10;not null"` // YYYY-MM-DD
	SelectedGenres []Genre   `json:"selected_genres" gorm:"many2many:user_emotion_entry_genres"`
	Note           string    `json:"note"`
	Intensity      int       `json:"intensity" gorm:"default:5"`
	CreatedAt      time.Time `json:"created_at"`
}

type SaveEmotionEntryRequest struct {
	EmotionID      uint   `json:"emotion_id" binding:"required"`
	SelectedGenres []uint `json:"selected_genres"`
	Note           string `json:"note"`
	Intensity      int    `json:"intensity"`
	Date           string `json:"date"`
}
