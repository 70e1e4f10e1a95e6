package models

import (
	"math"
	"strings"
	"time"
)

// Visibility controls whether a character is listed for other users
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// CharacterStatus is the moderation state of a character
type CharacterStatus string

const (
	CharacterActive    CharacterStatus = "active"
	CharacterPending   CharacterStatus = "pending"
	CharacterSuspended CharacterStatus = "suspended"
)

type Character struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`
	CreatorID          uint            `json:"creator_id" gorm:"index"`
	Name               string          `json:"name" gorm:"size:50;not null"`
	GenreID            uint            `json:"genre_id" gorm:"index;not null"`
	Genre              *Genre          `json:"genre,omitempty"`
	Description        string          `json:"description" gorm:"not null"`
	Personality        string          `json:"personality" gorm:"not null"`
	BackgroundStory    string          `json:"background_story"`
	SpeakingStyle      string          `json:"speaking_style"`
	Tags               string          `json:"tags" gorm:"size:200"`
	Visibility         Visibility      `json:"visibility" gorm:"size:10;default:public;index"`
	Status             CharacterStatus `json:"status" gorm:"size:10;default:active;index"`
	TotalConversations int             `json:"total_conversations" gorm:"default:0"`
	RatingSum          int             `json:"rating_sum" gorm:"default:0"`
	RatingCount        int             `json:"rating_count" gorm:"default:0"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// AverageRating is rating_sum / rating_count rounded to one decimal, 0 when unrated
func (c *Character) AverageRating() float64 {
	if c.RatingCount <= 0 {
		return 0
	}
	avg := float64(c.RatingSum) / float64(c.RatingCount)
	return math.Round(avg*10) / 10
}

// TagList splits the comma-delimited tags, dropping blanks
func (c *Character) TagList() []string {
	return ParseTags(c.Tags)
}

// ParseTags splits a comma-delimited tag string into trimmed, non-empty tags
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// IsListed reports whether the character may appear in listings and rankings
func (c *Character) IsListed() bool {
	return c.Status == CharacterActive && c.Visibility == VisibilityPublic
}

// CharacterRating is one user's 1-5 rating of a character
type CharacterRating struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"uniqueIndex:idx_rating_user_character;not null"`
	CharacterID uint      `json:"character_id" gorm:"uniqueIndex:idx_rating_user_character;not null"`
	Rating      int       `json:"rating" gorm:"not null"`
	Review      string    `json:"review"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateCharacterRequest struct {
	Name            string     `json:"name" binding:"required,max=50"`
	GenreID         uint       `json:"genre_id" binding:"required"`
	Description     string     `json:"description" binding:"required"`
	Personality     string     `json:"personality" binding:"required"`
	BackgroundStory string     `json:"background_story"`
	SpeakingStyle   string     `json:"speaking_style"`
	Tags            string     `json:"tags" binding:"max=200"`
	Visibility      Visibility `json:"visibility"`
}

// CharacterView is the API representation of a character
type CharacterView struct {
	Character
	AverageRating float64  `json:"average_rating"`
	TagList       []string `json:"tag_list"`
}

// NewCharacterView decorates a character with its derived fields
func NewCharacterView(c Character) CharacterView {
	return CharacterView{
		Character:     c,
		AverageRating: c.AverageRating(),
		TagList:       c.TagList(),
	}
}
