package models

import (
	"time"
)

// ConversationStatus is the lifecycle state of a conversation
type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationPaused ConversationStatus = "paused"
	ConversationEnded  ConversationStatus = "ended"
)

type Conversation struct {
	ID           uint               `json:"id" gorm:"primaryKey"`
	UserID       uint               `json:"user_id" gorm:"index;not null"`
	CharacterID  uint               `json:"character_id" gorm:"index;not null"`
	Character    *Character         `json:"character,omitempty"`
	Title        string             `json:"title" gorm:"size:100"`
	Status       ConversationStatus `json:"status" gorm:"size:10;default:active;index"`
	MessageCount int                `json:"message_count" gorm:"default:0"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	EndedAt      *time.Time         `json:"ended_at,omitempty"`
}

// Sender identifies who wrote a message
type Sender string

const (
	SenderUser      Sender = "user"
	SenderCharacter Sender = "character"
	SenderSystem    Sender = "system"
)

// Message is one append-only entry of a conversation transcript
type Message struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ConversationID uint      `json:"conversation_id" gorm:"index:idx_messages_conversation_created;not null"`
	Sender         Sender    `json:"sender" gorm:"size:10;not null"`
	Content        string    `json:"content" gorm:"not null"`
	AIModelUsed    string    `json:"ai_model_used,omitempty" gorm:"size:50"`
	GenerationTime *float64  `json:"generation_time,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"index:idx_messages_conversation_created"`
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

// UserCredit is the per-user balance of generation credits
type UserCredit struct {
	UserID      uint      `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	FreeCredits int       `json:"free_credits" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
