package service

import (
	"context"
	"errors"
	"fmt"

	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/internal/repository"
	"emotion-character-demo/backend/pkg/logger"
)

type ConversationService struct {
	repos      *repository.Repositories
	characters *CharacterService
	log        *logger.Logger
}

func NewConversationService(repos *repository.Repositories, characters *CharacterService, log *logger.Logger) *ConversationService {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &ConversationService{repos: repos, characters: characters, log: log}
}

// Start returns the user's active conversation with the character, opening
// one if none exists. created reports whether a new conversation was opened.
func (s *ConversationService) Start(ctx context.Context, userID, characterID uint) (*models.Conversation, bool, error) {
	character, err := s.characters.lookup(ctx, userID, characterID)
	if err != nil {
		return nil, false, err
	}

	conv, created, err := s.repos.Conversations.GetOrCreateActive(ctx, userID, characterID)
	if err != nil {
		return nil, false, fmt.Errorf("start conversation: %w", err)
	}
	conv.Character = character

	if created {
		s.log.Info("Conversation started", "conversation_id", conv.ID, "user_id", userID, "character_id", characterID)
	}
	return conv, created, nil
}

func (s *ConversationService) List(ctx context.Context, userID uint) ([]models.Conversation, error) {
	convs, err := s.repos.Conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// Get returns a conversation owned by the user
func (s *ConversationService) Get(ctx context.Context, userID, conversationID uint) (*models.Conversation, error) {
	return s.owned(ctx, userID, conversationID)
}

// Messages returns the full transcript of a conversation owned by the user
func (s *ConversationService) Messages(ctx context.Context, userID, conversationID uint) ([]models.Message, error) {
	if _, err := s.owned(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	messages, err := s.repos.Messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// End closes the conversation; ending an ended conversation is a no-op
func (s *ConversationService) End(ctx context.Context, userID, conversationID uint) (*models.Conversation, error) {
	conv, err := s.owned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == models.ConversationEnded {
		return conv, nil
	}

	if err := s.repos.Conversations.End(ctx, conversationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("end conversation: %w", err)
	}

	s.log.Info("Conversation ended", "conversation_id", conversationID, "user_id", userID)
	return s.owned(ctx, userID, conversationID)
}

func (s *ConversationService) owned(ctx context.Context, userID, conversationID uint) (*models.Conversation, error) {
	conv, err := s.repos.Conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}
