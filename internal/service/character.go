package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/internal/repository"
	"emotion-character-demo/backend/pkg/logger"
)

var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrGenreNotFound     = errors.New("genre not found")
)

const (
	maxCharacterName = 50
	maxCharacterTags = 200
)

type CharacterService struct {
	repos *repository.Repositories
	log   *logger.Logger
}

func NewCharacterService(repos *repository.Repositories, log *logger.Logger) *CharacterService {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &CharacterService{repos: repos, log: log}
}

// List returns listed characters, optionally narrowed by genre and a search query
func (s *CharacterService) List(ctx context.Context, genreID uint, query string) ([]models.CharacterView, error) {
	characters, err := s.repos.Characters.ListListed(ctx, repository.CharacterFilter{GenreID: genreID, Query: query})
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}

	views := make([]models.CharacterView, 0, len(characters))
	for _, c := range characters {
		views = append(views, models.NewCharacterView(c))
	}
	return views, nil
}

// Get returns a listed character, or any character to its creator
func (s *CharacterService) Get(ctx context.Context, userID, id uint) (*models.CharacterView, error) {
	c, err := s.lookup(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	view := models.NewCharacterView(*c)
	return &view, nil
}

func (s *CharacterService) lookup(ctx context.Context, userID, id uint) (*models.Character, error) {
	c, err := s.repos.Characters.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("load character: %w", err)
	}
	if !c.IsListed() && c.CreatorID != userID {
		return nil, ErrCharacterNotFound
	}
	return c, nil
}

// Create stores a new active character owned by creatorID
func (s *CharacterService) Create(ctx context.Context, creatorID uint, req *models.CreateCharacterRequest) (*models.CharacterView, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "" || strings.TrimSpace(req.Description) == "" || strings.TrimSpace(req.Personality) == "":
		return nil, &ValidationError{Reason: "missing_field"}
	case utf8.RuneCountInString(name) > maxCharacterName:
		return nil, &ValidationError{Reason: "name_too_long"}
	case utf8.RuneCountInString(req.Tags) > maxCharacterTags:
		return nil, &ValidationError{Reason: "tags_too_long"}
	}

	visibility := req.Visibility
	switch visibility {
	case "":
		visibility = models.VisibilityPublic
	case models.VisibilityPublic, models.VisibilityPrivate:
	default:
		return nil, &ValidationError{Reason: "visibility"}
	}

	genres, err := s.repos.Emotions.GenresByIDs(ctx, []uint{req.GenreID})
	if err != nil {
		return nil, fmt.Errorf("load genre: %w", err)
	}
	if len(genres) == 0 {
		return nil, ErrGenreNotFound
	}

	c := &models.Character{
		CreatorID:       creatorID,
		Name:            name,
		GenreID:         req.GenreID,
		Genre:           &genres[0],
		Description:     strings.TrimSpace(req.Description),
		Personality:     strings.TrimSpace(req.Personality),
		BackgroundStory: strings.TrimSpace(req.BackgroundStory),
		SpeakingStyle:   strings.TrimSpace(req.SpeakingStyle),
		Tags:            strings.Join(models.ParseTags(req.Tags), ","),
		Visibility:      visibility,
		Status:          models.CharacterActive,
	}
	if err := s.repos.Characters.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create character: %w", err)
	}

	s.log.Info("Character created", "character_id", c.ID, "creator_id", creatorID)
	view := models.NewCharacterView(*c)
	return &view, nil
}

// Rate stores the user's 1-5 rating and returns the character with fresh aggregates
func (s *CharacterService) Rate(ctx context.Context, userID, characterID uint, rating int, review string) (*models.CharacterView, error) {
	if rating < 1 || rating > 5 {
		return nil, &ValidationError{Reason: "rating"}
	}
	if _, err := s.lookup(ctx, userID, characterID); err != nil {
		return nil, err
	}

	c, err := s.repos.Ratings.Upsert(ctx, &models.CharacterRating{
		UserID:      userID,
		CharacterID: characterID,
		Rating:      rating,
		Review:      strings.TrimSpace(review),
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrCharacterNotFound
	case errors.Is(err, repository.ErrInvalidRating):
		return nil, &ValidationError{Reason: "rating"}
	case err != nil:
		return nil, fmt.Errorf("rate character: %w", err)
	}

	view := models.NewCharacterView(*c)
	return &view, nil
}
