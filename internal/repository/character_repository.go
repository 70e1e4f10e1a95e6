package repository

import (
	"context"
	"strings"

	"emotion-character-demo/backend/internal/models"

	"gorm.io/gorm"
)

// CharacterFilter narrows listings of active, public characters
type CharacterFilter struct {
	GenreID uint
	Query   string
}

type CharacterRepository interface {
	Create(ctx context.Context, character *models.Character) error
	GetByID(ctx context.Context, id uint) (*models.Character, error)
	ListListed(ctx context.Context, filter CharacterFilter) ([]models.Character, error)
	MaxTotalConversations(ctx context.Context) (int, error)
}

type GormCharacterRepository struct {
	db *gorm.DB
}

func NewGormCharacterRepository(db *gorm.DB) *GormCharacterRepository {
	return &GormCharacterRepository{db: db}
}

func (r *GormCharacterRepository) Create(ctx context.Context, character *models.Character) error {
	return r.db.WithContext(ctx).Create(character).Error
}

func (r *GormCharacterRepository) GetByID(ctx context.Context, id uint) (*models.Character, error) {
	var character models.Character
	err := r.db.WithContext(ctx).Preload("Genre").First(&character, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &character, nil
}

// search terms match literally, wildcards included
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListListed returns active, public characters in id order
func (r *GormCharacterRepository) ListListed(ctx context.Context, filter CharacterFilter) ([]models.Character, error) {
	q := r.db.WithContext(ctx).
		Preload("Genre").
		Where("status = ? AND visibility = ?", models.CharacterActive, models.VisibilityPublic)

	if filter.GenreID != 0 {
		q = q.Where("genre_id = ?", filter.GenreID)
	}
	if s := strings.TrimSpace(filter.Query); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(tags) LIKE ? ESCAPE '\'`, like, like, like)
	}

	var characters []models.Character
	err := q.Order("id ASC").Find(&characters).Error
	return characters, err
}

func (r *GormCharacterRepository) MaxTotalConversations(ctx context.Context) (int, error) {
	var highest int
	err := r.db.WithContext(ctx).
		Model(&models.Character{}).
		Select("COALESCE(MAX(total_conversations), 0)").
		Row().
		Scan(&highest)
	return highest, err
}
