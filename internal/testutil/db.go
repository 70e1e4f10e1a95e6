// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory sqlite database private to the test
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.Migrate(db))
	return db
}

// Genre inserts a genre
func Genre(t testing.TB, db *gorm.DB, name string) *models.Genre {
	t.Helper()
	g := &models.Genre{Name: name, Description: name + " stories", Category: "webtoon"}
	require.NoError(t, db.Create(g).Error)
	return g
}

// Character inserts an active, public character; mutate customises it before insert
func Character(t testing.TB, db *gorm.DB, name string, genreID uint, mutate ...func(*models.Character)) *models.Character {
	t.Helper()
	c := &models.Character{
		CreatorID:   1,
		Name:        name,
		GenreID:     genreID,
		Description: name + " is a character",
		Personality: "calm",
		Visibility:  models.VisibilityPublic,
		Status:      models.CharacterActive,
	}
	for _, m := range mutate {
		m(c)
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// Emotion inserts an active emotion with the given keyword weights
func Emotion(t testing.TB, db *gorm.DB, name string, keywords map[string]float64) *models.Emotion {
	t.Helper()
	e := &models.Emotion{Name: name, Emoji: ":)", IsActive: true}
	require.NoError(t, db.Create(e).Error)
	for kw, w := range keywords {
		require.NoError(t, db.Create(&models.EmotionKeyword{EmotionID: e.ID, Keyword: kw, Weight: w}).Error)
	}
	return e
}

// Conversation inserts a conversation in the given status
func Conversation(t testing.TB, db *gorm.DB, userID, characterID uint, status models.ConversationStatus) *models.Conversation {
	t.Helper()
	c := &models.Conversation{UserID: userID, CharacterID: characterID, Status: status}
	require.NoError(t, db.Create(c).Error)
	return c
}
