package seed

import (
	"testing"

	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/internal/testutil"
	"emotion-character-demo/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDataIsConsistent(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	assert.Len(t, d.Emotions, 7)
	assert.Len(t, d.Genres, 14)
	for _, e := range d.Emotions {
		assert.Len(t, e.Recommendations, 3, e.Name)
		assert.NotEmpty(t, e.Keywords, e.Name)
	}
}

func TestParseRejectsUnknownGenre(t *testing.T) {
	_, err := Parse([]byte(`
genres:
  - {name: healing}
emotions:
  - name: sad
    recommendations:
      - {genre: horror, priority: 1}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "horror")
}

func TestRunIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	d, err := Default()
	require.NoError(t, err)

	first, err := Run(db, d, Options{}, logger.Nop())
	require.NoError(t, err)
	assert.Positive(t, first.KeywordsCreated)

	second, err := Run(db, d, Options{}, logger.Nop())
	require.NoError(t, err)
	assert.Zero(t, second.KeywordsCreated)
	assert.Zero(t, second.KeywordsUpdated)
	assert.Equal(t, first.KeywordsCreated, second.KeywordsSkipped)

	var emotions []models.Emotion
	require.NoError(t, db.Find(&emotions).Error)
	assert.Len(t, emotions, 7)
	for _, e := range emotions {
		assert.True(t, e.IsActive)
	}

	var recs int64
	require.NoError(t, db.Model(&models.EmotionGenreRecommendation{}).Count(&recs).Error)
	assert.EqualValues(t, 21, recs)
}

func TestRunUpdatesChangedKeywordsAndFiltersByEmotion(t *testing.T) {
	db := testutil.NewDB(t)
	d, err := Default()
	require.NoError(t, err)

	res, err := Run(db, d, Options{Emotion: "lonely"}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, len(d.Emotions[2].Keywords), res.KeywordsCreated)

	d.Emotions[2].Keywords[0].Weight = 5
	res, err = Run(db, d, Options{Emotion: "lonely"}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, res.KeywordsUpdated)

	var kw models.EmotionKeyword
	require.NoError(t, db.Where("keyword = ?", d.Emotions[2].Keywords[0].Keyword).First(&kw).Error)
	assert.Equal(t, 5.0, kw.Weight)

	res, err = Run(db, d, Options{Reset: true}, logger.Nop())
	require.NoError(t, err)
	assert.Zero(t, res.KeywordsUpdated)
	assert.Zero(t, res.KeywordsSkipped)
}
