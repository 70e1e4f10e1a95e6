package service

import (
	"math/rand"
	"testing"

	"emotion-character-demo/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func luna() *models.Character {
	return &models.Character{
		ID:          1,
		Name:        "Luna",
		GenreID:     10,
		Personality: "warm, always ready to comfort a friend",
		Status:      models.CharacterActive,
		Visibility:  models.VisibilityPublic,
	}
}

func TestScoreKeywordMatchFull(t *testing.T) {
	keywords := []models.EmotionKeyword{{Keyword: "comfort", Weight: 3.0}}

	b := Scorer{}.Score(ScoreInput{Character: luna(), Keywords: keywords})

	assert.Equal(t, 1.0, b.Keyword)
}

func TestScoreKeywordCaseInsensitiveAcrossFields(t *testing.T) {
	c := luna()
	c.Personality = "quiet"
	c.Tags = "Moon, HEALING"
	c.SpeakingStyle = "soft whisper"
	keywords := []models.EmotionKeyword{
		{Keyword: "healing", Weight: 2},
		{Keyword: "Whisper", Weight: 1},
		{Keyword: "anger", Weight: 1},
	}

	b := Scorer{}.Score(ScoreInput{Character: c, Keywords: keywords})

	assert.InDelta(t, 0.75, b.Keyword, 1e-9)
}

func TestScoreZeroKeywordWeight(t *testing.T) {
	for _, keywords := range [][]models.EmotionKeyword{
		nil,
		{{Keyword: "comfort", Weight: 0}},
		{{Keyword: "comfort", Weight: -2}},
	} {
		b := Scorer{}.Score(ScoreInput{Character: luna(), Keywords: keywords})
		assert.Equal(t, 0.0, b.Keyword)
	}
}

func TestScorePreference(t *testing.T) {
	c := luna()

	noHistory := Scorer{}.Score(ScoreInput{Character: c})
	assert.Equal(t, 0.5, noHistory.Preference)

	emptyCounts := Scorer{}.Score(ScoreInput{Character: c, GenreCounts: map[uint]int{}})
	assert.Equal(t, 0.5, emptyCounts.Preference)

	mixed := Scorer{}.Score(ScoreInput{Character: c, GenreCounts: map[uint]int{10: 1, 20: 3}})
	assert.Equal(t, 0.25, mixed.Preference)

	other := Scorer{}.Score(ScoreInput{Character: c, GenreCounts: map[uint]int{20: 2}})
	assert.Equal(t, 0.0, other.Preference)
}

func TestScoreRatingAndPopularity(t *testing.T) {
	c := luna()
	c.RatingSum = 9
	c.RatingCount = 2 // 4.5
	c.TotalConversations = 5

	b := Scorer{}.Score(ScoreInput{Character: c, MaxTotalConversations: 20})
	assert.InDelta(t, 0.9, b.Rating, 1e-9)
	assert.InDelta(t, 0.25, b.Popularity, 1e-9)

	// divisor never below 1
	c.TotalConversations = 3
	b = Scorer{}.Score(ScoreInput{Character: c, MaxTotalConversations: 0})
	assert.Equal(t, 1.0, b.Popularity)
}

func TestScoreWeightedTotal(t *testing.T) {
	c := luna()
	c.RatingSum = 5
	c.RatingCount = 1
	c.TotalConversations = 10

	b := Scorer{}.Score(ScoreInput{
		Character:             c,
		Keywords:              []models.EmotionKeyword{{Keyword: "comfort", Weight: 3}},
		GenreCounts:           map[uint]int{10: 2},
		MaxTotalConversations: 10,
	})
	assert.InDelta(t, 1.0, b.Total, 1e-9)

	fresh := Scorer{}.Score(ScoreInput{Character: &models.Character{GenreID: 10}})
	assert.InDelta(t, 0.15, fresh.Total, 1e-9)
}

func TestScoreNilCharacterIsNeutral(t *testing.T) {
	b := Scorer{}.Score(ScoreInput{})
	assert.Equal(t, 0.5, b.Preference)
	assert.InDelta(t, 0.15, b.Total, 1e-9)
}

func TestScoreBoundedAndDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	words := []string{"comfort", "brave", "rain", "sun", "tears", "laugh"}

	for i := 0; i < 200; i++ {
		c := &models.Character{
			GenreID:            uint(rng.Intn(3) + 1),
			Description:        words[rng.Intn(len(words))],
			Personality:        words[rng.Intn(len(words))],
			RatingSum:          rng.Intn(50),
			RatingCount:        rng.Intn(10),
			TotalConversations: rng.Intn(100) - 10,
		}
		var keywords []models.EmotionKeyword
		for j := 0; j < rng.Intn(4); j++ {
			keywords = append(keywords, models.EmotionKeyword{
				Keyword: words[rng.Intn(len(words))],
				Weight:  rng.Float64()*4 - 1,
			})
		}
		in := ScoreInput{
			Character:             c,
			Keywords:              keywords,
			GenreCounts:           map[uint]int{1: rng.Intn(3), 2: rng.Intn(3)},
			MaxTotalConversations: rng.Intn(60),
		}

		first := Scorer{}.Score(in)
		second := Scorer{}.Score(in)
		assert.Equal(t, first, second)

		for _, v := range []float64{first.Keyword, first.Preference, first.Rating, first.Popularity, first.Total} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestRankStableDescending(t *testing.T) {
	candidates := []models.Character{
		{ID: 1, Name: "A", GenreID: 10},
		{ID: 2, Name: "B", GenreID: 10, Personality: "comfort"},
		{ID: 3, Name: "C", GenreID: 10},
		{ID: 4, Name: "D", GenreID: 10, Personality: "comfort"},
		{ID: 5, Name: "E", GenreID: 10},
	}
	keywords := []models.EmotionKeyword{{Keyword: "comfort", Weight: 1}}

	ranked := Scorer{}.Rank(candidates, keywords, nil, 0)

	var ids []uint
	for _, r := range ranked {
		ids = append(ids, r.Character.ID)
	}
	assert.Equal(t, []uint{2, 4, 1, 3, 5}, ids)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score.Total, ranked[i].Score.Total)
	}
}
