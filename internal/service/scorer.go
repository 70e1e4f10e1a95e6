package service

import (
	"sort"
	"strings"

	"emotion-character-demo/backend/internal/models"
)

// Component weights of the match score
const (
	KeywordWeight    = 0.4
	PreferenceWeight = 0.3
	RatingWeight     = 0.2
	PopularityWeight = 0.1

	neutralPreference = 0.5
)

// ScoreInput is everything needed to score one character for one emotion and user
type ScoreInput struct {
	Character *models.Character
	Keywords  []models.EmotionKeyword
	// GenreCounts is the user's active conversations per character genre
	GenreCounts map[uint]int
	// MaxTotalConversations is the highest total_conversations of any character
	MaxTotalConversations int
}

// ScoreBreakdown holds each clamped component and the weighted total
type ScoreBreakdown struct {
	Keyword    float64 `json:"keyword"`
	Preference float64 `json:"preference"`
	Rating     float64 `json:"rating"`
	Popularity float64 `json:"popularity"`
	Total      float64 `json:"total"`
}

// ScoredCharacter pairs a character with its score
type ScoredCharacter struct {
	Character models.Character `json:"character"`
	Score     ScoreBreakdown   `json:"score"`
}

// Scorer computes character/emotion match scores. It holds no state, so the
// same inputs always produce the same score.
type Scorer struct{}

// Score never fails: missing data falls back to the neutral value of its component
func (Scorer) Score(in ScoreInput) ScoreBreakdown {
	var b ScoreBreakdown
	if in.Character == nil {
		b.Preference = neutralPreference
		b.Total = clamp01(PreferenceWeight * b.Preference)
		return b
	}

	b.Keyword = clamp01(keywordScore(in.Character, in.Keywords))
	b.Preference = clamp01(preferenceScore(in.Character.GenreID, in.GenreCounts))
	b.Rating = clamp01(in.Character.AverageRating() / 5)
	b.Popularity = clamp01(popularityScore(in.Character.TotalConversations, in.MaxTotalConversations))

	b.Total = clamp01(KeywordWeight*b.Keyword +
		PreferenceWeight*b.Preference +
		RatingWeight*b.Rating +
		PopularityWeight*b.Popularity)
	return b
}

// Rank scores the candidates and sorts them by descending total. Ties keep
// the candidates' input order.
func (s Scorer) Rank(candidates []models.Character, keywords []models.EmotionKeyword, genreCounts map[uint]int, maxTotal int) []ScoredCharacter {
	ranked := make([]ScoredCharacter, len(candidates))
	for i := range candidates {
		ranked[i] = ScoredCharacter{
			Character: candidates[i],
			Score: s.Score(ScoreInput{
				Character:             &candidates[i],
				Keywords:              keywords,
				GenreCounts:           genreCounts,
				MaxTotalConversations: maxTotal,
			}),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Total > ranked[j].Score.Total
	})
	return ranked
}

func characterText(c *models.Character) string {
	return strings.ToLower(strings.Join([]string{
		c.Description,
		c.Personality,
		c.BackgroundStory,
		c.SpeakingStyle,
		c.Tags,
	}, " "))
}

func keywordScore(c *models.Character, keywords []models.EmotionKeyword) float64 {
	text := characterText(c)

	var total, matched float64
	for _, kw := range keywords {
		w := kw.Weight
		if w <= 0 {
			continue
		}
		total += w

		term := strings.ToLower(strings.TrimSpace(kw.Keyword))
		if term != "" && strings.Contains(text, term) {
			matched += w
		}
	}
	if total == 0 {
		return 0
	}
	return matched / total
}

func preferenceScore(genreID uint, genreCounts map[uint]int) float64 {
	var total int
	for _, n := range genreCounts {
		if n > 0 {
			total += n
		}
	}
	if total == 0 {
		return neutralPreference
	}
	return float64(genreCounts[genreID]) / float64(total)
}

func popularityScore(conversations, maxTotal int) float64 {
	if conversations <= 0 {
		return 0
	}
	if maxTotal < 1 {
		maxTotal = 1
	}
	return float64(conversations) / float64(maxTotal)
}

func clamp01(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
