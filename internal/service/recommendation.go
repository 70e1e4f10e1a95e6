package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/internal/repository"
	"emotion-character-demo/backend/pkg/cache"
	"emotion-character-demo/backend/pkg/logger"
	"emotion-character-demo/backend/pkg/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const defaultRecommendationLimit = 10

var ErrEmotionNotFound = errors.New("emotion not found")

// GenreRecommendation is one genre suggested for an emotion with its best characters
type GenreRecommendation struct {
	Genre           models.Genre      `json:"genre"`
	Priority        int               `json:"priority"`
	Reason          string            `json:"reason"`
	MatchPercentage int               `json:"match_percentage"`
	Characters      []ScoredCharacter `json:"characters"`
}

type EmotionRecommendations struct {
	Emotion models.Emotion        `json:"emotion"`
	Genres  []GenreRecommendation `json:"genres"`
}

// rankingContext is the per-user data shared by every ranking pass of a request
type rankingContext struct {
	keywords    []models.EmotionKeyword
	genreCounts map[uint]int
	maxTotal    int
}

type RecommendationService struct {
	repos    *repository.Repositories
	scorer   Scorer
	keywords *cache.Cache
	log      *logger.Logger
	tracer   trace.Tracer
	scores   metric.Float64Histogram
}

// NewRecommendationService caches the keywords of up to cacheSize emotions
// for keywordTTL
func NewRecommendationService(repos *repository.Repositories, keywordTTL time.Duration, cacheSize int, log *logger.Logger) *RecommendationService {
	if log == nil {
		log = logger.GetGlobal()
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}

	meter := otel.Meter("emotion-character-demo/backend/internal/service")
	scores, err := meter.Float64Histogram(
		"recommendation.score",
		metric.WithDescription("Match score of ranked characters"),
	)
	if err != nil {
		log.LogError(err, "Failed to create recommendation score histogram")
	}

	keywords := cache.New(cache.Options{
		TTL:             keywordTTL,
		CleanupInterval: keywordTTL,
		MaxItems:        cacheSize,
	})
	keywords.SetOnEvicted(func(string, any) { metrics.KeywordCacheEvictions.Inc() })

	return &RecommendationService{
		repos:    repos,
		keywords: keywords,
		log:      log,
		tracer:   otel.Tracer("emotion-character-demo/backend/internal/service"),
		scores:   scores,
	}
}

// Close stops the keyword cache janitor
func (s *RecommendationService) Close() {
	s.keywords.Close()
}

// InvalidateKeywords drops the cached keywords of an emotion
func (s *RecommendationService) InvalidateKeywords(emotionID uint) {
	s.keywords.Delete(keywordCacheKey(emotionID))
}

// ResetKeywords drops every cached keyword list, e.g. after a reseed
func (s *RecommendationService) ResetKeywords() {
	s.keywords.Flush()
	s.log.Info("Emotion keyword cache cleared")
}

// RecommendCharacters ranks the listed characters of a genre (all genres when
// genreID is 0) for the emotion and user. An unknown emotion ranks with no
// keyword signal rather than failing.
func (s *RecommendationService) RecommendCharacters(ctx context.Context, userID, emotionID, genreID uint, limit int) ([]ScoredCharacter, error) {
	ctx, span := s.tracer.Start(ctx, "recommendation.characters", trace.WithAttributes(
		attribute.Int64("emotion.id", int64(emotionID)),
		attribute.Int64("genre.id", int64(genreID)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.RecommendationDuration.WithLabelValues("characters").Observe(time.Since(start).Seconds())
	}()

	rc, err := s.loadContext(ctx, userID, emotionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s.rank(ctx, rc, genreID, limit)
}

// RecommendForEmotion returns the emotion's genre recommendations in priority
// order, each with its top ranked characters.
func (s *RecommendationService) RecommendForEmotion(ctx context.Context, userID, emotionID uint, limit int) (*EmotionRecommendations, error) {
	ctx, span := s.tracer.Start(ctx, "recommendation.emotion", trace.WithAttributes(
		attribute.Int64("emotion.id", int64(emotionID)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.RecommendationDuration.WithLabelValues("emotion").Observe(time.Since(start).Seconds())
	}()

	emotion, err := s.repos.Emotions.GetActive(ctx, emotionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEmotionNotFound
		}
		return nil, fmt.Errorf("load emotion: %w", err)
	}

	genreRecs, err := s.repos.Emotions.GenreRecommendations(ctx, emotionID)
	if err != nil {
		return nil, fmt.Errorf("load genre recommendations: %w", err)
	}

	rc, err := s.loadContext(ctx, userID, emotionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &EmotionRecommendations{
		Emotion: *emotion,
		Genres:  make([]GenreRecommendation, 0, len(genreRecs)),
	}
	for _, rec := range genreRecs {
		characters, err := s.rank(ctx, rc, rec.GenreID, limit)
		if err != nil {
			return nil, err
		}
		gr := GenreRecommendation{
			Priority:        rec.Priority,
			Reason:          rec.Reason,
			MatchPercentage: rec.MatchPercentage,
			Characters:      characters,
		}
		if rec.Genre != nil {
			gr.Genre = *rec.Genre
		} else {
			gr.Genre = models.Genre{ID: rec.GenreID}
		}
		result.Genres = append(result.Genres, gr)
	}
	return result, nil
}

func (s *RecommendationService) loadContext(ctx context.Context, userID, emotionID uint) (rankingContext, error) {
	var rc rankingContext

	keywords, err := s.emotionKeywords(ctx, emotionID)
	if err != nil {
		return rc, fmt.Errorf("load keywords: %w", err)
	}
	rc.keywords = keywords

	rc.genreCounts, err = s.repos.Conversations.ActiveGenreCounts(ctx, userID)
	if err != nil {
		return rc, fmt.Errorf("load genre preferences: %w", err)
	}

	rc.maxTotal, err = s.repos.Characters.MaxTotalConversations(ctx)
	if err != nil {
		return rc, fmt.Errorf("load popularity baseline: %w", err)
	}
	return rc, nil
}

func (s *RecommendationService) rank(ctx context.Context, rc rankingContext, genreID uint, limit int) ([]ScoredCharacter, error) {
	candidates, err := s.repos.Characters.ListListed(ctx, repository.CharacterFilter{GenreID: genreID})
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	ranked := s.scorer.Rank(candidates, rc.keywords, rc.genreCounts, rc.maxTotal)
	if limit <= 0 {
		limit = defaultRecommendationLimit
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	if s.scores != nil {
		attrs := metric.WithAttributes(attribute.Int64("genre.id", int64(genreID)))
		for _, sc := range ranked {
			s.scores.Record(ctx, sc.Score.Total, attrs)
		}
	}
	return ranked, nil
}

func (s *RecommendationService) emotionKeywords(ctx context.Context, emotionID uint) ([]models.EmotionKeyword, error) {
	key := keywordCacheKey(emotionID)
	if v, ok := s.keywords.Get(key); ok {
		metrics.KeywordCacheHits.Inc()
		return v.([]models.EmotionKeyword), nil
	}
	metrics.KeywordCacheMisses.Inc()

	keywords, err := s.repos.Emotions.Keywords(ctx, emotionID)
	if err != nil {
		return nil, err
	}
	s.keywords.Set(key, keywords)
	return keywords, nil
}

func keywordCacheKey(emotionID uint) string {
	return fmt.Sprintf("keywords:%d", emotionID)
}
