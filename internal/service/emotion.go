package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/internal/repository"
	"emotion-character-demo/backend/pkg/logger"
)

const (
	HistoryPageSize  = 20
	defaultIntensity = 5
	dateLayout       = "2006-01-02"
)

// EmotionHistory is one page of a user's entries plus their statistics
type EmotionHistory struct {
	Entries []models.UserEmotionEntry `json:"entries"`
	Page    int                       `json:"page"`
	Stats   EmotionStats              `json:"stats"`
}

type EmotionStats struct {
	TotalEntries   int64                    `json:"total_entries"`
	MostCommon     *repository.EmotionCount `json:"most_common_emotion,omitempty"`
	ThisMonthCount int64                    `json:"this_month_count"`
}

type EmotionService struct {
	repos *repository.Repositories
	log   *logger.Logger
	now   func() time.Time
}

func NewEmotionService(repos *repository.Repositories, log *logger.Logger) *EmotionService {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &EmotionService{repos: repos, log: log, now: time.Now}
}

func (s *EmotionService) ListEmotions(ctx context.Context) ([]models.Emotion, error) {
	emotions, err := s.repos.Emotions.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list emotions: %w", err)
	}
	return emotions, nil
}

func (s *EmotionService) ListGenres(ctx context.Context) ([]models.Genre, error) {
	genres, err := s.repos.Emotions.ListGenres(ctx)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return genres, nil
}

// SaveEntry records the user's emotion for a day, replacing any earlier entry
// for that day. Date defaults to today and intensity to 5.
func (s *EmotionService) SaveEntry(ctx context.Context, userID uint, req *models.SaveEmotionEntryRequest) (*models.UserEmotionEntry, bool, error) {
	intensity := req.Intensity
	if intensity == 0 {
		intensity = defaultIntensity
	}
	if intensity < 1 || intensity > 10 {
		return nil, false, &ValidationError{Reason: "intensity"}
	}

	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = s.now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, false, &ValidationError{Reason: "date"}
	}

	emotion, err := s.repos.Emotions.GetActive(ctx, req.EmotionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, ErrEmotionNotFound
		}
		return nil, false, fmt.Errorf("load emotion: %w", err)
	}

	genreIDs := uniqueIDs(req.SelectedGenres)
	if len(genreIDs) > 0 {
		genres, err := s.repos.Emotions.GenresByIDs(ctx, genreIDs)
		if err != nil {
			return nil, false, fmt.Errorf("load genres: %w", err)
		}
		if len(genres) != len(genreIDs) {
			return nil, false, ErrGenreNotFound
		}
	}

	entry := &models.UserEmotionEntry{
		UserID:    userID,
		EmotionID: emotion.ID,
		Date:      date,
		Note:      strings.TrimSpace(req.Note),
		Intensity: intensity,
	}
	created, err := s.repos.Emotions.SaveEntry(ctx, entry, genreIDs)
	if err != nil {
		return nil, false, fmt.Errorf("save emotion entry: %w", err)
	}
	entry.Emotion = emotion

	s.log.Debug("Emotion entry saved", "user_id", userID, "emotion_id", emotion.ID, "date", date, "created", created)
	return entry, created, nil
}

// History returns page (1-based) of the user's entries, newest first
func (s *EmotionService) History(ctx context.Context, userID uint, page int) (*EmotionHistory, error) {
	if page < 1 {
		page = 1
	}

	entries, err := s.repos.Emotions.ListEntries(ctx, userID, HistoryPageSize, (page-1)*HistoryPageSize)
	if err != nil {
		return nil, fmt.Errorf("list emotion entries: %w", err)
	}

	stats, err := s.repos.Emotions.EntryStats(ctx, userID, s.now().Format("2006-01"))
	if err != nil {
		return nil, fmt.Errorf("emotion entry stats: %w", err)
	}

	return &EmotionHistory{
		Entries: entries,
		Page:    page,
		Stats: EmotionStats{
			TotalEntries:   stats.Total,
			MostCommon:     stats.MostCommon,
			ThisMonthCount: stats.ThisMonthCount,
		},
	}, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
