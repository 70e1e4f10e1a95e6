// Package seed loads the reference emotions, genres, recommendation mapping
// and scoring keywords.
package seed

import (
	_ "embed"
	"errors"
	"fmt"

	"emotion-character-demo/backend/internal/models"
	"emotion-character-demo/backend/pkg/logger"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed.yaml
var defaultData []byte

type Data struct {
	Genres   []GenreData   `yaml:"genres"`
	Emotions []EmotionData `yaml:"emotions"`
}

type GenreData struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
}

type EmotionData struct {
	Name            string               `yaml:"name"`
	Emoji           string               `yaml:"emoji"`
	Color           string               `yaml:"color"`
	Description     string               `yaml:"description"`
	SubDescription  string               `yaml:"sub_description"`
	Order           int                  `yaml:"order"`
	Keywords        []KeywordData        `yaml:"keywords"`
	Recommendations []RecommendationData `yaml:"recommendations"`
}

type KeywordData struct {
	Keyword     string  `yaml:"keyword"`
	Weight      float64 `yaml:"weight"`
	Description string  `yaml:"description"`
}

type RecommendationData struct {
	Genre    string `yaml:"genre"`
	Priority int    `yaml:"priority"`
	Match    int    `yaml:"match"`
	Reason   string `yaml:"reason"`
}

// Options controls a seeding run
type Options struct {
	// Reset deletes existing reference data first
	Reset bool
	// Emotion restricts keyword seeding to one emotion name
	Emotion string
}

// Result counts what a run changed
type Result struct {
	Emotions        int
	Genres          int
	Recommendations int
	KeywordsCreated int
	KeywordsUpdated int
	KeywordsSkipped int
}

// Default parses the embedded reference data
func Default() (*Data, error) {
	return Parse(defaultData)
}

func Parse(raw []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Data) validate() error {
	genres := make(map[string]bool, len(d.Genres))
	for _, g := range d.Genres {
		if g.Name == "" {
			return errors.New("seed data: genre without a name")
		}
		genres[g.Name] = true
	}
	for _, e := range d.Emotions {
		if e.Name == "" {
			return errors.New("seed data: emotion without a name")
		}
		for _, r := range e.Recommendations {
			if !genres[r.Genre] {
				return fmt.Errorf("seed data: emotion %q recommends unknown genre %q", e.Name, r.Genre)
			}
		}
	}
	return nil
}

// Run writes d in one transaction. Existing rows are matched by name and kept;
// keywords whose weight or description changed are updated.
func Run(db *gorm.DB, d *Data, opts Options, log *logger.Logger) (*Result, error) {
	if log == nil {
		log = logger.GetGlobal()
	}
	res := &Result{}

	err := db.Transaction(func(tx *gorm.DB) error {
		if opts.Reset {
			log.Warn("Deleting existing reference data")
			for _, m := range []any{&models.EmotionKeyword{}, &models.EmotionGenreRecommendation{}} {
				if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
					return fmt.Errorf("reset: %w", err)
				}
			}
		}

		genres := make(map[string]uint, len(d.Genres))
		for _, g := range d.Genres {
			category := g.Category
			if category == "" {
				category = "webtoon"
			}
			genre := models.Genre{Name: g.Name}
			if err := tx.Where(models.Genre{Name: g.Name}).
				Attrs(models.Genre{Description: g.Description, Category: category}).
				FirstOrCreate(&genre).Error; err != nil {
				return fmt.Errorf("genre %q: %w", g.Name, err)
			}
			genres[g.Name] = genre.ID
			res.Genres++
		}

		for _, e := range d.Emotions {
			emotion := models.Emotion{Name: e.Name}
			if err := tx.Where(models.Emotion{Name: e.Name}).
				Attrs(models.Emotion{
					Emoji:          e.Emoji,
					ColorCode:      e.Color,
					Description:    e.Description,
					SubDescription: e.SubDescription,
					Order:          e.Order,
					IsActive:       true,
				}).
				FirstOrCreate(&emotion).Error; err != nil {
				return fmt.Errorf("emotion %q: %w", e.Name, err)
			}
			res.Emotions++

			for _, r := range e.Recommendations {
				rec := models.EmotionGenreRecommendation{}
				if err := tx.Where(models.EmotionGenreRecommendation{EmotionID: emotion.ID, GenreID: genres[r.Genre]}).
					Attrs(models.EmotionGenreRecommendation{Priority: r.Priority, Reason: r.Reason, MatchPercentage: r.Match}).
					FirstOrCreate(&rec).Error; err != nil {
					return fmt.Errorf("recommendation %s -> %s: %w", e.Name, r.Genre, err)
				}
				res.Recommendations++
			}

			if opts.Emotion != "" && opts.Emotion != e.Name {
				continue
			}
			if err := seedKeywords(tx, emotion.ID, e.Keywords, res); err != nil {
				return fmt.Errorf("keywords for %q: %w", e.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("Reference data seeded",
		"emotions", res.Emotions,
		"genres", res.Genres,
		"recommendations", res.Recommendations,
		"keywords_created", res.KeywordsCreated,
		"keywords_updated", res.KeywordsUpdated,
		"keywords_skipped", res.KeywordsSkipped,
	)
	return res, nil
}

func seedKeywords(tx *gorm.DB, emotionID uint, keywords []KeywordData, res *Result) error {
	for _, k := range keywords {
		var existing models.EmotionKeyword
		err := tx.Where("emotion_id = ? AND keyword = ?", emotionID, k.Keyword).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			kw := models.EmotionKeyword{EmotionID: emotionID, Keyword: k.Keyword, Weight: k.Weight, Description: k.Description}
			if err := tx.Create(&kw).Error; err != nil {
				return err
			}
			res.KeywordsCreated++
		case err != nil:
			return err
		case existing.Weight != k.Weight || existing.Description != k.Description:
			if err := tx.Model(&existing).Updates(map[string]any{
				"weight":      k.Weight,
				"description": k.Description,
			}).Error; err != nil {
				return err
			}
			res.KeywordsUpdated++
		default:
			res.KeywordsSkipped++
		}
	}
	return nil
}
