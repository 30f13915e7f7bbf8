package series

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fadbs/anidb-cache/internal/models"
	"github.com/fadbs/anidb-cache/internal/services/genres"
	"github.com/fadbs/anidb-cache/internal/services/parser"
	"gorm.io/gorm"
)

// ErrSeriesNotFound means no cached series matches the lookup
var ErrSeriesNotFound = errors.New("series not found")

// Repository is the GORM-backed entity store
type Repository struct {
	db         *gorm.DB
	reconciler *genres.Reconciler
	now        func() time.Time
}

// Ensure Repository implements SeriesRepository
var _ SeriesRepository = (*Repository)(nil)

func NewRepository(db *gorm.DB, reconciler *genres.Reconciler) *Repository {
	return &Repository{
		db:         db,
		reconciler: reconciler,
		now:        time.Now,
	}
}

// WithClock overrides the merge timestamp clock, for tests
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

func (r *Repository) GetByAniDBID(ctx context.Context, aniDBID int) (*models.Series, error) {
	var series models.Series
	err := r.db.WithContext(ctx).
		Preload("Titles").
		Preload("Episodes").
		Preload("Episodes.Titles").
		Preload("Genres").
		Preload("Genres.Genre").
		Where("anidb_id = ?", aniDBID).
		First(&series).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSeriesNotFound
		}
		return nil, fmt.Errorf("getting series %d: %w", aniDBID, err)
	}
	return &series, nil
}

// GetSeriesRowID loads a series by its surrogate key with all relations
func (r *Repository) GetSeriesRowID(ctx context.Context, rowID uint) (*models.Series, error) {
	var series models.Series
	err := r.db.WithContext(ctx).
		Preload("Titles").
		Preload("Episodes").
		Preload("Episodes.Titles").
		Preload("Genres").
		Preload("Genres.Genre").
		First(&series, rowID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSeriesNotFound
		}
		return nil, fmt.Errorf("getting series row %d: %w", rowID, err)
	}
	return &series, nil
}

// GetByExactTitle resolves a series through an exact title match
func (r *Repository) GetByExactTitle(ctx context.Context, name string) (*models.Series, error) {
	var title models.Title
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&title).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSeriesNotFound
		}
		return nil, fmt.Errorf("looking up title %q: %w", name, err)
	}
	return r.GetSeriesRowID(ctx, title.SeriesID)
}

// SearchTitles returns titles containing the substring, case-insensitive.
// This is the cheap prefilter for the fuzzy pass.
func (r *Repository) SearchTitles(ctx context.Context, substring string) ([]models.Title, error) {
	var titles []models.Title
	pattern := "%" + strings.ToLower(substring) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", pattern).
		Find(&titles).Error
	if err != nil {
		return nil, fmt.Errorf("searching titles: %w", err)
	}
	return titles, nil
}

// AllTitles returns the whole title corpus, the fuzzy fallback when the
// prefilter comes up empty
func (r *Repository) AllTitles(ctx context.Context) ([]models.Title, error) {
	var titles []models.Title
	if err := r.db.WithContext(ctx).Find(&titles).Error; err != nil {
		return nil, fmt.Errorf("loading titles: %w", err)
	}
	return titles, nil
}

// CreatePlaceholder creates a bare series row owning an AniDB id so
// later merges have something to attach to. Idempotent: an existing row
// is returned as-is.
func (r *Repository) CreatePlaceholder(ctx context.Context, aniDBID int) (*models.Series, error) {
	existing, err := r.GetByAniDBID(ctx, aniDBID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrSeriesNotFound) {
		return nil, err
	}

	series := models.Series{AniDBID: aniDBID}
	if err := r.db.WithContext(ctx).Create(&series).Error; err != nil {
		return nil, fmt.Errorf("creating placeholder series %d: %w", aniDBID, err)
	}
	return &series, nil
}

// MergeParsed merges one parsed document into the store inside a single
// transaction. A failure anywhere commits nothing, so a half-merged
// series is never visible and the merge is safe to retry.
func (r *Repository) MergeParsed(ctx context.Context, aniDBID int, parsed *parser.ParsedSeries) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var series models.Series
		err := tx.Where("anidb_id = ?", aniDBID).First(&series).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			series = models.Series{AniDBID: aniDBID}
			if err := tx.Create(&series).Error; err != nil {
				return fmt.Errorf("creating series %d: %w", aniDBID, err)
			}
		case err != nil:
			return fmt.Errorf("loading series %d for merge: %w", aniDBID, err)
		}

		series.Type = parsed.Type
		series.EpisodeCount = parsed.EpisodeCount
		series.StartDate = parsed.StartDate
		series.EndDate = parsed.EndDate
		series.Year = parsed.Year
		series.Season = parsed.Season
		if parsed.URL != "" {
			series.URL = parsed.URL
		}
		if parsed.Description != "" {
			series.Description = parsed.Description
		}
		if parsed.PermanentRating != nil {
			series.PermanentRating = parsed.PermanentRating
		}
		if parsed.MeanRating != nil {
			series.MeanRating = parsed.MeanRating
		}
		refreshed := r.now().UTC()
		series.RefreshedAt = &refreshed

		if err := tx.Save(&series).Error; err != nil {
			return fmt.Errorf("updating series %d: %w", aniDBID, err)
		}

		if err := mergeTitles(tx, &series, parsed.Titles); err != nil {
			return err
		}

		if err := r.reconciler.Reconcile(tx, &series, parsed.Tags); err != nil {
			return fmt.Errorf("reconciling tags for series %d: %w", aniDBID, err)
		}

		if err := mergeEpisodes(tx, &series, parsed.Episodes); err != nil {
			return err
		}

		return nil
	})
}

// ImportTitle appends one title to a series (creating a placeholder row
// when needed), skipping duplicates. Used by the title dump import.
func (r *Repository) ImportTitle(ctx context.Context, aniDBID int, title parser.ParsedTitle) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var series models.Series
		err := tx.Where("anidb_id = ?", aniDBID).First(&series).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			series = models.Series{AniDBID: aniDBID}
			if err := tx.Create(&series).Error; err != nil {
				return fmt.Errorf("creating series %d: %w", aniDBID, err)
			}
		case err != nil:
			return fmt.Errorf("loading series %d: %w", aniDBID, err)
		}
		return mergeTitles(tx, &series, []parser.ParsedTitle{title})
	})
}

// mergeTitles appends unseen titles; titles are never edited or deleted
func mergeTitles(tx *gorm.DB, series *models.Series, titles []parser.ParsedTitle) error {
	for _, title := range titles {
		if err := ensureLanguage(tx, title.Language); err != nil {
			return err
		}

		var existing models.Title
		err := tx.Where(
			"series_id = ? AND name = ? AND language = ? AND kind = ?",
			series.ID, title.Name, title.Language, title.Kind,
		).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("checking title %q: %w", title.Name, err)
		}

		row := models.Title{
			SeriesID: series.ID,
			Name:     title.Name,
			Language: title.Language,
			Kind:     title.Kind,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("creating title %q: %w", title.Name, err)
		}
	}
	return nil
}

// mergeEpisodes creates episodes not yet cached. Known episodes are
// skipped entirely; episode identity is immutable once cached.
func mergeEpisodes(tx *gorm.DB, series *models.Series, episodes []parser.ParsedEpisode) error {
	for _, episode := range episodes {
		var existing models.Episode
		err := tx.Where("anidb_id = ?", episode.AniDBID).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("checking episode %d: %w", episode.AniDBID, err)
		}

		row := models.Episode{
			AniDBID:  episode.AniDBID,
			SeriesID: series.ID,
			Number:   episode.Number,
			Type:     episode.Type,
			Length:   episode.Length,
			AirDate:  episode.AirDate,
			Rating:   episode.Rating,
			Votes:    episode.Votes,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("creating episode %d: %w", episode.AniDBID, err)
		}

		for _, title := range episode.Titles {
			if err := ensureLanguage(tx, title.Language); err != nil {
				return err
			}
			titleRow := models.EpisodeTitle{
				EpisodeID: row.ID,
				Title:     title.Title,
				Language:  title.Language,
			}
			if err := tx.Create(&titleRow).Error; err != nil {
				return fmt.Errorf("creating episode title %q: %w", title.Title, err)
			}
		}
	}
	return nil
}

// ensureLanguage lazily creates the language row the first time a code
// is seen
func ensureLanguage(tx *gorm.DB, name string) error {
	if name == "" {
		return nil
	}
	var lang models.Language
	err := tx.Where("name = ?", name).First(&lang).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("checking language %q: %w", name, err)
	}
	if err := tx.Create(&models.Language{Name: name}).Error; err != nil {
		return fmt.Errorf("creating language %q: %w", name, err)
	}
	return nil
}
