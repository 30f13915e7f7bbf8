package models

import "time"

// TitleEntry is one title as presented to consumers
type TitleEntry struct {
	Lang string `json:"lang"`
	Name string `json:"name"`
}

// TagEntry is one weighted tag as presented to consumers
type TagEntry struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// EpisodeRef is the minimal per-episode listing consumers get
type EpisodeRef struct {
	AniDBID int    `json:"anidb_id"`
	Number  string `json:"number"`
}

// SeriesProjection is the read model handed to the host task pipeline.
// Consumers (name generators, NFO renderers) work off this, never off the
// GORM entities directly.
type SeriesProjection struct {
	AniDBID         int                     `json:"anidb_id"`
	MainTitle       string                  `json:"main_title"`
	Titles          map[string][]TitleEntry `json:"titles"`
	Type            string                  `json:"type"`
	EpisodeCount    int                     `json:"episode_count"`
	StartDate       *time.Time              `json:"start_date"`
	EndDate         *time.Time              `json:"end_date"`
	Year            int                     `json:"year"`
	Season          string                  `json:"season"`
	URL             string                  `json:"url"`
	Description     string                  `json:"description"`
	PermanentRating *float64                `json:"permanent_rating"`
	MeanRating      *float64                `json:"mean_rating"`
	Tags            map[int]TagEntry        `json:"tags"`
	Episodes        []EpisodeRef            `json:"episodes"`
}

// ProjectSeries builds the consumer view of a series. Field selection is
// explicit here on purpose: no reflection, no dynamic field maps.
func ProjectSeries(series *Series) *SeriesProjection {
	projection := &SeriesProjection{
		AniDBID:         series.AniDBID,
		MainTitle:       series.MainTitle(),
		Titles:          make(map[string][]TitleEntry),
		Type:            series.Type,
		EpisodeCount:    series.EpisodeCount,
		StartDate:       series.StartDate,
		EndDate:         series.EndDate,
		Year:            series.Year,
		Season:          series.Season,
		URL:             series.URL,
		Description:     series.Description,
		PermanentRating: series.PermanentRating,
		MeanRating:      series.MeanRating,
		Tags:            make(map[int]TagEntry),
		Episodes:        make([]EpisodeRef, 0, len(series.Episodes)),
	}

	for _, title := range series.Titles {
		projection.Titles[title.Kind] = append(projection.Titles[title.Kind], TitleEntry{
			Lang: title.Language,
			Name: title.Name,
		})
	}

	for _, assoc := range series.Genres {
		projection.Tags[assoc.Genre.AniDBID] = TagEntry{
			Name:   assoc.Genre.Name,
			Weight: assoc.Weight,
		}
	}

	for _, episode := range series.Episodes {
		projection.Episodes = append(projection.Episodes, EpisodeRef{
			AniDBID: episode.AniDBID,
			Number:  episode.Number,
		})
	}

	return projection
}
