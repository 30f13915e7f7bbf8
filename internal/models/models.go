package models

import (
	"time"

	"gorm.io/gorm"
)

// Title kinds as AniDB reports them
const (
	TitleKindMain     = "main"
	TitleKindOfficial = "official"
	TitleKindSynonym  = "synonym"
	TitleKindShort    = "short"
)

// Series represents one AniDB anime entry in the local cache
type Series struct {
	gorm.Model
	AniDBID      int        `json:"anidb_id" gorm:"column:anidb_id;uniqueIndex;not null"`
	Type         string     `json:"type"`
	EpisodeCount int        `json:"episode_count"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	Year         int        `json:"year"`
	Season       string     `json:"season"`
	URL          string     `json:"url"`
	Description  string     `json:"description" gorm:"type:text"`

	// AniDB exposes two ratings: the long-term "permanent" one and the
	// recent-votes mean (the API calls the latter "temporary")
	PermanentRating *float64 `json:"permanent_rating"`
	MeanRating      *float64 `json:"mean_rating"`

	// RefreshedAt is the last successful remote refresh, not the row
	// update time. Nil means the series is a bare placeholder that has
	// never been fetched.
	RefreshedAt *time.Time `json:"refreshed_at"`

	Titles   []Title            `json:"titles,omitempty" gorm:"foreignKey:SeriesID"`
	Episodes []Episode          `json:"episodes,omitempty" gorm:"foreignKey:SeriesID"`
	Genres   []GenreAssociation `json:"genres,omitempty" gorm:"foreignKey:SeriesID"`
}

// MainTitle returns the canonical display name, empty if none is cached yet
func (s *Series) MainTitle() string {
	for _, title := range s.Titles {
		if title.Kind == TitleKindMain {
			return title.Name
		}
	}
	return ""
}

// Title is one name of a series in one language
type Title struct {
	gorm.Model
	SeriesID uint   `json:"series_id" gorm:"not null;index;uniqueIndex:idx_series_title"`
	Name     string `json:"name" gorm:"not null;uniqueIndex:idx_series_title"`
	Language string `json:"language" gorm:"uniqueIndex:idx_series_title"`
	Kind     string `json:"kind" gorm:"uniqueIndex:idx_series_title"`
}

// Episode represents a single episode of a series. Episodes are created
// once per AniDB id and never re-merged afterwards.
type Episode struct {
	gorm.Model
	AniDBID  int    `json:"anidb_id" gorm:"column:anidb_id;uniqueIndex;not null"`
	SeriesID uint   `json:"series_id" gorm:"not null;index"`
	Number   string `json:"number"`
	Type     string `json:"type"`
	Length   int    `json:"length"` // minutes

	// Air dates may be absent for unaired or undated episodes
	AirDate *time.Time `json:"airdate"`
	Rating  *float64   `json:"rating"`
	Votes   *int       `json:"votes"`

	Titles []EpisodeTitle `json:"titles,omitempty" gorm:"foreignKey:EpisodeID"`
}

// EpisodeTitle is one name of an episode in one language
type EpisodeTitle struct {
	gorm.Model
	EpisodeID uint   `json:"episode_id" gorm:"not null;index"`
	Title     string `json:"title"`
	Language  string `json:"language"`
}

// Genre is an AniDB tag. Tags form a forest via ParentAniDBID, which may
// stay nil until the parent tag is seen in some later merge.
type Genre struct {
	gorm.Model
	AniDBID       int    `json:"anidb_id" gorm:"column:anidb_id;uniqueIndex;not null"`
	Name          string `json:"name"`
	ParentAniDBID *int   `json:"parent_anidb_id" gorm:"column:parent_anidb_id"`
}

// GenreAssociation joins a series to a genre with a per-series weight
type GenreAssociation struct {
	gorm.Model
	SeriesID uint  `json:"series_id" gorm:"not null;uniqueIndex:idx_series_genre"`
	GenreID  uint  `json:"genre_id" gorm:"not null;uniqueIndex:idx_series_genre"`
	Weight   int   `json:"weight"`
	Genre    Genre `json:"genre,omitempty" gorm:"foreignKey:GenreID"`
}

// Language is a flat lookup of language codes seen in title data
// (ex: "en", "ja", "x-jat"), created lazily on first sight
type Language struct {
	gorm.Model
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

// All returns every model that needs migration, in dependency order
func All() []any {
	return []any{
		&Series{},
		&Title{},
		&Episode{},
		&EpisodeTitle{},
		&Genre{},
		&GenreAssociation{},
		&Language{},
	}
}
