package parser

import "time"

// ParsedSeries is the structured form of one AniDB anime document,
// independent of storage
type ParsedSeries struct {
	AniDBID      int
	Type         string
	EpisodeCount int

	// Full dates when the document carries year-month-day; partial
	// dates leave these nil but still populate Year/Season
	StartDate *time.Time
	EndDate   *time.Time
	Year      int
	Season    string

	URL         string
	Description string

	PermanentRating *float64
	MeanRating      *float64

	Titles   []ParsedTitle
	Tags     []ParsedTag
	Episodes []ParsedEpisode
}

// ParsedTitle is one series title node
type ParsedTitle struct {
	Name     string
	Language string
	Kind     string
}

// ParsedTag is one tag node. ParentID zero means top-level. Spoiler
// flags are carried through for consumers; exclusion policy is applied
// later by the reconciler, never here.
type ParsedTag struct {
	ID            int
	ParentID      int
	Name          string
	Weight        int
	LocalSpoiler  bool
	GlobalSpoiler bool
	Verified      bool
}

// ParsedEpisode is one episode node
type ParsedEpisode struct {
	AniDBID int
	Number  string
	Type    string
	Length  int
	AirDate *time.Time
	Rating  *float64
	Votes   *int
	Titles  []ParsedEpisodeTitle
}

// ParsedEpisodeTitle is one per-language episode title
type ParsedEpisodeTitle struct {
	Title    string
	Language string
}
