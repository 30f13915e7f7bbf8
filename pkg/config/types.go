package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	AniDB    AniDBConfig    `mapstructure:"anidb"`
	Search   SearchConfig   `mapstructure:"search"`
	Genres   GenresConfig   `mapstructure:"genres"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path       string `mapstructure:"path"`
	LogQueries bool   `mapstructure:"log_queries"`
}

// AniDBConfig contains settings for the AniDB HTTP API client and its
// request budget
type AniDBConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	TitlesDumpURL string `mapstructure:"titles_dump_url"`

	// Client identification, registered with AniDB
	Client        string `mapstructure:"client"`
	ClientVersion int    `mapstructure:"client_version"`
	ProtoVersion  int    `mapstructure:"proto_version"`
	UserAgent     string `mapstructure:"user_agent"`

	Timeout         time.Duration `mapstructure:"timeout"`
	RequestInterval time.Duration `mapstructure:"request_interval"`
	BanDuration     time.Duration `mapstructure:"ban_duration"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`

	// Session budget: after MaxSession successful fetches, further
	// requests wait out SessionCooldown measured from the last request
	MaxSession      int           `mapstructure:"max_session"`
	SessionCooldown time.Duration `mapstructure:"session_cooldown"`
	SessionFile     string        `mapstructure:"session_file"`

	// Skip refreshing finished series this long past their end date.
	// Zero disables the short-circuit and keeps the strict TTL rule.
	SkipFinishedAfter time.Duration `mapstructure:"skip_finished_after"`
}

// SearchConfig contains title resolution settings
type SearchConfig struct {
	// MatchRatio is the minimum similarity a fuzzy candidate must reach
	// to be accepted
	MatchRatio float64 `mapstructure:"match_ratio"`
}

// GenresConfig contains tag import policy
type GenresConfig struct {
	// Blacklist maps an AniDB tag id to an exclusion mode: true removes
	// the tag and every descendant in the batch, false only the tag.
	// Keys are strings because they come from YAML/env.
	Blacklist map[string]bool `mapstructure:"blacklist"`

	// Tags below this weight are stored but dropped from lookup
	// responses; the store always keeps the raw weight
	WeightThreshold int `mapstructure:"weight_threshold"`
}
