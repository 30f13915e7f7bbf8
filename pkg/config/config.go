package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system.
// This should be called once at application startup.
func Init() error {
	once.Do(func() {
		setDefaults()

		viper.SetEnvPrefix("ANIDB")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		if err := viper.ReadInConfig(); err != nil {
			// Missing config file is fine, defaults and env vars apply
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct.
// Init() must be called before using this.
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 9009)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Database
	viper.SetDefault("database.path", "./data/anidb.db")
	viper.SetDefault("database.log_queries", false)

	// AniDB client. The endpoint and client id are the published HTTP
	// API values; AniDB bans clients that hammer the API, so the
	// request interval stays conservative.
	viper.SetDefault("anidb.endpoint", "http://api.anidb.net:9001/httpapi")
	viper.SetDefault("anidb.titles_dump_url", "http://anidb.net/api/anime-titles.xml.gz")
	viper.SetDefault("anidb.client", "fadbs")
	viper.SetDefault("anidb.client_version", 2)
	viper.SetDefault("anidb.proto_version", 1)
	viper.SetDefault("anidb.user_agent", "anidb-cache/1.0 (+https://github.com/fadbs/anidb-cache)")
	viper.SetDefault("anidb.timeout", 30*time.Second)
	viper.SetDefault("anidb.request_interval", 3*time.Second)
	viper.SetDefault("anidb.ban_duration", 24*time.Hour)
	viper.SetDefault("anidb.cache_ttl", 24*time.Hour)
	viper.SetDefault("anidb.max_session", 15)
	viper.SetDefault("anidb.session_cooldown", 4*time.Hour)
	viper.SetDefault("anidb.session_file", "./data/session.yaml")
	viper.SetDefault("anidb.skip_finished_after", time.Duration(0))

	// Search
	viper.SetDefault("search.match_ratio", 0.9)

	// Genres
	viper.SetDefault("genres.weight_threshold", 200)
	viper.SetDefault("genres.blacklist", defaultTagBlacklist())
}

// defaultTagBlacklist is the stock exclusion policy: true removes the tag
// and all batch-reachable descendants, false removes only the tag itself
func defaultTagBlacklist() map[string]any {
	// map[string]any rather than map[string]bool: viper's GetStringMap
	// cannot convert a map[string]bool default and returns an empty map.
	return map[string]any{
		// Maintenance/meta trees, removed recursively
		"-1":   true,
		"30":   true,
		"2931": true,
		// Individual presentation tags
		"2604": false,
		"2605": false,
		"2606": false,
		"2607": false,
		"2608": false,
		"2609": false,
		"2610": false,
		"2611": false,
		"2612": false,
		"2613": false,
		"3683": false,
		"3842": false, // TV censoring
		"4352": false, // censored uncensored version
		"6151": false,
		"6173": false,
		"6230": false,
		"6246": false,
	}
}

// TagBlacklist converts the configured blacklist to integer tag ids.
// Malformed keys are skipped.
func TagBlacklist() map[int]bool {
	raw := viper.GetStringMap("genres.blacklist")
	blacklist := make(map[int]bool, len(raw))
	for key, value := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		enabled, ok := value.(bool)
		if !ok {
			continue
		}
		blacklist[id] = enabled
	}
	return blacklist
}

func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if viper.GetString("database.path") == "" {
		return fmt.Errorf("database path must be set")
	}

	if viper.GetString("anidb.client") == "" {
		return fmt.Errorf("anidb client id must be set")
	}

	ratio := viper.GetFloat64("search.match_ratio")
	if ratio <= 0 || ratio > 1 {
		return fmt.Errorf("search.match_ratio must be in (0, 1], got %v", ratio)
	}

	// Auto-correct nonsense budgets instead of failing startup
	if viper.GetInt("anidb.max_session") <= 0 {
		viper.Set("anidb.max_session", 15)
	}
	if viper.GetDuration("anidb.request_interval") <= 0 {
		viper.Set("anidb.request_interval", 3*time.Second)
	}

	return nil
}
