package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	require.NoError(t, Init())

	assert.Equal(t, 9009, GetInt("server.port"))
	assert.Equal(t, "./data/anidb.db", GetString("database.path"))

	assert.Equal(t, "http://api.anidb.net:9001/httpapi", GetString("anidb.endpoint"))
	assert.Equal(t, "fadbs", GetString("anidb.client"))
	assert.Equal(t, 2, GetInt("anidb.client_version"))
	assert.Equal(t, 1, GetInt("anidb.proto_version"))
	assert.Equal(t, 3*time.Second, GetDuration("anidb.request_interval"))
	assert.Equal(t, 24*time.Hour, GetDuration("anidb.ban_duration"))
	assert.Equal(t, 24*time.Hour, GetDuration("anidb.cache_ttl"))
	assert.Equal(t, 15, GetInt("anidb.max_session"))
	assert.Equal(t, 4*time.Hour, GetDuration("anidb.session_cooldown"))
	assert.False(t, GetBool("database.log_queries"))
}

func TestGetConfigUnmarshal(t *testing.T) {
	require.NoError(t, Init())

	cfg, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, 9009, cfg.Server.Port)
	assert.Equal(t, "fadbs", cfg.AniDB.Client)
	assert.Equal(t, 24*time.Hour, cfg.AniDB.CacheTTL)
	assert.Equal(t, 0.9, cfg.Search.MatchRatio)
	assert.Zero(t, cfg.AniDB.SkipFinishedAfter)
	assert.NotEmpty(t, cfg.Genres.Blacklist)
}

func TestTagBlacklistDefaults(t *testing.T) {
	require.NoError(t, Init())

	blacklist := TagBlacklist()

	// Maintenance trees are excluded recursively
	recursive, ok := blacklist[-1]
	require.True(t, ok)
	assert.True(t, recursive)

	recursive, ok = blacklist[2931]
	require.True(t, ok)
	assert.True(t, recursive)

	// Presentation tags are excluded individually
	recursive, ok = blacklist[2604]
	require.True(t, ok)
	assert.False(t, recursive)

	// An unlisted tag is simply absent
	_, ok = blacklist[36]
	assert.False(t, ok)
}
