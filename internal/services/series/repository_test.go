package series

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fadbs/anidb-cache/internal/models"
	"github.com/fadbs/anidb-cache/internal/services/genres"
	"github.com/fadbs/anidb-cache/internal/services/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRepository(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	repo := NewRepository(db, genres.NewReconciler(nil))
	return repo, db
}

func loadParsedFixture(t *testing.T) *parser.ParsedSeries {
	t.Helper()
	raw, err := os.ReadFile("../parser/testdata/13217.xml")
	require.NoError(t, err)
	parsed, err := parser.ParseSeries(raw)
	require.NoError(t, err)
	return parsed
}

func TestCreatePlaceholderIdempotent(t *testing.T) {
	repo, db := setupRepository(t)
	ctx := context.Background()

	first, err := repo.CreatePlaceholder(ctx, 13217)
	require.NoError(t, err)
	assert.Nil(t, first.RefreshedAt)

	second, err := repo.CreatePlaceholder(ctx, 13217)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Series{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetByAniDBIDNotFound(t *testing.T) {
	repo, _ := setupRepository(t)

	_, err := repo.GetByAniDBID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrSeriesNotFound)
}

func TestMergeParsedPopulatesSeries(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	parsed := loadParsedFixture(t)

	require.NoError(t, repo.MergeParsed(ctx, 13217, parsed))

	series, err := repo.GetByAniDBID(ctx, 13217)
	require.NoError(t, err)

	assert.Equal(t, "TV Series", series.Type)
	assert.Equal(t, 10, series.EpisodeCount)
	assert.Equal(t, 2017, series.Year)
	assert.Equal(t, "Fall", series.Season)
	require.NotNil(t, series.PermanentRating)
	assert.Equal(t, 3.07, *series.PermanentRating)
	require.NotNil(t, series.RefreshedAt)

	assert.Len(t, series.Titles, 5)
	assert.Len(t, series.Episodes, 11)
	assert.Len(t, series.Genres, 5)
	assert.Equal(t, "Boku no Kanojo ga Majime Sugiru Shobitch na Ken", series.MainTitle())
}

func TestMergeParsedIdempotent(t *testing.T) {
	repo, db := setupRepository(t)
	ctx := context.Background()
	parsed := loadParsedFixture(t)

	require.NoError(t, repo.MergeParsed(ctx, 13217, parsed))
	require.NoError(t, repo.MergeParsed(ctx, 13217, parsed))

	rowCount := func(model any) int64 {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		return count
	}

	assert.EqualValues(t, 5, rowCount(&models.Title{}))
	assert.EqualValues(t, 11, rowCount(&models.Episode{}))
	assert.EqualValues(t, 5, rowCount(&models.Genre{}))
	assert.EqualValues(t, 5, rowCount(&models.GenreAssociation{}))
}

func TestMergeParsedUpdatesRefreshedAt(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	parsed := loadParsedFixture(t)

	first := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo.WithClock(func() time.Time { return first })
	require.NoError(t, repo.MergeParsed(ctx, 13217, parsed))

	second := first.Add(48 * time.Hour)
	repo.WithClock(func() time.Time { return second })
	require.NoError(t, repo.MergeParsed(ctx, 13217, parsed))

	series, err := repo.GetByAniDBID(ctx, 13217)
	require.NoError(t, err)
	require.NotNil(t, series.RefreshedAt)
	assert.True(t, series.RefreshedAt.Equal(second))
}

func TestMergeParsedKeepsCachedEpisodes(t *testing.T) {
	repo, db := setupRepository(t)
	ctx := context.Background()
	parsed := loadParsedFixture(t)

	require.NoError(t, repo.MergeParsed(ctx, 13217, parsed))

	// A later document revising a cached episode's length must not win
	mutated := loadParsedFixture(t)
	mutated.Episodes[0].Length = 99
	require.NoError(t, repo.MergeParsed(ctx, 13217, mutated))

	var episode models.Episode
	require.NoError(t, db.Where("anidb_id = ?", 198251).First(&episode).Error)
	assert.Equal(t, 25, episode.Length)
}

func TestMergeParsedOntoPlaceholder(t *testing.T) {
	repo, db := setupRepository(t)
	ctx := context.Background()

	placeholder, err := repo.CreatePlaceholder(ctx, 13217)
	require.NoError(t, err)

	require.NoError(t, repo.MergeParsed(ctx, 13217, loadParsedFixture(t)))

	series, err := repo.GetByAniDBID(ctx, 13217)
	require.NoError(t, err)
	assert.Equal(t, placeholder.ID, series.ID)

	var count int64
	require.NoError(t, db.Model(&models.Series{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetByExactTitle(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.MergeParsed(ctx, 13217, loadParsedFixture(t)))

	series, err := repo.GetByExactTitle(ctx, "My Girlfriend is Shobitch")
	require.NoError(t, err)
	assert.Equal(t, 13217, series.AniDBID)

	_, err = repo.GetByExactTitle(ctx, "No Such Series")
	assert.ErrorIs(t, err, ErrSeriesNotFound)
}

func TestSearchTitlesCaseInsensitive(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.MergeParsed(ctx, 13217, loadParsedFixture(t)))

	titles, err := repo.SearchTitles(ctx, "SHOBITCH")
	require.NoError(t, err)
	assert.NotEmpty(t, titles)

	titles, err = repo.SearchTitles(ctx, "zzzzz")
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestImportTitleAppendsWithoutDuplicates(t *testing.T) {
	repo, db := setupRepository(t)
	ctx := context.Background()

	title := parser.ParsedTitle{Name: "Cowboy Bebop", Language: "en", Kind: models.TitleKindMain}
	require.NoError(t, repo.ImportTitle(ctx, 23, title))
	require.NoError(t, repo.ImportTitle(ctx, 23, title))

	series, err := repo.GetByAniDBID(ctx, 23)
	require.NoError(t, err)
	assert.Nil(t, series.RefreshedAt)
	require.Len(t, series.Titles, 1)
	assert.Equal(t, "Cowboy Bebop", series.Titles[0].Name)

	var count int64
	require.NoError(t, db.Model(&models.Title{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
