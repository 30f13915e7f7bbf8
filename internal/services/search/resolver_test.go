package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fadbs/anidb-cache/internal/models"
	"github.com/fadbs/anidb-cache/internal/services/anidb"
	"github.com/fadbs/anidb-cache/internal/services/parser"
	"github.com/fadbs/anidb-cache/internal/services/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetByAniDBID(ctx context.Context, aniDBID int) (*models.Series, error) {
	args := m.Called(ctx, aniDBID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Series), args.Error(1)
}

func (m *mockRepo) GetByExactTitle(ctx context.Context, name string) (*models.Series, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Series), args.Error(1)
}

func (m *mockRepo) SearchTitles(ctx context.Context, substring string) ([]models.Title, error) {
	args := m.Called(ctx, substring)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Title), args.Error(1)
}

func (m *mockRepo) AllTitles(ctx context.Context) ([]models.Title, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Title), args.Error(1)
}

func (m *mockRepo) GetSeriesRowID(ctx context.Context, rowID uint) (*models.Series, error) {
	args := m.Called(ctx, rowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Series), args.Error(1)
}

func (m *mockRepo) CreatePlaceholder(ctx context.Context, aniDBID int) (*models.Series, error) {
	args := m.Called(ctx, aniDBID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Series), args.Error(1)
}

func (m *mockRepo) MergeParsed(ctx context.Context, aniDBID int, parsed *parser.ParsedSeries) error {
	args := m.Called(ctx, aniDBID, parsed)
	return args.Error(0)
}

func (m *mockRepo) ImportTitle(ctx context.Context, aniDBID int, title parser.ParsedTitle) error {
	args := m.Called(ctx, aniDBID, title)
	return args.Error(0)
}

type mockGate struct {
	mock.Mock
}

func (m *mockGate) FetchSeries(ctx context.Context, aniDBID int) ([]byte, error) {
	args := m.Called(ctx, aniDBID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockGate) FetchTitlesDump(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockGate) TitlesDumpDue() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *mockGate) IsBanned() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *mockGate) CanRequest() bool {
	args := m.Called()
	return args.Bool(0)
}

func freshSeries(aniDBID int) *models.Series {
	now := time.Now().UTC()
	return &models.Series{AniDBID: aniDBID, RefreshedAt: &now}
}

func staleSeries(aniDBID int) *models.Series {
	old := time.Now().UTC().Add(-48 * time.Hour)
	return &models.Series{AniDBID: aniDBID, RefreshedAt: &old}
}

func newTestResolver(repo *mockRepo, gate *mockGate, opts ...ResolverOption) *Resolver {
	return NewResolver(repo, gate, series.NewStaleness(24*time.Hour), opts...)
}

func TestLookupSeriesInvalidArgs(t *testing.T) {
	resolver := newTestResolver(&mockRepo{}, &mockGate{})

	_, err := resolver.LookupSeries(context.Background(), "", 0)
	assert.ErrorIs(t, err, ErrInvalidArgs)
}

func TestLookupSeriesByIDFreshCacheSkipsFetch(t *testing.T) {
	repo := &mockRepo{}
	gate := &mockGate{}
	repo.On("GetByAniDBID", mock.Anything, 13217).Return(freshSeries(13217), nil)

	resolver := newTestResolver(repo, gate)
	got, err := resolver.LookupSeries(context.Background(), "", 13217)
	require.NoError(t, err)
	assert.Equal(t, 13217, got.AniDBID)

	gate.AssertNotCalled(t, "FetchSeries", mock.Anything, mock.Anything)
}

func TestLookupSeriesByIDCreatesPlaceholderAndRefreshes(t *testing.T) {
	repo := &mockRepo{}
	gate := &mockGate{}

	placeholder := &models.Series{AniDBID: 7}
	merged := freshSeries(7)
	merged.Type = "TV Series"

	repo.On("GetByAniDBID", mock.Anything, 7).Return(nil, series.ErrSeriesNotFound).Once()
	repo.On("CreatePlaceholder", mock.Anything, 7).Return(placeholder, nil).Once()
	gate.On("IsBanned").Return(false)
	gate.On("CanRequest").Return(true)
	gate.On("FetchSeries", mock.Anything, 7).
		Return([]byte(`<anime id="7"><type>TV Series</type></anime>`), nil).Once()
	repo.On("MergeParsed", mock.Anything, 7, mock.Anything).Return(nil).Once()
	repo.On("GetByAniDBID", mock.Anything, 7).Return(merged, nil).Once()

	resolver := newTestResolver(repo, gate)
	got, err := resolver.LookupSeries(context.Background(), "", 7)
	require.NoError(t, err)
	assert.Equal(t, "TV Series", got.Type)

	repo.AssertExpectations(t)
	gate.AssertExpectations(t)
}

func TestLookupSeriesPlaceholderRefreshFailurePropagates(t *testing.T) {
	repo := &mockRepo{}
	gate := &mockGate{}

	repo.On("GetByAniDBID", mock.Anything, 7).Return(&models.Series{AniDBID: 7}, nil)
	gate.On("IsBanned").Return(false)
	gate.On("CanRequest").Return(true)
	gate.On("FetchSeries", mock.Anything, 7).Return(nil, anidb.ErrBanned)

	resolver := newTestResolver(repo, gate)
	_, err := resolver.LookupSeries(context.Background(), "", 7)
	assert.ErrorIs(t, err, anidb.ErrBanned)
}

func TestLookupSeriesStaleServesCachedOnFetchFailure(t *testing.T) {
	repo := &mockRepo{}
	gate := &mockGate{}

	cached := staleSeries(7)
	repo.On("GetByAniDBID", mock.Anything, 7).Return(cached, nil)
	gate.On("IsBanned").Return(false)
	gate.On("CanRequest").Return(true)
	gate.On("FetchSeries", mock.Anything, 7).Return(nil, errors.New("upstream down"))

	resolver := newTestResolver(repo, gate)
	got, err := resolver.LookupSeries(context.Background(), "", 7)
	require.NoError(t, err)
	assert.Equal(t, cached, got)
}

func TestLookupSeriesStaleButBannedServesCached(t *testing.T) {
	repo := &mockRepo{}
	gate := &mockGate{}

	cached := staleSeries(7)
	repo.On("GetByAniDBID", mock.Anything, 7).Return(cached, nil)
	gate.On("IsBanned").Return(true)

	resolver := newTestResolver(repo, gate)
	got, err := resolver.LookupSeries(context.Background(), "", 7)
	require.NoError(t, err)
	assert.Equal(t, cached, got)

	gate.AssertNotCalled(t, "FetchSeries", mock.Anything, mock.Anything)
}

func TestLookupSeriesByNameExactMatch(t *testing.T) {
	repo := &mockRepo{}
	gate := &mockGate{}

	repo.On("GetByExactTitle", mock.Anything, "Cowboy Bebop").Return(freshSeries(23), nil)

	resolver := newTestResolver(repo, gate)
	got, err := resolver.LookupSeries(context.Background(), "Cowboy Bebop", 0)
	require.NoError(t, err)
	assert.Equal(t, 23, got.AniDBID)
}

func TestLookupSeriesFuzzyAcceptsAtThreshold(t *testing.T) {
	repo := &mockRepo{}
	gate := &mockGate{}

	// Ratio("abcd", "abcdxy") is exactly 0.8
	repo.On("GetByExactTitle", mock.Anything, "abcd").Return(nil, series.ErrSeriesNotFound)
	repo.On("SearchTitles", mock.Anything, "abcd").
		Return([]models.Title{{SeriesID: 3, Name: "abcdxy"}}, nil)
	repo.On("GetSeriesRowID", mock.Anything, uint(3)).Return(freshSeries(42), nil)

	resolver := newTestResolver(repo, gate, WithMatchRatio(0.8))
	got, err := resolver.LookupSeries(context.Background(), "abcd", 0)
	require.NoError(t, err)
	assert.Equal(t, 42, got.AniDBID)
}

func TestLookupSeriesFuzzyRejectsBelowThreshold(t *testing.T) {
	repo := &mockRepo{}
	gate := &mockGate{}

	// Ratio("abcd", "abcdxyz") is about 0.727, under the 0.8 threshold
	repo.On("GetByExactTitle", mock.Anything, "abcd").Return(nil, series.ErrSeriesNotFound)
	repo.On("SearchTitles", mock.Anything, "abcd").
		Return([]models.Title{{SeriesID: 3, Name: "abcdxyz"}}, nil)

	resolver := newTestResolver(repo, gate, WithMatchRatio(0.8))
	_, err := resolver.LookupSeries(context.Background(), "abcd", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupSeriesFuzzyNoCandidates(t *testing.T) {
	repo := &mockRepo{}
	gate := &mockGate{}

	repo.On("GetByExactTitle", mock.Anything, "nothing here").Return(nil, series.ErrSeriesNotFound)
	repo.On("SearchTitles", mock.Anything, "nothing").Return([]models.Title{}, nil)
	repo.On("AllTitles", mock.Anything).Return([]models.Title{}, nil)

	resolver := newTestResolver(repo, gate)
	_, err := resolver.LookupSeries(context.Background(), "nothing here", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupSeriesMemoShortCircuitsSecondLookup(t *testing.T) {
	repo := &mockRepo{}
	gate := &mockGate{}

	repo.On("GetByExactTitle", mock.Anything, "Cowboy Bebop").Return(freshSeries(23), nil)
	repo.On("GetByAniDBID", mock.Anything, 23).Return(freshSeries(23), nil)

	resolver := newTestResolver(repo, gate)

	_, err := resolver.LookupSeries(context.Background(), "Cowboy Bebop", 0)
	require.NoError(t, err)
	_, err = resolver.LookupSeries(context.Background(), "Cowboy Bebop", 0)
	require.NoError(t, err)

	repo.AssertNumberOfCalls(t, "GetByExactTitle", 1)
	repo.AssertNumberOfCalls(t, "GetByAniDBID", 1)
}
