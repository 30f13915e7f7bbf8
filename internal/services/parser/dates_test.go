package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonForMonth(t *testing.T) {
	cases := []struct {
		month  int
		season string
	}{
		{1, "Winter"}, {2, "Winter"}, {3, "Winter"},
		{4, "Spring"}, {5, "Spring"}, {6, "Spring"},
		{7, "Summer"}, {8, "Summer"}, {9, "Summer"},
		{10, "Fall"}, {11, "Fall"}, {12, "Fall"},
		{0, ""}, {13, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.season, SeasonForMonth(tc.month), "month %d", tc.month)
	}
}

func TestParseDateFull(t *testing.T) {
	parsed, err := ParseDate("2017-10-12")
	require.NoError(t, err)
	require.NotNil(t, parsed.Date)
	assert.Equal(t, "2017-10-12", parsed.Date.Format("2006-01-02"))
	assert.Equal(t, 2017, parsed.Year)
	assert.Equal(t, "Fall", parsed.Season)
}

func TestParseDateYearMonth(t *testing.T) {
	parsed, err := ParseDate("2004-04")
	require.NoError(t, err)
	assert.Nil(t, parsed.Date)
	assert.Equal(t, 2004, parsed.Year)
	assert.Equal(t, "Spring", parsed.Season)
}

func TestParseDateYearOnly(t *testing.T) {
	parsed, err := ParseDate("1999")
	require.NoError(t, err)
	assert.Nil(t, parsed.Date)
	assert.Equal(t, 1999, parsed.Year)
	assert.Empty(t, parsed.Season)
}

func TestParseDateEmpty(t *testing.T) {
	parsed, err := ParseDate("")
	require.NoError(t, err)
	assert.Nil(t, parsed.Date)
	assert.Zero(t, parsed.Year)
}

func TestParseDateGarbage(t *testing.T) {
	_, err := ParseDate("not-a-date")
	assert.Error(t, err)

	_, err = ParseDate("2017-13-40")
	assert.Error(t, err)
}
