package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateFormat = "2006-01-02"

var seasons = [4]string{"Winter", "Spring", "Summer", "Fall"}

// SeasonForMonth buckets a month into one of the four anime seasons:
// 1-3 Winter, 4-6 Spring, 7-9 Summer, 10-12 Fall
func SeasonForMonth(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return seasons[(month-1)/3]
}

// ParsedDate is the result of parsing a possibly partial AniDB date.
// Date is set only for full YYYY-MM-DD values; YYYY and YYYY-MM forms
// populate Year (and Season when a month is present) without guessing
// the missing components.
type ParsedDate struct {
	Date   *time.Time
	Year   int
	Season string
}

// ParseDate handles full and partial AniDB date strings. Empty input is
// legal and yields a zero ParsedDate.
func ParseDate(value string) (ParsedDate, error) {
	var parsed ParsedDate

	value = strings.TrimSpace(value)
	if value == "" {
		return parsed, nil
	}

	parts := strings.Split(value, "-")
	switch len(parts) {
	case 3:
		date, err := time.Parse(dateFormat, value)
		if err != nil {
			return parsed, fmt.Errorf("parsing date %q: %w", value, err)
		}
		parsed.Date = &date
		parsed.Year = date.Year()
		parsed.Season = SeasonForMonth(int(date.Month()))
	case 2:
		year, err := strconv.Atoi(parts[0])
		if err != nil {
			return parsed, fmt.Errorf("parsing partial date %q: %w", value, err)
		}
		month, err := strconv.Atoi(parts[1])
		if err != nil {
			return parsed, fmt.Errorf("parsing partial date %q: %w", value, err)
		}
		parsed.Year = year
		parsed.Season = SeasonForMonth(month)
	case 1:
		year, err := strconv.Atoi(parts[0])
		if err != nil {
			return parsed, fmt.Errorf("parsing partial date %q: %w", value, err)
		}
		parsed.Year = year
	default:
		return parsed, fmt.Errorf("unrecognized date %q", value)
	}

	return parsed, nil
}
