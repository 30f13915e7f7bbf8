package series

import (
	"time"

	"github.com/fadbs/anidb-cache/internal/models"
)

// Staleness decides whether a cached series may be trusted or should be
// refreshed. Staleness couples data age with fetch eligibility: a series
// can be chronologically stale yet ineligible for refresh, in which case
// the resolver serves the cached copy.
type Staleness struct {
	// TTL is the minimum age before a refresh is warranted. AniDB
	// permits one fetch per entry per day, so this never goes below 24h
	// in production.
	TTL time.Duration

	// SkipFinishedAfter, when positive, suppresses refreshes for series
	// that ended at least this long ago. Zero keeps the strict TTL rule.
	SkipFinishedAfter time.Duration

	// Now overrides the clock in tests
	Now func() time.Time
}

func NewStaleness(ttl time.Duration) *Staleness {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Staleness{TTL: ttl, Now: time.Now}
}

// Expired reports pure data age: true when the series has never been
// refreshed or its last refresh is at least TTL old
func (p *Staleness) Expired(series *models.Series) bool {
	if series.RefreshedAt == nil {
		return true
	}
	return p.now().Sub(*series.RefreshedAt) >= p.TTL
}

// IsStale reports whether a refresh is both warranted and currently
// permitted by the fetch gate's ban/session budget
func (p *Staleness) IsStale(series *models.Series, gate Eligibility) bool {
	if !p.Expired(series) {
		return false
	}

	if p.SkipFinishedAfter > 0 && series.EndDate != nil && series.RefreshedAt != nil {
		if p.now().Sub(*series.EndDate) > p.SkipFinishedAfter {
			return false
		}
	}

	if gate.IsBanned() || !gate.CanRequest() {
		return false
	}
	return true
}

func (p *Staleness) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
