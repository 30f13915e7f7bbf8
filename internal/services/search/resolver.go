// Package search resolves loosely specified titles or AniDB ids to one
// canonical cached series, refreshing through the fetch gate when the
// staleness policy calls for it.
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/fadbs/anidb-cache/internal/models"
	"github.com/fadbs/anidb-cache/internal/services/anidb"
	"github.com/fadbs/anidb-cache/internal/services/parser"
	"github.com/fadbs/anidb-cache/internal/services/series"
)

const defaultMatchRatio = 0.9

// Resolver maps a name and/or AniDB id to a canonical series
type Resolver struct {
	repo      series.SeriesRepository
	gate      anidb.Gate
	staleness *series.Staleness

	matchRatio float64

	// Single-slot memo for the last successful name resolution. Purely
	// an optimization for repeated lookups within one task run; never a
	// consistency guarantee.
	mu          sync.Mutex
	memoName    string
	memoAniDBID int
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithMatchRatio sets the fuzzy acceptance threshold
func WithMatchRatio(ratio float64) ResolverOption {
	return func(r *Resolver) {
		if ratio > 0 && ratio <= 1 {
			r.matchRatio = ratio
		}
	}
}

func NewResolver(repo series.SeriesRepository, gate anidb.Gate, staleness *series.Staleness, opts ...ResolverOption) *Resolver {
	resolver := &Resolver{
		repo:       repo,
		gate:       gate,
		staleness:  staleness,
		matchRatio: defaultMatchRatio,
	}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver
}

// LookupSeries resolves a series by AniDB id and/or name, refreshing it
// from upstream when it is stale and the fetch budget permits. Passing
// an id of zero means "by name only"; both absent is a caller bug.
func (r *Resolver) LookupSeries(ctx context.Context, name string, aniDBID int) (*models.Series, error) {
	if name == "" && aniDBID == 0 {
		return nil, ErrInvalidArgs
	}

	var cached *models.Series
	var err error

	if aniDBID != 0 {
		cached, err = r.repo.GetByAniDBID(ctx, aniDBID)
		if errors.Is(err, series.ErrSeriesNotFound) {
			// Placeholder first, so the merge has a row to attach to
			cached, err = r.repo.CreatePlaceholder(ctx, aniDBID)
		}
		if err != nil {
			return nil, err
		}
	} else {
		cached, err = r.resolveByName(ctx, name)
		if err != nil {
			return nil, err
		}
	}

	return r.refreshIfStale(ctx, cached)
}

func (r *Resolver) resolveByName(ctx context.Context, name string) (*models.Series, error) {
	if aniDBID, ok := r.memoLookup(name); ok {
		cached, err := r.repo.GetByAniDBID(ctx, aniDBID)
		if err == nil {
			return cached, nil
		}
		// Memo pointed at something that vanished; fall through
	}

	cached, err := r.repo.GetByExactTitle(ctx, name)
	if err == nil {
		r.memoStore(name, cached.AniDBID)
		return cached, nil
	}
	if !errors.Is(err, series.ErrSeriesNotFound) {
		return nil, err
	}

	cached, err = r.resolveFuzzy(ctx, name)
	if err != nil {
		return nil, err
	}
	r.memoStore(name, cached.AniDBID)
	return cached, nil
}

// resolveFuzzy scores candidate titles against the query and accepts the
// best one at or above the threshold
func (r *Resolver) resolveFuzzy(ctx context.Context, name string) (*models.Series, error) {
	candidates, err := r.candidateTitles(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNotFound
	}

	query := Normalize(name)
	var bestTitle *models.Title
	bestScore := 0.0
	for idx := range candidates {
		score := Ratio(query, Normalize(candidates[idx].Name))
		if score > bestScore {
			bestScore = score
			bestTitle = &candidates[idx]
		}
	}

	if bestTitle == nil || bestScore < r.matchRatio {
		return nil, ErrNotFound
	}

	log.Printf("[DEBUG] fuzzy match %q -> %q (score %.3f)", name, bestTitle.Name, bestScore)
	return r.repo.GetSeriesRowID(ctx, bestTitle.SeriesID)
}

// candidateTitles narrows the corpus with a substring prefilter before
// the quadratic scoring pass; an empty prefilter result falls back to
// scoring everything
func (r *Resolver) candidateTitles(ctx context.Context, name string) ([]models.Title, error) {
	if token := prefilterToken(name); token != "" {
		titles, err := r.repo.SearchTitles(ctx, token)
		if err != nil {
			return nil, err
		}
		if len(titles) > 0 {
			return titles, nil
		}
	}
	return r.repo.AllTitles(ctx)
}

// refreshIfStale runs the fetch, parse, merge pipeline when the
// staleness policy calls for it. A stale-but-ineligible series is served
// as-is; errors only propagate when there is no prior cache to fall
// back to.
func (r *Resolver) refreshIfStale(ctx context.Context, cached *models.Series) (*models.Series, error) {
	if !r.staleness.IsStale(cached, r.gate) {
		return cached, nil
	}

	if err := r.refresh(ctx, cached.AniDBID); err != nil {
		if cached.RefreshedAt == nil {
			// Brand-new placeholder: there is nothing valid to serve
			return nil, err
		}
		log.Printf("[WARN] refresh of series %d failed, serving cached copy: %v", cached.AniDBID, err)
		return cached, nil
	}

	return r.repo.GetByAniDBID(ctx, cached.AniDBID)
}

func (r *Resolver) refresh(ctx context.Context, aniDBID int) error {
	raw, err := r.gate.FetchSeries(ctx, aniDBID)
	if err != nil {
		return err
	}

	parsed, err := parser.ParseSeries(raw)
	if err != nil {
		return err
	}

	if err := r.repo.MergeParsed(ctx, aniDBID, parsed); err != nil {
		return fmt.Errorf("merging series %d: %w", aniDBID, err)
	}
	return nil
}

func (r *Resolver) memoLookup(name string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.memoName == name && r.memoAniDBID != 0 {
		return r.memoAniDBID, true
	}
	return 0, false
}

func (r *Resolver) memoStore(name string, aniDBID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memoName = name
	r.memoAniDBID = aniDBID
}
