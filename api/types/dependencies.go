package types

import (
	"context"

	"github.com/fadbs/anidb-cache/internal/database"
	"github.com/fadbs/anidb-cache/internal/models"
)

// SeriesResolver is what the handlers need from the resolver
type SeriesResolver interface {
	LookupSeries(ctx context.Context, name string, aniDBID int) (*models.Series, error)
}

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB       *database.DB
	Resolver SeriesResolver

	// MinTagWeight drops tags below this weight from lookup responses.
	// Zero disables the cut.
	MinTagWeight int
}
