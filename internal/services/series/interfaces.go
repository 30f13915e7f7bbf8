package series

import (
	"context"

	"github.com/fadbs/anidb-cache/internal/models"
	"github.com/fadbs/anidb-cache/internal/services/parser"
)

// SeriesRepository defines the entity store operations the resolver and
// merge path need
type SeriesRepository interface {
	// Lookup
	GetByAniDBID(ctx context.Context, aniDBID int) (*models.Series, error)
	GetByExactTitle(ctx context.Context, name string) (*models.Series, error)
	SearchTitles(ctx context.Context, substring string) ([]models.Title, error)
	AllTitles(ctx context.Context) ([]models.Title, error)
	GetSeriesRowID(ctx context.Context, rowID uint) (*models.Series, error)

	// Mutation
	CreatePlaceholder(ctx context.Context, aniDBID int) (*models.Series, error)
	MergeParsed(ctx context.Context, aniDBID int, parsed *parser.ParsedSeries) error
	ImportTitle(ctx context.Context, aniDBID int, title parser.ParsedTitle) error
}

// Eligibility is the slice of the fetch gate the staleness policy reads
type Eligibility interface {
	IsBanned() bool
	CanRequest() bool
}
