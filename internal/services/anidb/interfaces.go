package anidb

import "context"

// Gate is what the resolver sees of the fetch layer
type Gate interface {
	FetchSeries(ctx context.Context, aniDBID int) ([]byte, error)
	FetchTitlesDump(ctx context.Context) ([]byte, error)
	TitlesDumpDue() bool
	IsBanned() bool
	CanRequest() bool
}

// Ensure Client implements Gate
var _ Gate = (*Client)(nil)
