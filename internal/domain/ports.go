package domain

import (
	"context"
	"time"
)

// CatalogSource performs one read of the full tour catalog.
type CatalogSource interface {
	FetchTours(ctx context.Context) ([]Tour, error)
}

// FetchAttempt is one row of the fetch audit log.
type FetchAttempt struct {
	ID         int64
	StartedAt  time.Time
	Duration   time.Duration
	Trigger    string // ensure, refresh or cli
	OK         bool
	Tours      int
	Featured   int
	Duplicates int
	Error      *string
}

type FetchLog interface {
	RecordFetch(ctx context.Context, a FetchAttempt) error
	ListFetches(ctx context.Context, limit int) ([]FetchAttempt, error)
}

// RetryLimiter guards the user-initiated retry path per client key.
type RetryLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
