package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ebike_tours/internal/adapters/observability"
	"ebike_tours/internal/catalog"
	"ebike_tours/internal/domain"
)

var (
	ErrRateLimited      = errors.New("too many retries")
	ErrFetchLogDisabled = errors.New("fetch log is not configured")
)

// CatalogService is what pages and API handlers read. It never returns
// fetch failures as errors: they are part of the view.
type CatalogService struct {
	store    *catalog.Store
	limiter  domain.RetryLimiter
	limName  string
	fetchLog domain.FetchLog
	wait     time.Duration
}

// NewCatalogService wires the store to its consumers. wait bounds how long a
// request blocks on the initial fetch before rendering the loading state.
// limiter and fetchLog may be nil.
func NewCatalogService(s *catalog.Store, l domain.RetryLimiter, fl domain.FetchLog, wait time.Duration) *CatalogService {
	name := "none"
	if n, ok := l.(interface{ Name() string }); ok {
		name = n.Name()
	}
	return &CatalogService{store: s, limiter: l, limName: name, fetchLog: fl, wait: wait}
}

// CatalogView is the consumer contract: {tours, popularTours, loading, error}.
type CatalogView struct {
	Tours        []domain.Tour `json:"tours"`
	PopularTours []domain.Tour `json:"popularTours"`
	Loading      bool          `json:"loading"`
	Error        *string       `json:"error"`
}

type StatusView struct {
	State      catalog.State `json:"state"`
	Error      *string       `json:"error"`
	Count      int           `json:"count"`
	Featured   int           `json:"featured"`
	Duplicates []string      `json:"duplicates"`
	FetchedAt  *time.Time    `json:"fetchedAt"`
	Generation uint64        `json:"generation"`
}

// viewOf maps a snapshot to the consumer view. Empty only survives ensure
// when the wait ran out before the read began, so it reads as loading.
func viewOf(snap catalog.Snapshot) CatalogView {
	v := CatalogView{
		Tours:        nonNil(snap.Tours),
		PopularTours: nonNil(snap.Featured),
		Loading:      snap.Loading() || snap.State == catalog.Empty,
	}
	if snap.State == catalog.Failed {
		e := snap.Err
		v.Error = &e
	}
	return v
}

func nonNil(ts []domain.Tour) []domain.Tour {
	if ts == nil {
		return []domain.Tour{}
	}
	return ts
}

func (s *CatalogService) ensure(ctx context.Context) catalog.Snapshot {
	if s.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.wait)
		defer cancel()
	}
	return s.store.EnsureLoaded(ctx)
}

// View triggers the initial fetch if needed and returns the current catalog.
func (s *CatalogService) View(ctx context.Context) CatalogView {
	return viewOf(s.ensure(ctx))
}

// List is View restricted to one category (case-insensitive). Popular tours
// are not filtered.
func (s *CatalogService) List(ctx context.Context, category string) CatalogView {
	v := s.View(ctx)
	category = strings.TrimSpace(category)
	if category == "" {
		return v
	}
	out := make([]domain.Tour, 0, len(v.Tours))
	for _, t := range v.Tours {
		if strings.EqualFold(strings.TrimSpace(t.Category), category) {
			out = append(out, t)
		}
	}
	v.Tours = out
	return v
}

// Categories lists distinct non-empty categories in catalog order.
func Categories(ts []domain.Tour) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range ts {
		c := strings.TrimSpace(t.Category)
		k := strings.ToLower(c)
		if c == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

func (s *CatalogService) Tour(ctx context.Context, id string) (domain.Tour, CatalogView, error) {
	v := viewOf(s.ensure(ctx))
	t, ok := s.store.Lookup(id)
	if !ok {
		return domain.Tour{}, v, domain.ErrNotFound
	}
	return t, v, nil
}

// Retry is the user-initiated recovery path. A failed store is read again
// (keeping whatever it had); otherwise this is the same as View.
func (s *CatalogService) Retry(ctx context.Context, client string) (CatalogView, error) {
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, client)
		switch {
		case err != nil:
			// fail open: a limiter outage must not lock visitors out of recovery
			observability.ObserveRetry(s.limName, "error")
			log.Warn().Err(err).Str("client", client).Msg("retry limiter failed")
		case !ok:
			observability.ObserveRetry(s.limName, "deny")
			return viewOf(s.store.Snapshot()), ErrRateLimited
		default:
			observability.ObserveRetry(s.limName, "allow")
		}
	}

	if s.store.Status().State != catalog.Failed {
		return s.View(ctx), nil
	}
	if s.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.wait)
		defer cancel()
	}
	return viewOf(s.store.Refresh(ctx)), nil
}

// Status reads the store without triggering a fetch.
func (s *CatalogService) Status() StatusView {
	snap := s.store.Snapshot()
	out := StatusView{
		State:      snap.State,
		Count:      len(snap.Tours),
		Featured:   len(snap.Featured),
		Duplicates: snap.DuplicateIDs,
		Generation: snap.Generation,
	}
	if out.Duplicates == nil {
		out.Duplicates = []string{}
	}
	if snap.State == catalog.Failed {
		e := snap.Err
		out.Error = &e
	}
	if !snap.FetchedAt.IsZero() {
		at := snap.FetchedAt
		out.FetchedAt = &at
	}
	return out
}

func (s *CatalogService) Fetches(ctx context.Context, limit int) ([]domain.FetchAttempt, error) {
	if s.fetchLog == nil {
		return nil, ErrFetchLogDisabled
	}
	return s.fetchLog.ListFetches(ctx, limit)
}
