package app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ebike_tours/internal/app"
	"ebike_tours/internal/catalog"
	"ebike_tours/internal/domain"
)

// ---- fakes ----

type fakeSource struct {
	calls int32
	mu    sync.Mutex
	tours []domain.Tour
	err   error
	gate  chan struct{}
}

func (f *fakeSource) FetchTours(ctx context.Context) ([]domain.Tour, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tours, f.err
}

func (f *fakeSource) set(ts []domain.Tour, err error) {
	f.mu.Lock()
	f.tours, f.err = ts, err
	f.mu.Unlock()
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

type fakeFetchLog struct{ rows []domain.FetchAttempt }

func (l *fakeFetchLog) RecordFetch(_ context.Context, a domain.FetchAttempt) error {
	l.rows = append(l.rows, a)
	return nil
}

func (l *fakeFetchLog) ListFetches(_ context.Context, limit int) ([]domain.FetchAttempt, error) {
	if limit < len(l.rows) {
		return l.rows[:limit], nil
	}
	return l.rows, nil
}

func tours() []domain.Tour {
	return []domain.Tour{
		{ID: "1", Name: "Ella Sunrise", Category: "Mountain", Featured: true},
		{ID: "2", Name: "Kandy Lakes", Category: "City"},
		{ID: "3", Name: "Hill Country", Category: " mountain "},
	}
}

func TestView_ReadyAndFailed(t *testing.T) {
	src := &fakeSource{tours: tours()}
	svc := app.NewCatalogService(catalog.New(src), nil, nil, time.Second)

	v := svc.View(context.Background())
	if len(v.Tours) != 3 || len(v.PopularTours) != 1 || v.Loading || v.Error != nil {
		t.Fatalf("unexpected view: %+v", v)
	}

	src2 := &fakeSource{err: domain.NotArrayError("object")}
	v = app.NewCatalogService(catalog.New(src2), nil, nil, time.Second).View(context.Background())
	if v.Error == nil || v.Tours == nil || v.PopularTours == nil {
		t.Fatalf("failed view must carry an error and empty lists: %+v", v)
	}
}

func TestView_WaitExpiresWhileLoading(t *testing.T) {
	src := &fakeSource{tours: tours(), gate: make(chan struct{})}
	defer close(src.gate)
	svc := app.NewCatalogService(catalog.New(src), nil, nil, 20*time.Millisecond)

	v := svc.View(context.Background())
	if !v.Loading || len(v.Tours) != 0 {
		t.Fatalf("expected loading view, got %+v", v)
	}
}

func TestList_FiltersByCategory(t *testing.T) {
	svc := app.NewCatalogService(catalog.New(&fakeSource{tours: tours()}), nil, nil, time.Second)

	v := svc.List(context.Background(), "MOUNTAIN")
	if len(v.Tours) != 2 || v.Tours[0].ID != "1" || v.Tours[1].ID != "3" {
		t.Fatalf("unexpected filter result: %+v", v.Tours)
	}
	if len(v.PopularTours) != 1 {
		t.Fatalf("popular tours must not be filtered: %+v", v.PopularTours)
	}
	if got := svc.List(context.Background(), ""); len(got.Tours) != 3 {
		t.Fatalf("empty category must not filter, got %d", len(got.Tours))
	}
}

func TestCategories(t *testing.T) {
	got := app.Categories(tours())
	if len(got) != 2 || got[0] != "Mountain" || got[1] != "City" {
		t.Fatalf("unexpected categories: %v", got)
	}
}

func TestTour(t *testing.T) {
	svc := app.NewCatalogService(catalog.New(&fakeSource{tours: tours()}), nil, nil, time.Second)

	got, _, err := svc.Tour(context.Background(), "2")
	if err != nil || got.Name != "Kandy Lakes" {
		t.Fatalf("got %+v err %v", got, err)
	}
	if _, _, err := svc.Tour(context.Background(), "9"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRetry_RefreshesOnlyWhenFailed(t *testing.T) {
	src := &fakeSource{err: domain.StatusError(500)}
	lim := &fakeLimiter{allow: true}
	svc := app.NewCatalogService(catalog.New(src), lim, nil, time.Second)

	if v := svc.View(context.Background()); v.Error == nil {
		t.Fatal("expected failure")
	}
	src.set(tours(), nil)

	v, err := svc.Retry(context.Background(), "203.0.113.7")
	if err != nil || v.Error != nil || len(v.Tours) != 3 {
		t.Fatalf("retry: %+v err %v", v, err)
	}
	if n := atomic.LoadInt32(&src.calls); n != 2 {
		t.Fatalf("expected 2 reads, got %d", n)
	}

	// ready: retry is just a read
	if _, err := svc.Retry(context.Background(), "203.0.113.7"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&src.calls); n != 2 {
		t.Fatalf("retry on a ready catalog must not read again, got %d", n)
	}
	if len(lim.keys) != 2 || lim.keys[0] != "203.0.113.7" {
		t.Fatalf("limiter keys: %v", lim.keys)
	}
}

func TestRetry_RateLimited(t *testing.T) {
	src := &fakeSource{err: domain.StatusError(500)}
	svc := app.NewCatalogService(catalog.New(src), &fakeLimiter{allow: false}, nil, time.Second)
	svc.View(context.Background())

	v, err := svc.Retry(context.Background(), "a")
	if !errors.Is(err, app.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if v.Error == nil {
		t.Fatal("denied retry still reports the current view")
	}
	if n := atomic.LoadInt32(&src.calls); n != 1 {
		t.Fatalf("denied retry must not read, got %d", n)
	}
}

func TestRetry_LimiterErrorFailsOpen(t *testing.T) {
	src := &fakeSource{err: domain.StatusError(500)}
	svc := app.NewCatalogService(catalog.New(src), &fakeLimiter{err: errors.New("redis down")}, nil, time.Second)
	svc.View(context.Background())
	src.set(tours(), nil)

	v, err := svc.Retry(context.Background(), "a")
	if err != nil || len(v.Tours) != 3 {
		t.Fatalf("expected retry to proceed, got %+v err %v", v, err)
	}
}

func TestStatus(t *testing.T) {
	src := &fakeSource{tours: append(tours(), domain.Tour{ID: "1"})}
	svc := app.NewCatalogService(catalog.New(src), nil, nil, time.Second)

	if st := svc.Status(); st.State != catalog.Empty || st.FetchedAt != nil || st.Duplicates == nil {
		t.Fatalf("unexpected initial status: %+v", st)
	}
	svc.View(context.Background())
	st := svc.Status()
	if st.State != catalog.Ready || st.Count != 4 || st.Featured != 1 || st.FetchedAt == nil || st.Generation != 1 {
		t.Fatalf("unexpected status: %+v", st)
	}
	if len(st.Duplicates) != 1 || st.Duplicates[0] != "1" {
		t.Fatalf("duplicates: %v", st.Duplicates)
	}
}

func TestFetches(t *testing.T) {
	src := &fakeSource{tours: tours()}
	if _, err := app.NewCatalogService(catalog.New(src), nil, nil, 0).Fetches(context.Background(), 10); !errors.Is(err, app.ErrFetchLogDisabled) {
		t.Fatalf("expected ErrFetchLogDisabled, got %v", err)
	}

	fl := &fakeFetchLog{}
	svc := app.NewCatalogService(catalog.New(src, catalog.WithFetchLog(fl)), nil, fl, 0)
	svc.View(context.Background())
	rows, err := svc.Fetches(context.Background(), 10)
	if err != nil || len(rows) != 1 || !rows[0].OK || rows[0].Tours != 3 {
		t.Fatalf("rows %+v err %v", rows, err)
	}
}
